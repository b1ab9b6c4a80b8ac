package llm

import (
	"context"
	"fmt"
	"strings"
)

// MockClient 无API凭证时的本地替身, 输出确定性摘要（对外导出）
type MockClient struct{}

// NewMockClient 创建本地替身（对外导出）
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Chat 从提示词中摘取上下文行拼出模拟回答（对外导出）
func (m *MockClient) Chat(_ context.Context, prompt string) (string, error) {
	var bullets []string
	for _, line := range strings.Split(prompt, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "QUESTION:") || strings.HasPrefix(line, "ANSWER") {
			continue
		}
		if len(line) > 80 {
			line = line[:80] + "..."
		}
		bullets = append(bullets, "- "+line)
		if len(bullets) >= 5 {
			break
		}
	}
	return fmt.Sprintf("[MOCK LLM] Evidence-based summary:\n%s", strings.Join(bullets, "\n")), nil
}
