// Package llm Groq风格chat-completions客户端, 带限流退避重试
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultEndpoint   = "https://api.groq.com/openai/v1/chat/completions"
	DefaultModel      = "llama-3.3-70b-versatile"
	DefaultMaxTokens  = 1024
	DefaultMaxRetries = 5
	DefaultBaseDelay  = 2 * time.Second

	// 提示词长度上限, 超出时保留末尾部分
	maxPromptChars  = 6000
	keptPromptChars = 4000

	// FallbackAnswer LLM无响应时的兜底回答（对外导出）
	FallbackAnswer = "No relevant medical evidence was found for your query. Please try rephrasing or consult a healthcare professional."
)

// 从限流错误信息中提取建议等待时长
var retryAfterPattern = regexp.MustCompile(`try again in ([0-9.]+)s`)

// Client 文本生成接口（对外导出）
type Client interface {
	Chat(ctx context.Context, prompt string) (string, error)
}

// HTTPClient OpenAI兼容的chat-completions客户端（对外导出）
type HTTPClient struct {
	endpoint   string
	model      string
	apiKey     string
	maxTokens  int
	maxRetries int
	baseDelay  time.Duration
	httpClient *http.Client

	// 测试时可替换, 避免真实等待
	sleep func(ctx context.Context, d time.Duration) error
}

// Options HTTP客户端配置（对外导出）
type Options struct {
	Endpoint   string
	Model      string
	APIKey     string
	MaxTokens  int
	MaxRetries int
	BaseDelay  time.Duration
	Timeout    time.Duration
}

// NewHTTPClient 创建客户端（对外导出）
func NewHTTPClient(opts Options) *HTTPClient {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = DefaultBaseDelay
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	return &HTTPClient{
		endpoint:   opts.Endpoint,
		model:      opts.Model,
		apiKey:     opts.APIKey,
		maxTokens:  opts.MaxTokens,
		maxRetries: opts.MaxRetries,
		baseDelay:  opts.BaseDelay,
		httpClient: &http.Client{Timeout: opts.Timeout},
		sleep:      sleepCtx,
	}
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Chat 生成回答, 限流时按API建议或指数退避重试（对外导出）
func (c *HTTPClient) Chat(ctx context.Context, prompt string) (string, error) {
	prompt = truncatePrompt(prompt)

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		answer, retryAfter, err := c.doRequest(ctx, prompt)
		if err == nil {
			if strings.TrimSpace(answer) == "" {
				log.Printf("LLM返回空响应, 使用兜底回答")
				return FallbackAnswer, nil
			}
			return strings.TrimSpace(answer), nil
		}
		lastErr = err

		if attempt == c.maxRetries-1 {
			break
		}

		delay := retryAfter
		if delay <= 0 {
			delay = c.baseDelay * time.Duration(1<<uint(2*attempt))
		}
		log.Printf("LLM请求失败, %v后重试 (第%d/%d次): %v", delay, attempt+1, c.maxRetries, err)
		if err := c.sleep(ctx, delay); err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("LLM请求重试%d次后仍失败: %w", c.maxRetries, lastErr)
}

// doRequest 单次请求, 返回限流时API建议的等待时长（内部方法）
func (c *HTTPClient) doRequest(ctx context.Context, prompt string) (answer string, retryAfter time.Duration, err error) {
	body, err := json.Marshal(chatRequest{
		Model:     c.model,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens: c.maxTokens,
	})
	if err != nil {
		return "", 0, fmt.Errorf("LLM请求序列化失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", 0, fmt.Errorf("LLM请求构建失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("LLM请求失败: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", 0, fmt.Errorf("LLM响应读取失败: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", parseRetryAfter(string(raw)), fmt.Errorf("LLM限流: %s", string(raw))
	}
	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("LLM接口返回异常状态码 %d: %s", resp.StatusCode, string(raw))
	}

	var decoded chatResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", 0, fmt.Errorf("LLM响应解析失败: %w", err)
	}
	if decoded.Error != nil {
		return "", 0, fmt.Errorf("LLM接口错误: %s", decoded.Error.Message)
	}
	if len(decoded.Choices) == 0 {
		return "", 0, nil
	}
	return decoded.Choices[0].Message.Content, 0, nil
}

// parseRetryAfter 提取"try again in Xs"建议的等待时长（内部方法）
func parseRetryAfter(message string) time.Duration {
	match := retryAfterPattern.FindStringSubmatch(message)
	if len(match) != 2 {
		return 0
	}
	seconds, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}

// truncatePrompt 超长提示词保留末尾部分（内部方法）
func truncatePrompt(prompt string) string {
	if len(prompt) <= maxPromptChars {
		return prompt
	}
	log.Printf("提示词过长(%d字符), 截断保留末尾%d字符", len(prompt), keptPromptChars)
	return prompt[len(prompt)-keptPromptChars:]
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
