package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func noSleep(_ context.Context, _ time.Duration) error { return nil }

func chatJSON(content string) string {
	resp := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	}
	raw, _ := json.Marshal(resp)
	return string(raw)
}

func newTestClient(endpoint string, maxRetries int) *HTTPClient {
	client := NewHTTPClient(Options{
		Endpoint:   endpoint,
		Model:      "test-model",
		APIKey:     "test-key",
		MaxRetries: maxRetries,
		BaseDelay:  time.Millisecond,
		Timeout:    5 * time.Second,
	})
	client.sleep = noSleep
	return client
}

func TestChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization头不正确: %q", got)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("请求解析失败: %v", err)
		}
		if req.MaxTokens != DefaultMaxTokens {
			t.Errorf("max_tokens不正确: %d", req.MaxTokens)
		}
		_, _ = w.Write([]byte(chatJSON("Pembrolizumab is dosed at 200 mg (PMID: 31223344).")))
	}))
	defer server.Close()

	answer, err := newTestClient(server.URL, 3).Chat(context.Background(), "question")
	if err != nil {
		t.Fatalf("Chat失败: %v", err)
	}
	if !strings.Contains(answer, "31223344") {
		t.Errorf("回答内容不正确: %q", answer)
	}
}

func TestChat_RateLimitRetry(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached. Please try again in 0.5s."}}`))
			return
		}
		_, _ = w.Write([]byte(chatJSON("final answer")))
	}))
	defer server.Close()

	client := newTestClient(server.URL, 5)
	var slept []time.Duration
	client.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	answer, err := client.Chat(context.Background(), "q")
	if err != nil {
		t.Fatalf("限流重试后应成功: %v", err)
	}
	if answer != "final answer" {
		t.Errorf("回答不正确: %q", answer)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Errorf("期望3次请求, 实际%d", calls)
	}
	if len(slept) != 2 || slept[0] != 500*time.Millisecond {
		t.Errorf("应按API建议等待0.5s: %v", slept)
	}
}

func TestChat_ExhaustedRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	if _, err := newTestClient(server.URL, 2).Chat(context.Background(), "q"); err == nil {
		t.Fatal("重试耗尽后应返回error")
	}
}

func TestChat_EmptyResponseFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(chatJSON("   ")))
	}))
	defer server.Close()

	answer, err := newTestClient(server.URL, 2).Chat(context.Background(), "q")
	if err != nil {
		t.Fatalf("空响应应走兜底而非报错: %v", err)
	}
	if answer != FallbackAnswer {
		t.Errorf("应返回兜底回答, 实际%q", answer)
	}
}

func TestParseRetryAfter(t *testing.T) {
	if got := parseRetryAfter("Please try again in 7.5s."); got != 7500*time.Millisecond {
		t.Errorf("解析结果不正确: %v", got)
	}
	if got := parseRetryAfter("no hint here"); got != 0 {
		t.Errorf("无提示时应为0: %v", got)
	}
}

func TestTruncatePrompt(t *testing.T) {
	long := strings.Repeat("a", 7000) + "tail"
	out := truncatePrompt(long)
	if len(out) != keptPromptChars {
		t.Errorf("截断长度不正确: %d", len(out))
	}
	if !strings.HasSuffix(out, "tail") {
		t.Error("应保留提示词末尾")
	}

	short := "short prompt"
	if truncatePrompt(short) != short {
		t.Error("短提示词不应被截断")
	}
}

func TestMockClient(t *testing.T) {
	answer, err := NewMockClient().Chat(context.Background(), "CONTEXT line one\nQUESTION: q\nANSWER:")
	if err != nil {
		t.Fatalf("MockClient不应报错: %v", err)
	}
	if !strings.Contains(answer, "[MOCK LLM]") || !strings.Contains(answer, "CONTEXT line one") {
		t.Errorf("模拟回答不正确: %q", answer)
	}
}
