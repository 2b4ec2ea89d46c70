package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tt1125/kacchi-navi/internal/generation"
	"github.com/tt1125/kacchi-navi/internal/metrics"
	"github.com/tt1125/kacchi-navi/internal/model"
)

// mockChatService はChatServiceInterfaceのモック。
type mockChatService struct {
	answerFunc            func(ctx context.Context, question string, messages []generation.Message) (string, error)
	answerWithHistoryFunc func(ctx context.Context, question string, messages []generation.Message) (string, error)
}

var _ ChatServiceInterface = (*mockChatService)(nil)

func (m *mockChatService) Answer(ctx context.Context, question string, messages []generation.Message) (string, error) {
	if m.answerFunc != nil {
		return m.answerFunc(ctx, question, messages)
	}
	return "", nil
}

func (m *mockChatService) AnswerWithHistory(ctx context.Context, question string, messages []generation.Message) (string, error) {
	if m.answerWithHistoryFunc != nil {
		return m.answerWithHistoryFunc(ctx, question, messages)
	}
	return "", nil
}

// mockMetricsCollector はチャットリクエストの記録のみを検証するモック。
type mockMetricsCollector struct {
	mu       sync.Mutex
	statuses []string
}

var _ metrics.MetricsCollector = (*mockMetricsCollector)(nil)

func (m *mockMetricsCollector) RecordChatRequest(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses = append(m.statuses, status)
}

func (m *mockMetricsCollector) RecordEmbeddingLatency(time.Duration)  {}
func (m *mockMetricsCollector) RecordGenerationLatency(time.Duration) {}
func (m *mockMetricsCollector) RecordGenerationRetry()                {}
func (m *mockMetricsCollector) RecordUpstreamStatus(string, int)      {}
func (m *mockMetricsCollector) RecordSyllabusIngested(int)            {}

func (m *mockMetricsCollector) recorded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.statuses...)
}

func newTestChatHandler(service ChatServiceInterface, collector metrics.MetricsCollector) *ChatHandler {
	return NewChatHandler(service, collector, ChatHandlerConfig{StreamPacing: 0})
}

func TestChat_StreamsAnswer(t *testing.T) {
	service := &mockChatService{
		answerFunc: func(ctx context.Context, question string, messages []generation.Message) (string, error) {
			if question != "データ構造の講義はありますか" {
				t.Errorf("unexpected question: %s", question)
			}
			return "データ構造の講義があります。月曜1限です。", nil
		},
	}
	collector := &mockMetricsCollector{}
	h := newTestChatHandler(service, collector)

	body := strings.NewReader(`{"question":"データ構造の講義はありますか"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/chat", body)
	rec := httptest.NewRecorder()
	h.Chat(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/plain; charset=utf-8" {
		t.Errorf("unexpected Content-Type: %s", ct)
	}
	if got := rec.Body.String(); got != "データ構造の講義があります。月曜1限です。" {
		t.Errorf("ストリーム全体が回答と一致しない: %s", got)
	}

	if statuses := collector.recorded(); len(statuses) != 1 || statuses[0] != "success" {
		t.Errorf("unexpected recorded statuses: %v", statuses)
	}
}

func TestChat_PassesMessages(t *testing.T) {
	var gotMessages []generation.Message
	service := &mockChatService{
		answerFunc: func(ctx context.Context, question string, messages []generation.Message) (string, error) {
			gotMessages = messages
			return "回答。", nil
		},
	}
	h := newTestChatHandler(service, nil)

	body := strings.NewReader(`{"question":"続きは","messages":[{"role":"user","content":"こんにちは"},{"role":"assistant","content":"こんにちは！"}]}`)
	req := httptest.NewRequest(http.MethodPost, "/api/chat", body)
	rec := httptest.NewRecorder()
	h.Chat(rec, req)

	if len(gotMessages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(gotMessages))
	}
	if gotMessages[0].Role != "user" || gotMessages[1].Role != "assistant" {
		t.Errorf("unexpected messages: %+v", gotMessages)
	}
}

func TestChat_EmptyQuestion(t *testing.T) {
	collector := &mockMetricsCollector{}
	h := newTestChatHandler(&mockChatService{}, collector)

	tests := []struct {
		name string
		body string
	}{
		{"空の質問", `{"question":""}`},
		{"空白のみ", `{"question":"   "}`},
		{"不正なJSON", `{invalid`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.Chat(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
		})
	}

	if statuses := collector.recorded(); len(statuses) != 0 {
		t.Errorf("検証エラーはメトリクスに記録しない: %v", statuses)
	}
}

func TestChat_ServiceError(t *testing.T) {
	service := &mockChatService{
		answerFunc: func(ctx context.Context, question string, messages []generation.Message) (string, error) {
			return "", model.NewUpstreamTimeoutError("gemini")
		},
	}
	collector := &mockMetricsCollector{}
	h := newTestChatHandler(service, collector)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"question":"q"}`))
	rec := httptest.NewRecorder()
	h.Chat(rec, req)

	if rec.Code != http.StatusGatewayTimeout {
		t.Fatalf("expected 504, got %d", rec.Code)
	}
	if statuses := collector.recorded(); len(statuses) != 1 || statuses[0] != "error" {
		t.Errorf("unexpected recorded statuses: %v", statuses)
	}
}

func TestChatSSE(t *testing.T) {
	service := &mockChatService{
		answerWithHistoryFunc: func(ctx context.Context, question string, messages []generation.Message) (string, error) {
			return "一文目。二文目！", nil
		},
	}
	h := newTestChatHandler(service, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/chat/sse", strings.NewReader(`{"question":"q"}`))
	rec := httptest.NewRecorder()
	h.ChatSSE(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("unexpected Content-Type: %s", ct)
	}

	body := rec.Body.String()
	want := "data: 一文目。\n\ndata: 二文目！\n\ndata: [DONE]\n\n"
	if body != want {
		t.Errorf("unexpected SSE body:\ngot:  %q\nwant: %q", body, want)
	}
}

func TestChatSSE_MultilineSegment(t *testing.T) {
	// 回答は見出しや箇条書きを含むMarkdownになりうる。
	// セグメント内の改行はイベント区切りと衝突するため、物理行ごとにdata:行を分ける。
	service := &mockChatService{
		answerWithHistoryFunc: func(ctx context.Context, question string, messages []generation.Message) (string, error) {
			return "## おすすめ\n- 線形代数です。次もあるカチ！", nil
		},
	}
	h := newTestChatHandler(service, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/chat/sse", strings.NewReader(`{"question":"q"}`))
	rec := httptest.NewRecorder()
	h.ChatSSE(rec, req)

	body := rec.Body.String()
	want := "data: ## おすすめ\ndata: - 線形代数です。\n\ndata: 次もあるカチ！\n\ndata: [DONE]\n\n"
	if body != want {
		t.Errorf("unexpected SSE body:\ngot:  %q\nwant: %q", body, want)
	}

	// 全ての非空行がdata:プレフィックスを持つこと
	for _, line := range strings.Split(body, "\n") {
		if line != "" && !strings.HasPrefix(line, "data: ") {
			t.Errorf("data:プレフィックスのない行が混入している: %q", line)
		}
	}
}

func TestChatSSE_UsesHistoryEmbedding(t *testing.T) {
	answerCalled := false
	historyCalled := false
	service := &mockChatService{
		answerFunc: func(ctx context.Context, question string, messages []generation.Message) (string, error) {
			answerCalled = true
			return "", nil
		},
		answerWithHistoryFunc: func(ctx context.Context, question string, messages []generation.Message) (string, error) {
			historyCalled = true
			return "回答。", nil
		},
	}
	h := newTestChatHandler(service, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/chat/sse", strings.NewReader(`{"question":"q"}`))
	rec := httptest.NewRecorder()
	h.ChatSSE(rec, req)

	if !historyCalled || answerCalled {
		t.Errorf("SSEは履歴込みの埋め込みを使うべき: history=%v answer=%v", historyCalled, answerCalled)
	}
}

func TestChat_PacingDelaysSegments(t *testing.T) {
	service := &mockChatService{
		answerFunc: func(ctx context.Context, question string, messages []generation.Message) (string, error) {
			return "一。二。三。", nil
		},
	}
	h := NewChatHandler(service, nil, ChatHandlerConfig{StreamPacing: 10 * time.Millisecond})

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"question":"q"}`))
	rec := httptest.NewRecorder()

	start := time.Now()
	h.Chat(rec, req)
	elapsed := time.Since(start)

	// 3セグメントで2回のウェイトが入る
	if elapsed < 20*time.Millisecond {
		t.Errorf("ペーシングが適用されていない: %v", elapsed)
	}
	if got := rec.Body.String(); got != "一。二。三。" {
		t.Errorf("unexpected body: %s", got)
	}
}
