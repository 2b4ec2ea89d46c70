package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tt1125/kacchi-navi/internal/chat"
	"github.com/tt1125/kacchi-navi/internal/generation"
	"github.com/tt1125/kacchi-navi/internal/metrics"
	"github.com/tt1125/kacchi-navi/internal/middleware"
	"github.com/tt1125/kacchi-navi/internal/model"
)

// ChatServiceInterface はチャットハンドラーが必要とするサービスインターフェース。
type ChatServiceInterface interface {
	// Answer は質問文のみを埋め込んで回答を生成する。
	Answer(ctx context.Context, question string, messages []generation.Message) (string, error)
	// AnswerWithHistory は履歴中のユーザー発言も含めて埋め込み、回答を生成する。
	AnswerWithHistory(ctx context.Context, question string, messages []generation.Message) (string, error)
}

// ChatHandlerConfig はチャットハンドラーの設定。
type ChatHandlerConfig struct {
	// StreamPacing はセグメント送出の間隔。
	StreamPacing time.Duration
}

// ChatHandler はRAGチャットのHTTPハンドラー。
// 生成した回答を文単位のセグメントに分割し、一定間隔でストリーミングする。
type ChatHandler struct {
	service ChatServiceInterface
	metrics metrics.MetricsCollector
	config  ChatHandlerConfig
}

// NewChatHandler はChatHandlerを生成する。
func NewChatHandler(service ChatServiceInterface, collector metrics.MetricsCollector, config ChatHandlerConfig) *ChatHandler {
	return &ChatHandler{
		service: service,
		metrics: collector,
		config:  config,
	}
}

// chatRequest はチャットリクエストのボディ。
type chatRequest struct {
	Question string        `json:"question"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Chat は回答をプレーンテキストでストリーミングする。
// POST /api/chat
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseRequest(w, r)
	if !ok {
		return
	}

	answer, err := h.service.Answer(r.Context(), req.Question, toGenerationMessages(req.Messages))
	if err != nil {
		h.recordResult("error")
		middleware.WriteError(w, err)
		return
	}
	h.recordResult("success")

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	h.streamSegments(r.Context(), w, answer, func(w http.ResponseWriter, segment string) {
		fmt.Fprint(w, segment)
	})
}

// ChatSSE は回答をServer-Sent Eventsでストリーミングする。
// 全セグメント送出後に [DONE] を送る。
// POST /api/chat/sse
func (h *ChatHandler) ChatSSE(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseRequest(w, r)
	if !ok {
		return
	}

	answer, err := h.service.AnswerWithHistory(r.Context(), req.Question, toGenerationMessages(req.Messages))
	if err != nil {
		h.recordResult("error")
		middleware.WriteError(w, err)
		return
	}
	h.recordResult("success")

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	h.streamSegments(r.Context(), w, answer, func(w http.ResponseWriter, segment string) {
		writeSSEData(w, segment)
	})
	fmt.Fprint(w, "data: [DONE]\n\n")
	flush(w)
}

// writeSSEData は1セグメントを1イベントとして書き出す。
// セグメント内の改行はイベント区切りと衝突するため、物理行ごとにdata:行を分ける。
func writeSSEData(w http.ResponseWriter, segment string) {
	for _, line := range strings.Split(segment, "\n") {
		fmt.Fprintf(w, "data: %s\n", line)
	}
	fmt.Fprint(w, "\n")
}

// parseRequest はリクエストボディの解析と質問文の検証を行う。
func (h *ChatHandler) parseRequest(w http.ResponseWriter, r *http.Request) (*chatRequest, bool) {
	var req chatRequest
	if err := decodeJSONBody(r, &req); err != nil {
		middleware.WriteAPIError(w, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return nil, false
	}

	if err := chat.ValidateQuestion(req.Question); err != nil {
		middleware.WriteError(w, err)
		return nil, false
	}

	return &req, true
}

// streamSegments は回答を文単位に分割し、一定間隔で書き出す。
// クライアント切断時は途中で打ち切る。
func (h *ChatHandler) streamSegments(ctx context.Context, w http.ResponseWriter, answer string, write func(http.ResponseWriter, string)) {
	segments := chat.SplitSegments(answer)
	for i, segment := range segments {
		if i > 0 && h.config.StreamPacing > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(h.config.StreamPacing):
			}
		}
		write(w, segment)
		flush(w)
	}
}

func (h *ChatHandler) recordResult(status string) {
	if h.metrics != nil {
		h.metrics.RecordChatRequest(status)
	}
}

// flush はレスポンスをクライアントへ即時送出する。
func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// toGenerationMessages はリクエストの対話履歴を生成クライアントの形式に変換する。
func toGenerationMessages(messages []chatMessage) []generation.Message {
	result := make([]generation.Message, 0, len(messages))
	for _, m := range messages {
		result = append(result, generation.Message{Role: m.Role, Content: m.Content})
	}
	return result
}
