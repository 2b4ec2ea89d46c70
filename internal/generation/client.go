package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/tt1125/kacchi-navi/internal/metrics"
	"github.com/tt1125/kacchi-navi/internal/model"
)

// defaultEndpoint はGemini generateContent APIのエンドポイント。
const defaultEndpoint = "https://generativelanguage.googleapis.com/v1alpha/models/gemini-2.5-flash:generateContent"

// Message は対話履歴の1発言を表す。
type Message struct {
	Role    string `json:"role"` // "user" または "assistant"
	Content string `json:"content"`
}

// Client はGemini生成APIのクライアント。
// タイムアウトや接続エラーは指数バックオフでリトライし、
// 使用量制限はリトライせず即座にエラーを返す。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	apiKey     string
	endpoint   string // テスト用にエンドポイントを差し替え可能
	maxRetries int
	sleep      func(time.Duration) // テスト用に差し替え可能
	metrics    metrics.MetricsCollector
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(httpClient *http.Client, logger *slog.Logger, apiKey string, maxRetries int) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		apiKey:     apiKey,
		endpoint:   defaultEndpoint,
		maxRetries: maxRetries,
		sleep:      time.Sleep,
	}
}

// SetMetrics はメトリクスコレクターを設定する。nilのままなら記録しない。
func (c *Client) SetMetrics(m metrics.MetricsCollector) {
	c.metrics = m
}

type generatePart struct {
	Text string `json:"text"`
}

type generateContent struct {
	Role  string         `json:"role,omitempty"`
	Parts []generatePart `json:"parts"`
}

type generateRequest struct {
	Contents         []generateContent `json:"contents"`
	GenerationConfig struct {
		ResponseMimeType string `json:"response_mime_type"`
	} `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []generatePart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate は対話履歴と最終プロンプトからテキスト応答を生成する。
// 履歴のuser/assistantロールはGeminiのuser/modelロールに変換し、
// 最終プロンプトはuserロールとして末尾に付加する。
func (c *Client) Generate(ctx context.Context, history []Message, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", model.NewMissingCredentialError("GEMINI_API_KEY")
	}

	var contents []generateContent
	for _, msg := range history {
		switch msg.Role {
		case "user":
			contents = append(contents, generateContent{Role: "user", Parts: []generatePart{{Text: msg.Content}}})
		case "assistant":
			contents = append(contents, generateContent{Role: "model", Parts: []generatePart{{Text: msg.Content}}})
		}
	}
	contents = append(contents, generateContent{Role: "user", Parts: []generatePart{{Text: prompt}}})

	reqBody := generateRequest{Contents: contents}
	reqBody.GenerationConfig.ResponseMimeType = "text/plain"

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("リクエストJSONの生成に失敗しました: %w", err)
	}

	url := c.endpoint + "?key=" + c.apiKey

	start := time.Now()
	defer func() {
		if c.metrics != nil {
			c.metrics.RecordGenerationLatency(time.Since(start))
		}
	}()

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return "", fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			// タイムアウトや接続エラーは指数バックオフでリトライ
			if attempt < c.maxRetries-1 {
				if c.metrics != nil {
					c.metrics.RecordGenerationRetry()
				}
				delay := CalculateBackoff(attempt)
				c.logger.Warn("Gemini APIの呼び出しに失敗しました。リトライします",
					slog.String("error", err.Error()),
					slog.Int("attempt", attempt+1),
					slog.Duration("backoff", delay),
				)
				c.sleep(delay)
				continue
			}
			c.logger.Error("Gemini APIの呼び出しが最大試行回数に達しました",
				slog.String("error", err.Error()),
				slog.Int("max_retries", c.maxRetries),
			)
			return "", classifyTransportError("Gemini API", err)
		}

		text, genErr := c.handleResponse(resp)
		if genErr != nil {
			return "", genErr
		}
		return text, nil
	}

	return "", model.NewUpstreamUnavailableError("Gemini API")
}

// classifyTransportError はタイムアウトとそれ以外の接続失敗を区別する。
func classifyTransportError(service string, err error) *model.APIError {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return model.NewUpstreamTimeoutError(service)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return model.NewUpstreamTimeoutError(service)
	}
	return model.NewUpstreamUnavailableError(service)
}

func (c *Client) handleResponse(resp *http.Response) (string, error) {
	defer resp.Body.Close()

	if c.metrics != nil {
		c.metrics.RecordUpstreamStatus("gemini", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	var result generateResponse
	// パース失敗時もステータス分類は続行する（本文は空メッセージ扱い）
	_ = json.Unmarshal(body, &result)

	switch ClassifyResponse(resp.StatusCode, result.Error.Message) {
	case FailureRateLimited:
		c.logger.Warn("Gemini APIの使用量制限に達しました",
			slog.Int("http_status", resp.StatusCode),
		)
		return "", model.NewRateLimitedError("Gemini API")
	case FailureUpstream:
		c.logger.Error("Gemini APIがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
			slog.String("detail", result.Error.Message),
		)
		return "", model.NewUpstreamError("Gemini API", resp.StatusCode)
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		c.logger.Error("Gemini APIの応答に候補が含まれていません")
		return "", model.NewMalformedResponseError("Gemini API")
	}

	return result.Candidates[0].Content.Parts[0].Text, nil
}
