// Package embedding はCohere埋め込みAPIのクライアントを提供する。
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/tt1125/kacchi-navi/internal/metrics"
	"github.com/tt1125/kacchi-navi/internal/model"
)

const (
	// defaultEndpoint はCohere v2埋め込みAPIのエンドポイント。
	defaultEndpoint = "https://api.cohere.com/v2/embed"
	// embedModel は多言語対応の埋め込みモデル。
	embedModel = "embed-multilingual-v3.0"
)

// InputType は埋め込み対象テキストの用途を表す。
type InputType string

const (
	// InputTypeQuery は検索クエリの埋め込み。
	InputTypeQuery InputType = "search_query"
	// InputTypeDocument は検索対象文書の埋め込み。
	InputTypeDocument InputType = "search_document"
)

// Client はCohere埋め込みAPIのクライアント。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	apiKey     string
	endpoint   string // テスト用にエンドポイントを差し替え可能
	metrics    metrics.MetricsCollector
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(httpClient *http.Client, logger *slog.Logger, apiKey string) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		apiKey:     apiKey,
		endpoint:   defaultEndpoint,
	}
}

// SetMetrics はメトリクスコレクターを設定する。nilのままなら記録しない。
func (c *Client) SetMetrics(m metrics.MetricsCollector) {
	c.metrics = m
}

type embedRequest struct {
	Model     string   `json:"model"`
	InputType string   `json:"input_type"`
	Texts     []string `json:"texts"`
	Truncate  string   `json:"truncate"`
}

// embedResponse はCohereの応答。スキーマはAPIバージョンにより
// embeddings（floatキー持ちオブジェクトまたは素の配列）と
// embeddings_by_typeの2系統がある。
type embedResponse struct {
	Embeddings       json.RawMessage        `json:"embeddings"`
	EmbeddingsByType map[string][][]float32 `json:"embeddings_by_type"`
}

// Embed はテキストを埋め込みベクトルに変換する。
// レート制限（429）はRATE_LIMITEDエラーとして返し、リトライは行わない。
func (c *Client) Embed(ctx context.Context, text string, inputType InputType) ([]float32, error) {
	if c.apiKey == "" {
		return nil, model.NewMissingCredentialError("COHERE_API_KEY")
	}

	payload, err := json.Marshal(embedRequest{
		Model:     embedModel,
		InputType: string(inputType),
		Texts:     []string{text},
		Truncate:  "END",
	})
	if err != nil {
		return nil, fmt.Errorf("リクエストJSONの生成に失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Cohere APIの呼び出しに失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("Cohere APIへの接続に失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if c.metrics != nil {
		c.metrics.RecordEmbeddingLatency(time.Since(start))
		c.metrics.RecordUpstreamStatus("cohere", resp.StatusCode)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		c.logger.Warn("Cohere APIのレート制限に達しました")
		return nil, model.NewRateLimitedError("Cohere API")
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Error("Cohere APIがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, model.NewUpstreamError("Cohere API", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	var result embedResponse
	if err := json.Unmarshal(body, &result); err != nil {
		c.logger.Error("Cohere APIのレスポンスのパースに失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, model.NewMalformedResponseError("Cohere API")
	}

	vec, err := extractEmbedding(&result)
	if err != nil {
		c.logger.Error("Cohere APIの応答構造が想定外です",
			slog.String("error", err.Error()),
		)
		return nil, model.NewMalformedResponseError("Cohere API")
	}

	return vec, nil
}

// extractEmbedding は2系統の応答スキーマからベクトルを取り出す。
func extractEmbedding(result *embedResponse) ([]float32, error) {
	if len(result.Embeddings) > 0 {
		// {"embeddings": {"float": [[...]]}} 形式
		var withFloat struct {
			Float [][]float32 `json:"float"`
		}
		if err := json.Unmarshal(result.Embeddings, &withFloat); err == nil && len(withFloat.Float) > 0 {
			return withFloat.Float[0], nil
		}

		// {"embeddings": [[...]]} 形式
		var bare [][]float32
		if err := json.Unmarshal(result.Embeddings, &bare); err == nil && len(bare) > 0 {
			return bare[0], nil
		}
	}

	if len(result.EmbeddingsByType) > 0 {
		// キー順を安定させるためソートして先頭を使用する
		keys := make([]string, 0, len(result.EmbeddingsByType))
		for k := range result.EmbeddingsByType {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		vectors := result.EmbeddingsByType[keys[0]]
		if len(vectors) > 0 {
			return vectors[0], nil
		}
	}

	return nil, fmt.Errorf("埋め込みベクトルが応答に含まれていません")
}
