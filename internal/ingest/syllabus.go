package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/tt1125/kacchi-navi/internal/embedding"
	"github.com/tt1125/kacchi-navi/internal/metrics"
	"github.com/tt1125/kacchi-navi/internal/model"
	"github.com/tt1125/kacchi-navi/internal/repository"
	"github.com/tt1125/kacchi-navi/internal/security"
	"github.com/tt1125/kacchi-navi/internal/vector"
)

// Embedder はシラバス本文の埋め込み生成インターフェース。
type Embedder interface {
	Embed(ctx context.Context, text string, inputType embedding.InputType) ([]float32, error)
}

// SyllabusIngestorConfig はシラバス取り込みの設定。
type SyllabusIngestorConfig struct {
	// MaxRetries はレート制限時の埋め込み再試行回数。
	MaxRetries int
	// RetryWait はレート制限時の待機時間。
	RetryWait time.Duration
	// MaxRows は取り込む最大行数。0なら無制限。
	MaxRows int
}

// DefaultSyllabusIngestorConfig は既定の取り込み設定を返す。
// レート制限時は60秒待機して最大3回まで再試行する。
func DefaultSyllabusIngestorConfig() SyllabusIngestorConfig {
	return SyllabusIngestorConfig{
		MaxRetries: 3,
		RetryWait:  60 * time.Second,
	}
}

// IngestStats は取り込み結果の集計。
type IngestStats struct {
	Total    int
	Inserted int
	Skipped  int
	Failed   int
}

// SyllabusIngestor はCSVからシラバスを読み込み、埋め込みを生成して保存する。
// CSVは code, html, md のカラムを持つヘッダー付きファイル。
type SyllabusIngestor struct {
	syllabusRepo repository.SyllabusRepository
	embedder     Embedder
	sanitizer    security.ContentSanitizerService
	metrics      metrics.MetricsCollector
	config       SyllabusIngestorConfig
	logger       *slog.Logger
}

// NewSyllabusIngestor はSyllabusIngestorを生成する。
func NewSyllabusIngestor(
	syllabusRepo repository.SyllabusRepository,
	embedder Embedder,
	sanitizer security.ContentSanitizerService,
	collector metrics.MetricsCollector,
	config SyllabusIngestorConfig,
	logger *slog.Logger,
) *SyllabusIngestor {
	return &SyllabusIngestor{
		syllabusRepo: syllabusRepo,
		embedder:     embedder,
		sanitizer:    sanitizer,
		metrics:      collector,
		config:       config,
		logger:       logger,
	}
}

// Ingest はCSVを読み込み、1行ずつシラバスを取り込む。
// mdが空でhtmlがある行はHTMLからMarkdownを生成する。
// それでも本文が空の行と、既に同じコードが存在する行はスキップする。
func (ing *SyllabusIngestor) Ingest(ctx context.Context, r io.Reader) (*IngestStats, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("CSVヘッダーの読み込みに失敗しました: %w", err)
	}
	columns := columnIndex(header)
	if _, ok := columns["code"]; !ok {
		return nil, errors.New("CSVにcodeカラムがありません")
	}

	stats := &IngestStats{}
	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("CSV行の読み込みに失敗しました: %w", err)
		}

		if ing.config.MaxRows > 0 && stats.Total >= ing.config.MaxRows {
			break
		}
		stats.Total++

		if stats.Total%100 == 0 {
			ing.logger.Info("シラバス取り込みの進捗",
				slog.Int("total", stats.Total),
				slog.Int("inserted", stats.Inserted),
				slog.Int("failed", stats.Failed),
			)
		}

		if err := ing.ingestRow(ctx, columns, record, stats); err != nil {
			return stats, err
		}
	}

	if ing.metrics != nil {
		ing.metrics.RecordSyllabusIngested(stats.Inserted)
	}

	ing.logger.Info("シラバス取り込みが完了しました",
		slog.Int("total", stats.Total),
		slog.Int("inserted", stats.Inserted),
		slog.Int("skipped", stats.Skipped),
		slog.Int("failed", stats.Failed),
	)

	return stats, nil
}

func (ing *SyllabusIngestor) ingestRow(ctx context.Context, columns map[string]int, record []string, stats *IngestStats) error {
	code := strings.TrimSpace(field(columns, record, "code"))
	rawHTML := strings.TrimSpace(field(columns, record, "html"))
	md := strings.TrimSpace(field(columns, record, "md"))

	if md == "" && rawHTML != "" {
		converted, err := ConvertToMarkdown(rawHTML)
		if err != nil {
			ing.logger.Warn("Markdown変換に失敗しました",
				slog.String("code", code),
				slog.String("error", err.Error()),
			)
			stats.Failed++
			return nil
		}
		md = converted
	}

	if md == "" {
		ing.logger.Debug("本文が空の行をスキップします", slog.String("code", code))
		stats.Skipped++
		return nil
	}

	exists, err := ing.syllabusRepo.ExistsByCode(ctx, code)
	if err != nil {
		return fmt.Errorf("シラバスの存在確認に失敗しました: %w", err)
	}
	if exists {
		stats.Skipped++
		return nil
	}

	vec, err := ing.embedWithRetry(ctx, md)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		ing.logger.Error("埋め込みの生成に失敗しました",
			slog.String("code", code),
			slog.String("error", err.Error()),
		)
		stats.Failed++
		return nil
	}

	syllabus := &model.Syllabus{
		Code:   code,
		HTML:   ing.sanitizer.Sanitize(rawHTML),
		MD:     md,
		Vector: vector.Encode(vec),
	}
	if _, err := ing.syllabusRepo.Insert(ctx, syllabus); err != nil {
		return fmt.Errorf("シラバスの保存に失敗しました: %w", err)
	}

	stats.Inserted++
	return nil
}

// embedWithRetry は本文を埋め込み、レート制限の場合は待機して再試行する。
// レート制限以外のエラーは再試行しない。
func (ing *SyllabusIngestor) embedWithRetry(ctx context.Context, text string) ([]float32, error) {
	var lastErr error
	for attempt := 0; attempt < ing.config.MaxRetries; attempt++ {
		vec, err := ing.embedder.Embed(ctx, text, embedding.InputTypeDocument)
		if err == nil {
			return vec, nil
		}
		lastErr = err

		var apiErr *model.APIError
		if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeRateLimited {
			return nil, err
		}

		if attempt == ing.config.MaxRetries-1 {
			break
		}

		ing.logger.Warn("rate limited, waiting before retry",
			slog.Int("attempt", attempt+1),
			slog.Duration("wait", ing.config.RetryWait),
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(ing.config.RetryWait):
		}
	}
	return nil, lastErr
}

func columnIndex(header []string) map[string]int {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(strings.ToLower(name))] = i
	}
	return columns
}

func field(columns map[string]int, record []string, name string) string {
	i, ok := columns[name]
	if !ok || i >= len(record) {
		return ""
	}
	return record[i]
}
