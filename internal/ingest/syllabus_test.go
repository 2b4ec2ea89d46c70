package ingest

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/tt1125/kacchi-navi/internal/embedding"
	"github.com/tt1125/kacchi-navi/internal/model"
	"github.com/tt1125/kacchi-navi/internal/repository"
	"github.com/tt1125/kacchi-navi/internal/security"
	"github.com/tt1125/kacchi-navi/internal/vector"
)

// mockSyllabusRepo はSyllabusRepositoryのモック。
type mockSyllabusRepo struct {
	existsByCodeFunc func(ctx context.Context, code string) (bool, error)
	insertFunc       func(ctx context.Context, syllabus *model.Syllabus) (int64, error)
	inserted         []*model.Syllabus
}

var _ repository.SyllabusRepository = (*mockSyllabusRepo)(nil)

func (m *mockSyllabusRepo) FindHTMLByCode(ctx context.Context, code string) (string, bool, error) {
	return "", false, nil
}

func (m *mockSyllabusRepo) ListForSearch(ctx context.Context) ([]*model.Syllabus, error) {
	return nil, nil
}

func (m *mockSyllabusRepo) ExistsByCode(ctx context.Context, code string) (bool, error) {
	if m.existsByCodeFunc != nil {
		return m.existsByCodeFunc(ctx, code)
	}
	return false, nil
}

func (m *mockSyllabusRepo) Insert(ctx context.Context, syllabus *model.Syllabus) (int64, error) {
	if m.insertFunc != nil {
		return m.insertFunc(ctx, syllabus)
	}
	m.inserted = append(m.inserted, syllabus)
	return int64(len(m.inserted)), nil
}

// mockEmbedder はEmbedderのモック。
type mockEmbedder struct {
	embedFunc func(ctx context.Context, text string, inputType embedding.InputType) ([]float32, error)
	calls     int
}

var _ Embedder = (*mockEmbedder)(nil)

func (m *mockEmbedder) Embed(ctx context.Context, text string, inputType embedding.InputType) ([]float32, error) {
	m.calls++
	if m.embedFunc != nil {
		return m.embedFunc(ctx, text, inputType)
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newTestIngestor(repo *mockSyllabusRepo, embedder *mockEmbedder) *SyllabusIngestor {
	config := SyllabusIngestorConfig{MaxRetries: 3, RetryWait: 0}
	return NewSyllabusIngestor(repo, embedder, security.NewContentSanitizer(), nil, config, testLogger())
}

func TestIngest(t *testing.T) {
	repo := &mockSyllabusRepo{}
	var gotInputType embedding.InputType
	embedder := &mockEmbedder{
		embedFunc: func(ctx context.Context, text string, inputType embedding.InputType) ([]float32, error) {
			gotInputType = inputType
			return []float32{1, 2}, nil
		},
	}
	ing := newTestIngestor(repo, embedder)

	csvData := `code,html,md
10001,<p>概要</p>,データ構造の講義
10002,<p>二件目</p>,アルゴリズムの講義
`
	stats, err := ing.Ingest(context.Background(), strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	if stats.Total != 2 || stats.Inserted != 2 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if len(repo.inserted) != 2 {
		t.Fatalf("expected 2 inserts, got %d", len(repo.inserted))
	}
	if gotInputType != embedding.InputTypeDocument {
		t.Errorf("文書側の埋め込みはsearch_documentを使うべき: %s", gotInputType)
	}

	first := repo.inserted[0]
	if first.Code != "10001" || first.MD != "データ構造の講義" {
		t.Errorf("unexpected syllabus: %+v", first)
	}
	vec, err := vector.Decode(first.Vector)
	if err != nil {
		t.Fatalf("failed to decode vector: %v", err)
	}
	if len(vec) != 2 || vec[0] != 1 || vec[1] != 2 {
		t.Errorf("ベクトルがBLOBとして保存されていない: %v", vec)
	}
}

func TestIngest_DerivesMarkdownFromHTML(t *testing.T) {
	repo := &mockSyllabusRepo{}
	ing := newTestIngestor(repo, &mockEmbedder{})

	csvData := `code,html,md
10001,<h1>授業概要</h1><p>本文</p>,
`
	stats, err := ing.Ingest(context.Background(), strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	if stats.Inserted != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if md := repo.inserted[0].MD; !strings.Contains(md, "# 授業概要") {
		t.Errorf("HTMLからMarkdownが生成されていない: %s", md)
	}
}

func TestIngest_SkipsEmptyBody(t *testing.T) {
	repo := &mockSyllabusRepo{}
	embedder := &mockEmbedder{}
	ing := newTestIngestor(repo, embedder)

	csvData := `code,html,md
10001,,
10002,,本文あり
`
	stats, err := ing.Ingest(context.Background(), strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	if stats.Skipped != 1 || stats.Inserted != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if embedder.calls != 1 {
		t.Errorf("空行に対して埋め込みが呼ばれた: %d", embedder.calls)
	}
}

func TestIngest_SkipsExistingCode(t *testing.T) {
	repo := &mockSyllabusRepo{
		existsByCodeFunc: func(ctx context.Context, code string) (bool, error) {
			return code == "10001", nil
		},
	}
	embedder := &mockEmbedder{}
	ing := newTestIngestor(repo, embedder)

	csvData := `code,html,md
10001,,既存の本文
10002,,新規の本文
`
	stats, err := ing.Ingest(context.Background(), strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	if stats.Skipped != 1 || stats.Inserted != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if len(repo.inserted) != 1 || repo.inserted[0].Code != "10002" {
		t.Errorf("既存コードがスキップされていない: %+v", repo.inserted)
	}
}

func TestIngest_RetriesOnRateLimit(t *testing.T) {
	repo := &mockSyllabusRepo{}
	attempts := 0
	embedder := &mockEmbedder{
		embedFunc: func(ctx context.Context, text string, inputType embedding.InputType) ([]float32, error) {
			attempts++
			if attempts < 3 {
				return nil, model.NewRateLimitedError("Cohere API")
			}
			return []float32{1}, nil
		},
	}
	ing := newTestIngestor(repo, embedder)

	csvData := "code,html,md\n10001,,本文\n"
	stats, err := ing.Ingest(context.Background(), strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
	if stats.Inserted != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestIngest_GivesUpAfterMaxRetries(t *testing.T) {
	repo := &mockSyllabusRepo{}
	embedder := &mockEmbedder{
		embedFunc: func(ctx context.Context, text string, inputType embedding.InputType) ([]float32, error) {
			return nil, model.NewRateLimitedError("Cohere API")
		},
	}
	ing := newTestIngestor(repo, embedder)

	csvData := "code,html,md\n10001,,本文\n10002,,次の本文\n"
	stats, err := ing.Ingest(context.Background(), strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	// 失敗した行を飛ばして続行する
	if stats.Failed != 2 || stats.Inserted != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if embedder.calls != 6 {
		t.Errorf("expected 6 attempts (3 per row), got %d", embedder.calls)
	}
}

func TestIngest_NonRateLimitErrorNotRetried(t *testing.T) {
	repo := &mockSyllabusRepo{}
	embedder := &mockEmbedder{
		embedFunc: func(ctx context.Context, text string, inputType embedding.InputType) ([]float32, error) {
			return nil, model.NewUpstreamError("Cohere API", 500)
		},
	}
	ing := newTestIngestor(repo, embedder)

	csvData := "code,html,md\n10001,,本文\n"
	stats, err := ing.Ingest(context.Background(), strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	if embedder.calls != 1 {
		t.Errorf("レート制限以外は再試行しない: %d", embedder.calls)
	}
	if stats.Failed != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestIngest_SanitizesStoredHTML(t *testing.T) {
	repo := &mockSyllabusRepo{}
	ing := newTestIngestor(repo, &mockEmbedder{})

	csvData := "code,html,md\n10001,<p>概要</p><script>alert(1)</script>,本文\n"
	if _, err := ing.Ingest(context.Background(), strings.NewReader(csvData)); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	html := repo.inserted[0].HTML
	if strings.Contains(html, "<script>") {
		t.Errorf("scriptがサニタイズされていない: %s", html)
	}
	if !strings.Contains(html, "<p>概要</p>") {
		t.Errorf("安全な要素まで除去されている: %s", html)
	}
}

func TestIngest_MaxRows(t *testing.T) {
	repo := &mockSyllabusRepo{}
	config := SyllabusIngestorConfig{MaxRetries: 3, RetryWait: 0, MaxRows: 1}
	ing := NewSyllabusIngestor(repo, &mockEmbedder{}, security.NewContentSanitizer(), nil, config, testLogger())

	csvData := "code,html,md\n10001,,一件目\n10002,,二件目\n"
	stats, err := ing.Ingest(context.Background(), strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	if stats.Total != 1 || stats.Inserted != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestIngest_MissingCodeColumn(t *testing.T) {
	ing := newTestIngestor(&mockSyllabusRepo{}, &mockEmbedder{})

	if _, err := ing.Ingest(context.Background(), strings.NewReader("html,md\nx,y\n")); err == nil {
		t.Error("codeカラムがないCSVはエラーになるべき")
	}
}
