package chat

import (
	"context"
	"log/slog"
	"strings"

	"github.com/tt1125/kacchi-navi/internal/embedding"
	"github.com/tt1125/kacchi-navi/internal/generation"
	"github.com/tt1125/kacchi-navi/internal/model"
	"github.com/tt1125/kacchi-navi/internal/repository"
	"github.com/tt1125/kacchi-navi/internal/vector"
)

// Embedder はテキストの埋め込み生成インターフェース。
type Embedder interface {
	Embed(ctx context.Context, text string, inputType embedding.InputType) ([]float32, error)
}

// Generator はテキスト生成インターフェース。
type Generator interface {
	Generate(ctx context.Context, history []generation.Message, prompt string) (string, error)
}

// Service はRAGチャットのパイプラインを実装する。
// 質問の埋め込み、シラバス全件のコサイン類似度ランキング、
// 講義情報を付加したプロンプト組み立て、応答生成を行う。
type Service struct {
	syllabusRepo repository.SyllabusRepository
	lectureRepo  repository.LectureRepository
	embedder     Embedder
	generator    Generator
	topK         int
	logger       *slog.Logger
}

// NewService はServiceを生成する。
func NewService(
	syllabusRepo repository.SyllabusRepository,
	lectureRepo repository.LectureRepository,
	embedder Embedder,
	generator Generator,
	topK int,
	logger *slog.Logger,
) *Service {
	return &Service{
		syllabusRepo: syllabusRepo,
		lectureRepo:  lectureRepo,
		embedder:     embedder,
		generator:    generator,
		topK:         topK,
		logger:       logger,
	}
}

// Answer は質問文のみを埋め込んで回答を生成する。
func (s *Service) Answer(ctx context.Context, question string, messages []generation.Message) (string, error) {
	return s.answer(ctx, question, question, messages)
}

// AnswerWithHistory は履歴中のユーザー発言を連結したテキストを埋め込んで
// 回答を生成する。SSEストリーミングで使用する。
func (s *Service) AnswerWithHistory(ctx context.Context, question string, messages []generation.Message) (string, error) {
	var parts []string
	for _, m := range messages {
		if m.Role == "user" {
			parts = append(parts, m.Content)
		}
	}
	// 直近の質問がmessagesに含まれていない場合は追加
	if len(messages) == 0 || messages[len(messages)-1].Content != question {
		parts = append(parts, question)
	}

	return s.answer(ctx, strings.Join(parts, "\n"), question, messages)
}

func (s *Service) answer(ctx context.Context, embedText, question string, messages []generation.Message) (string, error) {
	queryVec, err := s.embedder.Embed(ctx, embedText, embedding.InputTypeQuery)
	if err != nil {
		return "", err
	}

	results, err := s.retrieve(ctx, queryVec)
	if err != nil {
		return "", err
	}

	blocks := make([]string, 0, len(results))
	for _, r := range results {
		lecture, err := s.lectureRepo.FindByCode(ctx, r.Code)
		if err != nil {
			return "", err
		}
		blocks = append(blocks, ContextBlock(LectureDetails(lecture), r.MD))
	}

	prompt := PersonaPrompt(JoinContext(blocks), question)

	answer, err := s.generator.Generate(ctx, messages, prompt)
	if err != nil {
		return "", err
	}

	s.logger.Info("チャット応答を生成しました",
		slog.Int("context_docs", len(results)),
		slog.Int("answer_length", len(answer)),
	)

	return answer, nil
}

// retrieve は全シラバスをコサイン類似度でランキングして上位を返す。
func (s *Service) retrieve(ctx context.Context, queryVec []float32) ([]vector.Scored, error) {
	syllabuses, err := s.syllabusRepo.ListForSearch(ctx)
	if err != nil {
		return nil, err
	}

	docs := make([]vector.Document, 0, len(syllabuses))
	for _, syl := range syllabuses {
		vec, err := vector.Decode(syl.Vector)
		if err != nil {
			// 破損したベクトルはランキングから除外する
			s.logger.Warn("シラバスのベクトルを復元できません",
				slog.String("code", syl.Code),
				slog.String("error", err.Error()),
			)
			continue
		}
		docs = append(docs, vector.Document{Code: syl.Code, MD: syl.MD, Vector: vec})
	}

	return vector.RankTopK(queryVec, docs, s.topK), nil
}

// ValidateQuestion はチャットリクエストの質問文を検証する。
func ValidateQuestion(question string) error {
	if strings.TrimSpace(question) == "" {
		return model.NewInvalidRequestError("質問が空です")
	}
	return nil
}
