package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/tt1125/kacchi-navi/internal/model"
	"github.com/tt1125/kacchi-navi/internal/repository"
)

// LectureImporter はエクスポート済みCSVから講義一覧を取り込む。
// CSVは title, category, code, name, lecturer, grade, class, season, time の
// カラムを持つヘッダー付きファイル。
type LectureImporter struct {
	lectureRepo repository.LectureRepository
	logger      *slog.Logger
}

// NewLectureImporter はLectureImporterを生成する。
func NewLectureImporter(lectureRepo repository.LectureRepository, logger *slog.Logger) *LectureImporter {
	return &LectureImporter{
		lectureRepo: lectureRepo,
		logger:      logger,
	}
}

// Import はCSVの全行をlecturesテーブルに挿入し、挿入件数を返す。
func (imp *LectureImporter) Import(ctx context.Context, r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("CSVヘッダーの読み込みに失敗しました: %w", err)
	}
	columns := columnIndex(header)

	count := 0
	for {
		if err := ctx.Err(); err != nil {
			return count, err
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return count, fmt.Errorf("CSV行の読み込みに失敗しました: %w", err)
		}

		lecture := &model.Lecture{
			Title:     strings.TrimSpace(field(columns, record, "title")),
			Category:  strings.TrimSpace(field(columns, record, "category")),
			Code:      strings.TrimSpace(field(columns, record, "code")),
			Name:      strings.TrimSpace(field(columns, record, "name")),
			Lecturer:  strings.TrimSpace(field(columns, record, "lecturer")),
			Grade:     strings.TrimSpace(field(columns, record, "grade")),
			ClassName: strings.TrimSpace(field(columns, record, "class")),
			Season:    strings.TrimSpace(field(columns, record, "season")),
			Time:      strings.TrimSpace(field(columns, record, "time")),
		}

		if _, err := imp.lectureRepo.Insert(ctx, lecture); err != nil {
			return count, fmt.Errorf("講義の保存に失敗しました: %w", err)
		}
		count++

		if count%100 == 0 {
			imp.logger.Info("講義取り込みの進捗", slog.Int("count", count))
		}
	}

	imp.logger.Info("講義取り込みが完了しました", slog.Int("count", count))
	return count, nil
}
