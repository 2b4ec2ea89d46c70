// Package lecture は講義検索とシラバス参照のドメインロジックを提供する。
package lecture

import (
	"context"
	"fmt"
	"strconv"

	"github.com/tt1125/kacchi-navi/internal/model"
	"github.com/tt1125/kacchi-navi/internal/repository"
)

// Service は講義検索のサービス層。
type Service struct {
	lectureRepo  repository.LectureRepository
	syllabusRepo repository.SyllabusRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(lectureRepo repository.LectureRepository, syllabusRepo repository.SyllabusRepository) *Service {
	return &Service{
		lectureRepo:  lectureRepo,
		syllabusRepo: syllabusRepo,
	}
}

// Search は指定された条件で講義を部分一致検索する。
// すべての条件が空の場合は全講義を返す。
func (s *Service) Search(ctx context.Context, filter model.LectureFilter) ([]*model.Lecture, error) {
	lectures, err := s.lectureRepo.Search(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("講義の検索に失敗しました: %w", err)
	}
	return lectures, nil
}

// Get は指定IDの講義を取得する。
func (s *Service) Get(ctx context.Context, id int64) (*model.Lecture, error) {
	lec, err := s.lectureRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("講義の取得に失敗しました: %w", err)
	}
	if lec == nil {
		return nil, model.NewLectureNotFoundError(strconv.FormatInt(id, 10))
	}
	return lec, nil
}

// Available は指定した曜日・時限に開講されている講義一覧を返す。
// 開講時限の列は「月曜３限」のように全角数字を含むため、
// 時限を全角に変換してから照合する。
func (s *Service) Available(ctx context.Context, day string, period int) ([]*model.Lecture, error) {
	if day == "" {
		return nil, model.NewInvalidRequestError("曜日が指定されていません")
	}
	if period < 1 || period > model.TimetablePeriods {
		return nil, model.NewInvalidRequestError("時限の指定が不正です")
	}

	timeStr := day + ToZenkakuDigits(strconv.Itoa(period))
	lectures, err := s.lectureRepo.Search(ctx, model.LectureFilter{Time: timeStr})
	if err != nil {
		return nil, fmt.Errorf("開講講義の検索に失敗しました: %w", err)
	}
	return lectures, nil
}

// SyllabusHTML は講義コードに対応するシラバスHTMLを返す。
// 見つからない場合はAPIErrorを返す。
func (s *Service) SyllabusHTML(ctx context.Context, code string) (string, error) {
	html, found, err := s.syllabusRepo.FindHTMLByCode(ctx, code)
	if err != nil {
		return "", fmt.Errorf("シラバスの取得に失敗しました: %w", err)
	}
	if !found {
		return "", model.NewSyllabusNotFoundError(code)
	}
	return html, nil
}
