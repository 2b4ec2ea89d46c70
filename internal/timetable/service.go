// Package timetable は時間割のドメインロジックを提供する。
// 時間割は月曜から金曜（1〜5）の各曜日に1〜6限のコマを持つ。
package timetable

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/tt1125/kacchi-navi/internal/model"
	"github.com/tt1125/kacchi-navi/internal/repository"
)

// SlotLecture は時間割のコマに入る講義の詳細。
type SlotLecture struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Name     string `json:"name"`
	Lecturer string `json:"lecturer"`
	Time     string `json:"time"`
	Category string `json:"category"`
	Code     string `json:"code"`
}

// Grid は曜日キー("1"〜"5")と時限キー("1"〜"6")で引く時間割。
// 空きコマはnull。
type Grid map[string]map[string]*SlotLecture

// EmptyGrid は全コマがnullの時間割を生成する。
func EmptyGrid() Grid {
	grid := make(Grid, model.TimetableDays)
	for day := 1; day <= model.TimetableDays; day++ {
		row := make(map[string]*SlotLecture, model.TimetablePeriods)
		for period := 1; period <= model.TimetablePeriods; period++ {
			row[strconv.Itoa(period)] = nil
		}
		grid[strconv.Itoa(day)] = row
	}
	return grid
}

// Service は時間割のサービス層。
type Service struct {
	timetableRepo repository.TimetableRepository
	lectureRepo   repository.LectureRepository
	logger        *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(timetableRepo repository.TimetableRepository, lectureRepo repository.LectureRepository, logger *slog.Logger) *Service {
	return &Service{
		timetableRepo: timetableRepo,
		lectureRepo:   lectureRepo,
		logger:        logger,
	}
}

// Grid は講義詳細付きの時間割を取得する。
// 登録のないコマと講義が紐付いていないコマはnullになる。
func (s *Service) Grid(ctx context.Context, userID int64) (Grid, error) {
	slots, err := s.timetableRepo.ListDetailedByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("時間割の取得に失敗しました: %w", err)
	}

	grid := EmptyGrid()
	for _, slot := range slots {
		if !model.ValidSlot(slot.DayOfWeek, slot.Period) {
			continue
		}
		if slot.Lecture == nil {
			continue
		}
		grid[strconv.Itoa(slot.DayOfWeek)][strconv.Itoa(slot.Period)] = &SlotLecture{
			ID:       slot.Lecture.ID,
			Title:    slot.Lecture.Title,
			Name:     slot.Lecture.Name,
			Lecturer: slot.Lecture.Lecturer,
			Time:     slot.Lecture.Time,
			Category: slot.Lecture.Category,
			Code:     slot.Lecture.Code,
		}
	}
	return grid, nil
}

// Add は指定コマに講義を登録する。既に講義がある場合は上書きする。
func (s *Service) Add(ctx context.Context, userID int64, day, period int, lectureID int64) error {
	if !model.ValidSlot(day, period) {
		return model.NewInvalidSlotError(day, period)
	}

	lec, err := s.lectureRepo.FindByID(ctx, lectureID)
	if err != nil {
		return fmt.Errorf("講義の取得に失敗しました: %w", err)
	}
	if lec == nil {
		return model.NewLectureNotFoundError(strconv.FormatInt(lectureID, 10))
	}

	if _, err := s.timetableRepo.Upsert(ctx, userID, day, period, &lectureID); err != nil {
		return fmt.Errorf("時間割への登録に失敗しました: %w", err)
	}

	s.logger.Info("時間割に講義を追加しました",
		slog.Int64("user_id", userID),
		slog.Int("day_of_week", day),
		slog.Int("period", period),
		slog.Int64("lecture_id", lectureID),
	)
	return nil
}

// Remove は指定コマの講義を削除する。
// 削除対象があった場合はtrueを返す。
func (s *Service) Remove(ctx context.Context, userID int64, day, period int) (bool, error) {
	if !model.ValidSlot(day, period) {
		return false, model.NewInvalidSlotError(day, period)
	}

	removed, err := s.timetableRepo.DeleteSlot(ctx, userID, day, period)
	if err != nil {
		return false, fmt.Errorf("時間割からの削除に失敗しました: %w", err)
	}

	if removed {
		s.logger.Info("時間割から講義を削除しました",
			slog.Int64("user_id", userID),
			slog.Int("day_of_week", day),
			slog.Int("period", period),
		)
	}
	return removed, nil
}

// Clear はユーザーの時間割を全コマ削除する。
// 削除対象があった場合はtrueを返す。
func (s *Service) Clear(ctx context.Context, userID int64) (bool, error) {
	cleared, err := s.timetableRepo.DeleteByUser(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("時間割の全削除に失敗しました: %w", err)
	}

	if cleared {
		s.logger.Info("時間割を全て削除しました",
			slog.Int64("user_id", userID),
		)
	}
	return cleared, nil
}
