package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tt1125/kacchi-navi/internal/model"
)

// SQLiteTimetableRepo はSQLiteを使用した時間割リポジトリ。
type SQLiteTimetableRepo struct {
	db *sql.DB
}

// NewSQLiteTimetableRepo はSQLiteTimetableRepoを生成する。
func NewSQLiteTimetableRepo(db *sql.DB) *SQLiteTimetableRepo {
	return &SQLiteTimetableRepo{db: db}
}

// Upsert は指定コマの登録を挿入または更新し、エントリIDを返す。
// lectureIDがnilの場合はコマを空として登録する。
// 既存チェックと挿入は別クエリだが、(user_id, day_of_week, period)の
// UNIQUE制約が競合時の二重挿入を防ぐ。
func (r *SQLiteTimetableRepo) Upsert(ctx context.Context, userID int64, dayOfWeek, period int, lectureID *int64) (int64, error) {
	var existingID int64
	err := r.db.QueryRowContext(ctx,
		`SELECT id FROM lecture_timetables WHERE user_id = ? AND day_of_week = ? AND period = ?`,
		userID, dayOfWeek, period,
	).Scan(&existingID)

	if err == nil {
		_, err = r.db.ExecContext(ctx,
			`UPDATE lecture_timetables
			 SET lecture_id = ?, updated_at = CURRENT_TIMESTAMP
			 WHERE user_id = ? AND day_of_week = ? AND period = ?`,
			lectureID, userID, dayOfWeek, period,
		)
		if err != nil {
			return 0, fmt.Errorf("時間割コマの更新に失敗しました: %w", err)
		}
		return existingID, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("時間割コマの確認に失敗しました: %w", err)
	}

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO lecture_timetables (user_id, day_of_week, period, lecture_id)
		 VALUES (?, ?, ?, ?)`,
		userID, dayOfWeek, period, lectureID,
	)
	if err != nil {
		return 0, fmt.Errorf("時間割コマの作成に失敗しました: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("挿入IDの取得に失敗しました: %w", err)
	}
	return id, nil
}

// ListByUser はユーザーの全エントリを曜日・時限順で返す。
func (r *SQLiteTimetableRepo) ListByUser(ctx context.Context, userID int64) ([]*model.TimetableEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, day_of_week, period, lecture_id, created_at, updated_at
		 FROM lecture_timetables
		 WHERE user_id = ?
		 ORDER BY day_of_week, period`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("時間割の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var entries []*model.TimetableEntry
	for rows.Next() {
		e := &model.TimetableEntry{}
		var lectureID sql.NullInt64
		if err := rows.Scan(&e.ID, &e.UserID, &e.DayOfWeek, &e.Period, &lectureID, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("時間割コマの読み取りに失敗しました: %w", err)
		}
		if lectureID.Valid {
			e.LectureID = &lectureID.Int64
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("時間割の走査に失敗しました: %w", err)
	}

	return entries, nil
}

// ListDetailedByUser は講義詳細をLEFT JOINしたエントリを曜日・時限順で返す。
func (r *SQLiteTimetableRepo) ListDetailedByUser(ctx context.Context, userID int64) ([]*TimetableSlot, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT
			tt.day_of_week,
			tt.period,
			tt.lecture_id,
			COALESCE(l.title, ''),
			COALESCE(l.name, ''),
			COALESCE(l.lecturer, ''),
			COALESCE(l.time, ''),
			COALESCE(l.category, ''),
			COALESCE(l.code, '')
		 FROM lecture_timetables tt
		 LEFT JOIN lectures l ON tt.lecture_id = l.id
		 WHERE tt.user_id = ?
		 ORDER BY tt.day_of_week, tt.period`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("講義詳細付き時間割の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var slots []*TimetableSlot
	for rows.Next() {
		slot := &TimetableSlot{}
		var lectureID sql.NullInt64
		l := &model.Lecture{}
		if err := rows.Scan(
			&slot.DayOfWeek, &slot.Period, &lectureID,
			&l.Title, &l.Name, &l.Lecturer, &l.Time, &l.Category, &l.Code,
		); err != nil {
			return nil, fmt.Errorf("講義詳細付き時間割の読み取りに失敗しました: %w", err)
		}
		if lectureID.Valid {
			l.ID = lectureID.Int64
			slot.Lecture = l
		}
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("講義詳細付き時間割の走査に失敗しました: %w", err)
	}

	return slots, nil
}

// DeleteSlot は指定コマのエントリを削除する。削除した場合trueを返す。
func (r *SQLiteTimetableRepo) DeleteSlot(ctx context.Context, userID int64, dayOfWeek, period int) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM lecture_timetables WHERE user_id = ? AND day_of_week = ? AND period = ?`,
		userID, dayOfWeek, period,
	)
	if err != nil {
		return false, fmt.Errorf("時間割コマの削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}
	return rowsAffected > 0, nil
}

// DeleteByUser はユーザーの全エントリを削除する。削除があった場合trueを返す。
func (r *SQLiteTimetableRepo) DeleteByUser(ctx context.Context, userID int64) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM lecture_timetables WHERE user_id = ?`, userID,
	)
	if err != nil {
		return false, fmt.Errorf("ユーザー時間割の削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}
	return rowsAffected > 0, nil
}

// compile-time interface check
var _ TimetableRepository = (*SQLiteTimetableRepo)(nil)
