package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/tt1125/kacchi-navi/internal/model"
)

// searchColumns はキーワード検索の対象カラム。
var searchColumns = []string{
	"title", "category", "code", "name", "lecturer",
	"grade", "class_name", "season", "time",
}

// SQLiteLectureRepo はSQLiteを使用した講義リポジトリ。
type SQLiteLectureRepo struct {
	db *sql.DB
}

// NewSQLiteLectureRepo はSQLiteLectureRepoを生成する。
func NewSQLiteLectureRepo(db *sql.DB) *SQLiteLectureRepo {
	return &SQLiteLectureRepo{db: db}
}

const lectureSelectColumns = `id, COALESCE(title, ''), COALESCE(category, ''), COALESCE(code, ''),
	COALESCE(name, ''), COALESCE(lecturer, ''), COALESCE(grade, ''),
	COALESCE(class_name, ''), COALESCE(season, ''), COALESCE(time, '')`

func scanLecture(scanner interface{ Scan(...any) error }) (*model.Lecture, error) {
	l := &model.Lecture{}
	err := scanner.Scan(
		&l.ID, &l.Title, &l.Category, &l.Code, &l.Name,
		&l.Lecturer, &l.Grade, &l.ClassName, &l.Season, &l.Time,
	)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// Search は条件に一致する講義を検索する。
// 個別条件はLIKEの部分一致でAND結合し、KeywordはORで全カラムに適用する。
func (r *SQLiteLectureRepo) Search(ctx context.Context, filter model.LectureFilter) ([]*model.Lecture, error) {
	var conditions []string
	var args []any

	addLike := func(column, value string) {
		if value == "" {
			return
		}
		conditions = append(conditions, column+" LIKE ?")
		args = append(args, "%"+value+"%")
	}

	addLike("title", filter.Title)
	addLike("category", filter.Category)
	addLike("code", filter.Code)
	addLike("name", filter.Name)
	addLike("lecturer", filter.Lecturer)
	addLike("grade", filter.Grade)
	addLike("class_name", filter.ClassName)
	addLike("season", filter.Season)
	addLike("time", filter.Time)

	if filter.Keyword != "" {
		ors := make([]string, len(searchColumns))
		for i, col := range searchColumns {
			ors[i] = col + " LIKE ?"
			args = append(args, "%"+filter.Keyword+"%")
		}
		conditions = append(conditions, "("+strings.Join(ors, " OR ")+")")
	}

	query := "SELECT " + lectureSelectColumns + " FROM lectures"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("講義の検索に失敗しました: %w", err)
	}
	defer rows.Close()

	var lectures []*model.Lecture
	for rows.Next() {
		l, err := scanLecture(rows)
		if err != nil {
			return nil, fmt.Errorf("講義の読み取りに失敗しました: %w", err)
		}
		lectures = append(lectures, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("講義の走査に失敗しました: %w", err)
	}

	return lectures, nil
}

// FindByID は指定IDの講義を取得する。見つからない場合はnilを返す。
func (r *SQLiteLectureRepo) FindByID(ctx context.Context, id int64) (*model.Lecture, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+lectureSelectColumns+" FROM lectures WHERE id = ?", id,
	)
	l, err := scanLecture(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("IDによる講義の検索に失敗しました: %w", err)
	}
	return l, nil
}

// FindByCode は講義コードで講義を検索する。複数一致した場合は最初の1件を返す。
// 見つからない場合はnilを返す。
func (r *SQLiteLectureRepo) FindByCode(ctx context.Context, code string) (*model.Lecture, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+lectureSelectColumns+" FROM lectures WHERE code = ? LIMIT 1", code,
	)
	l, err := scanLecture(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("講義コードによる講義の検索に失敗しました: %w", err)
	}
	return l, nil
}

// Insert は講義データを挿入し、採番されたIDを返す。
func (r *SQLiteLectureRepo) Insert(ctx context.Context, lecture *model.Lecture) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO lectures (title, category, code, name, lecturer, grade, class_name, season, time)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		lecture.Title, lecture.Category, lecture.Code, lecture.Name,
		lecture.Lecturer, lecture.Grade, lecture.ClassName, lecture.Season, lecture.Time,
	)
	if err != nil {
		return 0, fmt.Errorf("講義の作成に失敗しました: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("挿入IDの取得に失敗しました: %w", err)
	}
	return id, nil
}

// compile-time interface check
var _ LectureRepository = (*SQLiteLectureRepo)(nil)
