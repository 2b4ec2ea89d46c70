package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tt1125/kacchi-navi/internal/model"
)

// SQLiteSyllabusRepo はSQLiteを使用したシラバスリポジトリ。
type SQLiteSyllabusRepo struct {
	db *sql.DB
}

// NewSQLiteSyllabusRepo はSQLiteSyllabusRepoを生成する。
func NewSQLiteSyllabusRepo(db *sql.DB) *SQLiteSyllabusRepo {
	return &SQLiteSyllabusRepo{db: db}
}

// FindHTMLByCode は講義コードのシラバスHTMLを返す。
// 複数一致した場合は最初の1件。見つからない場合は空文字とfalseを返す。
func (r *SQLiteSyllabusRepo) FindHTMLByCode(ctx context.Context, code string) (string, bool, error) {
	var html string
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(html, '') FROM syllabuses WHERE code = ? LIMIT 1`, code,
	).Scan(&html)

	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("シラバスHTMLの取得に失敗しました: %w", err)
	}

	return html, true, nil
}

// ListForSearch は全シラバスのcode、md、vectorを返す。ベクトル検索用。
func (r *SQLiteSyllabusRepo) ListForSearch(ctx context.Context) ([]*model.Syllabus, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT COALESCE(code, ''), COALESCE(md, ''), vector FROM syllabuses`,
	)
	if err != nil {
		return nil, fmt.Errorf("シラバス一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var syllabuses []*model.Syllabus
	for rows.Next() {
		s := &model.Syllabus{}
		if err := rows.Scan(&s.Code, &s.MD, &s.Vector); err != nil {
			return nil, fmt.Errorf("シラバスの読み取りに失敗しました: %w", err)
		}
		syllabuses = append(syllabuses, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("シラバスの走査に失敗しました: %w", err)
	}

	return syllabuses, nil
}

// ExistsByCode は指定コードのシラバスが存在するかを返す。
func (r *SQLiteSyllabusRepo) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM syllabuses WHERE code = ? LIMIT 1`, code,
	).Scan(&one)

	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("シラバスの存在確認に失敗しました: %w", err)
	}
	return true, nil
}

// Insert はシラバスを挿入し、採番されたIDを返す。
func (r *SQLiteSyllabusRepo) Insert(ctx context.Context, syllabus *model.Syllabus) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO syllabuses (code, html, md, vector) VALUES (?, ?, ?, ?)`,
		syllabus.Code, syllabus.HTML, syllabus.MD, syllabus.Vector,
	)
	if err != nil {
		return 0, fmt.Errorf("シラバスの作成に失敗しました: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("挿入IDの取得に失敗しました: %w", err)
	}
	return id, nil
}

// compile-time interface check
var _ SyllabusRepository = (*SQLiteSyllabusRepo)(nil)
