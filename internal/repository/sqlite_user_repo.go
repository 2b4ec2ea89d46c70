package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tt1125/kacchi-navi/internal/model"
)

// SQLiteUserRepo はSQLiteを使用したユーザーリポジトリ。
type SQLiteUserRepo struct {
	db *sql.DB
}

// NewSQLiteUserRepo はSQLiteUserRepoを生成する。
func NewSQLiteUserRepo(db *sql.DB) *SQLiteUserRepo {
	return &SQLiteUserRepo{db: db}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *SQLiteUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	user := &model.User{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, uid, name, COALESCE(email, ''), created_at, updated_at FROM users WHERE id = ?`,
		id,
	).Scan(&user.ID, &user.UID, &user.Name, &user.Email, &user.CreatedAt, &user.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("IDによるユーザーの検索に失敗しました: %w", err)
	}

	return user, nil
}

// FindByUID は外部IdPのUIDでユーザーを検索する。見つからない場合はnilを返す。
func (r *SQLiteUserRepo) FindByUID(ctx context.Context, uid string) (*model.User, error) {
	user := &model.User{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, uid, name, COALESCE(email, ''), created_at, updated_at FROM users WHERE uid = ?`,
		uid,
	).Scan(&user.ID, &user.UID, &user.Name, &user.Email, &user.CreatedAt, &user.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("UIDによるユーザーの検索に失敗しました: %w", err)
	}

	return user, nil
}

// GetOrCreate はUIDでユーザーを取得し、存在しなければ作成して返す。
func (r *SQLiteUserRepo) GetOrCreate(ctx context.Context, uid, name, email string) (*model.User, error) {
	user, err := r.FindByUID(ctx, uid)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return user, nil
	}

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO users (uid, name, email) VALUES (?, ?, ?)`,
		uid, name, email,
	)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("挿入IDの取得に失敗しました: %w", err)
	}

	return r.FindByID(ctx, id)
}

// ListAll は全ユーザーをIDと名前のみ、作成日時の降順で返す。
func (r *SQLiteUserRepo) ListAll(ctx context.Context) ([]*model.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name FROM users ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		user := &model.User{}
		if err := rows.Scan(&user.ID, &user.Name); err != nil {
			return nil, fmt.Errorf("ユーザーの読み取りに失敗しました: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ユーザーの走査に失敗しました: %w", err)
	}

	return users, nil
}

// DeleteByID は指定IDのユーザーと関連する時間割を削除する。
func (r *SQLiteUserRepo) DeleteByID(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	// 関連する時間割を先に削除
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM lecture_timetables WHERE user_id = ?`, id,
	); err != nil {
		return fmt.Errorf("時間割の削除に失敗しました: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewUserNotFoundError()
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}

	return nil
}

// compile-time interface check
var _ UserRepository = (*SQLiteUserRepo)(nil)
