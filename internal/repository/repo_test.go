package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/tt1125/kacchi-navi/internal/database"
	"github.com/tt1125/kacchi-navi/internal/model"
)

// setupTestDB はマイグレーション適用済みの一時SQLiteデータベースを返す。
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "repo_test.db")
	if err := database.RunMigrations(path); err != nil {
		t.Fatalf("マイグレーションの適用に失敗: %v", err)
	}

	db, err := database.Open(path)
	if err != nil {
		t.Fatalf("データベースのオープンに失敗: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

// insertTestLecture はテスト用の講義を挿入してIDを返す。
func insertTestLecture(t *testing.T, db *sql.DB, l model.Lecture) int64 {
	t.Helper()

	repo := NewSQLiteLectureRepo(db)
	id, err := repo.Insert(context.Background(), &l)
	if err != nil {
		t.Fatalf("講義の挿入に失敗: %v", err)
	}
	return id
}
