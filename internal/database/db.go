package database

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Open はSQLiteデータベース接続を開く。
// pathはデータベースファイルのパスを指定する（例: "syllabus.db"）。
// SQLiteは単一ライターのため、busy_timeoutとWALを付与して開き、
// コネクション数を1に制限して書き込みを直列化する。
func Open(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)

	return db, nil
}
