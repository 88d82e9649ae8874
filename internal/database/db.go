package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// 接続プールの設定。カテゴリ管理は管理者のみが使うため小さく保つ。
const (
	maxOpenConns    = 10
	maxIdleConns    = 5
	connMaxIdleTime = 5 * time.Minute
)

// Open はPostgreSQLデータベース接続を開き、接続プールを設定する。
// sql.Openは接続を試行しないため、疎通確認はPingContextで行う。
func Open(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxIdleTime(connMaxIdleTime)
	return db, nil
}
