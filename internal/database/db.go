package database

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Open は端末ローカルのSQLiteデータベース接続を開く。
// pathにはデータベースファイルのパスを指定する（例: "eventman.db"、":memory:"）。
// sql.Openは接続を試行しないため、実際の接続確認にはdb.Ping()を使用すること。
// お気に入りストアは単一ライターを前提とするため、接続数を1に制限する。
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// modernc.org/sqliteは接続ごとに独立したメモリDBを持つため、
	// また書き込みの直列化のため、最大接続数を1に固定する。
	db.SetMaxOpenConns(1)

	return db, nil
}
