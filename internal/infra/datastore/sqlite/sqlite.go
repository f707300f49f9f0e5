package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// PRAGMAの意味:
//
//	journal_mode=WAL: 同時実行性向上のためWALモードを有効化
//	synchronous=NORMAL: 性能と耐障害性のバランスを取る
//	busy_timeout: ロック競合時の自動リトライ待機時間（ms）
const busyTimeoutMs = 2000

func dsnWithPragma(path string) string {
	return fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(%d)", path, busyTimeoutMs)
}

// OpenAndInit opens the DB at path, creating parent directories and the schema.
func OpenAndInit(ctx context.Context, path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", dsnWithPragma(path))
	if err != nil {
		return nil, err
	}
	if err := initSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func initSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS publications (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  provider TEXT NOT NULL,
  bucket TEXT NOT NULL,
  object_key TEXT NOT NULL,
  version TEXT NOT NULL,
  size INTEGER NOT NULL,
  md5 TEXT NOT NULL,
  content_type TEXT NOT NULL,
  cache_control TEXT NOT NULL,
  acl TEXT NOT NULL,
  url TEXT NOT NULL,
  published_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_publications_version ON publications(version, id);
`); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}
