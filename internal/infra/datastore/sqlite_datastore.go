package datastore

import (
	"context"
	"database/sql"

	"github.com/kawabatas/bundle-publisher/internal/domain/repository"
	sqlitedriver "github.com/kawabatas/bundle-publisher/internal/infra/datastore/sqlite"
)

type sqliteStore struct {
	db *sql.DB

	publications repository.PublicationRepository
}

func (s *sqliteStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }
func (s *sqliteStore) Close() error                   { return s.db.Close() }

// SetConnPool は SQLite の接続プール設定を適用します。
// - maxOpen: 同時に開ける最大接続数
// - maxIdle: アイドル接続の最大数
func (s *sqliteStore) SetConnPool(maxOpen, maxIdle int) {
	if maxOpen > 0 {
		s.db.SetMaxOpenConns(maxOpen)
	}
	if maxIdle >= 0 {
		s.db.SetMaxIdleConns(maxIdle)
	}
}

func openSQLite(ctx context.Context, cfg Config) (DataStore, error) {
	db, err := sqlitedriver.OpenAndInit(ctx, cfg.Path)
	if err != nil {
		return nil, err
	}
	return &sqliteStore{
		db:           db,
		publications: sqlitedriver.NewPublicationRepo(db),
	}, nil
}

func (s *sqliteStore) Publications() repository.PublicationRepository { return s.publications }
