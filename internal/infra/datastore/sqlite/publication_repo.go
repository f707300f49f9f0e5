package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kawabatas/bundle-publisher/internal/domain/model"
	"github.com/kawabatas/bundle-publisher/internal/domain/repository"
)

type PublicationRepo struct{ db *sql.DB }

func NewPublicationRepo(db *sql.DB) *PublicationRepo { return &PublicationRepo{db: db} }

var _ repository.PublicationRepository = (*PublicationRepo)(nil)

const publicationColumns = `id, provider, bucket, object_key, version, size, md5, content_type, cache_control, acl, url, published_at`

func (r *PublicationRepo) Add(ctx context.Context, p *model.Publication) error {
	res, err := r.db.ExecContext(ctx, `
INSERT INTO publications(provider, bucket, object_key, version, size, md5, content_type, cache_control, acl, url, published_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, p.Provider, p.Bucket, p.Key, p.Version, p.Size, p.MD5, p.ContentType, p.CacheControl, string(p.ACL), p.URL, p.PublishedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert publication: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = id
	return nil
}

func (r *PublicationRepo) List(ctx context.Context, offset, limit int) ([]model.Publication, error) {
	if offset < 0 || limit <= 0 {
		return nil, fmt.Errorf("invalid offset/limit: %d/%d", offset, limit)
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT `+publicationColumns+`
FROM publications
ORDER BY id DESC
LIMIT ? OFFSET ?
`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Publication
	for rows.Next() {
		p, err := scanPublication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PublicationRepo) LatestByVersion(ctx context.Context, version string) (model.Publication, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+publicationColumns+`
FROM publications
WHERE version = ?
ORDER BY id DESC
LIMIT 1
`, version)
	p, err := scanPublication(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Publication{}, repository.ErrNotFound
	}
	return p, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPublication(s scanner) (model.Publication, error) {
	var (
		p   model.Publication
		acl string
	)
	if err := s.Scan(&p.ID, &p.Provider, &p.Bucket, &p.Key, &p.Version, &p.Size, &p.MD5, &p.ContentType, &p.CacheControl, &acl, &p.URL, &p.PublishedAt); err != nil {
		return model.Publication{}, err
	}
	p.ACL = model.ACL(acl)
	return p, nil
}
