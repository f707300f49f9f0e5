package repository

import (
	"context"
	"errors"

	"github.com/kawabatas/bundle-publisher/internal/domain/model"
)

// ErrNotFound is returned when no row matches.
var ErrNotFound = errors.New("repository: not found")

// PublicationRepository abstracts the publish history regardless of the underlying DB.
type PublicationRepository interface {
	// Add は p を保存し、採番された ID を p.ID に設定します。
	Add(ctx context.Context, p *model.Publication) error
	// List は新しい順に返します。
	List(ctx context.Context, offset, limit int) ([]model.Publication, error)
	LatestByVersion(ctx context.Context, version string) (model.Publication, error)
}
