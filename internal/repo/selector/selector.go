package selector

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"acidlab.dev/backend/internal/pkg/apierr"
)

type S[T any] struct {
	DB       bun.IDB
	NotFound error
}

func New[T any](db bun.IDB) S[T] {
	return S[T]{
		DB:       db,
		NotFound: apierr.ErrNotFound,
	}
}

// WithNotFound returns a copy of the selector reporting missing rows as err.
func (r S[T]) WithNotFound(err error) S[T] {
	r.NotFound = err
	return r
}

func (r S[T]) SelectOne(ctx context.Context, fn func(q *bun.SelectQuery) *bun.SelectQuery) (*T, error) {
	var model T
	err := fn(r.DB.NewSelect().Model(&model)).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, r.NotFound
	} else if err != nil {
		return nil, err
	}

	return &model, nil
}

func (r S[T]) SelectMany(ctx context.Context, fn func(q *bun.SelectQuery) *bun.SelectQuery) ([]*T, error) {
	var model []*T
	err := fn(r.DB.NewSelect().Model(&model)).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, r.NotFound
	} else if err != nil {
		return nil, err
	}

	return model, nil
}
