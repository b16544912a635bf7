package repo

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"

	"acidlab.dev/backend/internal/model"
)

// CreateSchema creates the pattern and step tables along with their indexes.
// It is safe to run against a database that already has them.
func CreateSchema(ctx context.Context, db bun.IDB) error {
	if _, err := db.NewCreateTable().
		Model((*model.Pattern)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return errors.Wrap(err, "failed to create patterns_tb303 table")
	}

	if _, err := db.NewCreateTable().
		Model((*model.Step)(nil)).
		IfNotExists().
		ForeignKey(`("pattern_id") REFERENCES "patterns_tb303" ("pattern_id") ON DELETE CASCADE`).
		Exec(ctx); err != nil {
		return errors.Wrap(err, "failed to create steps_tb303 table")
	}

	if _, err := db.NewCreateIndex().
		Model((*model.Pattern)(nil)).
		Index("patterns_tb303_user_id_idx").
		IfNotExists().
		Column("user_id", "created_at").
		Exec(ctx); err != nil {
		return errors.Wrap(err, "failed to create patterns_tb303_user_id_idx")
	}

	if _, err := db.NewCreateIndex().
		Model((*model.Step)(nil)).
		Index("steps_tb303_pattern_id_number_idx").
		Unique().
		IfNotExists().
		Column("pattern_id", "number").
		Exec(ctx); err != nil {
		return errors.Wrap(err, "failed to create steps_tb303_pattern_id_number_idx")
	}

	return nil
}
