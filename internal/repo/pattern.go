package repo

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/uptrace/bun"
	"gopkg.in/guregu/null.v3"

	"acidlab.dev/backend/internal/model"
	"acidlab.dev/backend/internal/model/types"
	"acidlab.dev/backend/internal/pkg/apierr"
	"acidlab.dev/backend/internal/repo/selector"
	"acidlab.dev/backend/internal/tb303"
)

// headerColumns are the pattern columns replaced by an update.
var headerColumns = []string{
	"name", "author", "title", "description", "waveform", "triplets", "tempo",
	"tuning", "cut_off_freq", "resonance", "env_mod", "decay", "accent",
	"is_public", "updated_at",
}

type Pattern struct {
	db  *bun.DB
	sel selector.S[model.Pattern]
}

func NewPattern(db *bun.DB) *Pattern {
	return &Pattern{
		db:  db,
		sel: selector.New[model.Pattern](db).WithNotFound(apierr.ErrPatternNotFound),
	}
}

// Create stores p with its steps under a fresh identifier in one transaction.
func (r *Pattern) Create(ctx context.Context, owner uuid.UUID, p *tb303.Pattern) (uuid.UUID, error) {
	now := timestamp()
	row := patternRow(uuid.New(), owner, p, now)
	row.CreatedAt = now
	steps := stepRows(row.ID, p.Steps, now)

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(row).Exec(ctx); err != nil {
			return errors.Wrap(err, "failed to insert pattern")
		}
		if _, err := tx.NewInsert().Model(&steps).Exec(ctx); err != nil {
			return errors.Wrap(err, "failed to insert steps")
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, errors.Wrap(err, "repo: create pattern")
	}

	return row.ID, nil
}

// Update replaces the header and the whole step list of a pattern owned by
// owner. A pattern owned by someone else is reported as not found.
func (r *Pattern) Update(ctx context.Context, owner, id uuid.UUID, p *tb303.Pattern) (uuid.UUID, error) {
	now := timestamp()
	row := patternRow(id, owner, p, now)
	steps := stepRows(id, p.Steps, now)

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		// the header update also locks the row, so a concurrent delete cannot
		// remove it before the new steps are inserted
		res, err := tx.NewUpdate().
			Model(row).
			Column(headerColumns...).
			WherePK().
			Where("user_id = ?", owner).
			Exec(ctx)
		if err != nil {
			return errors.Wrap(err, "failed to update pattern")
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return errors.Wrap(err, "failed to read affected rows")
		}
		if affected == 0 {
			return apierr.ErrPatternNotFound
		}

		if _, err := tx.NewDelete().
			Model((*model.Step)(nil)).
			Where("pattern_id = ?", id).
			Exec(ctx); err != nil {
			return errors.Wrap(err, "failed to delete steps")
		}

		if _, err := tx.NewInsert().Model(&steps).Exec(ctx); err != nil {
			return errors.Wrap(err, "failed to insert steps")
		}
		return nil
	})
	if errors.Is(err, apierr.ErrPatternNotFound) {
		return uuid.Nil, err
	} else if err != nil {
		return uuid.Nil, errors.Wrap(err, "repo: update pattern")
	}

	return id, nil
}

// Delete removes a pattern and its steps. Unlike Update it tells a missing
// pattern apart from one owned by someone else.
func (r *Pattern) Delete(ctx context.Context, owner, id uuid.UUID) error {
	var current uuid.UUID
	err := r.db.NewSelect().
		Model((*model.Pattern)(nil)).
		Column("user_id").
		Where("pattern_id = ?", id).
		Scan(ctx, &current)
	if errors.Is(err, sql.ErrNoRows) {
		return apierr.ErrPatternNotFound
	} else if err != nil {
		return errors.Wrap(err, "repo: delete pattern: failed to look up owner")
	}
	if current != owner {
		return apierr.ErrAccessDenied
	}

	err = r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*model.Step)(nil)).
			Where("pattern_id = ?", id).
			Exec(ctx); err != nil {
			return errors.Wrap(err, "failed to delete steps")
		}

		res, err := tx.NewDelete().
			Model((*model.Pattern)(nil)).
			Where("pattern_id = ?", id).
			Where("user_id = ?", owner).
			Exec(ctx)
		if err != nil {
			return errors.Wrap(err, "failed to delete pattern")
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return errors.Wrap(err, "failed to read affected rows")
		}
		if affected == 0 {
			return apierr.ErrPatternNotFound
		}
		return nil
	})
	if errors.Is(err, apierr.ErrPatternNotFound) {
		return err
	} else if err != nil {
		return errors.Wrap(err, "repo: delete pattern")
	}

	return nil
}

// GetByID returns a pattern with its steps in ascending number order.
func (r *Pattern) GetByID(ctx context.Context, id uuid.UUID) (*model.Pattern, error) {
	p, err := r.sel.SelectOne(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.
			Relation("Steps", func(q *bun.SelectQuery) *bun.SelectQuery {
				return q.OrderExpr("s.number ASC")
			}).
			Where("p.pattern_id = ?", id)
	})
	if errors.Is(err, apierr.ErrPatternNotFound) {
		return nil, err
	} else if err != nil {
		return nil, errors.Wrap(err, "repo: get pattern")
	}

	return p, nil
}

// GetRandomPublicID picks one public pattern uniformly at random.
func (r *Pattern) GetRandomPublicID(ctx context.Context) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.db.NewSelect().
		Model((*model.Pattern)(nil)).
		Column("pattern_id").
		Where("is_public = ?", true).
		OrderExpr("RANDOM()").
		Limit(1).
		Scan(ctx, &id)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, apierr.ErrNoPublicPatterns
	} else if err != nil {
		return uuid.Nil, errors.Wrap(err, "repo: pick random public pattern")
	}

	return id, nil
}

// ListByOwner returns one page of owner's pattern summaries. Sort and search
// columns must already be checked against the allow-lists in types.
func (r *Pattern) ListByOwner(ctx context.Context, owner uuid.UUID, query *types.ListQuery) (*model.Page[model.PatternSummary], error) {
	var records []*model.PatternSummary

	q := r.db.NewSelect().
		Model(&records).
		Where("p.user_id = ?", owner)

	if query.IsPublic.Valid {
		q = q.Where("p.is_public = ?", query.IsPublic.Bool)
	}

	if search := strings.TrimSpace(query.Search); search != "" {
		columns := lo.Intersect(types.SearchableColumns, query.SearchColumns)
		if len(columns) == 0 {
			return model.NewPage[model.PatternSummary](nil, query.Page, query.PageSize, 0), nil
		}
		like := "%" + escapeLike(strings.ToLower(search)) + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			for _, col := range columns {
				q = q.WhereOr("LOWER(?) LIKE ? ESCAPE '!'", bun.Ident("p."+col), like)
			}
			return q
		})
	}

	total, err := q.Count(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "repo: count patterns")
	}

	column := types.DefaultSortColumn
	if lo.Contains(types.SortableColumns, query.SortColumn) {
		column = query.SortColumn
	}
	direction := lo.Ternary(query.Descending(), "DESC", "ASC")

	err = q.
		OrderExpr("? "+direction, bun.Ident("p."+column)).
		OrderExpr("p.pattern_id "+direction).
		Limit(query.PageSize).
		Offset(query.Offset()).
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrap(err, "repo: list patterns")
	}

	return model.NewPage(records, query.Page, query.PageSize, total), nil
}

// EachPublic calls fn for every public pattern, oldest first, loading steps
// batchSize patterns at a time. Iteration stops at the first error from fn.
func (r *Pattern) EachPublic(ctx context.Context, batchSize int, fn func(*model.Pattern) error) (int, error) {
	if batchSize <= 0 {
		batchSize = 100
	}
	count := 0
	for offset := 0; ; offset += batchSize {
		var batch []*model.Pattern
		err := r.db.NewSelect().
			Model(&batch).
			Relation("Steps", func(q *bun.SelectQuery) *bun.SelectQuery {
				return q.OrderExpr("s.number ASC")
			}).
			Where("p.is_public = ?", true).
			OrderExpr("p.created_at ASC, p.pattern_id ASC").
			Limit(batchSize).
			Offset(offset).
			Scan(ctx)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return count, errors.Wrap(err, "repo: scan public patterns")
		}
		for _, p := range batch {
			if err := fn(p); err != nil {
				return count, err
			}
			count++
		}
		if len(batch) < batchSize {
			return count, nil
		}
	}
}

func patternRow(id, owner uuid.UUID, p *tb303.Pattern, now time.Time) *model.Pattern {
	return &model.Pattern{
		ID:          id,
		UserID:      owner,
		Name:        string(p.Name),
		Author:      null.StringFromPtr((*string)(p.Author)),
		Title:       null.StringFromPtr((*string)(p.Title)),
		Description: null.StringFromPtr((*string)(p.Description)),
		Waveform:    null.NewString(p.Waveform.String(), p.Waveform != 0),
		Triplets:    p.Triplets,
		Tempo:       nullInt(p.Tempo),
		Tuning:      nullInt(p.Tuning),
		CutOffFreq:  nullInt(p.CutOffFreq),
		Resonance:   nullInt(p.Resonance),
		EnvMod:      nullInt(p.EnvMod),
		Decay:       nullInt(p.Decay),
		Accent:      nullInt(p.Accent),
		IsPublic:    p.IsPublic,
		UpdatedAt:   now,
	}
}

func stepRows(patternID uuid.UUID, steps []tb303.Step, now time.Time) []*model.Step {
	return lo.Map(steps, func(s tb303.Step, _ int) *model.Step {
		return &model.Step{
			ID:        uuid.New(),
			PatternID: patternID,
			Number:    int(s.Number),
			Note:      null.NewString(s.Note.String(), s.Note != 0),
			Transpose: null.NewString(s.Transpose.String(), s.Transpose != 0),
			Time:      s.Time.String(),
			Accent:    s.Accent,
			Slide:     s.Slide,
			CreatedAt: now,
		}
	})
}

func nullInt[T ~int](v *T) null.Int {
	if v == nil {
		return null.Int{}
	}
	return null.IntFrom(int64(*v))
}

// timestamp is now, truncated to the precision Postgres keeps.
func timestamp() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

var likeEscaper = strings.NewReplacer(`!`, `!!`, `%`, `!%`, `_`, `!_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
