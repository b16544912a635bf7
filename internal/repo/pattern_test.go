package repo_test

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"gopkg.in/guregu/null.v3"

	"acidlab.dev/backend/internal/model"
	"acidlab.dev/backend/internal/model/types"
	"acidlab.dev/backend/internal/pkg/apierr"
	"acidlab.dev/backend/internal/pkg/testdb"
	"acidlab.dev/backend/internal/repo"
	"acidlab.dev/backend/internal/tb303"
)

func validPattern(t *testing.T, name string, steps int) *tb303.Pattern {
	t.Helper()

	req := &types.PatternRequest{
		Name:     name,
		Author:   null.StringFrom("Phuture"),
		Title:    null.StringFrom("Acid trax " + name),
		Tempo:    null.IntFrom(120),
		Waveform: null.StringFrom("square"),
		Decay:    null.IntFrom(30),
	}
	for i := steps; i >= 1; i-- {
		req.Steps = append(req.Steps, types.StepRequest{
			Number: int64(i),
			Note:   null.StringFrom("A#"),
			Time:   "note",
			Slide:  null.BoolFrom(i%2 == 0),
		})
	}

	p, err := tb303.Validate(req)
	require.NoError(t, err)
	return p
}

func newRepo(t *testing.T) *repo.Pattern {
	return repo.NewPattern(testdb.New(t))
}

func TestCreateThenGet(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)
	owner := uuid.New()

	id, err := r.Create(ctx, owner, validPattern(t, "first", 5))
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)

	got, err := r.GetByID(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, id, got.ID)
	assert.Equal(t, owner, got.UserID)
	assert.Equal(t, "first", got.Name)
	assert.Equal(t, null.StringFrom("Phuture"), got.Author)
	assert.Equal(t, null.IntFrom(120), got.Tempo)
	assert.Equal(t, null.IntFrom(30), got.Decay)
	assert.False(t, got.Resonance.Valid)
	assert.Equal(t, null.StringFrom("square"), got.Waveform)
	assert.False(t, got.Description.Valid)
	assert.True(t, got.CreatedAt.Equal(got.UpdatedAt))

	require.Len(t, got.Steps, 5)
	for i, s := range got.Steps {
		assert.Equal(t, i+1, s.Number)
		assert.Equal(t, id, s.PatternID)
		assert.Equal(t, null.StringFrom("A#"), s.Note)
		assert.False(t, s.Transpose.Valid)
		assert.Equal(t, "note", s.Time)
		assert.Equal(t, (i+1)%2 == 0, s.Slide)
	}
}

func TestGetMissing(t *testing.T) {
	_, err := newRepo(t).GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apierr.ErrPatternNotFound)
}

func TestUpdateReplacesSteps(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)
	owner := uuid.New()

	id, err := r.Create(ctx, owner, validPattern(t, "before", 16))
	require.NoError(t, err)
	before, err := r.GetByID(ctx, id)
	require.NoError(t, err)

	after := validPattern(t, "after", 3)
	after.Author = nil
	after.IsPublic = true

	updated, err := r.Update(ctx, owner, id, after)
	require.NoError(t, err)
	assert.Equal(t, id, updated)

	got, err := r.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "after", got.Name)
	assert.False(t, got.Author.Valid)
	assert.True(t, got.IsPublic)
	assert.True(t, got.CreatedAt.Equal(before.CreatedAt), "created_at must survive an update")
	assert.False(t, got.UpdatedAt.Before(before.UpdatedAt))
	require.Len(t, got.Steps, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{got.Steps[0].Number, got.Steps[1].Number, got.Steps[2].Number})
	for _, s := range got.Steps {
		for _, old := range before.Steps {
			assert.NotEqual(t, old.ID, s.ID, "steps are reinserted with fresh ids")
		}
	}
}

func TestUpdateClearsFlags(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)
	owner := uuid.New()

	published := validPattern(t, "published", 2)
	published.IsPublic = true
	published.Triplets = true
	published.Steps[0].Accent = true
	id, err := r.Create(ctx, owner, published)
	require.NoError(t, err)

	private := validPattern(t, "private", 2)
	_, err = r.Update(ctx, owner, id, private)
	require.NoError(t, err)

	got, err := r.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "private", got.Name)
	assert.False(t, got.IsPublic)
	assert.False(t, got.Triplets)
	require.Len(t, got.Steps, 2)
	assert.False(t, got.Steps[0].Accent)
	assert.False(t, got.Steps[0].Slide)
}

func TestUpdateHidesOwnership(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)
	owner := uuid.New()

	id, err := r.Create(ctx, owner, validPattern(t, "mine", 2))
	require.NoError(t, err)

	_, err = r.Update(ctx, uuid.New(), id, validPattern(t, "stolen", 1))
	assert.ErrorIs(t, err, apierr.ErrPatternNotFound)

	_, err = r.Update(ctx, owner, uuid.New(), validPattern(t, "ghost", 1))
	assert.ErrorIs(t, err, apierr.ErrPatternNotFound)

	got, err := r.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "mine", got.Name)
	assert.Len(t, got.Steps, 2)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	db := testdb.New(t)
	r := repo.NewPattern(db)
	owner := uuid.New()

	id, err := r.Create(ctx, owner, validPattern(t, "doomed", 4))
	require.NoError(t, err)

	err = r.Delete(ctx, uuid.New(), id)
	assert.ErrorIs(t, err, apierr.ErrAccessDenied)

	require.NoError(t, r.Delete(ctx, owner, id))

	err = r.Delete(ctx, owner, id)
	assert.ErrorIs(t, err, apierr.ErrPatternNotFound, "second delete is not found, never access denied")

	steps, err := db.NewSelect().Model((*model.Step)(nil)).Where("pattern_id = ?", id).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, steps)
}

func TestUpdateDeletedPattern(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)
	owner := uuid.New()

	id, err := r.Create(ctx, owner, validPattern(t, "gone", 2))
	require.NoError(t, err)
	require.NoError(t, r.Delete(ctx, owner, id))

	_, err = r.Update(ctx, owner, id, validPattern(t, "revived", 1))
	assert.ErrorIs(t, err, apierr.ErrPatternNotFound)
}

// failStepInserts cancels the context of step inserts while armed, so the
// statement fails inside the surrounding transaction.
type failStepInserts struct {
	armed atomic.Bool
}

func (h *failStepInserts) BeforeQuery(ctx context.Context, e *bun.QueryEvent) context.Context {
	if h.armed.Load() && strings.HasPrefix(e.Query, `INSERT INTO "steps_tb303"`) {
		ctx, cancel := context.WithCancel(ctx)
		cancel()
		return ctx
	}
	return ctx
}

func (h *failStepInserts) AfterQuery(context.Context, *bun.QueryEvent) {}

func TestFailedStepInsertRollsBack(t *testing.T) {
	ctx := context.Background()
	db := testdb.New(t)
	hook := &failStepInserts{}
	db.AddQueryHook(hook)
	r := repo.NewPattern(db)
	owner := uuid.New()

	id, err := r.Create(ctx, owner, validPattern(t, "original", 3))
	require.NoError(t, err)

	hook.armed.Store(true)

	t.Run("create leaves no header", func(t *testing.T) {
		_, err := r.Create(ctx, owner, validPattern(t, "orphan", 2))
		require.Error(t, err)

		n, err := db.NewSelect().Model((*model.Pattern)(nil)).Where("name = ?", "orphan").Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("update keeps the old header and steps", func(t *testing.T) {
		_, err := r.Update(ctx, owner, id, validPattern(t, "replacement", 5))
		require.Error(t, err)
		assert.NotErrorIs(t, err, apierr.ErrPatternNotFound)

		hook.armed.Store(false)
		got, err := r.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "original", got.Name)
		assert.Len(t, got.Steps, 3)
	})

	total, err := db.NewSelect().Model((*model.Pattern)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestRandomPublic(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)
	owner := uuid.New()

	_, err := r.Create(ctx, owner, validPattern(t, "private", 1))
	require.NoError(t, err)

	_, err = r.GetRandomPublicID(ctx)
	assert.ErrorIs(t, err, apierr.ErrNoPublicPatterns, "private patterns are never picked")

	public := validPattern(t, "public", 1)
	public.IsPublic = true
	publicID, err := r.Create(ctx, owner, public)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		id, err := r.GetRandomPublicID(ctx)
		require.NoError(t, err)
		assert.Equal(t, publicID, id)
	}
}

func TestListByOwner(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)
	alice, bob := uuid.New(), uuid.New()

	for i := 0; i < 12; i++ {
		p := validPattern(t, fmt.Sprintf("alice-%02d", i), 1)
		p.IsPublic = i%3 == 0
		_, err := r.Create(ctx, alice, p)
		require.NoError(t, err)
	}
	for i := 0; i < 3; i++ {
		_, err := r.Create(ctx, bob, validPattern(t, fmt.Sprintf("bob-%d", i), 1))
		require.NoError(t, err)
	}

	query := func(mutate func(q *types.ListQuery)) *types.ListQuery {
		q := &types.ListQuery{}
		if mutate != nil {
			mutate(q)
		}
		q.Normalize(10, 100)
		return q
	}

	t.Run("default paging", func(t *testing.T) {
		page, err := r.ListByOwner(ctx, alice, query(nil))
		require.NoError(t, err)
		assert.Equal(t, 12, page.Total)
		assert.Equal(t, 2, page.TotalPages)
		assert.Equal(t, 1, page.Page)
		assert.Equal(t, 10, page.PageSize)
		assert.Len(t, page.Records, 10)
		for _, rec := range page.Records {
			assert.Contains(t, rec.Name, "alice-")
		}
	})

	t.Run("second page", func(t *testing.T) {
		page, err := r.ListByOwner(ctx, alice, query(func(q *types.ListQuery) { q.Page = 2 }))
		require.NoError(t, err)
		assert.Len(t, page.Records, 2)
	})

	t.Run("isolated per owner", func(t *testing.T) {
		page, err := r.ListByOwner(ctx, bob, query(nil))
		require.NoError(t, err)
		assert.Equal(t, 3, page.Total)
		for _, rec := range page.Records {
			assert.Contains(t, rec.Name, "bob-")
		}

		page, err = r.ListByOwner(ctx, uuid.New(), query(nil))
		require.NoError(t, err)
		assert.Zero(t, page.Total)
		assert.NotNil(t, page.Records)
	})

	t.Run("sort by name ascending", func(t *testing.T) {
		page, err := r.ListByOwner(ctx, alice, query(func(q *types.ListQuery) {
			q.SortColumn = "name"
			q.SortDirection = "ascending"
			q.PageSize = 3
		}))
		require.NoError(t, err)
		require.Len(t, page.Records, 3)
		assert.Equal(t, "alice-00", page.Records[0].Name)
		assert.Equal(t, "alice-02", page.Records[2].Name)
		assert.Equal(t, 4, page.TotalPages)
	})

	t.Run("public filter", func(t *testing.T) {
		page, err := r.ListByOwner(ctx, alice, query(func(q *types.ListQuery) { q.IsPublic = null.BoolFrom(true) }))
		require.NoError(t, err)
		assert.Equal(t, 4, page.Total)
		for _, rec := range page.Records {
			assert.True(t, rec.IsPublic)
		}
	})

	t.Run("search is case insensitive and column scoped", func(t *testing.T) {
		page, err := r.ListByOwner(ctx, alice, query(func(q *types.ListQuery) {
			q.Search = "TRAX ALICE-1"
			q.SearchColumns = []string{"title"}
		}))
		require.NoError(t, err)
		assert.Equal(t, 2, page.Total)

		page, err = r.ListByOwner(ctx, alice, query(func(q *types.ListQuery) {
			q.Search = "trax"
			q.SearchColumns = []string{"author"}
		}))
		require.NoError(t, err)
		assert.Zero(t, page.Total)
	})

	t.Run("search treats wildcards literally", func(t *testing.T) {
		page, err := r.ListByOwner(ctx, alice, query(func(q *types.ListQuery) { q.Search = "%" }))
		require.NoError(t, err)
		assert.Zero(t, page.Total)
	})
}

func TestEachPublic(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)
	owner := uuid.New()

	for i := 0; i < 5; i++ {
		p := validPattern(t, fmt.Sprintf("p%d", i), 2)
		p.IsPublic = i != 2
		_, err := r.Create(ctx, owner, p)
		require.NoError(t, err)
	}

	var names []string
	n, err := r.EachPublic(ctx, 2, func(p *model.Pattern) error {
		assert.Len(t, p.Steps, 2)
		names = append(names, p.Name)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.ElementsMatch(t, []string{"p0", "p1", "p3", "p4"}, names)
}
