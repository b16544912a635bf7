package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/pkg/errors"

	"acidlab.dev/backend/internal/model"
	"acidlab.dev/backend/internal/model/types"
	"acidlab.dev/backend/internal/pkg/apierr"
	"acidlab.dev/backend/internal/pkg/observability"
	"acidlab.dev/backend/internal/repo"
	"acidlab.dev/backend/internal/tb303"
)

type Pattern struct {
	PatternRepo *repo.Pattern
	Events      *PatternEvents
}

func NewPattern(patternRepo *repo.Pattern, events *PatternEvents) *Pattern {
	return &Pattern{
		PatternRepo: patternRepo,
		Events:      events,
	}
}

func (s *Pattern) Create(ctx context.Context, owner uuid.UUID, req *types.PatternRequest) (uuid.UUID, error) {
	p, err := s.validate(req)
	if err != nil {
		return uuid.Nil, err
	}

	start := time.Now()
	id, err := s.PatternRepo.Create(ctx, owner, p)
	observe("create", start, err)
	if err != nil {
		return uuid.Nil, err
	}

	s.Events.Publish(ctx, PatternEventCreated, owner, id)
	return id, nil
}

func (s *Pattern) Update(ctx context.Context, owner, id uuid.UUID, req *types.PatternRequest) (uuid.UUID, error) {
	p, err := s.validate(req)
	if err != nil {
		return uuid.Nil, err
	}

	start := time.Now()
	id, err = s.PatternRepo.Update(ctx, owner, id, p)
	observe("update", start, err)
	if err != nil {
		return uuid.Nil, err
	}

	s.Events.Publish(ctx, PatternEventUpdated, owner, id)
	return id, nil
}

func (s *Pattern) Delete(ctx context.Context, owner, id uuid.UUID) error {
	start := time.Now()
	err := s.PatternRepo.Delete(ctx, owner, id)
	observe("delete", start, err)
	if err != nil {
		return err
	}

	s.Events.Publish(ctx, PatternEventDeleted, owner, id)
	return nil
}

// GetByID returns a pattern that viewer may see: any public pattern, or a
// private one viewer owns. Anything else reads as not found.
func (s *Pattern) GetByID(ctx context.Context, viewer, id uuid.UUID) (*types.PatternResponse, error) {
	start := time.Now()
	p, err := s.PatternRepo.GetByID(ctx, id)
	observe("get", start, err)
	if err != nil {
		return nil, err
	}

	if !p.IsPublic && p.UserID != viewer {
		return nil, apierr.ErrPatternNotFound
	}

	return toResponse(p)
}

func (s *Pattern) GetRandomPublic(ctx context.Context) (*types.PatternResponse, error) {
	start := time.Now()
	p, err := s.randomPublic(ctx)
	observe("random", start, err)
	if err != nil {
		return nil, err
	}

	return toResponse(p)
}

func (s *Pattern) randomPublic(ctx context.Context) (*model.Pattern, error) {
	id, err := s.PatternRepo.GetRandomPublicID(ctx)
	if err != nil {
		return nil, err
	}
	return s.PatternRepo.GetByID(ctx, id)
}

func (s *Pattern) List(ctx context.Context, owner uuid.UUID, query *types.ListQuery) (*model.Page[model.PatternSummary], error) {
	start := time.Now()
	page, err := s.PatternRepo.ListByOwner(ctx, owner, query)
	observe("list", start, err)
	return page, err
}

func (s *Pattern) validate(req *types.PatternRequest) (*tb303.Pattern, error) {
	p, err := tb303.Validate(req)
	if err != nil {
		observability.PatternValidationFailures.Inc()

		var ve *tb303.ValidationError
		if errors.As(err, &ve) {
			return nil, apierr.ErrValidationFailed.Msg("%s", ve.Reason)
		}
		return nil, err
	}
	return p, nil
}

func toResponse(p *model.Pattern) (*types.PatternResponse, error) {
	var resp types.PatternResponse
	if err := copier.Copy(&resp, p); err != nil {
		return nil, errors.Wrap(err, "failed to map pattern")
	}

	steps := make([]types.StepResponse, len(p.Steps))
	for i, step := range p.Steps {
		if err := copier.Copy(&steps[i], step); err != nil {
			return nil, errors.Wrap(err, "failed to map step")
		}
	}
	resp.Steps = steps

	return &resp, nil
}

func observe(op string, start time.Time, err error) {
	observability.PatternStoreDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	observability.PatternOperations.WithLabelValues(op, resultOf(err)).Inc()
}

func resultOf(err error) string {
	if err == nil {
		return "ok"
	}
	var pe *apierr.Error
	if errors.As(err, &pe) {
		return pe.ErrorCode
	}
	return apierr.CodeInternalError
}
