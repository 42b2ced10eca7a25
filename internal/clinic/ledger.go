package clinic

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"clinic-booking/internal/events"
	"clinic-booking/internal/model"
	"clinic-booking/internal/store"
)

// Repository persists one kind of reviewable request. Update must run fn and
// the write-back as one atomic read-modify-write on the row.
type Repository[P any] interface {
	Insert(ctx context.Context, r *model.Request[P]) error
	Get(ctx context.Context, id string) (*model.Request[P], error)
	Update(ctx context.Context, id string, fn func(*model.Request[P]) error) (*model.Request[P], error)
	ListByPatient(ctx context.Context, accountID string) ([]model.Request[P], error)
	ListByProvider(ctx context.Context, accountID string) ([]model.Request[P], error)
}

// ledger carries the lifecycle shared by appointments and video calls.
type ledger[P any] struct {
	kind   string // event prefix
	noun   string // user-facing name
	repo   Repository[P]
	events events.Publisher
}

func (l *ledger[P]) create(ctx context.Context, r *model.Request[P]) error {
	if r.PatientID == r.ProviderID {
		return fail(ErrValidation, "You cannot book yourself")
	}
	r.ID = uuid.New().String()
	r.Status = model.StatusPending
	if err := l.repo.Insert(ctx, r); err != nil {
		return err
	}
	l.publish(ctx, "requested", r)
	return nil
}

func (l *ledger[P]) get(ctx context.Context, id string) (*model.Request[P], error) {
	r, err := l.repo.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fail(ErrNotFound, "No such %s", l.noun)
	}
	return r, err
}

// review moves a pending request to a terminal status. Only the addressed
// provider may do so, and only once. apply runs inside the same atomic update.
func (l *ledger[P]) review(ctx context.Context, id, actorID string, to model.Status, apply func(*model.Request[P])) (*model.Request[P], error) {
	if !to.Reviewed() {
		return nil, fail(ErrValidation, "Cannot transition to %q", to)
	}
	r, err := l.repo.Update(ctx, id, func(r *model.Request[P]) error {
		if r.ProviderID != actorID {
			verb := "approve"
			if to == model.StatusRejected {
				verb = "reject"
			}
			return fail(ErrForbidden, "You are not authorized to %s this %s", verb, l.noun)
		}
		if r.Status.Reviewed() {
			return fail(ErrAlreadyReviewed, "This %s has already been %s", l.noun, r.Status)
		}
		r.Status = to
		if apply != nil {
			apply(r)
		}
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, fail(ErrNotFound, "No such %s", l.noun)
	}
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Info().Str("kind", l.kind).Str("id", id).Str("status", string(to)).Msg("request reviewed")
	l.publish(ctx, string(to), r)
	return r, nil
}

func (l *ledger[P]) listFor(ctx context.Context, accountID string, role model.Role) ([]model.Request[P], error) {
	switch role {
	case model.RoleProvider:
		return l.repo.ListByProvider(ctx, accountID)
	case model.RolePatient:
		return l.repo.ListByPatient(ctx, accountID)
	}
	return nil, fail(ErrInvalidRole, "Unknown role %q", role)
}

func (l *ledger[P]) publish(ctx context.Context, action string, r *model.Request[P]) {
	e := events.New(l.kind+"."+action, r.ID, map[string]any{
		"patient_id":  r.PatientID,
		"provider_id": r.ProviderID,
		"status":      string(r.Status),
	})
	if err := l.events.Publish(ctx, e); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("event", e.Type).Msg("event publish failed")
	}
}
