package clinic

import (
	"context"
	"errors"
	"strings"
	"time"

	"clinic-booking/internal/events"
	"clinic-booking/internal/model"
	"clinic-booking/internal/store"
)

// RoomPrefix namespaces room tokens; the rest of the token is the request id.
const RoomPrefix = "dental_video_"

// ScheduleLayout is the form encoding of an approved call's start time.
const ScheduleLayout = "2006-01-02T15:04"

func RoomFor(requestID string) string { return RoomPrefix + requestID }

type VideoCallRepository interface {
	Repository[model.Session]
	ByRoom(ctx context.Context, room string) (*model.VideoCall, error)
}

type VideoCalls struct {
	l        ledger[model.Session]
	repo     VideoCallRepository
	accounts *Accounts
}

func NewVideoCalls(repo VideoCallRepository, accounts *Accounts, pub events.Publisher) *VideoCalls {
	if pub == nil {
		pub = events.Nop{}
	}
	return &VideoCalls{
		l:        ledger[model.Session]{kind: "video_call", noun: "video call", repo: repo, events: pub},
		repo:     repo,
		accounts: accounts,
	}
}

// Create files a pending request. An empty specialty defaults to the
// provider's own.
func (v *VideoCalls) Create(ctx context.Context, patientID, providerID, specialty, notes string) (*model.VideoCall, error) {
	p, err := v.accounts.provider(ctx, providerID)
	if err != nil {
		return nil, err
	}
	specialty = strings.TrimSpace(specialty)
	if specialty == "" {
		specialty = p.Specialty
	}
	r := &model.VideoCall{
		PatientID:  patientID,
		ProviderID: providerID,
		Notes:      strings.TrimSpace(notes),
		Payload:    model.Session{Specialty: specialty},
	}
	if err := v.l.create(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (v *VideoCalls) Get(ctx context.Context, id string) (*model.VideoCall, error) {
	return v.l.get(ctx, id)
}

// ParseSchedule decodes the YYYY-MM-DDTHH:MM form value.
func ParseSchedule(raw string) (time.Time, error) {
	t, err := time.Parse(ScheduleLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fail(ErrValidation, "Scheduled time must be YYYY-MM-DDTHH:MM")
	}
	return t, nil
}

// Approve schedules the call and assigns its room in the same write as the
// status change.
func (v *VideoCalls) Approve(ctx context.Context, id, actorID string, scheduledAt time.Time) (*model.VideoCall, error) {
	if scheduledAt.IsZero() {
		return nil, fail(ErrValidation, "Scheduled time is required")
	}
	return v.l.review(ctx, id, actorID, model.StatusApproved, func(r *model.VideoCall) {
		at := scheduledAt
		r.Payload.ScheduledAt = &at
		r.Payload.Room = RoomFor(r.ID)
	})
}

func (v *VideoCalls) Reject(ctx context.Context, id, actorID string) (*model.VideoCall, error) {
	return v.l.review(ctx, id, actorID, model.StatusRejected, nil)
}

func (v *VideoCalls) ListFor(ctx context.Context, accountID string, role model.Role) ([]model.VideoCall, error) {
	return v.l.listFor(ctx, accountID, role)
}

// JoinTicket is what a participant needs to enter an approved call.
type JoinTicket struct {
	RequestID   string
	Room        string
	PatientID   string
	ProviderID  string
	Specialty   string
	ScheduledAt time.Time
}

func (v *VideoCalls) AuthorizeJoin(ctx context.Context, id, actorID string) (*JoinTicket, error) {
	r, err := v.l.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return ticket(r, actorID)
}

// AuthorizeRoom resolves a room token to its request and applies the same
// checks as AuthorizeJoin.
func (v *VideoCalls) AuthorizeRoom(ctx context.Context, room, actorID string) (*JoinTicket, error) {
	if !strings.HasPrefix(room, RoomPrefix) {
		return nil, fail(ErrNotFound, "Unknown room")
	}
	r, err := v.repo.ByRoom(ctx, room)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fail(ErrNotFound, "Unknown room")
	}
	if err != nil {
		return nil, err
	}
	return ticket(r, actorID)
}

func ticket(r *model.VideoCall, actorID string) (*JoinTicket, error) {
	if actorID != r.PatientID && actorID != r.ProviderID {
		return nil, fail(ErrForbidden, "You are not authorized to access this video call")
	}
	if r.Status != model.StatusApproved || r.Payload.ScheduledAt == nil || r.Payload.Room == "" {
		return nil, fail(ErrNotReady, "This video call has not been approved yet")
	}
	return &JoinTicket{
		RequestID:   r.ID,
		Room:        r.Payload.Room,
		PatientID:   r.PatientID,
		ProviderID:  r.ProviderID,
		Specialty:   r.Payload.Specialty,
		ScheduledAt: *r.Payload.ScheduledAt,
	}, nil
}
