package clinic

import (
	"context"
	"strings"
	"time"

	"clinic-booking/internal/events"
	"clinic-booking/internal/model"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Bookings is the appointment ledger. It does not reject overlapping slots
// for the same provider.
type Bookings struct {
	l        ledger[model.Slot]
	accounts *Accounts
}

func NewBookings(repo Repository[model.Slot], accounts *Accounts, pub events.Publisher) *Bookings {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Bookings{l: ledger[model.Slot]{kind: "appointment", noun: "appointment", repo: repo, events: pub}, accounts: accounts}
}

type BookingInput struct {
	PatientID  string
	ProviderID string
	Date       string // YYYY-MM-DD
	Time       string // HH:MM
	Notes      string
}

func (b *Bookings) Create(ctx context.Context, in BookingInput) (*model.Appointment, error) {
	day, err := time.Parse(DateLayout, strings.TrimSpace(in.Date))
	if err != nil {
		return nil, fail(ErrValidation, "Date must be YYYY-MM-DD")
	}
	at, err := time.Parse(TimeLayout, strings.TrimSpace(in.Time))
	if err != nil {
		return nil, fail(ErrValidation, "Time must be HH:MM")
	}
	if _, err := b.accounts.provider(ctx, in.ProviderID); err != nil {
		return nil, err
	}

	a := &model.Appointment{
		PatientID:  in.PatientID,
		ProviderID: in.ProviderID,
		Notes:      strings.TrimSpace(in.Notes),
		Payload:    model.Slot{Date: day, Time: at.Format(TimeLayout)},
	}
	if err := b.l.create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (b *Bookings) Get(ctx context.Context, id string) (*model.Appointment, error) {
	return b.l.get(ctx, id)
}

// Transition approves or rejects an appointment on behalf of actorID.
func (b *Bookings) Transition(ctx context.Context, id, actorID string, to model.Status) (*model.Appointment, error) {
	return b.l.review(ctx, id, actorID, to, nil)
}

func (b *Bookings) ListFor(ctx context.Context, accountID string, role model.Role) ([]model.Appointment, error) {
	return b.l.listFor(ctx, accountID, role)
}
