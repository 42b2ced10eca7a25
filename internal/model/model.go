package model

import "time"

type Role string

const (
	RolePatient  Role = "patient"
	RoleProvider Role = "provider"
)

func (r Role) Valid() bool { return r == RolePatient || r == RoleProvider }

type Account struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	Specialty    string // empty unless Role == RoleProvider
	CreatedAt    time.Time
}

func (a *Account) IsProvider() bool { return a.Role == RoleProvider }

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Reviewed reports whether the request has left the pending state.
func (s Status) Reviewed() bool { return s == StatusApproved || s == StatusRejected }

// Request is a patient-submitted request addressed to one provider, who alone
// may approve or reject it. P carries the kind-specific payload.
type Request[P any] struct {
	ID         string
	PatientID  string
	ProviderID string
	Status     Status
	Notes      string
	CreatedAt  time.Time
	Payload    P
}

// Slot is the payload of an appointment request.
type Slot struct {
	Date      time.Time // calendar day, UTC midnight
	Time      string    // HH:MM
	IsVideo   bool
	VideoRoom string
}

// Session is the payload of a video-call request. ScheduledAt and Room are
// set together when the request is approved and never otherwise.
type Session struct {
	Specialty   string
	ScheduledAt *time.Time
	Room        string
}

type (
	Appointment = Request[Slot]
	VideoCall   = Request[Session]
)
