package handler

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"clinic-booking/internal/clinic"
	"clinic-booking/internal/middleware"
	"clinic-booking/internal/model"
	"clinic-booking/internal/videotoken"
)

// TokenIssuer mints join credentials for a call room.
type TokenIssuer interface {
	Issue(ctx context.Context, room string) (*videotoken.Credential, error)
}

type Handler struct {
	accounts *clinic.Accounts
	bookings *clinic.Bookings
	calls    *clinic.VideoCalls
	issuer   TokenIssuer
	secret   string
}

func New(accounts *clinic.Accounts, bookings *clinic.Bookings, calls *clinic.VideoCalls, issuer TokenIssuer, secret string) *Handler {
	return &Handler{accounts: accounts, bookings: bookings, calls: calls, issuer: issuer, secret: secret}
}

var _ ClinicServer = (*Handler)(nil)

func caller(ctx context.Context) (middleware.Identity, error) {
	id, ok := middleware.IdentityFrom(ctx)
	if !ok {
		return id, status.Error(codes.Unauthenticated, "login required")
	}
	return id, nil
}

// toStatus maps workflow errors onto gRPC codes. Unknown errors are logged
// and reported as Internal without detail.
func toStatus(ctx context.Context, err error) error {
	msg := "internal error"
	var ce *clinic.Error
	if errors.As(err, &ce) {
		msg = ce.Msg
	}
	switch {
	case errors.Is(err, clinic.ErrDuplicateIdentity):
		return status.Error(codes.AlreadyExists, msg)
	case errors.Is(err, clinic.ErrInvalidCredentials):
		return status.Error(codes.Unauthenticated, msg)
	case errors.Is(err, clinic.ErrNotFound):
		return status.Error(codes.NotFound, msg)
	case errors.Is(err, clinic.ErrForbidden):
		return status.Error(codes.PermissionDenied, msg)
	case errors.Is(err, clinic.ErrInvalidRole), errors.Is(err, clinic.ErrValidation):
		return status.Error(codes.InvalidArgument, msg)
	case errors.Is(err, clinic.ErrNotReady), errors.Is(err, clinic.ErrAlreadyReviewed):
		return status.Error(codes.FailedPrecondition, msg)
	case errors.Is(err, videotoken.ErrIssuanceFailed):
		zerolog.Ctx(ctx).Error().Err(err).Msg("issue join token")
		return status.Error(codes.Internal, "failed to generate token")
	}
	zerolog.Ctx(ctx).Error().Err(err).Msg("rpc failed")
	return status.Error(codes.Internal, "internal error")
}

func str(in *structpb.Struct, key string) string {
	return in.GetFields()[key].GetStringValue()
}

func reply(fields map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}
	return out, nil
}

func appointmentFields(a *model.Appointment) map[string]any {
	return map[string]any{
		"id":          a.ID,
		"patient_id":  a.PatientID,
		"provider_id": a.ProviderID,
		"date":        a.Payload.Date.Format(clinic.DateLayout),
		"time":        a.Payload.Time,
		"status":      string(a.Status),
		"notes":       a.Notes,
		"created_at":  a.CreatedAt.Format(time.RFC3339),
	}
}

func withParties(f map[string]any, names map[string]string, patientID, providerID string) map[string]any {
	f["patient_username"] = names[patientID]
	f["provider_username"] = names[providerID]
	return f
}

func videoCallFields(c *model.VideoCall) map[string]any {
	f := map[string]any{
		"id":          c.ID,
		"patient_id":  c.PatientID,
		"provider_id": c.ProviderID,
		"specialty":   c.Payload.Specialty,
		"status":      string(c.Status),
		"notes":       c.Notes,
		"created_at":  c.CreatedAt.Format(time.RFC3339),
	}
	if c.Payload.ScheduledAt != nil {
		f["scheduled_time"] = c.Payload.ScheduledAt.Format(clinic.ScheduleLayout)
		f["video_call_room"] = c.Payload.Room
	}
	return f
}
