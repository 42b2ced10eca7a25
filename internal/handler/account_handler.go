package handler

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"clinic-booking/internal/auth"
	"clinic-booking/internal/clinic"
	"clinic-booking/internal/model"
)

func (h *Handler) Register(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	in := clinic.Registration{
		Username:  str(req, "username"),
		Email:     str(req, "email"),
		Password:  str(req, "password"),
		Role:      model.Role(str(req, "role")),
		Specialty: str(req, "specialty"),
	}
	if in.Role == "" {
		in.Role = model.RolePatient
	}
	id, err := h.accounts.Register(ctx, in)
	if err != nil {
		return nil, toStatus(ctx, err)
	}

	tok, err := auth.IssueAccess(id, in.Role, h.secret)
	if err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}
	return reply(map[string]any{"account_id": id, "token": tok})
}

func (h *Handler) Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	a, err := h.accounts.Authenticate(ctx, str(req, "username"), str(req, "password"))
	if err != nil {
		return nil, toStatus(ctx, err)
	}

	tok, err := auth.IssueAccess(a.ID, a.Role, h.secret)
	if err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}
	return reply(map[string]any{"account_id": a.ID, "token": tok, "role": string(a.Role)})
}

// Dashboard lists the caller's appointments and video calls, as patient or
// as provider depending on the account's role.
func (h *Handler) Dashboard(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	me, err := h.accounts.Get(ctx, id.AccountID)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	appts, err := h.bookings.ListFor(ctx, me.ID, me.Role)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	calls, err := h.calls.ListFor(ctx, me.ID, me.Role)
	if err != nil {
		return nil, toStatus(ctx, err)
	}

	names, err := h.accounts.Parties(ctx, appts, calls)
	if err != nil {
		return nil, toStatus(ctx, err)
	}

	al := make([]any, len(appts))
	for i := range appts {
		al[i] = withParties(appointmentFields(&appts[i]), names, appts[i].PatientID, appts[i].ProviderID)
	}
	cl := make([]any, len(calls))
	for i := range calls {
		cl[i] = withParties(videoCallFields(&calls[i]), names, calls[i].PatientID, calls[i].ProviderID)
	}
	return reply(map[string]any{
		"user": map[string]any{
			"id": me.ID, "username": me.Username, "specialty": me.Specialty,
		},
		"is_provider":  me.IsProvider(),
		"appointments": al,
		"video_calls":  cl,
	})
}
