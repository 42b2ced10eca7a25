package handler

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"clinic-booking/internal/clinic"
	"clinic-booking/internal/model"
)

func decision(req *structpb.Struct) (model.Status, error) {
	switch str(req, "decision") {
	case "approve":
		return model.StatusApproved, nil
	case "reject":
		return model.StatusRejected, nil
	}
	return "", status.Error(codes.InvalidArgument, "decision must be approve or reject")
}

func (h *Handler) BookAppointment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	a, err := h.bookings.Create(ctx, clinic.BookingInput{
		PatientID:  id.AccountID,
		ProviderID: str(req, "provider_id"),
		Date:       str(req, "date"),
		Time:       str(req, "time"),
		Notes:      str(req, "notes"),
	})
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return reply(map[string]any{"appointment": appointmentFields(a)})
}

func (h *Handler) RequestVideoCall(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	c, err := h.calls.Create(ctx, id.AccountID, str(req, "provider_id"), str(req, "specialty"), str(req, "notes"))
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return reply(map[string]any{"video_call": videoCallFields(c)})
}

func (h *Handler) ReviewAppointment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	to, err := decision(req)
	if err != nil {
		return nil, err
	}
	a, err := h.bookings.Transition(ctx, str(req, "id"), id.AccountID, to)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return reply(map[string]any{"appointment": appointmentFields(a)})
}

// ReviewVideoCall approves (with scheduled_time, YYYY-MM-DDTHH:MM) or rejects
// a video call request.
func (h *Handler) ReviewVideoCall(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	to, err := decision(req)
	if err != nil {
		return nil, err
	}

	var c *model.VideoCall
	if to == model.StatusApproved {
		at, perr := clinic.ParseSchedule(str(req, "scheduled_time"))
		if perr != nil {
			return nil, toStatus(ctx, perr)
		}
		c, err = h.calls.Approve(ctx, str(req, "id"), id.AccountID, at)
	} else {
		c, err = h.calls.Reject(ctx, str(req, "id"), id.AccountID)
	}
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return reply(map[string]any{"video_call": videoCallFields(c)})
}

// JoinVideoCall authorizes the caller for an approved call and issues a join
// credential for its room.
func (h *Handler) JoinVideoCall(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	t, err := h.calls.AuthorizeJoin(ctx, str(req, "id"), id.AccountID)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	cred, err := h.issuer.Issue(ctx, t.Room)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return reply(map[string]any{
		"video_call_room": t.Room,
		"scheduled_time":  t.ScheduledAt.Format(clinic.ScheduleLayout),
		"token":           cred.Token,
		"uid":             cred.UID,
		"app_id":          cred.AppID,
	})
}
