package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"clinic-booking/internal/clinic"
	"clinic-booking/internal/middleware"
)

type tokenRequest struct {
	ChannelName string `json:"channel_name"`
}

// generateToken always answers with JSON: a credential, or an error with
// 400 for bad input, 403 when the caller may not join the room and 500 when
// the issuer fails.
func (s *Server) generateToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Request body must be JSON")
		return
	}
	room := strings.TrimSpace(req.ChannelName)
	if room == "" {
		writeError(w, http.StatusBadRequest, "Channel name is required")
		return
	}

	ctx := r.Context()
	id, _ := middleware.IdentityFrom(ctx)
	if _, err := s.calls.AuthorizeRoom(ctx, room, id.AccountID); err != nil {
		switch {
		case errors.Is(err, clinic.ErrForbidden), errors.Is(err, clinic.ErrNotFound):
			writeError(w, http.StatusForbidden, "You are not authorized to join this channel")
		case errors.Is(err, clinic.ErrNotReady):
			writeError(w, http.StatusForbidden, message(r, err))
		default:
			writeError(w, http.StatusInternalServerError, "Failed to generate token")
			zerolog.Ctx(ctx).Error().Err(err).Str("room", room).Msg("authorize room")
		}
		return
	}

	cred, err := s.issuer.Issue(ctx, room)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("room", room).Msg("issue join token")
		writeError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}
	zerolog.Ctx(ctx).Info().Str("room", room).Uint32("uid", cred.UID).Msg("join token issued")
	writeJSON(w, http.StatusOK, tokenResponse{Token: cred.Token, UID: cred.UID, AppID: cred.AppID})
}
