package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"clinic-booking/internal/clinic"
)

const genericFailure = "Something went wrong. Please try again."

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// message turns a workflow error into the text shown to the user. Anything
// that is not a clinic error is logged and replaced by a generic message.
func message(r *http.Request, err error) string {
	var ce *clinic.Error
	if errors.As(err, &ce) {
		return ce.Msg
	}
	zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	return genericFailure
}

// flashRedirect is the post/redirect/get answer to a form submission.
func (s *Server) flashRedirect(w http.ResponseWriter, r *http.Request, msg, to string) {
	s.addFlash(w, r, msg)
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// Recover turns a handler panic into a 500 instead of a dropped connection.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				zerolog.Ctx(r.Context()).Error().Interface("panic", v).Str("path", r.URL.Path).Msg("handler panic")
				writeError(w, http.StatusInternalServerError, genericFailure)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
