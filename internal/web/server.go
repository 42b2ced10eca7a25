// Package web serves the browser-facing clinic pages. Pages are JSON page
// models; form posts redirect with a flash message.
package web

import (
	"context"
	"net/http"

	"clinic-booking/internal/clinic"
	"clinic-booking/internal/middleware"
	"clinic-booking/internal/videotoken"
)

// TokenIssuer mints join credentials for a call room.
type TokenIssuer interface {
	Issue(ctx context.Context, room string) (*videotoken.Credential, error)
}

// Treatments are the external treatment services the redirect endpoints point at.
type Treatments struct {
	Oral  string
	Ortho string
	Xray  string
}

type Options struct {
	Accounts   *clinic.Accounts
	Bookings   *clinic.Bookings
	VideoCalls *clinic.VideoCalls
	Issuer     TokenIssuer
	AppID      string
	Sessions   *middleware.Sessions
	Limiter    middleware.Limiter // nil disables rate limiting
	TrustProxy bool
	Treatments Treatments
	Secure     bool
	Ready      func(context.Context) error
}

type Server struct {
	accounts   *clinic.Accounts
	bookings   *clinic.Bookings
	calls      *clinic.VideoCalls
	issuer     TokenIssuer
	appID      string
	sessions   *middleware.Sessions
	limiter    middleware.Limiter
	trustProxy bool
	treatments Treatments
	secure     bool
	ready      func(context.Context) error
}

func New(o Options) *Server {
	return &Server{
		accounts:   o.Accounts,
		bookings:   o.Bookings,
		calls:      o.VideoCalls,
		issuer:     o.Issuer,
		appID:      o.AppID,
		sessions:   o.Sessions,
		limiter:    o.Limiter,
		trustProxy: o.TrustProxy,
		treatments: o.Treatments,
		secure:     o.Secure,
		ready:      o.Ready,
	}
}

// Handler returns the routed pages wrapped in panic recovery and, when a
// limiter is configured, per-client limits on the credential forms.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	open := func(h http.HandlerFunc) http.Handler { return s.sessions.Optional(h) }
	authed := func(h http.HandlerFunc) http.Handler { return s.sessions.Require(h) }

	mux.Handle("GET /{$}", open(s.index))
	mux.Handle("GET /register", open(s.registerPage))
	mux.Handle("POST /register", http.HandlerFunc(s.register))
	mux.Handle("GET /login", open(s.loginPage))
	mux.Handle("POST /login", http.HandlerFunc(s.login))
	mux.HandleFunc("GET /healthz", s.healthz)
	mux.HandleFunc("GET /readyz", s.readyz)

	mux.Handle("GET /logout", authed(s.logout))
	mux.Handle("GET /dashboard", authed(s.dashboard))
	mux.Handle("GET /book_appointment", authed(s.bookAppointmentPage))
	mux.Handle("POST /book_appointment", authed(s.bookAppointment))
	mux.Handle("GET /request_video_call", authed(s.requestVideoCallPage))
	mux.Handle("POST /request_video_call", authed(s.requestVideoCall))
	mux.Handle("POST /appointment/{id}/approve", authed(s.reviewAppointment(true)))
	mux.Handle("POST /appointment/{id}/reject", authed(s.reviewAppointment(false)))
	mux.Handle("POST /video_call/{id}/approve", authed(s.approveVideoCall))
	mux.Handle("POST /video_call/{id}/reject", authed(s.rejectVideoCall))
	mux.Handle("GET /video_call/{id}", authed(s.videoCall))
	mux.Handle("POST /generate_token", authed(s.generateToken))
	mux.Handle("GET /ai_treatment", authed(s.aiTreatment))
	mux.Handle("/run_oral_treatment", authed(s.redirectTo(s.treatments.Oral)))
	mux.Handle("/run_ortho_treatment", authed(s.redirectTo(s.treatments.Ortho)))
	mux.Handle("/run_xray_treatment", authed(s.redirectTo(s.treatments.Xray)))

	var h http.Handler = mux
	if s.limiter != nil {
		h = middleware.RateLimitHTTP(s.limiter, s.trustProxy, "/login", "/register")(h)
	}
	return Recover(h)
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
