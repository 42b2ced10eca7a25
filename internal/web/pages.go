package web

import (
	"errors"
	"net/http"
	"time"

	"clinic-booking/internal/clinic"
	"clinic-booking/internal/middleware"
	"clinic-booking/internal/model"
)

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	_, ok := middleware.IdentityFrom(r.Context())
	writeJSON(w, http.StatusOK, indexPage{page: newPage("index", s.takeFlashes(w, r)), Authenticated: ok})
}

func (s *Server) registerPage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newPage("register", s.takeFlashes(w, r)))
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form")
		return
	}
	in := clinic.Registration{
		Username: r.PostFormValue("username"),
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
		Role:     model.RolePatient,
	}
	if r.PostFormValue("is_dentist") == "on" || r.PostFormValue("role") == string(model.RoleProvider) {
		in.Role = model.RoleProvider
		in.Specialty = r.PostFormValue("specialty")
	}
	if _, err := s.accounts.Register(r.Context(), in); err != nil {
		s.flashRedirect(w, r, message(r, err), "/register")
		return
	}
	s.flashRedirect(w, r, "Registration successful! Please login.", "/login")
}

func (s *Server) loginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.IdentityFrom(r.Context()); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusOK, newPage("login", s.takeFlashes(w, r)))
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form")
		return
	}
	a, err := s.accounts.Authenticate(r.Context(), r.PostFormValue("username"), r.PostFormValue("password"))
	if err != nil {
		s.flashRedirect(w, r, message(r, err), "/login")
		return
	}
	if err := s.sessions.Start(r.Context(), w, a); err != nil {
		s.flashRedirect(w, r, message(r, err), "/login")
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	s.sessions.End(r.Context(), w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, _ := middleware.IdentityFrom(ctx)
	me, err := s.accounts.Get(ctx, id.AccountID)
	if err != nil {
		// the account behind a valid session is gone
		s.sessions.End(ctx, w)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	appts, err := s.bookings.ListFor(ctx, me.ID, me.Role)
	if err != nil {
		writeError(w, http.StatusInternalServerError, message(r, err))
		return
	}
	calls, err := s.calls.ListFor(ctx, me.ID, me.Role)
	if err != nil {
		writeError(w, http.StatusInternalServerError, message(r, err))
		return
	}
	names, err := s.accounts.Parties(ctx, appts, calls)
	if err != nil {
		writeError(w, http.StatusInternalServerError, message(r, err))
		return
	}
	writeJSON(w, http.StatusOK, dashboardPage{
		page:         newPage("dashboard", s.takeFlashes(w, r)),
		User:         accountOf(*me),
		IsProvider:   me.IsProvider(),
		Appointments: appointmentsOf(appts, names),
		VideoCalls:   videoCallsOf(calls, names),
	})
}

func (s *Server) directory(w http.ResponseWriter, r *http.Request, name string) (*directoryPage, bool) {
	providers, err := s.accounts.Providers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, message(r, err))
		return nil, false
	}
	views := make([]accountView, 0, len(providers))
	for _, p := range providers {
		views = append(views, accountOf(p))
	}
	return &directoryPage{
		page:        newPage(name, s.takeFlashes(w, r)),
		Providers:   views,
		Specialties: clinic.Specialties(providers),
	}, true
}

func (s *Server) bookAppointmentPage(w http.ResponseWriter, r *http.Request) {
	p, ok := s.directory(w, r, "book_appointment")
	if !ok {
		return
	}
	p.Now = time.Now().Format(clinic.ScheduleLayout)
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) requestVideoCallPage(w http.ResponseWriter, r *http.Request) {
	p, ok := s.directory(w, r, "request_video_call")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// providerField accepts the legacy dentist_id form name.
func providerField(r *http.Request) string {
	if v := r.PostFormValue("provider_id"); v != "" {
		return v
	}
	return r.PostFormValue("dentist_id")
}

func (s *Server) bookAppointment(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form")
		return
	}
	id, _ := middleware.IdentityFrom(r.Context())
	_, err := s.bookings.Create(r.Context(), clinic.BookingInput{
		PatientID:  id.AccountID,
		ProviderID: providerField(r),
		Date:       r.PostFormValue("date"),
		Time:       r.PostFormValue("time"),
		Notes:      r.PostFormValue("notes"),
	})
	if err != nil {
		s.flashRedirect(w, r, message(r, err), "/book_appointment")
		return
	}
	s.flashRedirect(w, r, "Appointment booked successfully!", "/dashboard")
}

func (s *Server) requestVideoCall(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form")
		return
	}
	id, _ := middleware.IdentityFrom(r.Context())
	_, err := s.calls.Create(r.Context(), id.AccountID, providerField(r), r.PostFormValue("specialty"), r.PostFormValue("notes"))
	if err != nil {
		s.flashRedirect(w, r, message(r, err), "/request_video_call")
		return
	}
	s.flashRedirect(w, r, "Video call request submitted successfully!", "/dashboard")
}

// reviewed answers a transition: unknown ids are a 404, every other outcome
// goes back to the dashboard with a flash.
func (s *Server) reviewed(w http.ResponseWriter, r *http.Request, err error, ok string) {
	switch {
	case err == nil:
		s.flashRedirect(w, r, ok, "/dashboard")
	case errors.Is(err, clinic.ErrNotFound):
		writeError(w, http.StatusNotFound, message(r, err))
	default:
		s.flashRedirect(w, r, message(r, err), "/dashboard")
	}
}

func (s *Server) reviewAppointment(approve bool) http.HandlerFunc {
	to, ok := model.StatusRejected, "Appointment rejected"
	if approve {
		to, ok = model.StatusApproved, "Appointment approved successfully!"
	}
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := middleware.IdentityFrom(r.Context())
		_, err := s.bookings.Transition(r.Context(), r.PathValue("id"), id.AccountID, to)
		s.reviewed(w, r, err, ok)
	}
}

func (s *Server) approveVideoCall(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form")
		return
	}
	id, _ := middleware.IdentityFrom(r.Context())
	at, err := clinic.ParseSchedule(r.PostFormValue("scheduled_time"))
	if err == nil {
		_, err = s.calls.Approve(r.Context(), r.PathValue("id"), id.AccountID, at)
	}
	s.reviewed(w, r, err, "Video call approved successfully!")
}

func (s *Server) rejectVideoCall(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFrom(r.Context())
	_, err := s.calls.Reject(r.Context(), r.PathValue("id"), id.AccountID)
	s.reviewed(w, r, err, "Video call rejected")
}

func (s *Server) videoCall(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFrom(r.Context())
	t, err := s.calls.AuthorizeJoin(r.Context(), r.PathValue("id"), id.AccountID)
	if err != nil {
		if errors.Is(err, clinic.ErrNotFound) {
			writeError(w, http.StatusNotFound, message(r, err))
			return
		}
		s.flashRedirect(w, r, message(r, err), "/dashboard")
		return
	}
	p := videoCallPage{page: newPage("video_call", s.takeFlashes(w, r)), AppID: s.appID}
	p.VideoCall.ID = t.RequestID
	p.VideoCall.Room = t.Room
	p.VideoCall.PatientID = t.PatientID
	p.VideoCall.ProviderID = t.ProviderID
	p.VideoCall.Specialty = t.Specialty
	p.VideoCall.ScheduledTime = t.ScheduledAt.Format(clinic.ScheduleLayout)
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) aiTreatment(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newPage("ai_treatment", s.takeFlashes(w, r)))
}

func (s *Server) redirectTo(target string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodPost {
			w.Header().Set("Allow", "GET, POST")
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		http.Redirect(w, r, target, http.StatusFound)
	}
}
