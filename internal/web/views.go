package web

import (
	"time"

	"clinic-booking/internal/clinic"
	"clinic-booking/internal/model"
)

type page struct {
	Page    string   `json:"page"`
	Flashes []string `json:"flashes"`
}

type indexPage struct {
	page
	Authenticated bool `json:"authenticated"`
}

type accountView struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Specialty string `json:"specialty,omitempty"`
}

type appointmentView struct {
	ID          string `json:"id"`
	PatientID   string `json:"patient_id"`
	ProviderID  string `json:"provider_id"`
	Patient     string `json:"patient_username,omitempty"`
	Provider    string `json:"provider_username,omitempty"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Status      string `json:"status"`
	Notes       string `json:"notes,omitempty"`
	IsVideoCall bool   `json:"is_video_call"`
	VideoRoom   string `json:"video_call_room,omitempty"`
	CreatedAt   string `json:"created_at"`
}

type videoCallView struct {
	ID            string `json:"id"`
	PatientID     string `json:"patient_id"`
	ProviderID    string `json:"provider_id"`
	Patient       string `json:"patient_username,omitempty"`
	Provider      string `json:"provider_username,omitempty"`
	Specialty     string `json:"specialty"`
	Status        string `json:"status"`
	ScheduledTime string `json:"scheduled_time,omitempty"`
	Room          string `json:"video_call_room,omitempty"`
	Notes         string `json:"notes,omitempty"`
	CreatedAt     string `json:"created_at"`
}

type dashboardPage struct {
	page
	User         accountView       `json:"user"`
	IsProvider   bool              `json:"is_provider"`
	Appointments []appointmentView `json:"appointments"`
	VideoCalls   []videoCallView   `json:"video_calls"`
}

type directoryPage struct {
	page
	Providers   []accountView `json:"providers"`
	Specialties []string      `json:"specialties"`
	Now         string        `json:"now,omitempty"`
}

type videoCallPage struct {
	page
	VideoCall struct {
		ID            string `json:"id"`
		Room          string `json:"video_call_room"`
		PatientID     string `json:"patient_id"`
		ProviderID    string `json:"provider_id"`
		Specialty     string `json:"specialty"`
		ScheduledTime string `json:"scheduled_time"`
	} `json:"video_call"`
	AppID string `json:"app_id"`
}

type tokenResponse struct {
	Token string `json:"token"`
	UID   uint32 `json:"uid"`
	AppID string `json:"appId"`
}

func newPage(name string, flashes []string) page {
	if flashes == nil {
		flashes = []string{}
	}
	return page{Page: name, Flashes: flashes}
}

func accountOf(a model.Account) accountView {
	return accountView{ID: a.ID, Username: a.Username, Specialty: a.Specialty}
}

func appointmentsOf(in []model.Appointment, names map[string]string) []appointmentView {
	out := make([]appointmentView, 0, len(in))
	for _, a := range in {
		out = append(out, appointmentView{
			ID:          a.ID,
			PatientID:   a.PatientID,
			ProviderID:  a.ProviderID,
			Patient:     names[a.PatientID],
			Provider:    names[a.ProviderID],
			Date:        a.Payload.Date.Format(clinic.DateLayout),
			Time:        a.Payload.Time,
			Status:      string(a.Status),
			Notes:       a.Notes,
			IsVideoCall: a.Payload.IsVideo,
			VideoRoom:   a.Payload.VideoRoom,
			CreatedAt:   a.CreatedAt.Format(time.RFC3339),
		})
	}
	return out
}

func videoCallsOf(in []model.VideoCall, names map[string]string) []videoCallView {
	out := make([]videoCallView, 0, len(in))
	for _, c := range in {
		v := videoCallView{
			ID:         c.ID,
			PatientID:  c.PatientID,
			ProviderID: c.ProviderID,
			Patient:    names[c.PatientID],
			Provider:   names[c.ProviderID],
			Specialty:  c.Payload.Specialty,
			Status:     string(c.Status),
			Room:       c.Payload.Room,
			Notes:      c.Notes,
			CreatedAt:  c.CreatedAt.Format(time.RFC3339),
		}
		if c.Payload.ScheduledAt != nil {
			v.ScheduledTime = c.Payload.ScheduledAt.Format(clinic.ScheduleLayout)
		}
		out = append(out, v)
	}
	return out
}
