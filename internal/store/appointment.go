package store

import (
	"context"

	"github.com/jackc/pgx/v5"

	"clinic-booking/internal/model"
)

// Appointments implements the booking ledger over the appointments table.
type Appointments struct{ s *Store }

func (s *Store) Appointments() *Appointments { return &Appointments{s: s} }

const appointmentCols = `id, patient_id, provider_id, date, time, status, notes,
	is_video_call, COALESCE(video_call_room, ''), created_at`

func scanAppointment(row pgx.Row) (*model.Appointment, error) {
	a := &model.Appointment{}
	var status string
	err := row.Scan(&a.ID, &a.PatientID, &a.ProviderID, &a.Payload.Date, &a.Payload.Time,
		&status, &a.Notes, &a.Payload.IsVideo, &a.Payload.VideoRoom, &a.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	a.Status = model.Status(status)
	return a, nil
}

func (r *Appointments) Insert(ctx context.Context, a *model.Appointment) error {
	var room *string
	if a.Payload.VideoRoom != "" {
		room = &a.Payload.VideoRoom
	}
	err := r.s.pool.QueryRow(ctx,
		`INSERT INTO appointments (id, patient_id, provider_id, date, time, status, notes, is_video_call, video_call_room)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING created_at`,
		a.ID, a.PatientID, a.ProviderID, a.Payload.Date, a.Payload.Time, string(a.Status),
		a.Notes, a.Payload.IsVideo, room,
	).Scan(&a.CreatedAt)
	return mapErr(err)
}

func (r *Appointments) Get(ctx context.Context, id string) (*model.Appointment, error) {
	return scanAppointment(r.s.pool.QueryRow(ctx,
		`SELECT `+appointmentCols+` FROM appointments WHERE id = $1`, id))
}

// Update locks the row, lets fn mutate it and writes the result back in the
// same transaction. An error from fn aborts without writing.
func (r *Appointments) Update(ctx context.Context, id string, fn func(*model.Appointment) error) (*model.Appointment, error) {
	tx, err := r.s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	a, err := scanAppointment(tx.QueryRow(ctx,
		`SELECT `+appointmentCols+` FROM appointments WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, err
	}
	if err := fn(a); err != nil {
		return nil, err
	}

	var room *string
	if a.Payload.VideoRoom != "" {
		room = &a.Payload.VideoRoom
	}
	_, err = tx.Exec(ctx,
		`UPDATE appointments SET status=$1, notes=$2, is_video_call=$3, video_call_room=$4 WHERE id=$5`,
		string(a.Status), a.Notes, a.Payload.IsVideo, room, a.ID,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	return a, tx.Commit(ctx)
}

func (r *Appointments) ListByPatient(ctx context.Context, accountID string) ([]model.Appointment, error) {
	return r.list(ctx, `patient_id`, accountID)
}

func (r *Appointments) ListByProvider(ctx context.Context, accountID string) ([]model.Appointment, error) {
	return r.list(ctx, `provider_id`, accountID)
}

func (r *Appointments) list(ctx context.Context, col, accountID string) ([]model.Appointment, error) {
	rows, err := r.s.pool.Query(ctx,
		`SELECT `+appointmentCols+` FROM appointments WHERE `+col+` = $1 ORDER BY seq`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}
