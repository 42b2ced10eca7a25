package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"clinic-booking/internal/model"
)

// VideoCalls implements the video-session request ledger.
type VideoCalls struct{ s *Store }

func (s *Store) VideoCalls() *VideoCalls { return &VideoCalls{s: s} }

const videoCallCols = `id, patient_id, provider_id, specialty, status, notes,
	scheduled_time, COALESCE(video_call_room, ''), created_at`

func scanVideoCall(row pgx.Row) (*model.VideoCall, error) {
	v := &model.VideoCall{}
	var status string
	var scheduled *time.Time
	err := row.Scan(&v.ID, &v.PatientID, &v.ProviderID, &v.Payload.Specialty, &status,
		&v.Notes, &scheduled, &v.Payload.Room, &v.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	v.Status = model.Status(status)
	v.Payload.ScheduledAt = scheduled
	return v, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (r *VideoCalls) Insert(ctx context.Context, v *model.VideoCall) error {
	err := r.s.pool.QueryRow(ctx,
		`INSERT INTO video_calls (id, patient_id, provider_id, specialty, status, notes, scheduled_time, video_call_room)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING created_at`,
		v.ID, v.PatientID, v.ProviderID, v.Payload.Specialty, string(v.Status), v.Notes,
		v.Payload.ScheduledAt, nullable(v.Payload.Room),
	).Scan(&v.CreatedAt)
	return mapErr(err)
}

func (r *VideoCalls) Get(ctx context.Context, id string) (*model.VideoCall, error) {
	return scanVideoCall(r.s.pool.QueryRow(ctx,
		`SELECT `+videoCallCols+` FROM video_calls WHERE id = $1`, id))
}

func (r *VideoCalls) ByRoom(ctx context.Context, room string) (*model.VideoCall, error) {
	return scanVideoCall(r.s.pool.QueryRow(ctx,
		`SELECT `+videoCallCols+` FROM video_calls WHERE video_call_room = $1`, room))
}

func (r *VideoCalls) Update(ctx context.Context, id string, fn func(*model.VideoCall) error) (*model.VideoCall, error) {
	tx, err := r.s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	v, err := scanVideoCall(tx.QueryRow(ctx,
		`SELECT `+videoCallCols+` FROM video_calls WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, err
	}
	if err := fn(v); err != nil {
		return nil, err
	}

	// status, schedule and room are written together
	_, err = tx.Exec(ctx,
		`UPDATE video_calls SET status=$1, notes=$2, scheduled_time=$3, video_call_room=$4 WHERE id=$5`,
		string(v.Status), v.Notes, v.Payload.ScheduledAt, nullable(v.Payload.Room), v.ID,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	return v, tx.Commit(ctx)
}

func (r *VideoCalls) ListByPatient(ctx context.Context, accountID string) ([]model.VideoCall, error) {
	return r.list(ctx, `patient_id`, accountID)
}

func (r *VideoCalls) ListByProvider(ctx context.Context, accountID string) ([]model.VideoCall, error) {
	return r.list(ctx, `provider_id`, accountID)
}

func (r *VideoCalls) list(ctx context.Context, col, accountID string) ([]model.VideoCall, error) {
	rows, err := r.s.pool.Query(ctx,
		`SELECT `+videoCallCols+` FROM video_calls WHERE `+col+` = $1 ORDER BY seq`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.VideoCall
	for rows.Next() {
		v, err := scanVideoCall(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}
