package store_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic-booking/internal/model"
	"clinic-booking/internal/store"
)

func setup(t *testing.T) *store.Store {
	t.Helper()
	_ = godotenv.Load("../../.env")
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := store.Open(ctx, dbURL)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	st := store.New(pool)
	require.NoError(t, st.Migrate(ctx))
	return st
}

func newAccount(t *testing.T, st *store.Store, role model.Role, specialty string) *model.Account {
	t.Helper()
	tag := uuid.New().String()[:8]
	a := &model.Account{
		ID:           uuid.New().String(),
		Username:     "user-" + tag,
		Email:        "user-" + tag + "@test.com",
		PasswordHash: "x",
		Role:         role,
		Specialty:    specialty,
	}
	require.NoError(t, st.CreateAccount(context.Background(), a))
	return a
}

func TestAccounts(t *testing.T) {
	st := setup(t)
	ctx := context.Background()
	p := newAccount(t, st, model.RoleProvider, "Orthodontics")

	got, err := st.AccountByUsername(ctx, p.Username)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, "Orthodontics", got.Specialty)

	taken, err := st.EmailTaken(ctx, p.Email)
	require.NoError(t, err)
	assert.True(t, taken)

	dup := *p
	dup.ID = uuid.New().String()
	assert.ErrorIs(t, st.CreateAccount(ctx, &dup), store.ErrDuplicate)

	_, err = st.AccountByID(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	bad := &model.Account{ID: uuid.New().String(), Username: "nospec-" + p.ID[:8], Email: p.ID[:8] + "@nospec.com", PasswordHash: "x", Role: model.RoleProvider}
	assert.Error(t, st.CreateAccount(ctx, bad), "providers need a specialty")
}

func TestAppointmentLedger(t *testing.T) {
	st := setup(t)
	ctx := context.Background()
	pat := newAccount(t, st, model.RolePatient, "")
	prov := newAccount(t, st, model.RoleProvider, "Endodontics")
	repo := st.Appointments()

	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	var ids []string
	for _, at := range []string{"10:00", "09:00"} {
		a := &model.Appointment{
			ID: uuid.New().String(), PatientID: pat.ID, ProviderID: prov.ID,
			Status: model.StatusPending, Payload: model.Slot{Date: day, Time: at},
		}
		require.NoError(t, repo.Insert(ctx, a))
		assert.False(t, a.CreatedAt.IsZero())
		ids = append(ids, a.ID)
	}

	list, err := repo.ListByProvider(ctx, prov.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, ids[0], list[0].ID, "insertion order")
	assert.Equal(t, "10:00", list[0].Payload.Time)
	assert.True(t, day.Equal(list[0].Payload.Date))

	updated, err := repo.Update(ctx, ids[0], func(a *model.Appointment) error {
		a.Status = model.StatusApproved
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, updated.Status)

	boom := errors.New("boom")
	_, err = repo.Update(ctx, ids[1], func(a *model.Appointment) error {
		a.Status = model.StatusRejected
		return boom
	})
	assert.ErrorIs(t, err, boom)
	got, err := repo.Get(ctx, ids[1])
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, got.Status, "failed update writes nothing")

	_, err = repo.Update(ctx, "missing", func(*model.Appointment) error { return nil })
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestAppointmentUpdateIsSerialized(t *testing.T) {
	st := setup(t)
	ctx := context.Background()
	pat := newAccount(t, st, model.RolePatient, "")
	prov := newAccount(t, st, model.RoleProvider, "Endodontics")
	repo := st.Appointments()

	a := &model.Appointment{
		ID: uuid.New().String(), PatientID: pat.ID, ProviderID: prov.ID, Status: model.StatusPending,
		Payload: model.Slot{Date: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), Time: "10:00"},
	}
	require.NoError(t, repo.Insert(ctx, a))

	errReviewed := errors.New("already reviewed")
	var wg sync.WaitGroup
	results := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = repo.Update(ctx, a.ID, func(a *model.Appointment) error {
				if a.Status.Reviewed() {
					return errReviewed
				}
				a.Status = model.StatusApproved
				return nil
			})
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, errReviewed)
		}
	}
	assert.Equal(t, 1, wins)
}

func TestVideoCallLedger(t *testing.T) {
	st := setup(t)
	ctx := context.Background()
	pat := newAccount(t, st, model.RolePatient, "")
	prov := newAccount(t, st, model.RoleProvider, "Periodontics")
	repo := st.VideoCalls()

	v := &model.VideoCall{
		ID: uuid.New().String(), PatientID: pat.ID, ProviderID: prov.ID, Status: model.StatusPending,
		Payload: model.Session{Specialty: "Periodontics"},
	}
	require.NoError(t, repo.Insert(ctx, v))

	// approval without schedule and room violates the table check
	_, err := repo.Update(ctx, v.ID, func(v *model.VideoCall) error {
		v.Status = model.StatusApproved
		return nil
	})
	assert.Error(t, err)

	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	room := "dental_video_" + v.ID
	_, err = repo.Update(ctx, v.ID, func(v *model.VideoCall) error {
		v.Status = model.StatusApproved
		v.Payload.ScheduledAt = &at
		v.Payload.Room = room
		return nil
	})
	require.NoError(t, err)

	got, err := repo.ByRoom(ctx, room)
	require.NoError(t, err)
	assert.Equal(t, v.ID, got.ID)
	require.NotNil(t, got.Payload.ScheduledAt)
	assert.True(t, at.Equal(*got.Payload.ScheduledAt))

	list, err := repo.ListByPatient(ctx, pat.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, model.StatusApproved, list[0].Status)
}

func TestSessions(t *testing.T) {
	st := setup(t)
	ctx := context.Background()
	a := newAccount(t, st, model.RolePatient, "")
	exp := time.Now().Add(time.Hour)

	oldHash := "hash-" + uuid.New().String()
	oldID, err := st.CreateSession(ctx, a.ID, oldHash, exp)
	require.NoError(t, err)

	newID := uuid.New().String()
	newHash := "hash-" + uuid.New().String()
	require.NoError(t, st.RotateSession(ctx, oldID, newID, a.ID, newHash, exp))

	old, err := st.SessionByHash(ctx, oldHash)
	require.NoError(t, err)
	assert.True(t, old.Revoked)
	require.NotNil(t, old.ReplacedBy)
	assert.Equal(t, newID, *old.ReplacedBy)
	require.NotNil(t, old.RotatedAt)
	assert.WithinDuration(t, time.Now(), *old.RotatedAt, time.Minute)

	replacement, err := st.SessionByID(ctx, newID)
	require.NoError(t, err)
	assert.Equal(t, newHash, replacement.TokenHash)
	assert.False(t, replacement.Revoked)

	err = st.RotateSession(ctx, oldID, uuid.New().String(), a.ID, "hash-"+uuid.New().String(), exp)
	assert.ErrorIs(t, err, store.ErrNotFound, "a session rotates once")

	require.NoError(t, st.RevokeSessions(ctx, a.ID))
	cur, err := st.SessionByHash(ctx, newHash)
	require.NoError(t, err)
	assert.True(t, cur.Revoked)
}
