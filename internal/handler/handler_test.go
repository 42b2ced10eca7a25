package handler_test

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"clinic-booking/internal/clinic"
	"clinic-booking/internal/clinic/clinictest"
	"clinic-booking/internal/handler"
	"clinic-booking/internal/middleware"
	"clinic-booking/internal/model"
	"clinic-booking/internal/videotoken"
)

const secret = "test-secret"

type stubIssuer struct{ rooms []string }

func (s *stubIssuer) Issue(_ context.Context, room string) (*videotoken.Credential, error) {
	s.rooms = append(s.rooms, room)
	return &videotoken.Credential{Token: "tok", UID: 7, AppID: "app-1"}, nil
}

func setup(t *testing.T) (*handler.Client, *stubIssuer) {
	t.Helper()
	accounts := clinic.NewAccounts(clinictest.NewAccounts())
	pub := &clinictest.Publisher{}
	iss := &stubIssuer{}
	h := handler.New(
		accounts,
		clinic.NewBookings(clinictest.NewRequests[model.Slot](), accounts, pub),
		clinic.NewVideoCalls(clinictest.NewVideoCalls(), accounts, pub),
		iss, secret,
	)

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(middleware.Auth(secret)))
	handler.RegisterClinicServer(srv, h)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return handler.NewClient(conn), iss
}

func msg(t *testing.T, fields map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(fields)
	require.NoError(t, err)
	return s
}

func authed(token string) context.Context {
	return metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+token)
}

type account struct {
	id  string
	ctx context.Context
}

func register(t *testing.T, c *handler.Client, name, role, specialty string) account {
	t.Helper()
	out, err := c.Call(context.Background(), "Register", msg(t, map[string]any{
		"username": name, "email": name + "@x.com", "password": "password123", "role": role, "specialty": specialty,
	}))
	require.NoError(t, err)
	return account{id: out.Fields["account_id"].GetStringValue(), ctx: authed(out.Fields["token"].GetStringValue())}
}

func code(err error) codes.Code { return status.Code(err) }

func TestRegisterAndLogin(t *testing.T) {
	c, _ := setup(t)
	alice := register(t, c, "alice", "patient", "")
	assert.NotEmpty(t, alice.id)

	out, err := c.Call(context.Background(), "Login", msg(t, map[string]any{"username": "alice", "password": "password123"}))
	require.NoError(t, err)
	assert.Equal(t, alice.id, out.Fields["account_id"].GetStringValue())
	assert.Equal(t, "patient", out.Fields["role"].GetStringValue())
	assert.NotEmpty(t, out.Fields["token"].GetStringValue())
}

func TestRegisterErrors(t *testing.T) {
	c, _ := setup(t)
	register(t, c, "alice", "patient", "")

	tests := []struct {
		name   string
		fields map[string]any
		want   codes.Code
	}{
		{"duplicate username", map[string]any{"username": "alice", "email": "a2@x.com", "password": "password123"}, codes.AlreadyExists},
		{"duplicate email", map[string]any{"username": "alice2", "email": "alice@x.com", "password": "password123"}, codes.AlreadyExists},
		{"provider without specialty", map[string]any{"username": "dr", "email": "dr@x.com", "password": "password123", "role": "provider"}, codes.InvalidArgument},
		{"unknown role", map[string]any{"username": "bob", "email": "bob@x.com", "password": "password123", "role": "admin"}, codes.InvalidArgument},
		{"short password", map[string]any{"username": "bob", "email": "bob@x.com", "password": "short"}, codes.InvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Call(context.Background(), "Register", msg(t, tt.fields))
			assert.Equal(t, tt.want, code(err))
		})
	}
}

func TestLoginInvalid(t *testing.T) {
	c, _ := setup(t)
	register(t, c, "alice", "patient", "")

	_, err := c.Call(context.Background(), "Login", msg(t, map[string]any{"username": "alice", "password": "nope-nope"}))
	assert.Equal(t, codes.Unauthenticated, code(err))
	_, err = c.Call(context.Background(), "Login", msg(t, map[string]any{"username": "ghost", "password": "password123"}))
	assert.Equal(t, codes.Unauthenticated, code(err))
}

func TestProtectedNeedsToken(t *testing.T) {
	c, _ := setup(t)
	_, err := c.Call(context.Background(), "Dashboard", msg(t, nil))
	assert.Equal(t, codes.Unauthenticated, code(err))
	_, err = c.Call(authed("garbage"), "Dashboard", msg(t, nil))
	assert.Equal(t, codes.Unauthenticated, code(err))
}

func TestAppointmentReview(t *testing.T) {
	c, _ := setup(t)
	alice := register(t, c, "alice", "patient", "")
	drX := register(t, c, "dr_x", "provider", "Orthodontics")

	out, err := c.Call(alice.ctx, "BookAppointment", msg(t, map[string]any{
		"provider_id": drX.id, "date": "2025-06-01", "time": "10:00",
	}))
	require.NoError(t, err)
	appt := out.Fields["appointment"].GetStructValue()
	id := appt.Fields["id"].GetStringValue()
	assert.Equal(t, "pending", appt.Fields["status"].GetStringValue())

	_, err = c.Call(alice.ctx, "ReviewAppointment", msg(t, map[string]any{"id": id, "decision": "approve"}))
	assert.Equal(t, codes.PermissionDenied, code(err))

	out, err = c.Call(drX.ctx, "ReviewAppointment", msg(t, map[string]any{"id": id, "decision": "approve"}))
	require.NoError(t, err)
	assert.Equal(t, "approved", out.Fields["appointment"].GetStructValue().Fields["status"].GetStringValue())

	_, err = c.Call(drX.ctx, "ReviewAppointment", msg(t, map[string]any{"id": id, "decision": "reject"}))
	assert.Equal(t, codes.FailedPrecondition, code(err))
	_, err = c.Call(drX.ctx, "ReviewAppointment", msg(t, map[string]any{"id": id, "decision": "maybe"}))
	assert.Equal(t, codes.InvalidArgument, code(err))
	_, err = c.Call(drX.ctx, "ReviewAppointment", msg(t, map[string]any{"id": "missing", "decision": "approve"}))
	assert.Equal(t, codes.NotFound, code(err))

	dash, err := c.Call(alice.ctx, "Dashboard", msg(t, nil))
	require.NoError(t, err)
	assert.False(t, dash.Fields["is_provider"].GetBoolValue())
	list := dash.Fields["appointments"].GetListValue().GetValues()
	require.Len(t, list, 1)
	row := list[0].GetStructValue().Fields
	assert.Equal(t, "approved", row["status"].GetStringValue())
	assert.Equal(t, "alice", row["patient_username"].GetStringValue())
	assert.Equal(t, "dr_x", row["provider_username"].GetStringValue())
}

func TestJoinVideoCall(t *testing.T) {
	c, iss := setup(t)
	alice := register(t, c, "alice", "patient", "")
	drX := register(t, c, "dr_x", "provider", "Orthodontics")
	mallory := register(t, c, "mallory", "patient", "")

	out, err := c.Call(alice.ctx, "RequestVideoCall", msg(t, map[string]any{"provider_id": drX.id}))
	require.NoError(t, err)
	call := out.Fields["video_call"].GetStructValue()
	id := call.Fields["id"].GetStringValue()
	assert.Equal(t, "Orthodontics", call.Fields["specialty"].GetStringValue())

	_, err = c.Call(alice.ctx, "JoinVideoCall", msg(t, map[string]any{"id": id}))
	assert.Equal(t, codes.FailedPrecondition, code(err))

	_, err = c.Call(drX.ctx, "ReviewVideoCall", msg(t, map[string]any{"id": id, "decision": "approve"}))
	assert.Equal(t, codes.InvalidArgument, code(err), "approval needs a schedule")

	out, err = c.Call(drX.ctx, "ReviewVideoCall", msg(t, map[string]any{
		"id": id, "decision": "approve", "scheduled_time": "2025-06-01T10:00",
	}))
	require.NoError(t, err)
	call = out.Fields["video_call"].GetStructValue()
	assert.Equal(t, clinic.RoomFor(id), call.Fields["video_call_room"].GetStringValue())

	_, err = c.Call(mallory.ctx, "JoinVideoCall", msg(t, map[string]any{"id": id}))
	assert.Equal(t, codes.PermissionDenied, code(err))

	out, err = c.Call(alice.ctx, "JoinVideoCall", msg(t, map[string]any{"id": id}))
	require.NoError(t, err)
	assert.Equal(t, "tok", out.Fields["token"].GetStringValue())
	assert.Equal(t, float64(7), out.Fields["uid"].GetNumberValue())
	assert.Equal(t, "2025-06-01T10:00", out.Fields["scheduled_time"].GetStringValue())
	assert.Equal(t, []string{clinic.RoomFor(id)}, iss.rooms)
}
