package grpcx

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/presence"
	"github.com/cwrk-planet/chat-service/internal/session"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

type fakeResolver map[string]domain.Identity

func (f fakeResolver) Resolve(_ context.Context, token string) (domain.Identity, error) {
	id, ok := f[token]
	if !ok {
		return domain.Identity{}, domain.Unauthenticated("invalid access token", nil)
	}
	return id, nil
}

type fakeSessions struct {
	kicked []int64
}

func (f *fakeSessions) Kick(_ context.Context, userID int64) int {
	f.kicked = append(f.kicked, userID)
	if userID == 2 {
		return 2
	}
	return 0
}

func (f *fakeSessions) Stats() session.Stats {
	return session.Stats{Connections: 3, Users: 2, Rooms: 1}
}

func startServer(t *testing.T) (*grpc.ClientConn, *fakeSessions) {
	t.Helper()

	table := presence.NewTable()
	table.Join(1, "c-1", domain.Identity{UserID: 1, Username: "alice", City: "Москва"})
	table.Join(1, "c-2", domain.Identity{UserID: 2, Username: "bob", City: domain.DefaultCity})
	sessions := &fakeSessions{}

	srv := New(NewAdminServer(table, sessions), fakeResolver{"admin-token": {UserID: 9, Username: "admin"}})

	ln := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = srv.Serve(ctx, ln)
		close(done)
	}()

	cc, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return ln.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() {
		_ = cc.Close()
		cancel()
		<-done
	})
	return cc, sessions
}

func TestAdmin_RequiresToken(t *testing.T) {
	cc, _ := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err := NewAdminClient(cc, "nope").Stats(ctx)
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated, got %v", err)
	}

	err = cc.Invoke(ctx, MethodStats, &structpb.Struct{}, &structpb.Struct{})
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("missing metadata: expected Unauthenticated, got %v", err)
	}
}

func TestAdmin_HealthIsOpen(t *testing.T) {
	cc, _ := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	resp, err := healthpb.NewHealthClient(cc).Check(ctx, &healthpb.HealthCheckRequest{Service: adminServiceName})
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("status = %v", resp.GetStatus())
	}
}

func TestAdmin_RoomsAndMembers(t *testing.T) {
	cc, _ := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	c := NewAdminClient(cc, "admin-token")

	rooms, err := c.ListRooms(ctx)
	if err != nil {
		t.Fatalf("ListRooms: %v", err)
	}
	list := rooms.GetFields()["rooms"].GetListValue().GetValues()
	if len(list) != 1 {
		t.Fatalf("rooms = %v", rooms)
	}
	room := list[0].GetStructValue().GetFields()
	if room["room_id"].GetNumberValue() != 1 || room["members"].GetNumberValue() != 2 {
		t.Fatalf("room = %v", room)
	}

	members, err := c.ListMembers(ctx, 1)
	if err != nil {
		t.Fatalf("ListMembers: %v", err)
	}
	ms := members.GetFields()["members"].GetListValue().GetValues()
	if len(ms) != 2 || ms[0].GetStructValue().GetFields()["username"].GetStringValue() != "alice" {
		t.Fatalf("members = %v", members)
	}
}

func TestAdmin_ListMembersValidates(t *testing.T) {
	cc, _ := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	ctx = metadata.AppendToOutgoingContext(ctx, mdAuthorization, "Bearer admin-token")
	err := cc.Invoke(ctx, MethodListMembers, &structpb.Struct{}, &structpb.Struct{})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}

	in, _ := structpb.NewStruct(map[string]any{"room_id": "1"})
	if err := cc.Invoke(ctx, MethodListMembers, in, &structpb.Struct{}); err != nil {
		t.Fatalf("string id must be accepted: %v", err)
	}
}

func TestAdmin_DisconnectAndStats(t *testing.T) {
	cc, sessions := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	c := NewAdminClient(cc, "admin-token")

	out, err := c.DisconnectUser(ctx, 2)
	if err != nil {
		t.Fatalf("DisconnectUser: %v", err)
	}
	if out.GetFields()["closed"].GetNumberValue() != 2 || len(sessions.kicked) != 1 {
		t.Fatalf("out = %v kicked = %v", out, sessions.kicked)
	}
	rooms := out.GetFields()["rooms"].GetListValue().GetValues()
	if len(rooms) != 1 || rooms[0].GetNumberValue() != 1 {
		t.Fatalf("rooms = %v", rooms)
	}

	st, err := c.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.GetFields()["connections"].GetNumberValue() != 3 {
		t.Fatalf("stats = %v", st)
	}
}

func TestMapErr(t *testing.T) {
	cases := []struct {
		err  error
		code codes.Code
	}{
		{domain.Invalid("bad"), codes.InvalidArgument},
		{domain.ErrRoomNotFound, codes.NotFound},
		{domain.ErrRoomExists, codes.AlreadyExists},
		{domain.Unauthenticated("x", nil), codes.Unauthenticated},
		{domain.RateLimited("slow down"), codes.ResourceExhausted},
		{context.DeadlineExceeded, codes.Internal},
	}
	for _, tc := range cases {
		if got := status.Code(mapErr(tc.err)); got != tc.code {
			t.Errorf("%v: got %v want %v", tc.err, got, tc.code)
		}
	}
}
