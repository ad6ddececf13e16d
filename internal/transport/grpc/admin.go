package grpcx

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/presence"
	"github.com/cwrk-planet/chat-service/internal/session"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Сервис описан вручную поверх well-known типов: сообщения: Struct и Empty.
const adminServiceName = "chat.admin.v1.PresenceAdmin"

const (
	MethodListRooms      = "/" + adminServiceName + "/ListRooms"
	MethodListMembers    = "/" + adminServiceName + "/ListMembers"
	MethodDisconnectUser = "/" + adminServiceName + "/DisconnectUser"
	MethodStats          = "/" + adminServiceName + "/Stats"
)

type PresenceAdminServer interface {
	ListRooms(ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error)
	ListMembers(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	DisconnectUser(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Stats(ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error)
}

var PresenceAdminServiceDesc = grpc.ServiceDesc{
	ServiceName: adminServiceName,
	HandlerType: (*PresenceAdminServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ListRooms",
			Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
				in := new(emptypb.Empty)
				if err := dec(in); err != nil {
					return nil, err
				}
				call := func(ctx context.Context, req any) (any, error) {
					return srv.(PresenceAdminServer).ListRooms(ctx, req.(*emptypb.Empty))
				}
				return invoke(ctx, srv, in, MethodListRooms, call, interceptor)
			},
		},
		{
			MethodName: "ListMembers",
			Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
				in := new(structpb.Struct)
				if err := dec(in); err != nil {
					return nil, err
				}
				call := func(ctx context.Context, req any) (any, error) {
					return srv.(PresenceAdminServer).ListMembers(ctx, req.(*structpb.Struct))
				}
				return invoke(ctx, srv, in, MethodListMembers, call, interceptor)
			},
		},
		{
			MethodName: "DisconnectUser",
			Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
				in := new(structpb.Struct)
				if err := dec(in); err != nil {
					return nil, err
				}
				call := func(ctx context.Context, req any) (any, error) {
					return srv.(PresenceAdminServer).DisconnectUser(ctx, req.(*structpb.Struct))
				}
				return invoke(ctx, srv, in, MethodDisconnectUser, call, interceptor)
			},
		},
		{
			MethodName: "Stats",
			Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
				in := new(emptypb.Empty)
				if err := dec(in); err != nil {
					return nil, err
				}
				call := func(ctx context.Context, req any) (any, error) {
					return srv.(PresenceAdminServer).Stats(ctx, req.(*emptypb.Empty))
				}
				return invoke(ctx, srv, in, MethodStats, call, interceptor)
			},
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "chat/admin/v1/admin.proto",
}

func invoke(ctx context.Context, srv, in any, method string, call grpc.UnaryHandler, interceptor grpc.UnaryServerInterceptor) (any, error) {
	if interceptor == nil {
		return call(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
	return interceptor(ctx, in, info, call)
}

type Presence interface {
	Rooms() []presence.RoomStat
	Members(roomID int64) []domain.Identity
	RoomsOf(userID int64) []int64
}

type Sessions interface {
	Kick(ctx context.Context, userID int64) int
	Stats() session.Stats
}

type AdminServer struct {
	presence Presence
	sessions Sessions
}

func NewAdminServer(p Presence, s Sessions) *AdminServer {
	return &AdminServer{presence: p, sessions: s}
}

func (s *AdminServer) ListRooms(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	stats := s.presence.Rooms()
	rooms := make([]any, 0, len(stats))
	for _, st := range stats {
		rooms = append(rooms, map[string]any{
			"room_id": st.RoomID,
			"members": st.Members,
		})
	}
	return newStruct(map[string]any{"rooms": rooms})
}

func (s *AdminServer) ListMembers(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	roomID, err := int64Field(in, "room_id")
	if err != nil {
		return nil, err
	}
	ids := s.presence.Members(roomID)
	members := make([]any, 0, len(ids))
	for _, id := range ids {
		members = append(members, map[string]any{
			"id":       id.UserID,
			"username": id.Username,
			"city":     id.City,
		})
	}
	return newStruct(map[string]any{"room_id": roomID, "members": members})
}

func (s *AdminServer) DisconnectUser(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	userID, err := int64Field(in, "user_id")
	if err != nil {
		return nil, err
	}
	roomIDs := s.presence.RoomsOf(userID)
	closed := s.sessions.Kick(ctx, userID)

	by, _ := IdentityFromContext(ctx)
	reqID, _ := RequestIDFromContext(ctx)
	slog.InfoContext(ctx, "user disconnected by admin",
		"req_id", reqID, "user_id", userID, "closed", closed, "rooms", len(roomIDs), "by", by.Username)

	rooms := make([]any, 0, len(roomIDs))
	for _, id := range roomIDs {
		rooms = append(rooms, id)
	}
	return newStruct(map[string]any{"user_id": userID, "closed": closed, "rooms": rooms})
}

func (s *AdminServer) Stats(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	st := s.sessions.Stats()
	return newStruct(map[string]any{
		"connections": st.Connections,
		"users":       st.Users,
		"rooms":       st.Rooms,
	})
}

// -------- helpers --------

// int64Field принимает и число, и строку с числом, как и WebSocket-протокол.
func int64Field(in *structpb.Struct, key string) (int64, error) {
	v, ok := in.GetFields()[key]
	if !ok {
		return 0, status.Error(codes.InvalidArgument, key+" required")
	}
	var id int64
	switch k := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		id = int64(k.NumberValue)
	case *structpb.Value_StringValue:
		n, err := strconv.ParseInt(k.StringValue, 10, 64)
		if err != nil {
			return 0, status.Error(codes.InvalidArgument, "invalid "+key)
		}
		id = n
	default:
		return 0, status.Error(codes.InvalidArgument, "invalid "+key)
	}
	if id <= 0 {
		return 0, status.Error(codes.InvalidArgument, key+" required")
	}
	return id, nil
}

func newStruct(m map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	return out, nil
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	msg := domain.PublicMessage(err)
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return status.Error(codes.Unauthenticated, msg)
	case errors.Is(err, domain.ErrValidation):
		return status.Error(codes.InvalidArgument, msg)
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, msg)
	case errors.Is(err, domain.ErrAlreadyExists):
		return status.Error(codes.AlreadyExists, msg)
	case errors.Is(err, domain.ErrRateLimited):
		return status.Error(codes.ResourceExhausted, msg)
	default:
		return status.Error(codes.Internal, msg)
	}
}
