package grpcx

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// AdminClient ходит в PresenceAdmin из CLI.
type AdminClient struct {
	cc    grpc.ClientConnInterface
	token string
}

func NewAdminClient(cc grpc.ClientConnInterface, token string) *AdminClient {
	return &AdminClient{cc: cc, token: token}
}

func (c *AdminClient) ListRooms(ctx context.Context) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	err := c.cc.Invoke(c.auth(ctx), MethodListRooms, &emptypb.Empty{}, out)
	return out, err
}

func (c *AdminClient) ListMembers(ctx context.Context, roomID int64) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(map[string]any{"room_id": roomID})
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	err = c.cc.Invoke(c.auth(ctx), MethodListMembers, in, out)
	return out, err
}

func (c *AdminClient) DisconnectUser(ctx context.Context, userID int64) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(map[string]any{"user_id": userID})
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	err = c.cc.Invoke(c.auth(ctx), MethodDisconnectUser, in, out)
	return out, err
}

func (c *AdminClient) Stats(ctx context.Context) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	err := c.cc.Invoke(c.auth(ctx), MethodStats, &emptypb.Empty{}, out)
	return out, err
}

func (c *AdminClient) auth(ctx context.Context) context.Context {
	return metadata.AppendToOutgoingContext(ctx, mdAuthorization, "Bearer "+c.token)
}
