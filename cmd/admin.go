package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	grpcx "github.com/cwrk-planet/chat-service/internal/transport/grpc"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

var (
	adminAddr  string
	adminToken string
)

var adminCmd = &cobra.Command{
	Use:         "admin",
	Short:       "Query a running server over the admin gRPC API",
	Annotations: map[string]string{"config": "skip"},
}

func adminCall(call func(ctx context.Context, c *grpcx.AdminClient) (*structpb.Struct, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		conn, err := grpc.NewClient(adminAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return fmt.Errorf("did not connect to gRPC server: %w", err)
		}
		defer conn.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		out, err := call(ctx, grpcx.NewAdminClient(conn, adminToken))
		if err != nil {
			return err
		}
		b, err := protojson.MarshalOptions{Multiline: true}.Marshal(out)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(b))
		return nil
	}
}

func int64Arg(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func init() {
	adminCmd.PersistentFlags().StringVar(&adminAddr, "addr", "localhost:9090", "admin gRPC address")
	adminCmd.PersistentFlags().StringVar(&adminToken, "token", "", "access token")

	adminCmd.AddCommand(
		&cobra.Command{
			Use:   "stats",
			Short: "Connections, users and active rooms",
			Args:  cobra.NoArgs,
			RunE: adminCall(func(ctx context.Context, c *grpcx.AdminClient) (*structpb.Struct, error) {
				return c.Stats(ctx)
			}),
		},
		&cobra.Command{
			Use:   "rooms",
			Short: "Rooms with present users",
			Args:  cobra.NoArgs,
			RunE: adminCall(func(ctx context.Context, c *grpcx.AdminClient) (*structpb.Struct, error) {
				return c.ListRooms(ctx)
			}),
		},
		&cobra.Command{
			Use:   "members ROOM_ID",
			Short: "Users present in a room",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				roomID, err := int64Arg(args[0])
				if err != nil {
					return err
				}
				return adminCall(func(ctx context.Context, c *grpcx.AdminClient) (*structpb.Struct, error) {
					return c.ListMembers(ctx, roomID)
				})(cmd, args)
			},
		},
		&cobra.Command{
			Use:   "kick USER_ID",
			Short: "Close every connection of a user",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				userID, err := int64Arg(args[0])
				if err != nil {
					return err
				}
				return adminCall(func(ctx context.Context, c *grpcx.AdminClient) (*structpb.Struct, error) {
					return c.DisconnectUser(ctx, userID)
				})(cmd, args)
			},
		},
	)
	rootCmd.AddCommand(adminCmd)
}
