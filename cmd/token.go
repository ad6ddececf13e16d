package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/cwrk-planet/chat-service/internal/auth"
	"github.com/cwrk-planet/chat-service/internal/service"

	"github.com/spf13/cobra"
)

var (
	tokenUserID   int64
	tokenUsername string
)

// tokenCmd заменяет форму логина в dev: выпускает access-токен приватным ключом.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an access token for a user (dev)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.JWT.PrivateKeyPath == "" {
			return errors.New("jwt.privateKeyPath is required to sign tokens")
		}
		private, err := auth.LoadRSAPrivateKeyFromPEM(cfg.JWT.PrivateKeyPath)
		if err != nil {
			return fmt.Errorf("read private key: %w", err)
		}
		signer := auth.New(private, nil, cfg.JWT.Issuer, cfg.JWT.Audience, cfg.JWT.AccessTTL, cfg.JWT.ClockSkew)

		userID := tokenUserID
		if tokenUsername != "" {
			ctx := cmd.Context()
			store, err := openStorage(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.close()

			u, err := service.NewIdentityService(nil, store.users).UserByName(ctx, tokenUsername)
			if err != nil {
				return err
			}
			userID = u.ID
		}
		if userID <= 0 {
			return errors.New("--user-id or --username is required")
		}

		tok, err := signer.Sign(userID, time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		fmt.Fprintf(cmd.ErrOrStderr(), "user %d, expires in %s\n", userID, signer.TTL())
		return nil
	},
}

func init() {
	tokenCmd.Flags().Int64Var(&tokenUserID, "user-id", 0, "user id (token subject)")
	tokenCmd.Flags().StringVar(&tokenUsername, "username", "", "look the user id up by username")

	rootCmd.AddCommand(tokenCmd)
}
