package main

import (
	"fmt"

	"github.com/cwrk-planet/chat-service/internal/service"

	"github.com/spf13/cobra"
)

var (
	userName  string
	userEmail string
	userCity  string
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage chat users",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user record",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStorage(ctx, cfg)
		if err != nil {
			return err
		}
		defer store.close()

		svc := service.NewIdentityService(nil, store.users)
		u, err := svc.CreateUser(ctx, userName, userEmail, userCity)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created user id=%d username=%s city=%s\n", u.ID, u.Username, u.City)
		return nil
	},
}

func init() {
	userCreateCmd.Flags().StringVar(&userName, "username", "", "unique username")
	userCreateCmd.Flags().StringVar(&userEmail, "email", "", "email")
	userCreateCmd.Flags().StringVar(&userCity, "city", "", "city (default \"Не указан\")")
	_ = userCreateCmd.MarkFlagRequired("username")

	userCmd.AddCommand(userCreateCmd)
	rootCmd.AddCommand(userCmd)
}
