package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/noah-isme/topfive-api/internal/app"
	"github.com/noah-isme/topfive-api/internal/models"
)

func promoteCommand(rt *cliEnv) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "promote",
		Short: "Grant the ADMIN role to an existing account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(email) == "" {
				return errors.New("--email is required")
			}

			a, err := app.New(cmd.Context(), rt.cfg, rt.logger)
			if err != nil {
				return err
			}
			defer a.Close()

			user, err := a.Users.Promote(cmd.Context(), models.SystemActor(""), email)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", user.Email, user.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email of the account to promote")
	return cmd
}
