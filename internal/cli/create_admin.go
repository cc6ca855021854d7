package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mrlokans/librarian/internal/entities"
	"github.com/mrlokans/librarian/internal/entrypoint"
)

func newCreateAdminCommand(opts Options) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		Long: `Create an administrator account. The password is read from the terminal
and must be at least 12 characters long.`,
		Example: "  librarian create-admin --email admin@example.com",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := opts.ReadPassword("Password: ")
			if err != nil {
				return err
			}
			confirm, err := opts.ReadPassword("Confirm password: ")
			if err != nil {
				return err
			}
			if password != confirm {
				return errors.New("passwords do not match")
			}

			services, err := entrypoint.NewServices(opts.LoadConfig())
			if err != nil {
				return err
			}
			defer services.Close()

			user, err := services.Auth.CreateUser(cmd.Context(), email, password, entities.UserRoleAdmin)
			if err != nil {
				return fmt.Errorf("failed to create administrator: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created administrator %s (id %d)\n", user.Email, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address of the new administrator (required)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
