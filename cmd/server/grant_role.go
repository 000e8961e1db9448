package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mmynk/churchboard/internal/models"
	"github.com/mmynk/churchboard/internal/service"
)

func newGrantRoleCmd(configPath *string) *cobra.Command {
	var email, role string

	cmd := &cobra.Command{
		Use:   "grant-role",
		Short: "Approve an account and grant it a role",
		Example: `  churchboard grant-role --email pastor@example.org --role admin
  churchboard grant-role --email kim@example.org --role treasurer`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGrantRole(cmd.Context(), *configPath, email, models.Role(role))
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address of the account")
	cmd.Flags().StringVar(&role, "role", string(models.RoleAdmin), "role to grant")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func runGrantRole(ctx context.Context, configPath, email string, role models.Role) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	user, err := service.NewAdminService(store).GrantRole(ctx, email, role)
	if err != nil {
		slog.Error("Failed to grant role", "email", email, "role", role, "error", err)
		return fmt.Errorf("grant %s to %s: %w", role, email, err)
	}
	fmt.Printf("%s (%s) is approved with roles %v\n", user.Name(), user.Email, user.Roles)
	return nil
}
