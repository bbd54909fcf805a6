package token

import (
	"fmt"

	"github.com/spf13/cobra"

	"msgdeck/internal/infrastructure/auth"
	"msgdeck/internal/interfaces/cli/bootstrap"
	"msgdeck/internal/shared/authorization"
)

var (
	env        string
	configPath string
	userID     uint
	role       string
)

// NewCommand mints an access token signed with the configured secret. It does
// not touch the database, so it works before any user exists.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token for an operator or service",
		RunE:  run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: ./configs/config.yaml)")
	cmd.Flags().UintVar(&userID, "user-id", 0, "Subject user id (required)")
	cmd.Flags().StringVar(&role, "role", string(authorization.RoleUser), "Role claim: user, admin or service")
	_ = cmd.MarkFlagRequired("user-id")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	if userID == 0 {
		return fmt.Errorf("--user-id must be positive")
	}
	parsed := authorization.ParseUserRole(role)
	if string(parsed) != role {
		return fmt.Errorf("unknown role %q", role)
	}

	cfg, _, err := bootstrap.LoadRuntime(bootstrap.ResolveEnv(env), configPath)
	if err != nil {
		return err
	}

	jwtSvc := auth.NewJWTService(cfg.Auth.JWT.Secret, cfg.Auth.JWT.Issuer, cfg.Auth.JWT.AccessExpMinutes)
	tok, err := jwtSvc.Generate(userID, parsed)
	if err != nil {
		return fmt.Errorf("failed to sign token: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), tok)
	return nil
}
