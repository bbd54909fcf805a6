package seed

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"msgdeck/internal/infrastructure/database"
	planseed "msgdeck/internal/infrastructure/seed"
	"msgdeck/internal/interfaces/cli/bootstrap"
	httpRouter "msgdeck/internal/interfaces/http"
	"msgdeck/internal/shared/logger"
)

var (
	env        string
	configPath string
	file       string
	dryRun     bool
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load reference data",
	}

	cmd.PersistentFlags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: ./configs/config.yaml)")

	cmd.AddCommand(newPlansCommand())
	return cmd
}

func newPlansCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plans",
		Short: "Create or update plans from a YAML file",
		Long:  `Upsert plans by code. Existing plans keep their id; prices, limits and features are replaced.`,
		RunE:  runPlans,
	}

	cmd.Flags().StringVarP(&file, "file", "f", "configs/plans.yaml", "Plan definitions")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate the file without writing")

	return cmd
}

func runPlans(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	env = bootstrap.ResolveEnv(env)

	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("failed to open plan file: %w", err)
	}
	defer f.Close()

	if dryRun {
		parsed, err := planseed.ParsePlans(f)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %d plans OK\n", file, len(parsed.Plans))
		return nil
	}

	cfg, log, err := bootstrap.LoadRuntime(env, configPath)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := bootstrap.OpenDatabase(ctx, cfg); err != nil {
		return err
	}
	defer database.Close()

	container, err := httpRouter.NewContainer(ctx, database.Get(), cfg, "", log)
	if err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}
	defer container.Shutdown()

	result, err := container.PlanSeeder().Seed(ctx, f)
	if err != nil {
		log.Errorw("plan seeding failed", "file", file, "error", err)
		return err
	}

	log.Infow("plans seeded", "file", file, "created", result.Created, "updated", result.Updated)
	fmt.Printf("plans: %d created, %d updated\n", result.Created, result.Updated)
	return nil
}
