package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"msgdeck/internal/interfaces/cli/migrate"
	"msgdeck/internal/interfaces/cli/seed"
	"msgdeck/internal/interfaces/cli/server"
	"msgdeck/internal/interfaces/cli/token"
	"msgdeck/internal/interfaces/cli/worker"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "msgdeck",
		Short:   "msgdeck - subscription and usage billing for a messaging SaaS",
		Long:    `msgdeck serves the billing API and runs its maintenance jobs, migrations and seeders.`,
		Version: version,
	}

	rootCmd.AddCommand(
		server.NewCommand(version),
		worker.NewCommand(version),
		migrate.NewCommand(),
		seed.NewCommand(),
		token.NewCommand(),
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
