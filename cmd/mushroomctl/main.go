package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mushroomlog/mushroomlog/internal/config"
	"github.com/mushroomlog/mushroomlog/internal/logging"
	"github.com/mushroomlog/mushroomlog/internal/timeutil"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "mushroomctl",
	Short: "Administration tool for the mushroom log backend",
	Long: `mushroomctl runs maintenance tasks against the configured database and
image storage without starting the HTTP server.

Settings come from the same YAML file and environment variables as the server.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigFile, "path to the YAML config file")

	migrateCmd.Flags().Bool("status", false, "list migrations without applying them")

	exportCmd.Flags().String("user", "", "user id whose batches are exported (required)")
	exportCmd.Flags().StringP("output", "o", "", "output file (default mushroom_logs_YYYY-MM-DD.csv)")
	_ = exportCmd.MarkFlagRequired("user")

	cleanupCmd.Flags().String("user", "", "user id whose images are removed (required)")
	cleanupCmd.Flags().String("before", "", "delete images last modified before this date, YYYY-MM-DD (required)")
	_ = cleanupCmd.MarkFlagRequired("user")
	_ = cleanupCmd.MarkFlagRequired("before")

	rootCmd.AddCommand(migrateCmd, exportCmd, cleanupCmd, checkCmd)
}

// env is what every subcommand starts from.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
}

func loadEnv() (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	// CLI output goes to stdout; keep the log quiet unless it matters
	logger, err := logging.New("warn", "console")
	if err != nil {
		return nil, err
	}
	if err := timeutil.SetLocation(cfg.Server.Timezone); err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logger: logger}, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
