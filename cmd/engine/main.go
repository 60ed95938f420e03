// Command engine is the LeadGenius sidecar: it serves the lead store, the
// scouting pipeline and the assistant to the dashboard over localhost HTTP.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"leadgenius-engine/internal/logging"
)

const appName = "leadgenius-engine"

var (
	dataDir  string
	logLevel string
	// logLevelSet means --log-level overrides app.log_level from config.
	logLevelSet bool

	logger *zap.Logger
	level  zap.AtomicLevel
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Local lead-scouting engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if dataDir == "" {
				// Engine data dir: use env if provided (the desktop shell passes one), else local folder.
				dataDir = os.Getenv("LEADGENIUS_DATA_DIR")
			}
			if dataDir == "" {
				dataDir = "."
			}
			if err := os.MkdirAll(dataDir, 0o755); err != nil {
				return err
			}
			logLevelSet = cmd.Flags().Changed("log-level")
			var err error
			logger, level, err = logging.New(logLevel)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Data directory (default $LEADGENIUS_DATA_DIR or .)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(serveCmd(), exportCmd(), importCmd(), scoutCmd(), keyCmd())
	return cmd
}
