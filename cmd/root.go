package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/lehigh-university-libraries/solarlabel/internal/config"
	"github.com/lehigh-university-libraries/solarlabel/internal/logging"
	"github.com/spf13/cobra"
)

// app carries settings resolved once in PersistentPreRunE to every subcommand
type app struct {
	configPath string
	labelLog   string
	verbose    bool

	cfg *config.Config
}

func NewRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "solarlabel",
		Short: "Fetch SDO/AIA observations and record hand-drawn region labels",
		Long: `Solarlabel downloads one solar observation per requested day from a remote
archive and records labeled rectangular regions drawn on those images.

Each label is appended as one line to a plain-text log:

  Date/Time: 2023-01-10 07:30, Comment: flare, Coordinates: (3.20, 50.00), (12.35, 80.70)

The log can be listed, exported, followed and summarized.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
			return a.load()
		},
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to config file (default ~/.config/solarlabel/config.toml or ./solarlabel.toml)")
	cmd.PersistentFlags().StringVar(&a.labelLog, "log-file", "", "Label log to append to and read from (overrides paths.label_log)")
	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(
		newFetchCmd(a),
		newLabelCmd(a),
		newLabelsCmd(a),
		newServeCmd(a),
		newSummarizeCmd(a),
	)

	return cmd
}

func (a *app) load() error {
	cfg, path, exists, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	if a.labelLog != "" {
		if cfg.Paths.LabelLog, err = config.ExpandPath(a.labelLog); err != nil {
			return err
		}
	}
	if a.verbose {
		cfg.Logging.Level = "debug"
	}

	if _, err := logging.Setup(os.Stderr, cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}

	if exists {
		slog.Debug("Loaded config", "path", path)
	} else {
		slog.Debug("No config file found, using defaults", "path", path)
	}

	a.cfg = cfg
	return nil
}
