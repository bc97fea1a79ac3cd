// Package cli implements the harreplay command line.
package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/usestring/harreplay/internal/config"
	"github.com/usestring/harreplay/internal/logging"
)

// ErrMismatch is returned by run --fail-on-mismatch when any replayed
// transaction did not match, failed, or failed its expectation.
var ErrMismatch = errors.New("replay did not match the capture")

// NewRootCmd creates the root harreplay command.
func NewRootCmd() *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:   "harreplay",
		Short: "Replay HAR captures against live servers",
		Long: `harreplay re-sends the requests recorded in a HAR capture, compares each
live response with the recorded one and reports what changed.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			logCfg := logging.Config{
				Level:      cfg.LogLevel,
				Format:     cfg.LogFormat,
				FilePath:   cfg.LogFile,
				MaxSizeMB:  cfg.LogMaxSizeMB,
				MaxBackups: cfg.LogMaxBackups,
				MaxAgeDays: cfg.LogMaxAgeDays,
				Compress:   cfg.LogCompress,
			}
			if logLevel != "" {
				logCfg.Level = logLevel
			}
			cleanup, err := logging.Setup(logCfg)
			if err != nil {
				return err
			}
			cobra.OnFinalize(func() { _ = cleanup() })
			return nil
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (default from LOG_LEVEL)")

	root.AddCommand(
		newRunCmd(),
		newListCmd(),
		newSchemaCmd(),
	)
	return root
}
