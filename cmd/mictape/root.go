package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/petems/mictape/internal/config"
	"github.com/petems/mictape/internal/logging"
)

var (
	cfg      *config.Config
	log      zerolog.Logger
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "mictape",
	Short: "Microphone capture with live effects",
	Long: `mictape records from the microphone with pause/resume, live
effect routing (reverb, echo, distortion, filters, telephone) and a
volume meter, and assembles recordings into playable audio files.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		log = logging.NewWithLevel(cfg.LogLevel)
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: trace, debug, info, warn, error (overrides config)")

	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(effectsCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the mictape version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("mictape %s (%s)\n", Version, Commit)
	},
}
