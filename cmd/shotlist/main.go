package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/keagan/shotlist/internal/config"
	"github.com/keagan/shotlist/internal/logging"
)

var (
	cfgFile string
	verbose bool
	logJSON bool
	logFile string

	logSink *os.File
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	closeLogSink()
	if err != nil {
		stop()
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "shotlist",
	Short:        "shotlist - shot-by-shot breakdowns of social videos",
	Long:         "Downloads a social video, samples its shots and asks a multimodal model for a structured creative analysis.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var sinks []io.Writer
		if logFile != "" {
			f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err != nil {
				return fmt.Errorf("open log file: %w", err)
			}
			logSink = f
			sinks = append(sinks, f)
		}
		logging.Init(verbose, logJSON, sinks...)

		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Msg("failed to load .env file")
		}

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		ctx := config.WithConfig(cmd.Context(), cfg)
		cmd.SetContext(ctx)

		return nil
	},
}

func closeLogSink() {
	if logSink != nil {
		logSink.Close()
		logSink = nil
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "log as JSON lines instead of console output")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also append JSON log lines to this file")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(configCmd)
}
