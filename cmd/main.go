package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"morocco-rag/internal/config"
)

const configFilePath = "./configs/config.yaml"

var (
	configPath string
	cfg        *config.Config
	logOutput  io.Writer = os.Stderr
)

var rootCmd = &cobra.Command{
	Use:   "morocco-rag",
	Short: "Morocco tourism question answering chatbot",
	Long: `Builds a vector index from the Morocco tourism dataset and answers
travel questions from it with a local language model.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.LoadOrDefault(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		setupLogger(&cfg.Log, logOutput)
		log.Debug().Str("path", configPath).Msg("Loaded config")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", configFilePath, "path to the config file")
}

func setupLogger(lc *config.LogConfig, out io.Writer) {
	level, err := zerolog.ParseLevel(strings.ToLower(lc.Level))
	if err != nil || lc.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if lc.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	log.Logger = zerolog.New(out).With().Timestamp().Caller().Logger()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("Command failed")
	}
}
