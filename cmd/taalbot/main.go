// taalbot is a conversational Dutch tutoring relay: it forwards chat turns
// with bounded history to a configurable LLM backend and broadcasts a daily
// word to subscribed conversations.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	configPath string
	dbPath     string
	modelID    string
	verbose    bool

	// Logger
	logger *zap.Logger
)

// rootCmd starts the interactive tutoring chat.
var rootCmd = &cobra.Command{
	Use:   "taalbot",
	Short: "taalbot - AI Dutch language tutor",
	Long: `taalbot relays chat turns, with bounded conversation history, to a
configurable LLM backend (OpenAI, Anthropic or Gemini wire formats) and keeps
the exchange in SQLite. A daily Dutch word is generated with duplicate
detection and broadcast to subscribed conversations.

Run without arguments to start an interactive chat session.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(signalContext())
	},
}

// wordCmd generates one daily word on demand and prints it.
var wordCmd = &cobra.Command{
	Use:   "word",
	Short: "Generate a Dutch word of the day",
	Long: `Runs one daily-word generation cycle: previously issued words are
excluded, a duplicate result is regenerated up to the retry bound, and the
accepted word is persisted and printed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp()
		if err != nil {
			return err
		}
		defer app.Close()

		fmt.Println(app.relay.HandleGenerateNow(signalContext(), modelID))
		return nil
	},
}

// serveCmd runs the daily broadcast scheduler until interrupted.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the daily word broadcast scheduler",
	Long: `Waits for the configured local broadcast time each day, generates the
word of the day and delivers it to every subscribed conversation. Runs until
SIGINT/SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp()
		if err != nil {
			return err
		}
		defer app.Close()

		ctx := signalContext()
		logger.Info("broadcast scheduler running",
			zap.String("time", app.cfg.DailyWord.BroadcastTime),
			zap.String("timezone", app.cfg.DailyWord.Timezone))
		if err := app.relay.RunDailySchedule(ctx, app.cfg.BroadcastSchedule()); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	},
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext() context.Context {
	ctx, _ := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	return ctx
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "taalbot.yaml", "path to config file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "override database path")
	rootCmd.PersistentFlags().StringVar(&modelID, "model", "", "override model id")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(wordCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
