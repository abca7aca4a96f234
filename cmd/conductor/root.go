package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/venke07/conductor/internal/actor"
	"github.com/venke07/conductor/internal/app"
	"github.com/venke07/conductor/internal/config"
	"github.com/venke07/conductor/internal/logging"
	"go.uber.org/zap"
)

var (
	configPath string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "conductor",
	Short: "Multi-agent orchestration engine",
	Long: `Conductor turns a free-text goal into a chain of specialist agent calls.

It classifies the goal, plans which registered agents should handle it and in
what order, runs them sequentially, in parallel or autonomously, and lets
agents call sandboxed tools from inside their replies.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "override log.format (json or console)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(versionCmd)
}

func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	return cfg, nil
}

// loadApp builds the application for a command. mutate may adjust the
// configuration before services are wired.
func loadApp(ctx context.Context, mutate func(*config.Config)) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if mutate != nil {
		mutate(cfg)
	}
	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return nil, err
	}
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	return a, nil
}

func closeApp(a *app.App) {
	if err := a.Close(); err != nil {
		a.Logger.Warn("closing", zap.Error(err))
	}
	_ = a.Logger.Sync()
}

// cliContext tags the command's context with the local user as actor.
func cliContext(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if u := os.Getenv("USER"); u != "" {
		ctx = actor.WithActor(ctx, "cli:"+u)
	}
	return ctx
}

func printJSONOrText(cmd *cobra.Command, asJSON bool, v any, text string) error {
	if asJSON {
		return writeJSON(cmd.OutOrStdout(), v)
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), text)
	return err
}
