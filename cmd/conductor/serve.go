package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/venke07/conductor/internal/config"
	"github.com/venke07/conductor/internal/version"
	"go.uber.org/zap"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and WebSocket API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cliContext(cmd), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := loadApp(ctx, func(cfg *config.Config) {
			if serveAddr != "" {
				cfg.Server.Addr = serveAddr
			}
		})
		if err != nil {
			return err
		}
		defer closeApp(a)

		a.Logger.Info("conductor starting",
			zap.String("version", version.Get().Version),
			zap.String("addr", a.Config.Server.Addr),
			zap.Int("agents", len(a.Registry.Agents())),
			zap.Bool("tools", a.Tools != nil),
			zap.Bool("archive", a.Runs != nil),
		)
		return a.Serve(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address, overrides server.addr")
}
