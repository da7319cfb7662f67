package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/openswoop/chronicler/pkg/server"
)

var listen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the timetable, free room and attendance lookups over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		addr := cfg.Listen
		if listen != "" {
			addr = listen
		}
		app := server.New(svc, server.Options{
			AllowedOrigins: cfg.AllowedOrigins,
			AllowedHosts:   cfg.AllowedHosts,
			RequestTimeout: 2 * cfg.Timeout,
		})

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return server.Run(ctx, app, addr)
	},
}

func init() {
	serveCmd.Flags().StringVarP(&listen, "listen", "l", "", "Address to listen on (default from config)")
	rootCmd.AddCommand(serveCmd)
}
