package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"commodity-pricing/api"
	"commodity-pricing/internal/app"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		addr := a.Config.Server.Addr
		if serveAddr != "" {
			addr = serveAddr
		}
		return Serve(cmd.Context(), a, addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server_addr)")
}

// Serve runs the API for a wired runtime until ctx is cancelled
func Serve(ctx context.Context, a *app.App, addr string) error {
	srv := api.NewServer(a.Engine, api.Options{
		Version:            Version,
		Logger:             a.Logger,
		Metrics:            a.Metrics,
		AllowedOrigins:     a.Config.Server.AllowedOrigins,
		RateLimitPerMinute: a.Config.Server.RateLimitPerMinute,
	})
	return srv.ListenAndServe(ctx, addr)
}
