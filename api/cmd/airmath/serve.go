package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"airmath/api/internal/handle"
	"airmath/api/internal/httpserver"
)

func newServeCommand() *cobra.Command {
	var addr string

	command := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if addr == "" {
				addr = "0.0.0.0:" + a.Config.Port
			}
			mux := http.NewServeMux()
			handle.New(a.Pipeline, a.Engines, a.History, a.DB, a.Config.RequestTimeout, a.Log).Routes(mux)
			return httpserver.Run(ctx, httpserver.New(addr, mux), a.Log)
		},
	}
	command.Flags().StringVar(&addr, "addr", "", "listen address (default 0.0.0.0:$PORT)")
	return command
}
