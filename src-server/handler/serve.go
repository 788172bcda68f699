package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"planner/src-server/metric"
	"planner/src-server/route"
	"planner/src-server/scheduler"
)

func newServeCmd(appState AppStateFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, metrics and the reminder scheduler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			as := appState()

			metric.Init(as)
			if err := scheduler.EventNotify(as); err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			server := &http.Server{
				Addr:              ":" + as.Config.GetPort(),
				Handler:           route.NewRouter(as),
				ReadHeaderTimeout: 10 * time.Second,
			}
			go func() {
				slog.Info("http server listening", "addr", server.Addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					slog.Error("cannot start HTTP server", "error", err)
					as.AppCloseSignalChan <- syscall.SIGTERM
				}
			}()

			slog.Info("app is now running, press Ctrl+C to exit")
			signal.Notify(as.AppCloseSignalChan, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
			<-as.AppCloseSignalChan

			slog.Info("gracefully shutting down...")
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				slog.Warn("can't shut down http server", "error", err)
			}
			as.GracefulShutdown()
			return nil
		},
	}
}
