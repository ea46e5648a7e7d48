package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"demo-console/api"
	"demo-console/console"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the console page and API",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings()
		if err != nil {
			return err
		}
		log, err := newLogger(s)
		if err != nil {
			return err
		}
		defer log.Sync() //nolint:errcheck

		manager, err := newManager(s, log)
		if err != nil {
			return err
		}
		defer manager.CloseAll()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		go reapLoop(ctx, manager, s.ReapInterval, s.MaxIdle)

		srv := &http.Server{
			Addr:    s.Addr,
			Handler: api.RegisterRoutes(manager, assets.Static, demosRoot(s), log),
		}
		errc := make(chan error, 1)
		go func() {
			log.Info("demo-console listening",
				zap.String("addr", s.Addr),
				zap.String("runtime", s.RuntimeKind),
			)
			errc <- srv.ListenAndServe()
		}()

		select {
		case err := <-errc:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-ctx.Done():
		}

		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

// reapLoop closes sessions whose page went away without an unload request.
func reapLoop(ctx context.Context, m *console.Manager, every, maxIdle time.Duration) {
	if every <= 0 || maxIdle <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.Reap(maxIdle)
		}
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
