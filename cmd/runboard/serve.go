package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/yegors/runboard/internal/api"
	"github.com/yegors/runboard/pkg/logger"
)

var serveDate string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the run board HTTP API",
	Long: `Start the local HTTP API used by the board UI. With --date the board for
that day is loaded before the listener starts.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveDate, "date", "d", "", "Operating date to load at startup (YYYY-MM-DD)")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if serveDate != "" {
		if _, err := a.session.Load(ctx, serveDate); err != nil {
			a.logger.Warn("Initial board load failed", logger.String("date", serveDate), logger.Error(err))
		}
	}

	router := api.NewRouter(a.session, a.journal, a.config, a.registry, a.logger)
	server := &http.Server{
		Addr:         a.config.Server.Addr(),
		Handler:      router.Routes(),
		ReadTimeout:  time.Duration(a.config.Server.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(a.config.Server.WriteTimeoutSecs) * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("Starting HTTP server", logger.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
