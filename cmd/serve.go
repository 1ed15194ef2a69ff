package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/campus-events-crawler/internal/api"
	"github.com/JakeFAU/campus-events-crawler/internal/schedule"
)

const shutdownTimeout = 2 * time.Minute

func newServeCmd() *cobra.Command {
	var runNow bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the pipeline on a schedule and serve health, metrics, and reports",
		Args:  cobra.NoArgs,
		RunE: withSession(func(cmd *cobra.Command, rt *session) error {
			return runServe(cmd, rt, runNow)
		}),
	}
	cmd.Flags().BoolVar(&runNow, "run-now", false, "start a run immediately instead of waiting for the schedule")
	return cmd
}

func runServe(cmd *cobra.Command, rt *session, runNow bool) error {
	ctx := cmd.Context()
	logger := rt.logger

	sched, err := schedule.New(rt.cfg.Schedule.Cron, rt.cfg.Schedule.Timezone, func(ctx context.Context) error {
		runner, err := rt.services.Runner()
		if err != nil {
			return err
		}
		_, err = runner.Run(ctx)
		return err
	}, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", rt.cfg.Server.Port),
		Handler:           api.NewServer(rt.services.Reports(), sched, logger).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server started", zap.Int("port", rt.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	sched.Start(ctx)
	if runNow {
		sched.Trigger()
	}

	var listenErr error
	select {
	case <-ctx.Done():
	case listenErr = <-serveErr:
		if listenErr != nil {
			logger.Error("http server error", zap.Error(listenErr))
		}
	}
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	if err := sched.Stop(shutdownCtx); err != nil {
		return err
	}
	logger.Info("shutdown complete")
	if listenErr != nil {
		return fmt.Errorf("http server: %w", listenErr)
	}
	return nil
}
