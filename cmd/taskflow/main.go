package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"taskflow/internal/config"
	"taskflow/internal/logger"
	"taskflow/internal/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "taskflow",
		Short:        "Task reminder scanner and recurrence generator",
		SilenceUsage: true,
	}
	root.AddCommand(newServeCommand(), newScanCommand(), newCompleteCommand())
	return root
}

// withApp loads configuration, wires the app and closes it after fn.
func withApp(fn func(cmd *cobra.Command, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		log := logger.Setup(cfg.LogLevel)

		a, err := newApp(cfg, log)
		if err != nil {
			log.Error("startup failed", "error", err)
			return err
		}
		defer a.close()
		return fn(cmd, a)
	}
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP subscriber, the scheduled reminder scan and the Telegram bot",
		Args:  cobra.NoArgs,
		RunE:  withApp(serve),
	}
}

func serve(cmd *cobra.Command, a *app) error {
	ctx := cmd.Context()

	if a.cfg.ScanEnabled {
		scheduler := service.NewSchedulerService(a.cfg.Location, a.logger)
		id, err := scheduler.Schedule(a.cfg.ScanSchedule, func() { a.scheduledScan(ctx) })
		if err != nil {
			return fmt.Errorf("schedule reminder scan: %w", err)
		}
		scheduler.Start()
		defer scheduler.Stop()
		a.logger.Info("reminder scan scheduled", "schedule", a.cfg.ScanSchedule, "next_run", scheduler.Next(id))
	}

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("http server listening", "addr", a.cfg.HTTPAddr, "dispatcher", a.cfg.Dispatcher)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if a.bot != nil {
		g.Go(func() error {
			if err := a.bot.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("telegram bot: %w", err)
			}
			return nil
		})
	}

	err := g.Wait()
	a.logger.Info("shutdown complete")
	return err
}

func newScanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Run one reminder scan and print the result",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app) error {
			result, err := a.scan(cmd.Context())
			if err != nil {
				return fmt.Errorf("reminder scan: %w", err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}),
	}
}

func newCompleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "complete <task-id>",
		Short: "Mark a task completed and announce it on the task events topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil || id == 0 {
				return fmt.Errorf("task id must be a positive number, got %q", args[0])
			}
			return withApp(func(cmd *cobra.Command, a *app) error {
				task, err := a.taskSvc.CompleteTask(cmd.Context(), uint(id))
				if err != nil {
					return err
				}
				slog.Info("task completed", "task_id", task.ID, "recurring", task.IsRecurring)
				fmt.Fprintf(cmd.OutOrStdout(), "task %d completed\n", task.ID)
				return nil
			})(cmd, args)
		},
	}
}
