package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/aravindh-murugesan/nas-snapsentry-go/internal/observability"
	"github.com/aravindh-murugesan/nas-snapsentry-go/internal/workflow"
	"github.com/go-co-op/gocron-ui/server"
	"github.com/go-co-op/gocron/v2"
	"github.com/spf13/cobra"
)

var runOnStart bool

var daemonCommand = &cobra.Command{
	Use:     "daemon",
	Short:   "Run Snapsentry in daemon mode",
	GroupID: "snapsentry",
	Long: `Starts Snapsentry as a background service that runs the retention workflow for
the configured job on a cron schedule. The scheduler dashboard is served on the
bind address together with Prometheus metrics on /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		banner := fmt.Sprintf("Snapsentry - Daemon Mode \n\nVersion: %s\nBuild Date: %s", SnapsentryVersion, SnapsentryDate)
		printHeader(cmd.ErrOrStderr(), banner)

		if !cfg.HasJob() {
			return errors.New("the daemon needs job.user and job.nas_names to be configured")
		}

		dlog := workflow.SetupLogger(cfg.Log.Level, cfg.Log.File).With("component", "daemon")

		metrics := observability.NewMetrics()
		runner, err := workflow.NewRunner(cfg, dlog, metrics)
		if err != nil {
			return fmt.Errorf("failed to initialize workflow: %w", err)
		}

		inv := workflow.Invocation{User: cfg.Job.User, Password: cfg.Job.Password, NASNames: cfg.Job.NASNames}

		s, err := gocron.NewScheduler()
		if err != nil {
			return fmt.Errorf("failed to create scheduler: %w", err)
		}

		// 1. Declare the variable first so it can be used INSIDE the task closure
		var retentionJob gocron.Job

		// 2. Define the Job
		jobOptions := []gocron.JobOption{
			gocron.WithName("Snapshot Retention Workflow"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		}
		if runOnStart {
			jobOptions = append(jobOptions, gocron.WithStartAt(gocron.WithStartImmediately()))
		}

		retentionJob, err = s.NewJob(
			gocron.CronJob(cfg.Daemon.Schedule, false),
			gocron.NewTask(func() {
				// A. Run the Workflow
				ctx := context.Background()
				if cfg.Timeout > 0 {
					var cancel context.CancelFunc
					ctx, cancel = context.WithTimeout(ctx, time.Duration(cfg.Timeout)*time.Second)
					defer cancel()
				}
				res := runner.Run(ctx, inv.Credentials(), inv.NASNames)

				// B. Calculate and Log the Next Run (Post-Execution)
				logAttrs := []any{"failed", res.Failed()}
				if retentionJob != nil {
					if nextRun, err := retentionJob.NextRun(); err == nil {
						logAttrs = append(logAttrs, "next_run", nextRun.Format(time.RFC3339), "job_id", retentionJob.ID())
					}
				}
				dlog.Info("Retention workflow completed", logAttrs...)
			}),
			jobOptions...,
		)
		if err != nil {
			return fmt.Errorf("failed to schedule retention job: %w", err)
		}

		s.Start()
		dlog.Info("Scheduler started", "nas_count", len(inv.NASNames))

		// 3. Log the Initial Next Run (Pre-Execution)
		if nextRun, err := retentionJob.NextRun(); err == nil {
			dlog.Info("Job Scheduled",
				"job_name", retentionJob.Name(),
				"job_id", retentionJob.ID(),
				"schedule", cfg.Daemon.Schedule,
				"next_run", nextRun.Format(time.RFC3339))
		}

		// 4. Dashboard and metrics
		port, err := bindPort(cfg.Daemon.BindAddress)
		if err != nil {
			_ = s.Shutdown()
			return err
		}
		ui := server.NewServer(s, port, server.WithTitle("NAS Snapsentry - Dashboard"))

		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		mux.Handle("/", ui.Router)

		httpServer := &http.Server{Addr: cfg.Daemon.BindAddress, Handler: mux}
		serveErr := make(chan error, 1)
		go func() {
			dlog.Info("Snapsentry Scheduler UI started", "address", cfg.Daemon.BindAddress)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
		}()

		// 5. Block until a signal arrives or the server dies
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		select {
		case <-ctx.Done():
			dlog.Warn("Shutting down scheduler due to system signal...")
		case err := <-serveErr:
			dlog.Error("Failed to start UI server", "error", err)
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)

		return s.Shutdown()
	},
}

func bindPort(address string) (int, error) {
	_, portStr, err := net.SplitHostPort(address)
	if err != nil {
		return 0, fmt.Errorf("invalid bind address %q: %w", address, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0, fmt.Errorf("invalid bind address %q: %w", address, err)
	}
	return port, nil
}

func init() {
	rootCommand.AddCommand(daemonCommand)
	daemonCommand.Flags().String("schedule", "", "Cron schedule of the retention workflow (default \"0 3 * * *\")")
	daemonCommand.Flags().String("bind-address", "", "Address to bind the UI and metrics server (default 0.0.0.0:8080)")
	daemonCommand.Flags().String("user", "", "Account user name, also the project name")
	daemonCommand.Flags().String("pwd", "", "Account password (prefer NAS_SNAPSENTRY_JOB_PASSWORD)")
	daemonCommand.Flags().StringSlice("nas", nil, "NAS share name to process (repeatable)")
	daemonCommand.Flags().BoolVar(&runOnStart, "run-on-start", false, "Run the workflow once immediately after startup")
}
