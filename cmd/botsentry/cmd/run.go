package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/psantana5/bot-sentry/internal/gitsync"
	"github.com/psantana5/bot-sentry/internal/supervisor"
	"github.com/psantana5/bot-sentry/internal/worker"
	"github.com/psantana5/bot-sentry/pkg/api"
	"github.com/psantana5/bot-sentry/pkg/logging"
	"github.com/psantana5/bot-sentry/pkg/metrics"
	"github.com/psantana5/bot-sentry/pkg/shutdown"
	"github.com/psantana5/bot-sentry/pkg/store"
)

var noServer bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the supervisor loop",
	Long: `Run the supervisor loop until interrupted.

Each iteration: if the working tree is clean, fetch the tracking branch and
hard-reset to it; run the worker to completion; repeat. Only SIGINT/SIGTERM
stops the loop.`,
	RunE: runSupervisor,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&noServer, "no-server", false, "disable the observability HTTP server")
}

func runSupervisor(cmd *cobra.Command, args []string) error {
	settings := currentSettings()

	logger, err := logging.NewFileLogger("supervisor", logging.ParseLevel(settings.LogLevel), settings.LogJSON)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Starting botsentry", map[string]interface{}{
		"repo":   settings.RepoPath,
		"branch": settings.Remote + "/" + settings.Branch,
		"worker": strings.Join(settings.WorkerCommand, " "),
	})

	if !gitsync.IsGitInstalled() {
		logger.Warn("git not found on PATH, every sync will be skipped")
	}

	syncer := gitsync.New(settings.RepoPath, settings.Remote, settings.Branch)
	if !syncer.IsRepo() {
		logger.Warn("Repo path is not a git repository, every sync will be skipped", map[string]interface{}{
			"repo": settings.RepoPath,
		})
	} else if head, err := syncer.Head(cmd.Context()); err == nil {
		logger.Info("Working tree at "+head, map[string]interface{}{
			"repo": settings.RepoPath,
		})
	}

	workerDir := settings.WorkerDir
	if workerDir == "" {
		workerDir = settings.RepoPath
	}
	runner, err := worker.New(settings.WorkerCommand, workerDir)
	if err != nil {
		return fmt.Errorf("invalid worker command: %w", err)
	}

	history, err := store.NewStore(store.Config{Type: "sqlite", Path: settings.DBPath})
	if err != nil {
		// History is observability, not control flow: run without it
		logger.Warn("Run history disabled", map[string]interface{}{
			"error": err.Error(),
		})
		history = nil
	}

	exporter := metrics.NewExporter()

	sup := supervisor.New(syncer, runner, supervisor.Config{
		RestartDelay: settings.RestartDelay,
		HistoryLimit: settings.HistoryLimit,
	}, logger, exporter, history)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mgr := shutdown.New(30*time.Second, logger)
	if history != nil {
		mgr.Register(shutdown.CloseResource(history, "history store"))
	}
	mgr.Register(shutdown.CloseResource(logger, "logger"))

	if !noServer && settings.ListenAddr != "" {
		server := api.NewServer(settings.ListenAddr, sup, history, exporter, logger)
		mgr.Register(shutdown.StopHTTPServer(server, "observability"))

		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Observability server failed", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}()
	}

	go mgr.WaitForSignal(cancel)

	if err := sup.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
