package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/maxaizer/vacancy-matcher/internal/api"
	"github.com/maxaizer/vacancy-matcher/internal/config"
	"github.com/maxaizer/vacancy-matcher/internal/logger"
	"github.com/maxaizer/vacancy-matcher/internal/metrics"
	"github.com/maxaizer/vacancy-matcher/internal/queue"
	"github.com/maxaizer/vacancy-matcher/internal/services"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the matching API and consume the matching queue",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(parent context.Context) error {

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Get()

	logger.Setup(ctx, cfg.Logger)
	defer logger.Cleanup()

	metricsServer := metrics.StartMetricsServer(cfg.Server.MetricsAddr)

	a, err := newApplication(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if err = a.db.Migrate(); err != nil {
		log.Errorf("can't migrate db context: %v", err)
		return err
	}

	evaluator, err := a.evaluator()
	if err != nil {
		return err
	}

	embedder, retriever := a.retrieval()

	orchestrator := services.NewMatchOrchestrator(services.MatchDependencies{
		Vacancies: a.vacancies,
		Embedder:  embedder,
		Retriever: retriever,
		Evaluator: evaluator,
		Results:   a.results,
		Notifier:  a.notifier,
	}, cfg.Matching.TopK, cfg.Matching.EvaluationVersion)

	worker := queue.NewWorker(a.jobs, func(ctx context.Context, vacancyID int) error {
		_, err := orchestrator.Run(ctx, vacancyID)
		return err
	}, cfg.Matching.Workers, cfg.Matching.PollInterval)

	workerCtx, cancelWorker := context.WithCancel(context.Background())
	defer cancelWorker()
	worker.Start(workerCtx)

	refresher := a.refresher()

	maintenance, err := services.NewMaintenanceScheduler(a.results, a.jobs, refresher,
		cfg.Matching.EvaluationVersion, cfg.Matching.JobRetention)
	if err != nil {
		return err
	}
	if err = maintenance.Start(cfg.Matching.RescoreSchedule); err != nil {
		log.Errorf("can't start maintenance scheduler: %v", err)
		return err
	}

	view := services.NewMatchView(a.cached, embedder, retriever, cfg.Matching.TopK, cfg.Matching.SearchTopK)

	router := api.SetupRoutes(api.Services{
		Refresher:  refresher,
		View:       view,
		Vacancies:  a.vacancies,
		Results:    a.results,
		Candidates: a.candidates,
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infof("matching API listening on %s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
	case err = <-serverErr:
		log.Errorf("matching API failed: %v", err)
	}

	log.Info("Shutting down services...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Errorf("failed to shut down matching API: %v", shutdownErr)
	}
	maintenance.Stop()
	// in-flight runs finish before their context is cancelled
	worker.Stop()
	cancelWorker()
	if shutdownErr := metricsServer.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Errorf("failed to shut down metrics server: %v", shutdownErr)
	}

	log.Info("Services stopped.")
	return err
}
