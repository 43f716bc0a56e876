package main

import (
	"context"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/maxaizer/vacancy-matcher/internal/bot"
	"github.com/maxaizer/vacancy-matcher/internal/clients/activitylog"
	"github.com/maxaizer/vacancy-matcher/internal/clients/gemini"
	"github.com/maxaizer/vacancy-matcher/internal/clients/ollama"
	"github.com/maxaizer/vacancy-matcher/internal/config"
	"github.com/maxaizer/vacancy-matcher/internal/repositories"
	"github.com/maxaizer/vacancy-matcher/internal/services"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	embeddingCacheTTL  = time.Hour
	vacancyCacheTTL    = time.Minute
	activityWebhookRPS = 5
)

// application holds the long-lived components shared by the commands.
type application struct {
	cfg        *config.Config
	db         *repositories.DbContext
	gemini     *gemini.Client
	embedder   services.Embedder
	vacancies  *repositories.Vacancies
	cached     *repositories.CachedVacancies
	candidates *repositories.CandidateIndex
	results    *repositories.MatchResults
	jobs       *repositories.MatchJobs
	notifier   *services.ActivityNotifier
}

func newApplication(ctx context.Context, cfg *config.Config) (*application, error) {

	dbContext, err := repositories.NewDbContext(cfg.DB.ConnectionString, cfg.DB.MaxOpenConns)
	if err != nil {
		return nil, errors.Wrap(err, "can't create db context")
	}

	vacancies := repositories.NewVacanciesRepository(dbContext.DB)
	a := &application{
		cfg:        cfg,
		db:         dbContext,
		vacancies:  vacancies,
		cached:     repositories.NewCachedVacancies(vacancies, vacancyCacheTTL),
		candidates: repositories.NewCandidateIndex(dbContext.DB),
		results:    repositories.NewMatchResultsRepository(dbContext.DB),
		jobs:       repositories.NewMatchJobsRepository(dbContext.DB),
	}

	if cfg.AI.Configured() {
		a.gemini, err = gemini.NewClient(ctx, cfg.AI.Key, gemini.Model(cfg.AI.Model), gemini.Model(cfg.AI.EmbeddingModel))
		if err != nil {
			a.Close()
			return nil, errors.Wrap(err, "can't create AI client")
		}
		a.gemini.SetMinuteRateLimit(cfg.AI.MaxRequestsPerMinute)
		a.gemini.SetDayRateLimit(cfg.AI.MaxRequestsPerDay)
	} else {
		log.Warn("AI key is not set, candidates will be scored by similarity only")
	}

	if err = a.setupEmbedder(); err != nil {
		a.Close()
		return nil, err
	}

	a.notifier, err = services.NewActivityNotifier(EventBus.New(), a.activitySinks()...)
	if err != nil {
		a.Close()
		return nil, errors.Wrap(err, "can't create activity notifier")
	}

	return a, nil
}

func (a *application) setupEmbedder() error {
	switch a.cfg.AI.EmbeddingProvider {
	case config.ProviderOllama:
		embedder, err := ollama.NewEmbedder(a.cfg.AI.OllamaURL, a.cfg.AI.EmbeddingModel, nil)
		if err != nil {
			return errors.Wrap(err, "can't create ollama embedder")
		}
		a.embedder = services.NewCachedEmbedder(embedder, embeddingCacheTTL)
	default:
		if a.gemini == nil {
			log.Warn("embedding provider is not configured, candidate search is unavailable")
			return nil
		}
		a.embedder = services.NewCachedEmbedder(a.gemini, embeddingCacheTTL)
	}
	return nil
}

func (a *application) activitySinks() []services.ActivitySink {
	sinks := []services.ActivitySink{services.LogActivitySink{}}

	if a.cfg.Activity.WebhookURL != "" {
		client := activitylog.NewClient(a.cfg.Activity.WebhookURL)
		client.SetRateLimit(activityWebhookRPS)
		sinks = append(sinks, client)
	}

	if a.cfg.Activity.TelegramToken != "" {
		activityBot, err := bot.NewActivityBot(a.cfg.Activity.TelegramToken, a.cfg.Activity.TelegramChatID)
		if err != nil {
			log.Errorf("can't create activity bot, telegram notifications disabled: %v", err)
		} else {
			sinks = append(sinks, activityBot)
		}
	}

	return sinks
}

// retrieval returns the search collaborators, or untyped nils when search is not configured.
func (a *application) retrieval() (services.Embedder, services.CandidateRetriever) {
	if a.embedder == nil {
		return nil, nil
	}
	return a.embedder, a.candidates
}

func (a *application) evaluator() (*services.RequirementEvaluator, error) {
	if a.gemini == nil {
		return services.NewRequirementEvaluator(nil)
	}
	return services.NewRequirementEvaluator(a.gemini)
}

func (a *application) refresher() *services.MatchRefresher {
	return services.NewMatchRefresher(a.cached, a.results, a.jobs,
		a.cfg.Matching.MaxAttempts, a.cfg.Matching.EstimatedRunDuration)
}

func (a *application) Close() {
	if a.notifier != nil {
		a.notifier.Wait()
	}
	if a.gemini != nil {
		if err := a.gemini.Close(); err != nil {
			log.Errorf("failed to close AI client: %v", err)
		}
	}
	if err := a.db.Close(); err != nil {
		log.Errorf("failed to close db: %v", err)
	}
}
