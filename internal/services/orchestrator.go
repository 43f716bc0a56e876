package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/maxaizer/vacancy-matcher/internal/entities"
	"github.com/maxaizer/vacancy-matcher/internal/logger"
	"github.com/maxaizer/vacancy-matcher/internal/metrics"
	"github.com/maxaizer/vacancy-matcher/internal/repositories"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type RunState string

const (
	StateQueued        RunState = "Queued"
	StateVacancyLoaded RunState = "VacancyLoaded"
	StateQueryBuilt    RunState = "QueryBuilt"
	StateEmbedded      RunState = "Embedded"
	StateRetrieved     RunState = "Retrieved"
	StateEvaluating    RunState = "Evaluating"
	StatePersisted     RunState = "Persisted"
	StateCompleted     RunState = "Completed"
	StateFailed        RunState = "Failed"
)

type vacancyLoader interface {
	GetWithRequirements(ctx context.Context, id int) (*entities.Vacancy, []entities.Requirement, error)
}

// CandidateRetriever ranks indexed candidate profiles by relevance to a query.
type CandidateRetriever interface {
	Search(ctx context.Context, vector []float32, keywordText string, topK int) ([]entities.ScoredCandidate, error)
}

type candidateEvaluator interface {
	Evaluate(ctx context.Context, candidate entities.ScoredCandidate, requirements []entities.Requirement) entities.Evaluation
}

type resultStore interface {
	DeleteByVacancy(ctx context.Context, vacancyID int) (int64, error)
	Insert(ctx context.Context, result entities.MatchResult) error
}

type activityRecorder interface {
	Record(activity entities.Activity)
}

// MatchDependencies are the collaborators of a matching run. Embedder and Retriever
// may be nil when the search service is not configured; runs then fail.
type MatchDependencies struct {
	Vacancies vacancyLoader
	Embedder  Embedder
	Retriever CandidateRetriever
	Evaluator candidateEvaluator
	Results   resultStore
	Notifier  activityRecorder
}

// RunReport describes the outcome of one matching run.
type RunReport struct {
	RunID       string
	VacancyID   int
	State       RunState
	SearchQuery string
	Candidates  int
	Persisted   int
	Fallbacks   int
	FailedRows  int
	Duration    time.Duration
}

type MatchOrchestrator struct {
	deps              MatchDependencies
	topK              int
	evaluationVersion int
}

func NewMatchOrchestrator(deps MatchDependencies, topK int, evaluationVersion int) *MatchOrchestrator {
	return &MatchOrchestrator{deps: deps, topK: topK, evaluationVersion: evaluationVersion}
}

// Run matches one vacancy against the candidate index and replaces its persisted results.
// The returned error is meant for the queue: entities.ErrVacancyNotFound is final,
// anything else may be redelivered.
func (o *MatchOrchestrator) Run(ctx context.Context, vacancyID int) (*RunReport, error) {

	report := &RunReport{RunID: uuid.NewString(), VacancyID: vacancyID, State: StateQueued}
	entry := log.WithFields(log.Fields{"run_id": report.RunID, "vacancy_id": vacancyID})
	start := time.Now()

	entry.Info("matching run started")

	err := o.run(ctx, report, entry)
	report.Duration = time.Since(start)
	metrics.MatchRunDuration.Observe(report.Duration.Seconds())

	if err != nil {
		failedAt := report.State
		report.State = StateFailed
		metrics.MatchRunsCounter.WithLabelValues(string(StateFailed)).Inc()
		o.notifyFailure(report, failedAt, err)
		return report, err
	}

	report.State = StateCompleted
	metrics.MatchRunsCounter.WithLabelValues(string(StateCompleted)).Inc()
	entry.Infof("matching run completed in %v: %d candidates, %d persisted, %d fallbacks",
		report.Duration, report.Candidates, report.Persisted, report.Fallbacks)
	o.notifyCompletion(report)
	return report, nil
}

func (o *MatchOrchestrator) run(ctx context.Context, report *RunReport, entry *log.Entry) error {

	stepStart := time.Now()
	vacancy, requirements, err := o.deps.Vacancies.GetWithRequirements(ctx, report.VacancyID)
	if err != nil {
		if errors.Is(err, entities.ErrVacancyNotFound) {
			entry.Warn("vacancy not found, dropping matching run")
			return err
		}
		return o.storeError(entry, "failed to load vacancy", err)
	}
	o.advance(report, StateVacancyLoaded, stepStart, entry)

	stepStart = time.Now()
	report.SearchQuery = BuildSearchQuery(*vacancy, requirements)
	o.advance(report, StateQueryBuilt, stepStart, entry)

	if o.deps.Embedder == nil || o.deps.Retriever == nil {
		return fmt.Errorf("%w: search is not configured", entities.ErrServiceUnavailable)
	}

	stepStart = time.Now()
	vector, err := o.deps.Embedder.Embed(ctx, report.SearchQuery)
	if err != nil {
		entry.WithField(logger.ErrorTypeField, logger.ErrorTypeEmbedding).Errorf("failed to embed search query: %v", err)
		if errors.Is(err, entities.ErrServiceUnavailable) {
			return err
		}
		return fmt.Errorf("%w: embedding: %v", entities.ErrServiceUnavailable, err)
	}
	o.advance(report, StateEmbedded, stepStart, entry)

	stepStart = time.Now()
	candidates, err := o.deps.Retriever.Search(ctx, vector, report.SearchQuery, o.topK)
	if err != nil {
		entry.WithField(logger.ErrorTypeField, logger.ErrorTypeSearch).Errorf("failed to retrieve candidates: %v", err)
		return fmt.Errorf("%w: search: %v", entities.ErrServiceUnavailable, err)
	}
	candidates = lo.UniqBy(candidates, func(candidate entities.ScoredCandidate) int {
		return candidate.Profile.ID
	})
	report.Candidates = len(candidates)
	o.advance(report, StateRetrieved, stepStart, entry)

	stepStart = time.Now()
	evaluations := o.evaluate(ctx, candidates, requirements)
	report.Fallbacks = lo.CountBy(evaluations, func(evaluation entities.Evaluation) bool {
		return evaluation.Kind == entities.EvaluationFallback
	})
	o.advance(report, StateEvaluating, stepStart, entry)

	stepStart = time.Now()
	if err = o.persist(ctx, report, candidates, evaluations, entry); err != nil {
		return err
	}
	o.advance(report, StatePersisted, stepStart, entry)

	return nil
}

// evaluate fans out one evaluation per candidate and joins them before returning.
// Evaluations never fail, a failed reasoning call yields a fallback evaluation.
func (o *MatchOrchestrator) evaluate(ctx context.Context, candidates []entities.ScoredCandidate,
	requirements []entities.Requirement) []entities.Evaluation {

	evaluations := make([]entities.Evaluation, len(candidates))
	if len(candidates) == 0 {
		return evaluations
	}

	var group errgroup.Group
	group.SetLimit(len(candidates))

	for i, candidate := range candidates {
		group.Go(func() error {
			evaluations[i] = o.deps.Evaluator.Evaluate(ctx, candidate, requirements)
			return nil
		})
	}

	_ = group.Wait()
	return evaluations
}

func (o *MatchOrchestrator) persist(ctx context.Context, report *RunReport, candidates []entities.ScoredCandidate,
	evaluations []entities.Evaluation, entry *log.Entry) error {

	deleted, err := o.deps.Results.DeleteByVacancy(ctx, report.VacancyID)
	if err != nil {
		return o.storeError(entry, "failed to delete previous match results", err)
	}
	entry.Debugf("deleted %d previous match results", deleted)

	transientFailures := 0
	for i, candidate := range candidates {
		result := entities.NewMatchResult(report.VacancyID, candidate, evaluations[i], o.evaluationVersion)
		if err = o.deps.Results.Insert(ctx, result); err != nil {
			report.FailedRows++
			if ctxErr := ctx.Err(); ctxErr != nil {
				entry.Warnf("matching run interrupted after %d of %d results, queued for retry",
					report.Persisted, len(candidates))
				return fmt.Errorf("%w: run interrupted: %w", entities.ErrTransientStoreContention, ctxErr)
			}
			if repositories.IsTransient(err) {
				transientFailures++
			}
			entry.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
				Errorf("%v for candidate %d: %v", entities.ErrPersistenceRow, candidate.Profile.ID, err)
			continue
		}
		report.Persisted++
		metrics.PersistedResultsCounter.Inc()
	}

	if transientFailures > 0 {
		entry.Warnf("%d match results hit store contention, queued for retry", transientFailures)
		return fmt.Errorf("%w: %d rows not persisted", entities.ErrTransientStoreContention, transientFailures)
	}
	return nil
}

func (o *MatchOrchestrator) storeError(entry *log.Entry, message string, err error) error {
	if repositories.IsTransient(err) {
		entry.Warnf("%s, queued for retry: %v", message, err)
		return fmt.Errorf("%w: %s: %v", entities.ErrTransientStoreContention, message, err)
	}
	entry.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("%s: %v", message, err)
	return fmt.Errorf("%s: %w", message, err)
}

func (o *MatchOrchestrator) advance(report *RunReport, state RunState, stepStart time.Time, entry *log.Entry) {
	metrics.MatchStepDuration.WithLabelValues(string(state)).Observe(time.Since(stepStart).Seconds())
	report.State = state
	entry.Debugf("matching run reached state %s", state)
}

func (o *MatchOrchestrator) notifyCompletion(report *RunReport) {
	if o.deps.Notifier == nil {
		return
	}
	o.deps.Notifier.Record(entities.Activity{
		Type:  entities.ActivityMatching,
		Title: "Candidate matching completed",
		Description: fmt.Sprintf("Vacancy %d matched against %d candidates, %d results stored",
			report.VacancyID, report.Candidates, report.Persisted),
		Status:   "completed",
		Metadata: report.metadata(),
	})
}

func (o *MatchOrchestrator) notifyFailure(report *RunReport, failedAt RunState, err error) {
	if o.deps.Notifier == nil {
		return
	}
	metadata := report.metadata()
	metadata["failedAt"] = string(failedAt)
	metadata["error"] = err.Error()

	o.deps.Notifier.Record(entities.Activity{
		Type:        entities.ActivityError,
		Title:       "Candidate matching failed",
		Description: fmt.Sprintf("Matching of vacancy %d failed: %v", report.VacancyID, err),
		Status:      "failed",
		Metadata:    metadata,
	})
}

func (r *RunReport) metadata() map[string]any {
	return map[string]any{
		"runId":      r.RunID,
		"vacancyId":  r.VacancyID,
		"candidates": r.Candidates,
		"persisted":  r.Persisted,
		"fallbacks":  r.Fallbacks,
		"failedRows": r.FailedRows,
		"durationMs": r.Duration.Milliseconds(),
	}
}
