package services

import (
	"context"
	"fmt"
	"time"

	"github.com/maxaizer/vacancy-matcher/internal/entities"
	"github.com/maxaizer/vacancy-matcher/internal/logger"
	"github.com/maxaizer/vacancy-matcher/internal/queue"
	log "github.com/sirupsen/logrus"
)

type jobQueue interface {
	Enqueue(ctx context.Context, body string, maxAttempts int) (int64, error)
}

type vacancyCache interface {
	Invalidate(id int)
}

type resultDeleter interface {
	DeleteByVacancy(ctx context.Context, vacancyID int) (int64, error)
}

type RefreshResult struct {
	VacancyID               int       `json:"vacancyId"`
	EstimatedCompletionTime time.Time `json:"estimatedCompletionTime"`
}

// MatchRefresher clears the stored results of a vacancy and enqueues a new matching run.
type MatchRefresher struct {
	vacancies         vacancyLoader
	results           resultDeleter
	queue             jobQueue
	maxAttempts       int
	estimatedDuration time.Duration
}

// NewMatchRefresher creates a refresher. When vacancies is a cache, the refreshed vacancy is
// evicted first so the refresh and later match views see its current state. A nil queue makes every refresh fail with
// entities.ErrQueueUnavailable.
func NewMatchRefresher(vacancies vacancyLoader, results resultDeleter, jobs jobQueue,
	maxAttempts int, estimatedDuration time.Duration) *MatchRefresher {
	return &MatchRefresher{
		vacancies:         vacancies,
		results:           results,
		queue:             jobs,
		maxAttempts:       maxAttempts,
		estimatedDuration: estimatedDuration,
	}
}

func (r *MatchRefresher) Refresh(ctx context.Context, vacancyID int) (*RefreshResult, error) {

	if cache, ok := r.vacancies.(vacancyCache); ok {
		cache.Invalidate(vacancyID)
	}

	if _, _, err := r.vacancies.GetWithRequirements(ctx, vacancyID); err != nil {
		return nil, err
	}

	if r.queue == nil {
		return nil, fmt.Errorf("%w: queue is not configured", entities.ErrQueueUnavailable)
	}

	body, err := queue.EncodeMessage(queue.Message{VacancyID: vacancyID})
	if err != nil {
		return nil, err
	}

	deleted, err := r.results.DeleteByVacancy(ctx, vacancyID)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
			Errorf("failed to delete match results of vacancy %d: %v", vacancyID, err)
		return nil, fmt.Errorf("failed to delete match results: %w", err)
	}

	jobID, err := r.queue.Enqueue(ctx, body, r.maxAttempts)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeQueue).
			Errorf("failed to enqueue matching of vacancy %d: %v", vacancyID, err)
		return nil, fmt.Errorf("%w: %v", entities.ErrQueueUnavailable, err)
	}

	log.Infof("refresh of vacancy %d queued as job %d, %d stale results deleted", vacancyID, jobID, deleted)

	return &RefreshResult{
		VacancyID:               vacancyID,
		EstimatedCompletionTime: time.Now().UTC().Add(r.estimatedDuration),
	}, nil
}
