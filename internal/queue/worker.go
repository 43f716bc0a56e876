package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/maxaizer/vacancy-matcher/internal/entities"
	"github.com/maxaizer/vacancy-matcher/internal/logger"
	"github.com/maxaizer/vacancy-matcher/internal/metrics"
	log "github.com/sirupsen/logrus"
)

const (
	baseBackoff = 5 * time.Second
	maxBackoff  = 10 * time.Minute
)

type jobRepository interface {
	ClaimNext(ctx context.Context) (*entities.MatchJob, error)
	Update(ctx context.Context, job *entities.MatchJob) error
	ReleaseProcessing(ctx context.Context, before time.Time) (int64, error)
}

// Handler runs the matching pipeline for one vacancy. A returned error makes
// the message redeliverable unless it wraps entities.ErrVacancyNotFound.
type Handler func(ctx context.Context, vacancyID int) error

type Worker struct {
	repo         jobRepository
	handler      Handler
	workerCount  int
	pollInterval time.Duration
	stop         chan struct{}
	stopOnce     sync.Once
	wg           sync.WaitGroup
}

func NewWorker(repo jobRepository, handler Handler, workerCount int, pollInterval time.Duration) *Worker {
	if workerCount <= 0 {
		workerCount = 1
	}
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &Worker{
		repo:         repo,
		handler:      handler,
		workerCount:  workerCount,
		pollInterval: pollInterval,
		stop:         make(chan struct{}),
	}
}

// Start puts jobs abandoned by a previous process back to the queue and launches the consumers.
func (w *Worker) Start(ctx context.Context) {
	released, err := w.repo.ReleaseProcessing(ctx, time.Now().UTC())
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeQueue).
			Errorf("failed to release abandoned jobs: %v", err)
	} else if released > 0 {
		log.Infof("released %d abandoned match jobs", released)
	}

	for i := 0; i < w.workerCount; i++ {
		w.wg.Add(1)
		go w.consume(ctx, i)
	}
}

func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
	w.wg.Wait()
}

func (w *Worker) consume(ctx context.Context, id int) {
	defer w.wg.Done()

	for {
		select {
		case <-w.stop:
			log.Debugf("queue worker %d stopping", id)
			return
		case <-ctx.Done():
			log.Debugf("queue worker %d context done", id)
			return
		default:
		}

		job, err := w.repo.ClaimNext(ctx)
		if err != nil {
			log.WithField(logger.ErrorTypeField, logger.ErrorTypeQueue).
				Errorf("failed to claim match job: %v", err)
			w.sleep(ctx)
			continue
		}
		if job == nil {
			w.sleep(ctx)
			continue
		}

		w.process(ctx, job)
	}
}

func (w *Worker) sleep(ctx context.Context) {
	timer := time.NewTimer(w.pollInterval)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-w.stop:
	case <-ctx.Done():
	}
}

func (w *Worker) process(ctx context.Context, job *entities.MatchJob) {
	entry := log.WithField("job_id", job.ID)

	msg, err := DecodeMessage(job.Body)
	if err != nil {
		entry.WithField(logger.ErrorTypeField, logger.ErrorTypeQueue).
			Errorf("dropping malformed match job: %v", err)
		w.finish(ctx, job, entities.JobDropped, err)
		return
	}

	err = w.handler(ctx, msg.VacancyID)
	switch {
	case err == nil:
		w.finish(ctx, job, entities.JobDone, nil)
	case errors.Is(err, entities.ErrVacancyNotFound):
		entry.Warnf("dropping match job for missing vacancy %d", msg.VacancyID)
		w.finish(ctx, job, entities.JobDropped, err)
	default:
		w.retry(ctx, job, err)
	}
}

func (w *Worker) retry(ctx context.Context, job *entities.MatchJob, cause error) {
	job.Attempts++
	job.LastError = cause.Error()

	if job.MaxAttempts > 0 && job.Attempts >= job.MaxAttempts {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeQueue).
			Errorf("match job %d failed %d times, giving up: %v", job.ID, job.Attempts, cause)
		w.finish(ctx, job, entities.JobDead, cause)
		return
	}

	next := time.Now().UTC().Add(BackoffDuration(job.Attempts))
	job.NextTryAt = &next
	job.Status = entities.JobRetry
	metrics.QueueJobsCounter.WithLabelValues(string(entities.JobRetry)).Inc()

	log.Warnf("match job %d attempt %d failed, retrying at %s: %v",
		job.ID, job.Attempts, next.Format(time.RFC3339), cause)

	if err := w.repo.Update(ctx, job); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeQueue).
			Errorf("failed to schedule retry of match job %d: %v", job.ID, err)
	}
}

func (w *Worker) finish(ctx context.Context, job *entities.MatchJob, status entities.JobStatus, cause error) {
	job.Status = status
	job.NextTryAt = nil
	if cause != nil {
		job.LastError = cause.Error()
	}
	metrics.QueueJobsCounter.WithLabelValues(string(status)).Inc()

	if err := w.repo.Update(ctx, job); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeQueue).
			Errorf("failed to update match job %d: %v", job.ID, err)
	}
}

// BackoffDuration doubles the delay with every attempt, starting at 5s and capped at 10m.
func BackoffDuration(attempt int) time.Duration {
	if attempt <= 1 {
		return baseBackoff
	}

	backoff := baseBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
		if backoff >= maxBackoff {
			return maxBackoff
		}
	}
	return backoff
}
