package services

import (
	"context"
	"errors"
	"time"

	"github.com/maxaizer/vacancy-matcher/internal/entities"
	"github.com/maxaizer/vacancy-matcher/internal/logger"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

type outdatedResultsRepository interface {
	GetOutdatedVacancyIDs(ctx context.Context, currentVersion int) ([]int, error)
}

type finishedJobsRepository interface {
	RemoveFinished(ctx context.Context, before time.Time) (int64, error)
}

type vacancyRefresher interface {
	Refresh(ctx context.Context, vacancyID int) (*RefreshResult, error)
}

// MaintenanceScheduler periodically re-queues vacancies whose results were produced by an
// older evaluation version and purges finished queue jobs.
type MaintenanceScheduler struct {
	results           outdatedResultsRepository
	jobs              finishedJobsRepository
	refresher         vacancyRefresher
	cron              *cron.Cron
	evaluationVersion int
	jobRetention      time.Duration
}

func NewMaintenanceScheduler(results outdatedResultsRepository, jobs finishedJobsRepository,
	refresher vacancyRefresher, evaluationVersion int, jobRetention time.Duration) (*MaintenanceScheduler, error) {

	if jobRetention <= 0 {
		return nil, errors.New("job retention must be greater than zero")
	}

	return &MaintenanceScheduler{
		results:           results,
		jobs:              jobs,
		refresher:         refresher,
		cron:              cron.New(),
		evaluationVersion: evaluationVersion,
		jobRetention:      jobRetention,
	}, nil
}

// Start runs the maintenance on the given cron schedule until Stop.
func (m *MaintenanceScheduler) Start(schedule string) error {
	_, err := m.cron.AddFunc(schedule, func() {
		ctx := context.Background()
		m.RescoreOutdated(ctx)
		m.PurgeFinishedJobs(ctx)
	})
	if err != nil {
		return err
	}

	m.cron.Start()
	log.Infof("maintenance scheduler started, schedule: %q, evaluation version: %d", schedule, m.evaluationVersion)
	return nil
}

func (m *MaintenanceScheduler) Stop() {
	<-m.cron.Stop().Done()
}

// RescoreOutdated queues a refresh for every vacancy with results of an older evaluation version
// and returns the number of queued vacancies.
func (m *MaintenanceScheduler) RescoreOutdated(ctx context.Context) int {

	vacancyIDs, err := m.results.GetOutdatedVacancyIDs(ctx, m.evaluationVersion)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("failed to get outdated match results: %v", err)
		return 0
	}

	queued := 0
	for _, vacancyID := range vacancyIDs {
		if _, err = m.refresher.Refresh(ctx, vacancyID); err != nil {
			if errors.Is(err, entities.ErrVacancyNotFound) {
				log.Warnf("vacancy %d with outdated results no longer exists", vacancyID)
			} else {
				log.Errorf("failed to queue rescoring of vacancy %d: %v", vacancyID, err)
			}
			continue
		}
		queued++
	}

	if len(vacancyIDs) > 0 {
		log.Infof("queued rescoring of %d of %d vacancies with outdated results", queued, len(vacancyIDs))
	}
	return queued
}

func (m *MaintenanceScheduler) PurgeFinishedJobs(ctx context.Context) {
	expirationTime := time.Now().UTC().Add(-m.jobRetention)
	rowsAffected, err := m.jobs.RemoveFinished(ctx, expirationTime)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("Failed to purge finished match jobs: %v", err)
	} else {
		log.Infof("Finished match jobs purged at %v, affected rows: %v", time.Now(), rowsAffected)
	}
}
