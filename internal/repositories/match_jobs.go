package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/maxaizer/vacancy-matcher/internal/entities"
	"gorm.io/gorm"
)

// MatchJobs is the table-backed transport of refresh trigger messages.
type MatchJobs struct {
	db *gorm.DB
}

func NewMatchJobsRepository(db *gorm.DB) *MatchJobs {
	return &MatchJobs{db: db}
}

func (r *MatchJobs) Enqueue(ctx context.Context, body string, maxAttempts int) (int64, error) {
	job := entities.MatchJob{
		Body:        body,
		Status:      entities.JobQueued,
		MaxAttempts: maxAttempts,
	}
	if err := r.db.WithContext(ctx).Create(&job).Error; err != nil {
		return 0, err
	}
	return job.ID, nil
}

// ClaimNext marks the oldest due job as processing and returns it, or nil when nothing is due.
func (r *MatchJobs) ClaimNext(ctx context.Context) (*entities.MatchJob, error) {
	var job entities.MatchJob
	err := r.db.WithContext(ctx).
		Where("status IN ?", []entities.JobStatus{entities.JobQueued, entities.JobRetry}).
		Where("(next_try_at IS NULL OR next_try_at <= ?)", time.Now().UTC()).
		Order("id ASC").
		First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	res := r.db.WithContext(ctx).Model(&entities.MatchJob{}).
		Where("id = ? AND status = ?", job.ID, job.Status).
		Update("status", entities.JobProcessing)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// claimed by another worker in between
		return nil, nil
	}

	job.Status = entities.JobProcessing
	return &job, nil
}

// Update persists the job's status, attempts, next try time and last error.
func (r *MatchJobs) Update(ctx context.Context, job *entities.MatchJob) error {
	return r.db.WithContext(ctx).Model(&entities.MatchJob{}).Where("id = ?", job.ID).
		Updates(map[string]any{
			"status":      job.Status,
			"attempts":    job.Attempts,
			"next_try_at": job.NextTryAt,
			"last_error":  job.LastError,
		}).Error
}

// ReleaseProcessing puts jobs left in processing by a crashed process back to the queue.
func (r *MatchJobs) ReleaseProcessing(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&entities.MatchJob{}).
		Where("status = ? AND updated_at < ?", entities.JobProcessing, before).
		Update("status", entities.JobRetry)
	return res.RowsAffected, res.Error
}

// RemoveFinished deletes done and dropped jobs last updated before the given time.
func (r *MatchJobs) RemoveFinished(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("status IN ? AND updated_at < ?", []entities.JobStatus{entities.JobDone, entities.JobDropped}, before).
		Delete(&entities.MatchJob{})
	return res.RowsAffected, res.Error
}

func (r *MatchJobs) GetByID(ctx context.Context, id int64) (*entities.MatchJob, error) {
	var job entities.MatchJob
	if err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}
