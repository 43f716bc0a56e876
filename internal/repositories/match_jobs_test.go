package repositories

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"database/sql/driver"

	"github.com/maxaizer/vacancy-matcher/internal/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_MatchJobs_ClaimOnce(t *testing.T) {
	repo := NewMatchJobsRepository(newTestDbContext(t).DB)
	ctx := context.Background()

	id, err := repo.Enqueue(ctx, "eyJ2YWNhbmN5SWQiOjF9", 3)
	require.NoError(t, err)

	job, err := repo.ClaimNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, id, job.ID)
	assert.Equal(t, entities.JobProcessing, job.Status)
	assert.Equal(t, 3, job.MaxAttempts)

	again, err := repo.ClaimNext(ctx)
	require.NoError(t, err)
	assert.Nil(t, again)
}

func Test_MatchJobs_RetryIsDelayed(t *testing.T) {
	repo := NewMatchJobsRepository(newTestDbContext(t).DB)
	ctx := context.Background()

	_, err := repo.Enqueue(ctx, "body", 3)
	require.NoError(t, err)
	job, err := repo.ClaimNext(ctx)
	require.NoError(t, err)

	next := time.Now().UTC().Add(time.Hour)
	job.Status = entities.JobRetry
	job.Attempts = 1
	job.NextTryAt = &next
	job.LastError = "embedding failed"
	require.NoError(t, repo.Update(ctx, job))

	claimed, err := repo.ClaimNext(ctx)
	require.NoError(t, err)
	assert.Nil(t, claimed, "job is not due yet")

	past := time.Now().UTC().Add(-time.Second)
	job.NextTryAt = &past
	require.NoError(t, repo.Update(ctx, job))

	claimed, err = repo.ClaimNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, 1, claimed.Attempts)
	assert.Equal(t, "embedding failed", claimed.LastError)
}

func Test_MatchJobs_RemoveFinished(t *testing.T) {
	repo := NewMatchJobsRepository(newTestDbContext(t).DB)
	ctx := context.Background()

	_, err := repo.Enqueue(ctx, "done", 3)
	require.NoError(t, err)
	queuedID, err := repo.Enqueue(ctx, "queued", 3)
	require.NoError(t, err)

	job, err := repo.ClaimNext(ctx)
	require.NoError(t, err)
	job.Status = entities.JobDone
	require.NoError(t, repo.Update(ctx, job))

	removed, err := repo.RemoveFinished(ctx, time.Now().UTC().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	remaining, err := repo.GetByID(ctx, queuedID)
	require.NoError(t, err)
	assert.Equal(t, entities.JobQueued, remaining.Status)
}

func Test_IsTransient(t *testing.T) {
	assert.True(t, IsTransient(fmt.Errorf("insert: %w", driver.ErrBadConn)))
	assert.True(t, IsTransient(errors.New("pq: Connection closed")))
	assert.True(t, IsTransient(errors.New("database is locked (5) (SQLITE_BUSY)")))
	assert.False(t, IsTransient(errors.New("UNIQUE constraint failed")))
	assert.False(t, IsTransient(nil))
}
