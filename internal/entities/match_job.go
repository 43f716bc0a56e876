package entities

import "time"

type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobRetry      JobStatus = "retry"
	JobDone       JobStatus = "done"
	JobDropped    JobStatus = "dropped"
	JobDead       JobStatus = "dead"
)

// MatchJob is a queued refresh trigger. Body holds the base64-wrapped JSON message.
type MatchJob struct {
	ID          int64
	Body        string
	Status      JobStatus `gorm:"index"`
	Attempts    int
	MaxAttempts int
	NextTryAt   *time.Time
	LastError   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
