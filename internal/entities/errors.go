package entities

import "errors"

var (
	ErrVacancyNotFound          = errors.New("vacancy not found")
	ErrServiceUnavailable       = errors.New("service unavailable")
	ErrTransientStoreContention = errors.New("transient store contention")
	ErrPersistenceRow           = errors.New("match result row not persisted")
	ErrQueueUnavailable         = errors.New("queue unavailable")
)
