package job

import "errors"

var (
	ErrNotConfigured     = errors.New("job: not configured")
	ErrUnknownTask       = errors.New("job: unknown task")
	ErrInvalidPayload    = errors.New("job: invalid payload")
	ErrPoolRequired      = errors.New("job: pgx pool is required")
	ErrAlreadyStarted    = errors.New("job: manager already started")
	ErrNotStarted        = errors.New("job: manager not started")
	ErrHealthcheckFailed = errors.New("job: healthcheck failed")
)
