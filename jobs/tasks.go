package jobs

import "time"

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskPurgeExpiredTokens removes API tokens past their expiry.
	TaskPurgeExpiredTokens = "auth:tokens:purge"
	// PurgeExpiredTokensCron runs the purge at the top of every hour.
	PurgeExpiredTokensCron = "0 * * * *"
	// TaskCleanupIdempotency drops idempotency keys past their retention.
	TaskCleanupIdempotency = "idempotency:cleanup"
	// CleanupIdempotencyCron runs the cleanup daily.
	CleanupIdempotencyCron = "30 3 * * *"
	// DefaultIdempotencyRetention is used when a cleanup payload carries no retention.
	DefaultIdempotencyRetention = 24 * time.Hour
)
