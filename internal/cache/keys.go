package cache

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const keyPrefix = "shortforge"

// JobStatusKey holds the mirrored status of a single job.
func JobStatusKey(jobID uuid.UUID) string {
	return fmt.Sprintf("%s:job:%s", keyPrefix, jobID)
}

// RateLimitKey scopes a counter to a client identity (key prefix or IP) and to the
// fixed window starting at windowStart, so each window gets a fresh counter.
func RateLimitKey(client string, windowStart time.Time) string {
	return fmt.Sprintf("%s:ratelimit:%s:%d", keyPrefix, client, windowStart.Unix())
}
