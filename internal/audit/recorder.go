package audit

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/coach-gateway/pkg/models"
)

// queueKey is the Redis list holding audit entries awaiting persistence.
const queueKey = "audit_entries:pending"

// Recorder pushes audit entries onto a Redis list so the request path
// never waits on Postgres. The Syncer drains the list in the background.
type Recorder struct {
	rdb *redis.Client
}

// NewRecorder creates a new Recorder.
func NewRecorder(rdb *redis.Client) *Recorder {
	return &Recorder{rdb: rdb}
}

// Record enqueues an audit entry for asynchronous persistence.
func (r *Recorder) Record(ctx context.Context, entry models.AuditEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}

	if err := r.rdb.LPush(ctx, queueKey, data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue audit entry: %w", err)
	}

	return nil
}

// HashContent creates a SHA256 hash of content for audit logging.
// Used to record scanned text without storing the text itself.
func HashContent(content string) string {
	hash := sha256.Sum256([]byte(content))
	return fmt.Sprintf("%x", hash)
}
