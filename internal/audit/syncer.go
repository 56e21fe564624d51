package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/coach-gateway/internal/metrics"
	"github.com/coach-gateway/pkg/models"
)

// Syncer drains the Redis audit queue into Postgres in batches.
type Syncer struct {
	db           *sql.DB
	rdb          *redis.Client
	syncTicker   *time.Ticker
	stopChan     chan struct{}
	stopOnce     sync.Once
	syncInterval time.Duration
}

// NewSyncer creates a new Syncer.
func NewSyncer(db *sql.DB, rdb *redis.Client, syncInterval time.Duration) *Syncer {
	return &Syncer{
		db:           db,
		rdb:          rdb,
		stopChan:     make(chan struct{}),
		syncInterval: syncInterval,
	}
}

// Start begins the background worker that periodically syncs audit
// entries from Redis to Postgres.
func (s *Syncer) Start(ctx context.Context) error {
	if s.syncInterval <= 0 {
		return fmt.Errorf("invalid sync interval: %v", s.syncInterval)
	}

	s.syncTicker = time.NewTicker(s.syncInterval)
	go s.syncWorker(ctx)
	log.Printf("✓ Redis→Postgres audit sync worker started (interval: %v)", s.syncInterval)

	return nil
}

func (s *Syncer) syncWorker(ctx context.Context) {
	for {
		select {
		case <-s.syncTicker.C:
			if err := s.syncToPostgres(ctx); err != nil {
				log.Printf("⚠️  Failed to sync audit entries to Postgres: %v", err)
			}
		case <-s.stopChan:
			s.syncTicker.Stop()
			// Best effort final drain
			if err := s.syncToPostgres(ctx); err != nil {
				log.Printf("⚠️  Failed to perform final audit sync to Postgres: %v", err)
			}
			log.Println("✓ Redis→Postgres audit sync worker stopped")
			return
		case <-ctx.Done():
			s.syncTicker.Stop()
			log.Println("✓ Redis→Postgres audit sync worker stopped (context cancelled)")
			return
		}
	}
}

// syncToPostgres pops a batch of entries from Redis and writes them to
// Postgres, preferring a bulk COPY with per-row inserts as fallback.
func (s *Syncer) syncToPostgres(ctx context.Context) error {
	queueSize, err := s.rdb.LLen(ctx, queueKey).Result()
	if err != nil {
		log.Printf("⚠️  Failed to get audit queue size: %v", err)
	} else {
		metrics.AuditQueueLength.Set(float64(queueSize))
	}

	// Up to 10K entries per batch, popped FIFO. RPopCount removes them
	// from Redis, so any write failure must re-queue.
	batchSize := 10000
	raw, err := s.rdb.RPopCount(ctx, queueKey, batchSize).Result()
	if err == redis.Nil || len(raw) == 0 {
		metrics.AuditQueueLength.Set(0)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read audit entries from Redis: %w", err)
	}

	remaining := queueSize - int64(len(raw))
	if remaining < 0 {
		remaining = 0
	}
	metrics.AuditQueueLength.Set(float64(remaining))

	entries := make([]models.AuditEntry, 0, len(raw))
	for _, data := range raw {
		var entry models.AuditEntry
		if err := json.Unmarshal([]byte(data), &entry); err != nil {
			log.Printf("⚠️  Failed to unmarshal audit entry: %v", err)
			continue // Skip bad JSON
		}
		entries = append(entries, entry)
	}
	if len(entries) == 0 {
		return nil
	}

	if err := s.bulkWrite(ctx, entries); err != nil {
		log.Printf("⚠️  Bulk insert failed: %v, falling back to individual inserts", err)

		synced := 0
		failed := make([]string, 0)
		for i, entry := range entries {
			if err := s.writeOne(ctx, entry); err != nil {
				log.Printf("⚠️  Failed to write audit entry to Postgres: %v", err)
				failed = append(failed, raw[i])
				continue
			}
			synced++
		}

		// Re-push failed entries back to Redis for retry
		for _, data := range failed {
			if err := s.rdb.LPush(ctx, queueKey, data).Err(); err != nil {
				log.Printf("⚠️  Failed to re-queue audit entry: %v", err)
			}
		}
		if len(failed) > 0 {
			log.Printf("⚠️  Re-queued %d failed audit entries for retry", len(failed))
		}

		log.Printf("✓ Synced %d/%d audit entries to Postgres (fallback mode)", synced, len(entries))
		return nil
	}

	log.Printf("✓ Bulk synced %d audit entries to Postgres", len(entries))
	return nil
}

// bulkWrite uses PostgreSQL COPY for high-throughput batch inserts.
func (s *Syncer) bulkWrite(ctx context.Context, entries []models.AuditEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(
		"audit_entries",
		"id",
		"request_id",
		"client_id",
		"engine",
		"content_hash",
		"outcome",
		"threat_count",
		"risk_score",
		"latency_ms",
		"created_at",
	))
	if err != nil {
		return fmt.Errorf("failed to prepare COPY statement: %w", err)
	}
	defer stmt.Close()

	for _, entry := range entries {
		_, err = stmt.ExecContext(
			ctx,
			entry.ID,
			entry.RequestID,
			entry.ClientID,
			entry.Engine,
			entry.ContentHash,
			entry.Outcome,
			entry.ThreatCount,
			entry.RiskScore,
			entry.LatencyMs,
			entry.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to add row to COPY: %w", err)
		}
	}

	// Flush the COPY buffer.
	if _, err := stmt.ExecContext(ctx); err != nil {
		return fmt.Errorf("failed to flush COPY: %w", err)
	}

	if err := stmt.Close(); err != nil {
		return fmt.Errorf("failed to close COPY statement: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// writeOne inserts a single audit entry (fallback only).
func (s *Syncer) writeOne(ctx context.Context, entry models.AuditEntry) error {
	query := `
		INSERT INTO audit_entries (
			id, request_id, client_id, engine, content_hash,
			outcome, threat_count, risk_score, latency_ms, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := s.db.ExecContext(
		ctx, query,
		entry.ID,
		entry.RequestID,
		entry.ClientID,
		entry.Engine,
		entry.ContentHash,
		entry.Outcome,
		entry.ThreatCount,
		entry.RiskScore,
		entry.LatencyMs,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}

	return nil
}

// Stop gracefully stops the background worker.
func (s *Syncer) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}
