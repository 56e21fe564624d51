package feeds

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/coach-gateway/pkg/models"
)

// Repository persists indicator feed entries in Postgres. The live
// lookup structures are rebuilt from here by the feed cache; the
// database is the source of truth, not the hot path.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new Repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// List returns every stored indicator.
func (r *Repository) List(ctx context.Context) ([]models.IndicatorEntry, error) {
	query := `
		SELECT id, type, value, category, severity, description, source, added_at
		FROM indicators
		ORDER BY added_at
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list indicators: %w", err)
	}
	defer rows.Close()

	var entries []models.IndicatorEntry
	for rows.Next() {
		var e models.IndicatorEntry
		var description, source sql.NullString
		if err := rows.Scan(&e.ID, &e.Type, &e.Value, &e.Category, &e.Severity,
			&description, &source, &e.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan indicator row: %w", err)
		}
		e.Description = description.String
		e.Source = source.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read indicator rows: %w", err)
	}

	return entries, nil
}

// Upsert inserts an indicator or replaces the existing row with the same ID.
func (r *Repository) Upsert(ctx context.Context, entry models.IndicatorEntry) error {
	query := `
		INSERT INTO indicators (
			id, type, value, category, severity, description, source, added_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			type = EXCLUDED.type,
			value = EXCLUDED.value,
			category = EXCLUDED.category,
			severity = EXCLUDED.severity,
			description = EXCLUDED.description,
			source = EXCLUDED.source,
			added_at = EXCLUDED.added_at
	`

	_, err := r.db.ExecContext(
		ctx, query,
		entry.ID,
		entry.Type,
		entry.Value,
		entry.Category,
		entry.Severity,
		entry.Description,
		entry.Source,
		entry.AddedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert indicator %s: %w", entry.ID, err)
	}

	return nil
}

// Delete removes an indicator by ID. Deleting an unknown ID is not an error.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM indicators WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete indicator %s: %w", id, err)
	}
	return nil
}

// BulkImport loads a feed snapshot with PostgreSQL COPY. COPY cannot
// upsert, so callers importing a full feed should truncate or dedupe
// first; conflicts abort the transaction and nothing is written.
func (r *Repository) BulkImport(ctx context.Context, entries []models.IndicatorEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(
		"indicators",
		"id",
		"type",
		"value",
		"category",
		"severity",
		"description",
		"source",
		"added_at",
	))
	if err != nil {
		return fmt.Errorf("failed to prepare COPY statement: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		_, err = stmt.ExecContext(
			ctx,
			e.ID,
			e.Type,
			e.Value,
			e.Category,
			e.Severity,
			e.Description,
			e.Source,
			e.AddedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to add indicator %s to COPY: %w", e.ID, err)
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
