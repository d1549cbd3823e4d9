package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/scalekit/internal/tag"
)

// ScaleRepository stores per-entity scale records as JSONB rows, one row
// per (entity, category). It implements storage.Backend.
type ScaleRepository struct {
	db *pgxpool.Pool
}

// NewScaleRepository creates a new ScaleRepository.
func NewScaleRepository(db *pgxpool.Pool) *ScaleRepository {
	return &ScaleRepository{db: db}
}

// LoadScales returns the stored records of the entity keyed by category.
func (r *ScaleRepository) LoadScales(ctx context.Context, objectID uint32) (map[string]tag.Compound, error) {
	query := `
		SELECT category, data
		FROM entity_scales
		WHERE entity_id = $1
		ORDER BY category
	`

	rows, err := r.db.Query(ctx, query, int64(objectID))
	if err != nil {
		return nil, fmt.Errorf("querying scales for entity %d: %w", objectID, err)
	}
	defer rows.Close()

	scales := make(map[string]tag.Compound)
	for rows.Next() {
		var category string
		var data map[string]any
		if err := rows.Scan(&category, &data); err != nil {
			return nil, fmt.Errorf("scanning scale row: %w", err)
		}
		scales[category] = tag.Compound(data)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating scale rows: %w", err)
	}

	return scales, nil
}

// SaveScales replaces every record of the entity in one transaction.
func (r *ScaleRepository) SaveScales(ctx context.Context, objectID uint32, scales map[string]tag.Compound) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.Error("rollback failed", "entity", objectID, "error", err)
		}
	}()

	if err := r.saveTx(ctx, tx, objectID, scales); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing scales of entity %d: %w", objectID, err)
	}
	return nil
}

func (r *ScaleRepository) saveTx(ctx context.Context, tx pgx.Tx, objectID uint32, scales map[string]tag.Compound) error {
	if _, err := tx.Exec(ctx, `DELETE FROM entity_scales WHERE entity_id = $1`, int64(objectID)); err != nil {
		return fmt.Errorf("deleting existing scales: %w", err)
	}

	if len(scales) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for category, data := range scales {
		batch.Queue(
			`INSERT INTO entity_scales (entity_id, category, data, updated_at) VALUES ($1, $2, $3, now())`,
			int64(objectID), category, map[string]any(data),
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("inserting scales of entity %d: %w", objectID, err)
	}
	return nil
}

// UpsertScale writes a single category record.
func (r *ScaleRepository) UpsertScale(ctx context.Context, objectID uint32, category string, data tag.Compound) error {
	query := `
		INSERT INTO entity_scales (entity_id, category, data, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (entity_id, category)
		DO UPDATE SET data = EXCLUDED.data, updated_at = now()
	`

	if _, err := r.db.Exec(ctx, query, int64(objectID), category, map[string]any(data)); err != nil {
		return fmt.Errorf("upserting %s scale for entity %d: %w", category, objectID, err)
	}
	return nil
}

// DeleteScales removes every record of the entity.
func (r *ScaleRepository) DeleteScales(ctx context.Context, objectID uint32) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM entity_scales WHERE entity_id = $1`, int64(objectID)); err != nil {
		return fmt.Errorf("deleting scales for entity %d: %w", objectID, err)
	}
	return nil
}

// CountByCategory returns how many entities store a record of the category.
func (r *ScaleRepository) CountByCategory(ctx context.Context, category string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM entity_scales WHERE category = $1`, category).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting %s scales: %w", category, err)
	}
	return n, nil
}
