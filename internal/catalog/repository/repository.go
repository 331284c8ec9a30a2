package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"scada_quote_backend/platform/apperr"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const entryNotFoundMsg = "catalog entry not found"

const entryColumns = `id, category, label, additional_label, unit_price, additional_unit_price,
	note, is_default, sort_order, active, updated_at`

// PostgresRepository implements Repository with pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// New creates a catalog repository.
func New(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) ListActive(ctx context.Context) ([]Entry, error) {
	return r.list(ctx, `SELECT `+entryColumns+` FROM catalog_entries WHERE active ORDER BY category, sort_order, id`)
}

func (r *PostgresRepository) ListAll(ctx context.Context) ([]Entry, error) {
	return r.list(ctx, `SELECT `+entryColumns+` FROM catalog_entries ORDER BY category, sort_order, id`)
}

func (r *PostgresRepository) list(ctx context.Context, query string) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog entries: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan catalog entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate catalog entries: %w", err)
	}
	return entries, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (Entry, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+entryColumns+` FROM catalog_entries WHERE id = $1`, id)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, apperr.NotFound(entryNotFoundMsg)
		}
		return Entry{}, fmt.Errorf("failed to get catalog entry: %w", err)
	}
	return e, nil
}

func (r *PostgresRepository) Update(ctx context.Context, params UpdateEntryParams) (Entry, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE catalog_entries SET
			label = COALESCE($2, label),
			additional_label = COALESCE($3, additional_label),
			unit_price = COALESCE($4, unit_price),
			additional_unit_price = COALESCE($5, additional_unit_price),
			note = COALESCE($6, note),
			is_default = COALESCE($7, is_default),
			active = COALESCE($8, active),
			updated_at = $9
		WHERE id = $1
		RETURNING ` + entryColumns

	row := tx.QueryRow(ctx, query,
		params.ID, params.Label, params.AdditionalLabel, params.UnitPrice, params.AdditionalUnitPrice,
		params.Note, params.IsDefault, params.Active, time.Now(),
	)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, apperr.NotFound(entryNotFoundMsg)
		}
		return Entry{}, fmt.Errorf("failed to update catalog entry: %w", err)
	}

	if e.Category == CategorySupportPlan && params.IsDefault != nil && *params.IsDefault {
		if _, err := tx.Exec(ctx,
			`UPDATE catalog_entries SET is_default = FALSE WHERE category = $1 AND id <> $2`,
			CategorySupportPlan, e.ID,
		); err != nil {
			return Entry{}, fmt.Errorf("failed to clear default support plan: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Entry{}, fmt.Errorf("failed to commit catalog update: %w", err)
	}
	return e, nil
}

func (r *PostgresRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM catalog_entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count catalog entries: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) InsertMany(ctx context.Context, entries []Entry) error {
	batch := &pgx.Batch{}
	now := time.Now()
	for _, e := range entries {
		batch.Queue(`
			INSERT INTO catalog_entries (
				id, category, label, additional_label, unit_price, additional_unit_price,
				note, is_default, sort_order, active, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (id) DO NOTHING`,
			e.ID, e.Category, e.Label, e.AdditionalLabel, e.UnitPrice, e.AdditionalUnitPrice,
			e.Note, e.IsDefault, e.SortOrder, e.Active, now,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range entries {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert catalog entry: %w", err)
		}
	}
	return nil
}

func scanEntry(row pgx.Row) (Entry, error) {
	var e Entry
	err := row.Scan(
		&e.ID, &e.Category, &e.Label, &e.AdditionalLabel, &e.UnitPrice, &e.AdditionalUnitPrice,
		&e.Note, &e.IsDefault, &e.SortOrder, &e.Active, &e.UpdatedAt,
	)
	return e, err
}

var _ Repository = (*PostgresRepository)(nil)
