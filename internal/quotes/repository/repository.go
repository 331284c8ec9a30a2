package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"scada_quote_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ── Domain Models ─────────────────────────────────────────────────────────────

// Quote is the database model for a quote header. Totals are not stored;
// they are derived from the items on every read.
type Quote struct {
	ID              uuid.UUID  `db:"id"`
	QuoteNumber     string     `db:"quote_number"`
	ClientID        *uuid.UUID `db:"client_id"`
	ClientName      string     `db:"client_name"`
	ClientEmail     string     `db:"client_email"`
	Status          string     `db:"status"`
	DiscountPercent float64    `db:"discount_percent"`
	UFValue         float64    `db:"uf_value"`
	ValidUntil      *time.Time `db:"valid_until"`
	Notes           *string    `db:"notes"`
	PDFFileKey      *string    `db:"pdf_file_key"`
	CreatedBy       uuid.UUID  `db:"created_by"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
	SentAt          *time.Time `db:"sent_at"`
	AcceptedAt      *time.Time `db:"accepted_at"`
	VoidedAt        *time.Time `db:"voided_at"`
}

// QuoteItem is the database model for a quote line.
type QuoteItem struct {
	ID             uuid.UUID `db:"id"`
	QuoteID        uuid.UUID `db:"quote_id"`
	Position       int       `db:"position"`
	Source         string    `db:"source"`
	CatalogEntryID *string   `db:"catalog_entry_id"`
	Label          string    `db:"label"`
	Quantity       int       `db:"quantity"`
	UnitPrice      float64   `db:"unit_price"`
	Note           string    `db:"note"`
}

// ListParams contains parameters for listing quotes. Status filters on the
// effective status as of Now.
type ListParams struct {
	ClientID  *uuid.UUID
	Status    *string
	Search    string
	SortBy    string
	SortOrder string
	Page      int
	PageSize  int
	Now       time.Time
}

// ListResult contains the paginated result of listing quotes
type ListResult struct {
	Items      []Quote
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

// ── Repository ────────────────────────────────────────────────────────────────

const (
	quoteNotFoundMsg   = "quote not found"
	quoteChangedMsg    = "quote was changed by another request"
	quoteNumberPattern = "COT-%d-%04d"
)

const quoteColumns = `id, quote_number, client_id, client_name, client_email, status,
	discount_percent, uf_value, valid_until, notes, pdf_file_key, created_by,
	created_at, updated_at, sent_at, accepted_at, voided_at`

// effectiveStatusSQL mirrors the time-based expiry rule; $1 is the reference time.
const effectiveStatusSQL = `CASE WHEN status IN ('draft', 'sent') AND valid_until IS NOT NULL AND valid_until < $1
	THEN 'expired' ELSE status END`

// Repository provides database operations for quotes
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new quotes repository
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// NextQuoteNumber atomically generates the next quote number for a year
func (r *Repository) NextQuoteNumber(ctx context.Context, year int) (string, error) {
	var nextNum int
	query := `
		INSERT INTO quote_counters (year, last_number)
		VALUES ($1, 1)
		ON CONFLICT (year) DO UPDATE SET last_number = quote_counters.last_number + 1
		RETURNING last_number`

	if err := r.pool.QueryRow(ctx, query, year).Scan(&nextNum); err != nil {
		return "", fmt.Errorf("failed to generate quote number: %w", err)
	}

	return fmt.Sprintf(quoteNumberPattern, year, nextNum), nil
}

// CreateWithItems inserts a quote and its line items in a single transaction
func (r *Repository) CreateWithItems(ctx context.Context, quote *Quote, items []QuoteItem) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	quoteQuery := `
		INSERT INTO quotes (
			id, quote_number, client_id, client_name, client_email, status,
			discount_percent, uf_value, valid_until, notes, created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	if _, err := tx.Exec(ctx, quoteQuery,
		quote.ID, quote.QuoteNumber, quote.ClientID, quote.ClientName, quote.ClientEmail, quote.Status,
		quote.DiscountPercent, quote.UFValue, quote.ValidUntil, quote.Notes, quote.CreatedBy,
		quote.CreatedAt, quote.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert quote: %w", err)
	}

	if err := r.insertItems(ctx, tx, items); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// UpdateWithItems updates a draft quote and replaces its line items. A quote
// that left draft in the meantime is reported as a conflict.
func (r *Repository) UpdateWithItems(ctx context.Context, quote *Quote, items []QuoteItem) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	updateQuery := `
		UPDATE quotes SET
			client_id = $2, client_name = $3, client_email = $4,
			discount_percent = $5, valid_until = $6, notes = $7,
			pdf_file_key = NULL, updated_at = $8
		WHERE id = $1 AND status = 'draft'`

	result, err := tx.Exec(ctx, updateQuery,
		quote.ID, quote.ClientID, quote.ClientName, quote.ClientEmail,
		quote.DiscountPercent, quote.ValidUntil, quote.Notes, quote.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update quote: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.Conflict(quoteChangedMsg)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM quote_items WHERE quote_id = $1`, quote.ID); err != nil {
		return fmt.Errorf("failed to delete old quote items: %w", err)
	}
	if err := r.insertItems(ctx, tx, items); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *Repository) insertItems(ctx context.Context, tx pgx.Tx, items []QuoteItem) error {
	itemQuery := `
		INSERT INTO quote_items (
			id, quote_id, position, source, catalog_entry_id, label, quantity, unit_price, note
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	for _, item := range items {
		if _, err := tx.Exec(ctx, itemQuery,
			item.ID, item.QuoteID, item.Position, item.Source, item.CatalogEntryID,
			item.Label, item.Quantity, item.UnitPrice, item.Note,
		); err != nil {
			return fmt.Errorf("failed to insert quote item: %w", err)
		}
	}
	return nil
}

// GetByID retrieves a quote by its ID
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Quote, error) {
	q, err := scanQuote(r.pool.QueryRow(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(quoteNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}
	return &q, nil
}

// GetItemsByQuoteID retrieves all items for a quote in position order
func (r *Repository) GetItemsByQuoteID(ctx context.Context, quoteID uuid.UUID) ([]QuoteItem, error) {
	byQuote, err := r.GetItemsByQuoteIDs(ctx, []uuid.UUID{quoteID})
	if err != nil {
		return nil, err
	}
	return byQuote[quoteID], nil
}

// GetItemsByQuoteIDs retrieves the items of several quotes keyed by quote ID
func (r *Repository) GetItemsByQuoteIDs(ctx context.Context, quoteIDs []uuid.UUID) (map[uuid.UUID][]QuoteItem, error) {
	out := make(map[uuid.UUID][]QuoteItem, len(quoteIDs))
	if len(quoteIDs) == 0 {
		return out, nil
	}

	query := `
		SELECT id, quote_id, position, source, catalog_entry_id, label, quantity, unit_price, note
		FROM quote_items WHERE quote_id = ANY($1)
		ORDER BY quote_id, position ASC`

	rows, err := r.pool.Query(ctx, query, quoteIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query quote items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it QuoteItem
		if err := rows.Scan(
			&it.ID, &it.QuoteID, &it.Position, &it.Source, &it.CatalogEntryID,
			&it.Label, &it.Quantity, &it.UnitPrice, &it.Note,
		); err != nil {
			return nil, fmt.Errorf("failed to scan quote item: %w", err)
		}
		out[it.QuoteID] = append(out[it.QuoteID], it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate quote items: %w", err)
	}
	return out, nil
}

// UpdateStatus moves a quote from one stored status to another and stamps the
// matching timestamp. The stored PDF is dropped since it prints the status.
// A concurrent change is reported as a conflict.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to string, at time.Time) error {
	query := `
		UPDATE quotes SET
			status = $3,
			sent_at = CASE WHEN $3 = 'sent' THEN $4 ELSE sent_at END,
			accepted_at = CASE WHEN $3 = 'accepted' THEN $4 ELSE accepted_at END,
			voided_at = CASE WHEN $3 = 'voided' THEN $4 ELSE voided_at END,
			pdf_file_key = NULL,
			updated_at = $4
		WHERE id = $1 AND status = $2`

	result, err := r.pool.Exec(ctx, query, id, from, to, at)
	if err != nil {
		return fmt.Errorf("failed to update quote status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.Conflict(quoteChangedMsg)
	}
	return nil
}

// ListOverdue returns draft or sent quotes whose validity ended before now
func (r *Repository) ListOverdue(ctx context.Context, now time.Time, limit int) ([]Quote, error) {
	query := `
		SELECT ` + quoteColumns + `
		FROM quotes
		WHERE status IN ('draft', 'sent') AND valid_until IS NOT NULL AND valid_until < $1
		ORDER BY valid_until ASC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue quotes: %w", err)
	}
	defer rows.Close()

	items := make([]Quote, 0)
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan quote: %w", err)
		}
		items = append(items, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate quotes: %w", err)
	}
	return items, nil
}

// MarkExpired persists expiry for an overdue quote. It reports false when the
// quote is no longer draft or sent or is not overdue.
func (r *Repository) MarkExpired(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	query := `
		UPDATE quotes SET status = 'expired', updated_at = $2
		WHERE id = $1 AND status IN ('draft', 'sent') AND valid_until IS NOT NULL AND valid_until < $2`

	result, err := r.pool.Exec(ctx, query, id, now)
	if err != nil {
		return false, fmt.Errorf("failed to expire quote: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// SetPDFFileKey records the object key of the last rendered PDF
func (r *Repository) SetPDFFileKey(ctx context.Context, id uuid.UUID, fileKey string) error {
	result, err := r.pool.Exec(ctx, `UPDATE quotes SET pdf_file_key = $2 WHERE id = $1`, id, fileKey)
	if err != nil {
		return fmt.Errorf("failed to store quote pdf key: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(quoteNotFoundMsg)
	}
	return nil
}

// Delete removes a quote (cascade deletes items)
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM quotes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete quote: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(quoteNotFoundMsg)
	}
	return nil
}

// List retrieves quotes with filtering and pagination
func (r *Repository) List(ctx context.Context, params ListParams) (*ListResult, error) {
	sortBy, err := resolveSortBy(params.SortBy)
	if err != nil {
		return nil, err
	}
	sortOrder, err := resolveSortOrder(params.SortOrder)
	if err != nil {
		return nil, err
	}

	var searchParam interface{}
	if params.Search != "" {
		searchParam = "%" + params.Search + "%"
	}

	var statusParam interface{}
	if params.Status != nil {
		statusParam = *params.Status
	}

	var clientParam interface{}
	if params.ClientID != nil {
		clientParam = *params.ClientID
	}

	baseQuery := `
		FROM quotes
		WHERE ($2::uuid IS NULL OR client_id = $2)
			AND ($3::text IS NULL OR (` + effectiveStatusSQL + `) = $3)
			AND ($4::text IS NULL OR quote_number ILIKE $4 OR client_name ILIKE $4
				OR client_email ILIKE $4 OR notes ILIKE $4)
	`
	args := []interface{}{params.Now, clientParam, statusParam, searchParam}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) "+baseQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count quotes: %w", err)
	}

	totalPages := (total + params.PageSize - 1) / params.PageSize
	offset := (params.Page - 1) * params.PageSize

	selectQuery := `
		SELECT ` + quoteColumns + `
		` + baseQuery + `
		ORDER BY
			CASE WHEN $5 = 'quoteNumber' AND $6 = 'asc' THEN quote_number END ASC,
			CASE WHEN $5 = 'quoteNumber' AND $6 = 'desc' THEN quote_number END DESC,
			CASE WHEN $5 = 'status' AND $6 = 'asc' THEN status END ASC,
			CASE WHEN $5 = 'status' AND $6 = 'desc' THEN status END DESC,
			CASE WHEN $5 = 'clientName' AND $6 = 'asc' THEN client_name END ASC,
			CASE WHEN $5 = 'clientName' AND $6 = 'desc' THEN client_name END DESC,
			CASE WHEN $5 = 'validUntil' AND $6 = 'asc' THEN valid_until END ASC,
			CASE WHEN $5 = 'validUntil' AND $6 = 'desc' THEN valid_until END DESC,
			CASE WHEN $5 = 'createdAt' AND $6 = 'asc' THEN created_at END ASC,
			CASE WHEN $5 = 'createdAt' AND $6 = 'desc' THEN created_at END DESC,
			CASE WHEN $5 = 'updatedAt' AND $6 = 'asc' THEN updated_at END ASC,
			CASE WHEN $5 = 'updatedAt' AND $6 = 'desc' THEN updated_at END DESC,
			created_at DESC
		LIMIT $7 OFFSET $8`

	args = append(args, sortBy, sortOrder, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list quotes: %w", err)
	}
	defer rows.Close()

	items := make([]Quote, 0)
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan quote: %w", err)
		}
		items = append(items, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate quotes: %w", err)
	}

	return &ListResult{
		Items:      items,
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: totalPages,
	}, nil
}

func scanQuote(row pgx.Row) (Quote, error) {
	var q Quote
	err := row.Scan(
		&q.ID, &q.QuoteNumber, &q.ClientID, &q.ClientName, &q.ClientEmail, &q.Status,
		&q.DiscountPercent, &q.UFValue, &q.ValidUntil, &q.Notes, &q.PDFFileKey, &q.CreatedBy,
		&q.CreatedAt, &q.UpdatedAt, &q.SentAt, &q.AcceptedAt, &q.VoidedAt,
	)
	return q, err
}

func resolveSortBy(sortBy string) (string, error) {
	if sortBy == "" {
		return "createdAt", nil
	}
	switch sortBy {
	case "quoteNumber", "status", "clientName", "validUntil", "createdAt", "updatedAt":
		return sortBy, nil
	default:
		return "", apperr.BadRequest("invalid sort field")
	}
}

func resolveSortOrder(sortOrder string) (string, error) {
	if sortOrder == "" {
		return "desc", nil
	}
	switch sortOrder {
	case "asc", "desc":
		return sortOrder, nil
	default:
		return "", apperr.BadRequest("invalid sort order")
	}
}
