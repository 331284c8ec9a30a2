package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"scada_quote_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	clientNotFoundMsg  = "client not found"
	duplicateEmailMsg  = "a client with this email already exists"
	uniqueViolationSQL = "23505"
)

const clientColumns = `id, name, company, email, phone, rut, created_at, updated_at`

// PostgresRepository implements Repository with pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// New creates a client repository.
func New(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Create(ctx context.Context, params CreateClientParams) (Client, error) {
	query := `
		INSERT INTO clients (id, name, company, email, phone, rut)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + clientColumns

	c, err := scanClient(r.pool.QueryRow(ctx, query,
		params.ID, params.Name, params.Company, params.Email, params.Phone, params.RUT,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return Client{}, apperr.Conflict(duplicateEmailMsg)
		}
		return Client{}, fmt.Errorf("failed to create client: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) Update(ctx context.Context, params UpdateClientParams) (Client, error) {
	query := `
		UPDATE clients SET
			name = COALESCE($2, name),
			company = COALESCE($3, company),
			email = COALESCE($4, email),
			phone = COALESCE($5, phone),
			rut = COALESCE($6, rut),
			updated_at = now()
		WHERE id = $1
		RETURNING ` + clientColumns

	c, err := scanClient(r.pool.QueryRow(ctx, query,
		params.ID, params.Name, params.Company, params.Email, params.Phone, params.RUT,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Client{}, apperr.NotFound(clientNotFoundMsg)
		}
		if isUniqueViolation(err) {
			return Client{}, apperr.Conflict(duplicateEmailMsg)
		}
		return Client{}, fmt.Errorf("failed to update client: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (Client, error) {
	c, err := scanClient(r.pool.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Client{}, apperr.NotFound(clientNotFoundMsg)
		}
		return Client{}, fmt.Errorf("failed to get client: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) List(ctx context.Context, params ListClientsParams) ([]Client, int, error) {
	whereClauses := []string{"TRUE"}
	args := []any{}
	argIdx := 1

	if params.Search != "" {
		whereClauses = append(whereClauses, fmt.Sprintf(
			"(name ILIKE $%[1]d OR company ILIKE $%[1]d OR email ILIKE $%[1]d OR rut ILIKE $%[1]d)", argIdx))
		args = append(args, "%"+params.Search+"%")
		argIdx++
	}

	whereClause := strings.Join(whereClauses, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM clients WHERE "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count clients: %w", err)
	}

	sortColumn := "name"
	switch params.SortBy {
	case "company":
		sortColumn = "company"
	case "email":
		sortColumn = "email"
	case "createdAt":
		sortColumn = "created_at"
	case "updatedAt":
		sortColumn = "updated_at"
	}

	sortOrder := "ASC"
	if params.SortOrder == "desc" {
		sortOrder = "DESC"
	}

	args = append(args, params.Limit, params.Offset)
	query := fmt.Sprintf(`
		SELECT %s
		FROM clients
		WHERE %s
		ORDER BY %s %s, name ASC
		LIMIT $%d OFFSET $%d
	`, clientColumns, whereClause, sortColumn, sortOrder, argIdx, argIdx+1)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	items := make([]Client, 0)
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan client: %w", err)
		}
		items = append(items, c)
	}
	if rows.Err() != nil {
		return nil, 0, fmt.Errorf("failed to iterate clients: %w", rows.Err())
	}

	return items, total, nil
}

func scanClient(row pgx.Row) (Client, error) {
	var c Client
	err := row.Scan(&c.ID, &c.Name, &c.Company, &c.Email, &c.Phone, &c.RUT, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationSQL
}

var _ Repository = (*PostgresRepository)(nil)
