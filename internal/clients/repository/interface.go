package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Client is a stored client record.
type Client struct {
	ID        uuid.UUID `db:"id"`
	Name      string    `db:"name"`
	Company   string    `db:"company"`
	Email     string    `db:"email"`
	Phone     string    `db:"phone"`
	RUT       string    `db:"rut"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type CreateClientParams struct {
	ID      uuid.UUID
	Name    string
	Company string
	Email   string
	Phone   string
	RUT     string
}

// UpdateClientParams holds editable fields. Nil fields are kept.
type UpdateClientParams struct {
	ID      uuid.UUID
	Name    *string
	Company *string
	Email   *string
	Phone   *string
	RUT     *string
}

type ListClientsParams struct {
	Search    string
	SortBy    string
	SortOrder string
	Offset    int
	Limit     int
}

// Repository persists clients.
type Repository interface {
	Create(ctx context.Context, params CreateClientParams) (Client, error)
	Update(ctx context.Context, params UpdateClientParams) (Client, error)
	GetByID(ctx context.Context, id uuid.UUID) (Client, error)
	// List matches Search against name, company, email and rut.
	List(ctx context.Context, params ListClientsParams) ([]Client, int, error)
}
