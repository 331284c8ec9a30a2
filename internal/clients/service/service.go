package service

import (
	"context"
	"strings"
	"time"

	"scada_quote_backend/internal/clients/repository"
	"scada_quote_backend/internal/clients/transport"
	"scada_quote_backend/platform/apperr"
	"scada_quote_backend/platform/logger"
	"scada_quote_backend/platform/phone"
	"scada_quote_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	maxNameLength   = 200

	msgInvalidPhone = "invalid phone number"
)

// Service provides business logic for the client directory.
type Service struct {
	repo repository.Repository
	log  *logger.Logger
}

// New creates a new clients service.
func New(repo repository.Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Create stores a client with its phone normalized to E.164.
func (s *Service) Create(ctx context.Context, req transport.CreateClientRequest) (transport.ClientResponse, error) {
	name := sanitize.Label(req.Name, maxNameLength)
	if name == "" {
		return transport.ClientResponse{}, apperr.Validation("name is required")
	}

	phoneNumber, err := normalizePhone(req.Phone)
	if err != nil {
		return transport.ClientResponse{}, err
	}

	client, err := s.repo.Create(ctx, repository.CreateClientParams{
		ID:      uuid.New(),
		Name:    name,
		Company: sanitize.Label(req.Company, maxNameLength),
		Email:   normalizeEmail(req.Email),
		Phone:   phoneNumber,
		RUT:     normalizeRUT(req.RUT),
	})
	if err != nil {
		return transport.ClientResponse{}, err
	}

	s.log.WithContext(ctx).Info("client created", "id", client.ID)
	return toClientResponse(client), nil
}

// Update edits a client. Omitted fields are kept.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.UpdateClientRequest) (transport.ClientResponse, error) {
	params := repository.UpdateClientParams{ID: id}

	if req.Name != nil {
		name := sanitize.Label(*req.Name, maxNameLength)
		if name == "" {
			return transport.ClientResponse{}, apperr.Validation("name is required")
		}
		params.Name = &name
	}
	if req.Company != nil {
		company := sanitize.Label(*req.Company, maxNameLength)
		params.Company = &company
	}
	if req.Email != nil {
		email := normalizeEmail(*req.Email)
		params.Email = &email
	}
	if req.Phone != nil {
		phoneNumber, err := normalizePhone(*req.Phone)
		if err != nil {
			return transport.ClientResponse{}, err
		}
		params.Phone = &phoneNumber
	}
	if req.RUT != nil {
		rut := normalizeRUT(*req.RUT)
		params.RUT = &rut
	}

	client, err := s.repo.Update(ctx, params)
	if err != nil {
		return transport.ClientResponse{}, err
	}
	return toClientResponse(client), nil
}

// GetByID returns a single client.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.ClientResponse, error) {
	client, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.ClientResponse{}, err
	}
	return toClientResponse(client), nil
}

// List retrieves clients with search and pagination.
func (s *Service) List(ctx context.Context, req transport.ListClientsRequest) (transport.ClientListResponse, error) {
	page := req.Page
	pageSize := req.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	items, total, err := s.repo.List(ctx, repository.ListClientsParams{
		Search:    strings.TrimSpace(req.Search),
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
		Offset:    (page - 1) * pageSize,
		Limit:     pageSize,
	})
	if err != nil {
		return transport.ClientListResponse{}, err
	}

	resp := transport.ClientListResponse{
		Items:      make([]transport.ClientResponse, 0, len(items)),
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + pageSize - 1) / pageSize,
	}
	for _, c := range items {
		resp.Items = append(resp.Items, toClientResponse(c))
	}
	return resp, nil
}

// Lookup returns the stored client record for other modules.
func (s *Service) Lookup(ctx context.Context, id uuid.UUID) (repository.Client, error) {
	return s.repo.GetByID(ctx, id)
}

func normalizePhone(input string) (string, error) {
	if strings.TrimSpace(input) == "" {
		return "", nil
	}
	normalized, ok := phone.Parse(input)
	if !ok {
		return "", apperr.Validation(msgInvalidPhone)
	}
	return normalized, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// normalizeRUT strips dots and spaces and upper-cases the check digit.
func normalizeRUT(rut string) string {
	r := strings.NewReplacer(".", "", " ", "")
	return strings.ToUpper(r.Replace(strings.TrimSpace(rut)))
}

func toClientResponse(c repository.Client) transport.ClientResponse {
	return transport.ClientResponse{
		ID:        c.ID,
		Name:      c.Name,
		Company:   c.Company,
		Email:     c.Email,
		Phone:     c.Phone,
		RUT:       c.RUT,
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
		UpdatedAt: c.UpdatedAt.Format(time.RFC3339),
	}
}
