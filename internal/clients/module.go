// Package clients provides the client directory module.
package clients

import (
	"scada_quote_backend/internal/clients/handler"
	"scada_quote_backend/internal/clients/repository"
	"scada_quote_backend/internal/clients/service"
	apphttp "scada_quote_backend/internal/http"
	"scada_quote_backend/platform/logger"
	"scada_quote_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the clients module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the clients module.
func NewModule(pool *pgxpool.Pool, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), log)
	return &Module{handler: handler.New(svc, val), service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "clients"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts client routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/clients", m.handler.List)
	ctx.Protected.GET("/clients/:id", m.handler.GetByID)

	ctx.Writers.POST("/clients", m.handler.Create)
	ctx.Writers.PUT("/clients/:id", m.handler.Update)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
