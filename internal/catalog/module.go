// Package catalog provides the catalog bounded context module.
package catalog

import (
	"scada_quote_backend/internal/catalog/handler"
	"scada_quote_backend/internal/catalog/repository"
	"scada_quote_backend/internal/catalog/service"
	"scada_quote_backend/internal/events"
	apphttp "scada_quote_backend/internal/http"
	"scada_quote_backend/platform/logger"
	"scada_quote_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the catalog bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the catalog module.
func NewModule(pool *pgxpool.Pool, cache service.Cache, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, cache, log)
	svc.SetEventBus(bus)

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "catalog"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts catalog routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/catalog", m.handler.GetCatalog)
	ctx.Protected.GET("/catalog/entries", m.handler.ListEntries)

	ctx.Admin.PUT("/catalog/entries/:id", m.handler.UpdateEntry)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
