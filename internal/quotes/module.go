// Package quotes provides the quotes (cotizaciones) domain module.
package quotes

import (
	"scada_quote_backend/internal/events"
	apphttp "scada_quote_backend/internal/http"
	"scada_quote_backend/internal/quotes/handler"
	"scada_quote_backend/internal/quotes/repository"
	"scada_quote_backend/internal/quotes/service"
	"scada_quote_backend/platform/config"
	"scada_quote_backend/platform/logger"
	"scada_quote_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the quotes domain module
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new quotes module with all dependencies wired.
// Optional collaborators (client directory, PDF rendering, storage, job
// queue) are injected on Service().
func NewModule(pool *pgxpool.Pool, catalog service.CatalogReader, cfg config.PricingConfig, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, catalog, cfg, log)
	svc.SetEventBus(bus)

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "quotes"
}

// Service returns the service layer for external use
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes registers the module's routes
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterReadRoutes(ctx.Protected.Group("/quotes"))
	m.handler.RegisterWriteRoutes(ctx.Writers.Group("/quotes"))
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/quotes"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
