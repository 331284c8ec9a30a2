// Package http holds the contract between the router and the domain modules
// that mount routes on it.
package http

import (
	"context"

	"scada_quote_backend/platform/config"
	"scada_quote_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

// Module is a domain package that serves part of /api/v1.
type Module interface {
	Name() string
	RegisterRoutes(groups *RouterContext)
}

// RouterContext carries the authenticated /api/v1 groups, one per access tier.
// Every group already runs the JWT check.
type RouterContext struct {
	// Protected admits any role.
	Protected *gin.RouterGroup
	// Writers admits admin and operator.
	Writers *gin.RouterGroup
	// Admin admits admin only.
	Admin *gin.RouterGroup
}

// RouterConfig is the slice of the process configuration the router reads.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
}

// HealthChecker backs /api/ready. A nil checker always reports ready.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App is what cmd/api hands to router.New once every module is built.
type App struct {
	Config  RouterConfig
	Logger  *logger.Logger
	Health  HealthChecker
	Modules []Module
}
