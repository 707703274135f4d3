package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/simp-lee/mailsync/internal/pkg"
)

// RouteDeps holds all dependencies needed to register routes.
type RouteDeps struct {
	Modules []Module
	DB      *gorm.DB
	// APIMiddleware runs on every /api/v1 route, after the global chain.
	APIMiddleware []gin.HandlerFunc
}

// HealthStatus is the payload of GET /health.
type HealthStatus struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}

// RegisterRoutes registers all application routes on the given gin.Engine.
func RegisterRoutes(r *gin.Engine, deps *RouteDeps) error {
	if r == nil {
		return errors.New("router is nil")
	}
	if deps == nil {
		return errors.New("route dependencies are nil")
	}
	if len(deps.Modules) == 0 {
		return errors.New("at least one module is required")
	}

	r.GET(healthPath, healthHandler(deps.DB))

	api := r.Group(apiPrefix, deps.APIMiddleware...)
	for i, m := range deps.Modules {
		if m == nil {
			return fmt.Errorf("module at index %d is nil", i)
		}
		m.RegisterRoutes(api)
	}

	r.NoRoute(noRouteHandler())
	r.NoMethod(noMethodHandler())
	r.HandleMethodNotAllowed = true

	return nil
}

// healthHandler returns a handler that pings the database and reports status.
func healthHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		health := HealthStatus{Status: "ok", Components: map[string]string{"database": "ok"}}
		if err := pingDB(c.Request.Context(), db); err != nil {
			health.Status = "degraded"
			health.Components["database"] = "error"
			pkg.Respond(c, http.StatusServiceUnavailable, "service degraded", health)
			return
		}
		pkg.Success(c, health)
	}
}

func pingDB(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return errors.New("database is nil")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

func noRouteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		pkg.Fail(c, http.StatusNotFound, "no route for "+c.Request.Method+" "+c.Request.URL.Path)
	}
}

func noMethodHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		pkg.Fail(c, http.StatusMethodNotAllowed, c.Request.Method+" is not allowed on "+c.Request.URL.Path)
	}
}
