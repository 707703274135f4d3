package auth

import "github.com/gin-gonic/gin"

// Module registers the auth routes.
type Module struct {
	handler *Handler
}

// NewModule creates a Module. Panics if h is nil.
func NewModule(h *Handler) *Module {
	if h == nil {
		panic("auth.NewModule: handler must not be nil")
	}
	return &Module{handler: h}
}

// RegisterRoutes registers the auth API routes.
func (m *Module) RegisterRoutes(api *gin.RouterGroup) {
	auth := api.Group("/auth")
	auth.POST("/register", m.handler.Register)
	auth.POST("/login", m.handler.Login)
	auth.POST("/refresh", m.handler.Refresh)
}
