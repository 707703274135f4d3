package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/mailsync/internal/pkg"
)

// Handler serves the auth endpoints.
type Handler struct {
	svc Service
}

// NewHandler creates a Handler with the given service.
func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// Register handles POST /api/v1/auth/register.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	resp, err := h.svc.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Created(c, "account registered successfully", resp)
}

// Login handles POST /api/v1/auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	resp, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Respond(c, http.StatusOK, "logged in successfully", resp)
}

// Refresh handles POST /api/v1/auth/refresh.
func (h *Handler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	resp, err := h.svc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, resp)
}
