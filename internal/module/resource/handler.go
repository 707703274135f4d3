package resource

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/mailsync/internal/pkg"
)

// Handler serves the CRUD endpoints of one resource.
type Handler[T any] struct {
	def Definition[T]
	svc Service[T]
}

// NewHandler creates a Handler.
func NewHandler[T any](def Definition[T], svc Service[T]) *Handler[T] {
	return &Handler[T]{def: def, svc: svc}
}

// RegisterRoutes mounts the collection and item routes under the resource path.
func (h *Handler[T]) RegisterRoutes(api *gin.RouterGroup) {
	g := api.Group(h.def.Path)
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}

// List handles GET {path}?page=&page_size=&search=.
func (h *Handler[T]) List(c *gin.Context) {
	page, err := h.svc.List(c.Request.Context(), pkg.ParsePageRequest(c))
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.List(c, page)
}

// Get handles GET {path}/:id.
func (h *Handler[T]) Get(c *gin.Context) {
	item, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, item)
}

// Create handles POST {path}.
func (h *Handler[T]) Create(c *gin.Context) {
	item := new(T)
	if !pkg.BindAndValidate(c, item) {
		return
	}
	if err := h.svc.Create(c.Request.Context(), item); err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Created(c, h.def.Label+" created successfully", item)
}

// Update handles PUT {path}/:id.
func (h *Handler[T]) Update(c *gin.Context) {
	item := new(T)
	if !pkg.BindAndValidate(c, item) {
		return
	}
	updated, err := h.svc.Update(c.Request.Context(), c.Param("id"), item)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Respond(c, http.StatusOK, h.def.Label+" updated successfully", updated)
}

// Delete handles DELETE {path}/:id.
func (h *Handler[T]) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Respond(c, http.StatusOK, h.def.Label+" deleted successfully", gin.H{"id": id})
}
