package resource

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type routeRegistrar interface {
	RegisterRoutes(api *gin.RouterGroup)
}

// Module registers the CRUD routes of every resource plus the contact import,
// group membership and domain record endpoints.
type Module struct {
	routes []routeRegistrar
}

// NewModule wires a repository, service and handler for each resource.
// Panics if db is nil.
func NewModule(db *gorm.DB, logger *slog.Logger) *Module {
	if db == nil {
		panic("resource.NewModule: db must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	contacts := NewRepository(db, Contacts)
	groups := NewRepository(db, ContactGroups)
	domains := NewRepository(db, Domains)

	return &Module{routes: []routeRegistrar{
		newContactHandler(db, logger),
		newGroupHandler(groups, contacts, logger),
		newDomainHandler(domains),
		crud(db, Contacts, contacts, logger),
		crud(db, ContactGroups, groups, logger),
		crud(db, Campaigns, nil, logger),
		crud(db, Domains, domains, logger),
		crud(db, Senders, nil, logger),
		crud(db, Tickets, nil, logger),
		crud(db, Plans, nil, logger),
		crud(db, Billing, nil, logger),
	}}
}

func crud[T any](db *gorm.DB, def Definition[T], repo *Repository[T], logger *slog.Logger) *Handler[T] {
	if repo == nil {
		repo = NewRepository(db, def)
	}
	return NewHandler(def, NewService(def, repo, logger))
}

// RegisterRoutes registers every resource route on api.
func (m *Module) RegisterRoutes(api *gin.RouterGroup) {
	for _, r := range m.routes {
		r.RegisterRoutes(api)
	}
}
