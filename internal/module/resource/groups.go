package resource

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/simp-lee/mailsync/internal/domain"
	"github.com/simp-lee/mailsync/internal/pkg"
)

type groupHandler struct {
	groups   *Repository[domain.ContactGroup]
	contacts *Repository[domain.Contact]
	logger   *slog.Logger
}

func newGroupHandler(groups *Repository[domain.ContactGroup], contacts *Repository[domain.Contact], logger *slog.Logger) *groupHandler {
	return &groupHandler{groups: groups, contacts: contacts, logger: logger}
}

func (h *groupHandler) RegisterRoutes(api *gin.RouterGroup) {
	g := api.Group(ContactGroups.Path + "/:id/contacts")
	g.GET("", h.Members)
	g.POST("/:contact_id", h.Associate)
	g.DELETE("/:contact_id", h.Dissociate)
}

// Members handles GET /contact-groups/:id/contacts.
func (h *groupHandler) Members(c *gin.Context) {
	ctx := c.Request.Context()
	groupID := c.Param("id")
	if _, err := h.groups.Get(ctx, groupID); err != nil {
		pkg.Error(c, err)
		return
	}

	page, err := h.contacts.listWhere(ctx, pkg.ParsePageRequest(c), func(db *gorm.DB) *gorm.DB {
		return db.Where("id IN (?)", h.groups.db.Model(&domain.GroupMembership{}).
			Select("contact_id").Where("group_id = ?", groupID))
	})
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.List(c, page)
}

// Associate handles POST /contact-groups/:id/contacts/:contact_id. Adding a
// contact that is already a member succeeds without change.
func (h *groupHandler) Associate(c *gin.Context) {
	ctx := c.Request.Context()
	m := domain.Membership{GroupID: c.Param("id"), ContactID: c.Param("contact_id")}
	if err := h.associate(ctx, m); err != nil {
		pkg.Error(c, err)
		return
	}
	h.logger.InfoContext(ctx, "contact added to group",
		slog.String("group_id", m.GroupID), slog.String("contact_id", m.ContactID))
	pkg.Respond(c, http.StatusOK, "contact added to group", m)
}

// Dissociate handles DELETE /contact-groups/:id/contacts/:contact_id.
func (h *groupHandler) Dissociate(c *gin.Context) {
	ctx := c.Request.Context()
	m := domain.Membership{GroupID: c.Param("id"), ContactID: c.Param("contact_id")}

	result := h.groups.db.WithContext(ctx).
		Where("group_id = ? AND contact_id = ?", m.GroupID, m.ContactID).
		Delete(&domain.GroupMembership{})
	if result.Error != nil {
		pkg.Error(c, pkg.MapDBError(result.Error, "membership"))
		return
	}
	if result.RowsAffected == 0 {
		pkg.Error(c, domain.NewAppError(domain.CodeNotFound, "contact is not a member of this group", nil))
		return
	}
	h.logger.InfoContext(ctx, "contact removed from group",
		slog.String("group_id", m.GroupID), slog.String("contact_id", m.ContactID))
	pkg.Respond(c, http.StatusOK, "contact removed from group", m)
}

func (h *groupHandler) associate(ctx context.Context, m domain.Membership) error {
	if _, err := h.groups.Get(ctx, m.GroupID); err != nil {
		return err
	}
	if _, err := h.contacts.Get(ctx, m.ContactID); err != nil {
		return err
	}
	err := h.groups.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&domain.GroupMembership{GroupID: m.GroupID, ContactID: m.ContactID}).Error
	return pkg.MapDBError(err, "membership")
}
