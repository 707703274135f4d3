package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseEntity is the common base struct for every resource.
// DeletedAt uses gorm's soft delete so removed rows drop out of default queries.
type BaseEntity struct {
	ID        string         `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at"`
}

// BeforeCreate assigns a random UUID when the caller did not supply one.
func (b *BaseEntity) BeforeCreate(*gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// ResetIdentity clears the server-owned fields so client input cannot set them.
func (b *BaseEntity) ResetIdentity() {
	b.ID = ""
	b.CreatedAt = time.Time{}
	b.UpdatedAt = time.Time{}
	b.DeletedAt = gorm.DeletedAt{}
}

// EntityID returns the immutable identifier of the entity.
func (b BaseEntity) EntityID() string {
	return b.ID
}

// PageRequest holds pagination and search parameters for list endpoints.
type PageRequest struct {
	Page     int
	PageSize int
	Search   string
}
