package auth

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/simp-lee/mailsync/internal/domain"
	"github.com/simp-lee/mailsync/internal/pkg"
)

// AccountRepository persists accounts.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	GetByID(ctx context.Context, id string) (*domain.Account, error)
}

type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates an AccountRepository backed by GORM.
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	account.Email = strings.ToLower(account.Email)
	return pkg.MapDBError(r.db.WithContext(ctx).Create(account).Error, "account")
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	var account domain.Account
	err := r.db.WithContext(ctx).Where("email = ?", strings.ToLower(email)).First(&account).Error
	if err != nil {
		return nil, pkg.MapDBError(err, "account")
	}
	return &account, nil
}

func (r *accountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	var account domain.Account
	if err := r.db.WithContext(ctx).First(&account, "id = ?", id).Error; err != nil {
		return nil, pkg.MapDBError(err, "account")
	}
	return &account, nil
}
