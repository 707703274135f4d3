package auth

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/simp-lee/mailsync/internal/domain"
)

// Service defines the authentication operations.
type Service interface {
	Register(ctx context.Context, name, email, password string) (*TokenResponse, error)
	Login(ctx context.Context, email, password string) (*TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error)
}

type authService struct {
	tokens *TokenIssuer
	repo   AccountRepository
	logger *slog.Logger
}

// NewService creates an auth Service.
func NewService(tokens *TokenIssuer, repo AccountRepository, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &authService{tokens: tokens, repo: repo, logger: logger}
}

func (s *authService) Register(ctx context.Context, name, email, password string) (*TokenResponse, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" {
		return nil, domain.NewAppError(domain.CodeValidation, "name is required", nil)
	}
	if len(password) < 8 || len(password) > 72 {
		return nil, domain.NewAppError(domain.CodeValidation, "password must be between 8 and 72 characters", nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, domain.NewAppError(domain.CodeInternal, "failed to hash password", err)
	}

	account := domain.Account{Name: name, Email: email, PasswordHash: string(hash)}
	if err := s.repo.Create(ctx, &account); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "account registered", slog.String("account_id", account.ID))

	return s.issuePair(&account)
}

func (s *authService) Login(ctx context.Context, email, password string) (*TokenResponse, error) {
	account, err := s.repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		// Unknown email and wrong password are indistinguishable to the caller.
		if domain.IsNotFound(err) {
			return nil, domain.NewAppError(domain.CodeUnauthorized, "invalid email or password", nil)
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, domain.NewAppError(domain.CodeUnauthorized, "invalid email or password", nil)
	}

	return s.issuePair(account)
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	accountID, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, domain.NewAppError(domain.CodeUnauthorized, "invalid or expired refresh token", err)
	}
	if _, err := s.repo.GetByID(ctx, accountID); err != nil {
		if domain.IsNotFound(err) {
			return nil, domain.NewAppError(domain.CodeUnauthorized, "account no longer exists", err)
		}
		return nil, err
	}

	token, exp, err := s.tokens.IssueAccess(accountID)
	if err != nil {
		return nil, domain.NewAppError(domain.CodeInternal, "failed to generate token", err)
	}
	return &TokenResponse{Token: token, ExpiresAt: exp.Unix()}, nil
}

func (s *authService) issuePair(account *domain.Account) (*TokenResponse, error) {
	token, exp, err := s.tokens.IssueAccess(account.ID)
	if err != nil {
		return nil, domain.NewAppError(domain.CodeInternal, "failed to generate token", err)
	}
	refresh, _, err := s.tokens.IssueRefresh(account.ID)
	if err != nil {
		return nil, domain.NewAppError(domain.CodeInternal, "failed to generate refresh token", err)
	}
	return &TokenResponse{
		Token:        token,
		RefreshToken: refresh,
		ExpiresAt:    exp.Unix(),
		Account:      account,
	}, nil
}
