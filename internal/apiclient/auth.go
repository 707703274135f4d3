package apiclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/simp-lee/mailsync/internal/domain"
)

// TokenResponse is the payload of the login, register and refresh endpoints.
type TokenResponse struct {
	Token        string          `json:"token"`
	RefreshToken string          `json:"refresh_token,omitempty"`
	ExpiresAt    int64           `json:"expires_at"`
	Account      *domain.Account `json:"account,omitempty"`
}

// Login exchanges credentials for tokens and stores the session.
func (c *Client) Login(ctx context.Context, email, password string) (*TokenResponse, error) {
	return c.authenticate(ctx, "login", map[string]string{"email": email, "password": password})
}

// Register creates an account and stores the resulting session.
func (c *Client) Register(ctx context.Context, name, email, password string) (*TokenResponse, error) {
	return c.authenticate(ctx, "register", map[string]string{"name": name, "email": email, "password": password})
}

func (c *Client) authenticate(ctx context.Context, action string, body map[string]string) (*TokenResponse, error) {
	var tr TokenResponse
	if _, err := c.Do(ctx, Request{
		Method:    http.MethodPost,
		Path:      []string{"auth", action},
		Body:      body,
		Anonymous: true,
	}, &tr); err != nil {
		return nil, err
	}

	sess := Session{Token: tr.Token, RefreshToken: tr.RefreshToken, Credentials: &Credentials{Email: body["email"]}}
	if tr.Account != nil {
		sess.Credentials.Name = tr.Account.Name
	}
	c.gate.Lock()
	defer c.gate.Unlock()
	if err := c.tokens.Save(sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return &tr, nil
}

// Logout forgets the stored session.
func (c *Client) Logout() error {
	c.gate.Lock()
	defer c.gate.Unlock()
	return c.tokens.Clear()
}

// Refresh rotates the access token using the stored refresh token and
// rewrites only the token field of the session. Requests issued while it
// runs wait for it; requests already sent keep the old token.
func (c *Client) Refresh(ctx context.Context) error {
	c.gate.Lock()
	defer c.gate.Unlock()

	sess, err := c.tokens.Load()
	if err != nil {
		return err
	}
	if sess.RefreshToken == "" {
		return ErrNoSession
	}

	var tr TokenResponse
	if _, err := c.Do(ctx, Request{
		Method:    http.MethodPost,
		Path:      []string{"auth", "refresh"},
		Body:      map[string]string{"refresh_token": sess.RefreshToken},
		Anonymous: true,
	}, &tr); err != nil {
		return err
	}
	if tr.Token == "" {
		return errors.New("refresh returned an empty token")
	}
	if err := c.tokens.UpdateToken(tr.Token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// StartRefresher calls Refresh every interval until ctx is done or the
// returned stop function is called. stop waits for the goroutine to exit.
func (c *Client) StartRefresher(ctx context.Context, interval time.Duration) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				err := c.Refresh(ctx)
				switch {
				case err == nil:
					c.logger.DebugContext(ctx, "access token refreshed")
				case errors.Is(err, ErrNoSession), errors.Is(err, context.Canceled):
				default:
					c.logger.WarnContext(ctx, "token refresh failed", slog.String("error", err.Error()))
				}
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}
