package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/simp-lee/logger"

	"github.com/simp-lee/mailsync/internal/pkg"
)

const accountIDContextKey = "account_id"

// TokenVerifier validates an access token and returns the account it was
// issued to.
type TokenVerifier interface {
	VerifyAccess(token string) (accountID string, err error)
}

// Auth requires a valid "Authorization: Bearer <token>" header on every
// request whose path is not in publicPaths. Public paths match exactly or as a
// "/"-bounded prefix.
func Auth(verifier TokenVerifier, publicPaths ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if isPublicPath(c.Request.URL.Path, publicPaths) {
			c.Next()
			return
		}

		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			pkg.Fail(c, http.StatusUnauthorized, "missing bearer token")
			c.Abort()
			return
		}

		accountID, err := verifier.VerifyAccess(token)
		if err != nil {
			slog.DebugContext(c.Request.Context(), "access token rejected", slog.String("error", err.Error()))
			pkg.Fail(c, http.StatusUnauthorized, "invalid or expired token")
			c.Abort()
			return
		}

		c.Set(accountIDContextKey, accountID)
		ctx := logger.WithContextAttrs(c.Request.Context(), slog.String("account_id", accountID))
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetAccountID returns the authenticated account, or "" on public routes.
func GetAccountID(c *gin.Context) string {
	if id, ok := c.Get(accountIDContextKey); ok {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func isPublicPath(path string, publicPaths []string) bool {
	for _, p := range publicPaths {
		if path == p || strings.HasPrefix(path, strings.TrimSuffix(p, "/")+"/") {
			return true
		}
	}
	return false
}
