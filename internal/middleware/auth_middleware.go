package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/dealership-api/internal/domain/entity"
	apperrors "github.com/yourusername/dealership-api/internal/pkg/errors"
	"github.com/yourusername/dealership-api/pkg/auth"
)

// Context keys set by RequireAuth.
const (
	ContextUserID = "user_id"
	ContextRole   = "role"
)

// UserLookup loads the account behind a token.
type UserLookup interface {
	GetByID(ctx context.Context, id uint) (*entity.User, error)
}

// AuthMiddleware guards routes with access tokens.
type AuthMiddleware struct {
	jwtService *auth.JWTService
	users      UserLookup
}

func NewAuthMiddleware(jwtService *auth.JWTService, users UserLookup) *AuthMiddleware {
	return &AuthMiddleware{jwtService: jwtService, users: users}
}

// RequireAuth validates the Bearer access token, loads the account and stores
// the caller in the gin context. The role comes from the stored account, not
// the token, so role changes and deactivation apply to live sessions.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required", "error_type": "token_missing"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer {token}", "error_type": "token_format"})
			return
		}

		claims, err := m.jwtService.ParseAccessToken(strings.TrimSpace(parts[1]))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token", "error_type": "token_invalid"})
			return
		}

		user, err := m.users.GetByID(c.Request.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token", "error_type": "token_invalid"})
				return
			}
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		if !user.Active {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Account is disabled", "error_type": "account_disabled"})
			return
		}

		c.Set(ContextUserID, user.ID)
		c.Set(ContextRole, user.Role)
		c.Next()
	}
}

// RequireRole must run after RequireAuth.
func (m *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ContextRole)
		if role == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions", "error_type": "forbidden"})
	}
}

// UserID returns the authenticated user id, or false outside RequireAuth.
func UserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok && id != 0
}
