// Package auth verifies the bearer tokens issued by the ITAM backend and
// exposes the caller to handlers as a models.Viewer.
package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/example/itamdash/internal/itam"
	"github.com/example/itamdash/internal/models"
)

const (
	viewerKey   = "viewer"
	tokenCookie = "token"
)

// Claims is the token payload the backend signs.
type Claims struct {
	UserID   string `json:"userId"`
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Sign issues an HS256 token. The gateway never issues user tokens; this
// serves the export CLI and tests.
func Sign(secret string, c Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	c.IssuedAt = jwt.NewNumericDate(now)
	c.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
	return token, errors.WithStack(err)
}

// Parse validates token and returns its claims.
func Parse(secret, token string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, errors.Wrap(err, "parse token")
	}
	c, ok := t.Claims.(*Claims)
	if !ok || !t.Valid || c.UserID == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return c, nil
}

// Viewer converts claims to the viewer used by the list pipeline.
func (c *Claims) Viewer() models.Viewer {
	role := models.Role(strings.ToLower(c.Role))
	if role == "" {
		role = models.RoleUser
	}
	return models.Viewer{UserID: c.UserID, Username: c.Username, Role: role}
}

func bearer(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if v, err := c.Cookie(tokenCookie); err == nil {
		return v
	}
	return ""
}

// Middleware rejects requests without a valid token. Accepted requests carry
// the viewer in the gin context and the raw token in the request context,
// from where the ITAM client forwards it.
func Middleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearer(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		claims, err := Parse(secret, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		c.Set(viewerKey, claims.Viewer())
		c.Request = c.Request.WithContext(itam.WithToken(c.Request.Context(), token))
		c.Next()
	}
}

// RequireAdmin rejects non-admin viewers with 403.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ViewerFrom(c).IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}
		c.Next()
	}
}

// ViewerFrom returns the viewer set by Middleware.
func ViewerFrom(c *gin.Context) models.Viewer {
	if v, ok := c.Get(viewerKey); ok {
		if viewer, ok := v.(models.Viewer); ok {
			return viewer
		}
	}
	return models.Viewer{}
}
