package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

var ErrUnauthenticated = errors.New("unauthenticated")

// Identity is the caller as established by an Authenticator.
type Identity struct {
	UserID string
	Admin  bool
}

// Authenticator resolves a bearer token to an Identity. Session issuance
// lives outside this server.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (Identity, error)
}

// TokenEntry binds a static bearer token to an identity.
type TokenEntry struct {
	Token  string `mapstructure:"token"`
	UserID string `mapstructure:"user-id"`
	Admin  bool   `mapstructure:"admin"`
}

// StaticTokens authenticates against a fixed token table.
type StaticTokens []TokenEntry

func (s StaticTokens) Authenticate(_ context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrUnauthenticated
	}
	var (
		found bool
		id    Identity
	)
	// walk every entry so timing does not reveal the matching position
	for _, e := range s {
		if subtle.ConstantTimeCompare([]byte(e.Token), []byte(token)) == 1 && !found {
			found = true
			id = Identity{UserID: e.UserID, Admin: e.Admin}
		}
	}
	if !found || id.UserID == "" {
		return Identity{}, ErrUnauthenticated
	}
	return id, nil
}

const identityKey = "identity"

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// requireAuth rejects requests without a valid session; adminOnly further
// restricts the route to administrators.
func (s *Server) requireAuth(adminOnly bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := s.auth.Authenticate(c.Request.Context(), bearerToken(c))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "unauthenticated",
				"message": "authentication required",
			})
			return
		}
		if adminOnly && !id.Admin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"error":   "forbidden",
				"message": "administrator access required",
			})
			return
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

func identity(c *gin.Context) Identity {
	id, _ := c.MustGet(identityKey).(Identity)
	return id
}
