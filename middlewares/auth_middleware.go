package middlewares

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/homebites/metrics"
	"github.com/yeremiapane/homebites/models"
	"github.com/yeremiapane/homebites/utils"
)

// CurrentUserKey is the gin context key holding the resolved *models.User.
const CurrentUserKey = "current_user"

// Resolver turns a bearer token into a user.
type Resolver interface {
	Resolve(ctx context.Context, token string) (*models.User, error)
}

// AuthMiddleware resolves the Authorization bearer token and stores the
// caller on the context. Any failure is a 401.
func AuthMiddleware(resolver Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		authenticate(c, resolver, bearerToken(c.GetHeader("Authorization")))
	}
}

// WebSocketAuthMiddleware reads the token from the query string because
// browsers cannot set headers on a websocket handshake.
func WebSocketAuthMiddleware(resolver Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			token = bearerToken(c.GetHeader("Authorization"))
		}
		authenticate(c, resolver, token)
	}
}

func authenticate(c *gin.Context, resolver Resolver, token string) {
	user, err := resolver.Resolve(c.Request.Context(), token)
	if err != nil {
		if utils.IsKind(err, utils.KindUnauthenticated) {
			metrics.AuthFailures.WithLabelValues("token").Inc()
		}
		utils.AbortWithError(c, err)
		return
	}
	c.Set(CurrentUserKey, user)
	c.Next()
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// CurrentUser returns the caller stored by the auth middleware, or nil.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(CurrentUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}
