package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/homebites/services"
	"github.com/yeremiapane/homebites/utils"
)

// RoleCheck rejects callers that do not hold role. It must run after
// AuthMiddleware.
func RoleCheck(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := services.RequireRole(CurrentUser(c), role); err != nil {
			utils.AbortWithError(c, err)
			return
		}
		c.Next()
	}
}
