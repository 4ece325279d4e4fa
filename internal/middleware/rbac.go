package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/campusworks/sis-export-api/internal/models"
	appErrors "github.com/campusworks/sis-export-api/pkg/errors"
	"github.com/campusworks/sis-export-api/pkg/response"
)

// RequireRoles allows the request through only when the authenticated role is
// in the allow list. Superadmins always pass.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(c *gin.Context) {
		claims, ok := ClaimsFromContext(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if claims.Role == models.RoleSuperAdmin {
			c.Next()
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "insufficient role"))
			c.Abort()
			return
		}
		c.Next()
	}
}
