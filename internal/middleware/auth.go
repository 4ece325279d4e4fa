package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campusworks/sis-export-api/internal/models"
	"github.com/campusworks/sis-export-api/internal/service"
	appErrors "github.com/campusworks/sis-export-api/pkg/errors"
	"github.com/campusworks/sis-export-api/pkg/response"
)

// ContextUserKey locates the authenticated claims on the gin context.
const ContextUserKey = "currentUser"

// JWT authenticates requests with a bearer token and stores the claims on the
// context.
func JWT(auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "missing authorization header"))
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		claims, err := auth.ValidateToken(parts[1])
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, claims)
		c.Next()
	}
}

// ClaimsFromContext extracts the authenticated claims set by JWT.
func ClaimsFromContext(c *gin.Context) (*models.JWTClaims, bool) {
	value, ok := c.Get(ContextUserKey)
	if !ok {
		return nil, false
	}
	claims, ok := value.(*models.JWTClaims)
	return claims, ok
}
