package auth

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/wms-platform/slotting-simulator/pkg/errors"
	"github.com/wms-platform/slotting-simulator/pkg/middleware"
)

// Context keys set for authenticated requests
const (
	ContextKeySubject = "userId"
	ContextKeyRole    = "role"
)

// RequireRole rejects requests without a valid bearer token carrying one of
// roles. An empty secret disables the check.
func RequireRole(secret []byte, roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		if normalized, ok := NormalizeRole(role); ok {
			allowed[normalized] = true
		}
	}

	return func(c *gin.Context) {
		if len(secret) == 0 {
			c.Next()
			return
		}

		token := bearerToken(c.GetHeader("Authorization"))
		claims, err := ParseJWT(token, secret)
		if err != nil {
			middleware.AbortWithAppError(c, errors.ErrUnauthorized("invalid or missing bearer token").Wrap(err))
			return
		}
		if !allowed[claims.Role] {
			middleware.AbortWithAppError(c, errors.ErrForbidden("role "+claims.Role+" may not perform this operation").Wrap(ErrForbiddenRole))
			return
		}

		c.Set(ContextKeySubject, claims.Subject)
		c.Set(ContextKeyRole, claims.Role)
		c.Next()
	}
}

// RequireAdmin is RequireRole for the admin role
func RequireAdmin(secret []byte) gin.HandlerFunc {
	return RequireRole(secret, RoleAdmin)
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
