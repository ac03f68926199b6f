package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"visitrack.net/visitrack/security"
	"visitrack.net/visitrack/web/common"
)

const (
	ContextUserClaims = "userClaims"
	RoleAdmin         = "admin"
)

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// Authentication checks for a valid user Bearer token and passes the
// claims into the context.
func Authentication(jwtSecret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := bearerToken(c)
		if tokenStr == "" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		claims, err := security.ParseUserToken(tokenStr, jwtSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, common.NewErrorResponse("invalid or expired token"))
			return
		}

		c.Set(ContextUserClaims, claims)
		c.Next()
	}
}

// RequireAdmin gates mutating operations behind the admin role.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := UserClaims(c)
		if claims == nil || claims.Role != RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, common.NewErrorResponse("admin role required"))
			return
		}
		c.Next()
	}
}

func UserClaims(c *gin.Context) *security.UserClaims {
	value, ok := c.Get(ContextUserClaims)
	if !ok {
		return nil
	}
	claims, _ := value.(*security.UserClaims)
	return claims
}
