package middlewares

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/fuji-pos/apperrors"
	"github.com/yeremiapane/fuji-pos/permissions"
	"github.com/yeremiapane/fuji-pos/utils"
)

// Context keys set by the auth middlewares.
const (
	ContextUserID = "user_id"
	ContextRole   = "role"
	ContextToken  = "token"
)

func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.RespondAppError(c, apperrors.Unauthorized("authorization header missing"))
			c.Abort()
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			utils.RespondAppError(c, apperrors.Unauthorized("authorization header must use the Bearer scheme"))
			c.Abort()
			return
		}

		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if !authenticate(c, tokenString) {
			utils.RespondAppError(c, apperrors.Unauthorized("invalid or expired token"))
			c.Abort()
			return
		}
		c.Next()
	}
}

func authenticate(c *gin.Context, tokenString string) bool {
	claims, err := utils.ParseToken(tokenString)
	if err != nil || claims == nil || claims.UserID == 0 {
		return false
	}
	c.Set(ContextUserID, claims.UserID)
	c.Set(ContextRole, claims.Role)
	c.Set(ContextToken, tokenString)
	return true
}

// CurrentUserID is 0 outside an authenticated request.
func CurrentUserID(c *gin.Context) uint {
	id, _ := c.Get(ContextUserID)
	uid, _ := id.(uint)
	return uid
}

// CurrentRole parses the role claim; an unknown role holds no permissions.
func CurrentRole(c *gin.Context) permissions.Role {
	role, _ := permissions.ParseRole(c.GetString(ContextRole))
	return role
}

func CurrentSubject(c *gin.Context) permissions.Subject {
	return permissions.Subject{
		UserID:    CurrentUserID(c),
		Role:      CurrentRole(c),
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}
