package middlewares

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/fuji-pos/apperrors"
	"github.com/yeremiapane/fuji-pos/metrics"
	"github.com/yeremiapane/fuji-pos/permissions"
	"github.com/yeremiapane/fuji-pos/utils"
)

// RequirePermission lets the request through when the caller's role holds any of perms.
// Every decision is audited.
func RequirePermission(ev *permissions.Evaluator, perms ...permissions.Permission) gin.HandlerFunc {
	names := make([]string, len(perms))
	for i, p := range perms {
		names[i] = string(p)
	}
	required := strings.Join(names, " or ")

	return func(c *gin.Context) {
		if _, ok := c.Get(ContextUserID); !ok {
			utils.RespondAppError(c, apperrors.Unauthorized("authentication required"))
			c.Abort()
			return
		}

		resource := c.Request.Method + " " + c.FullPath()
		if !ev.Check(c.Request.Context(), CurrentSubject(c), resource, perms...) {
			if len(perms) > 0 {
				metrics.PermissionDenied(string(perms[0]))
			}
			utils.RespondAppError(c, apperrors.Forbidden("missing permission %s", required).
				WithDetails(map[string]interface{}{"required": names, "role": c.GetString(ContextRole)}))
			c.Abort()
			return
		}
		c.Next()
	}
}
