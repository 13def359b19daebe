package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yeremiapane/fuji-pos/apperrors"
	"github.com/yeremiapane/fuji-pos/middlewares"
	"github.com/yeremiapane/fuji-pos/permissions"
	"github.com/yeremiapane/fuji-pos/services"
	"github.com/yeremiapane/fuji-pos/utils"
)

type PermissionController struct {
	DB        *gorm.DB
	Evaluator *permissions.Evaluator
}

func NewPermissionController(db *gorm.DB, ev *permissions.Evaluator) *PermissionController {
	return &PermissionController{DB: db, Evaluator: ev}
}

func (pc *PermissionController) Mine(c *gin.Context) {
	role := middlewares.CurrentRole(c)
	utils.RespondJSON(c, http.StatusOK, "Permissions", gin.H{
		"role":        role,
		"permissions": pc.Evaluator.Permissions(role),
	})
}

// CheckRoute answers whether the caller may open a UI path.
func (pc *PermissionController) CheckRoute(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		utils.RespondAppError(c, apperrors.Validation("path is required"))
		return
	}
	role := middlewares.CurrentRole(c)
	utils.RespondJSON(c, http.StatusOK, "Route access", gin.H{
		"path":     path,
		"allowed":  pc.Evaluator.CanAccessRoute(role, path),
		"required": pc.Evaluator.RoutePermissions(path),
	})
}

func (pc *PermissionController) AuditLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	logs, err := services.RecentAudits(c.Request.Context(), pc.DB, limit)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Audit logs", logs)
}
