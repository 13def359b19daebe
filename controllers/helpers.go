package controllers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/yeremiapane/fuji-pos/apperrors"
	"github.com/yeremiapane/fuji-pos/middlewares"
	"github.com/yeremiapane/fuji-pos/services"
	"github.com/yeremiapane/fuji-pos/utils"
)

// bindJSON decodes the body into dst and answers 400 on failure.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		utils.RespondAppError(c, bindingError(err))
		return false
	}
	return true
}

func bindingError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		return apperrors.Validation("invalid request body").WithDetails(fields)
	}
	return apperrors.Validation("invalid request body: %v", err)
}

// paramID reads a positive integer path parameter.
func paramID(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		utils.RespondAppError(c, apperrors.Validation("invalid %s", name))
		return 0, false
	}
	return uint(v), true
}

func queryUint(c *gin.Context, name string) (uint, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, apperrors.Validation("invalid %s", name)
	}
	return uint(v), nil
}

func queryInt(c *gin.Context, name string, fallback int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return fallback
	}
	return v
}

func actor(c *gin.Context) services.Actor {
	return services.Actor{UserID: middlewares.CurrentUserID(c), Role: middlewares.CurrentRole(c)}
}
