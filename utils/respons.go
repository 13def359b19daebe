package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/fuji-pos/apperrors"
)

type JSONResponse struct {
	Status     bool        `json:"status"`
	Message    string      `json:"message"`
	Data       interface{} `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
	StatusCode int         `json:"statusCode,omitempty"`
	RequestID  string      `json:"requestId,omitempty"`
	Details    interface{} `json:"details,omitempty"`
}

func RespondJSON(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, JSONResponse{
		Status:  code >= 200 && code < 300,
		Message: message,
		Data:    data,
	})
}

// RespondError writes err with an explicit status code.
func RespondError(c *gin.Context, code int, err error) {
	resp := JSONResponse{
		Status:     false,
		Message:    err.Error(),
		Error:      http.StatusText(code),
		StatusCode: code,
		RequestID:  c.GetString("request_id"),
	}
	if appErr, ok := apperrors.As(err); ok {
		resp.Error = string(appErr.Kind)
		resp.Details = appErr.Details
	}
	c.JSON(code, resp)
}

// RespondAppError derives the status code from the error kind. Untyped errors become 500.
func RespondAppError(c *gin.Context, err error) {
	code := apperrors.StatusCode(err)
	if code >= http.StatusInternalServerError {
		ErrorLogger.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		RespondError(c, code, apperrors.Internal("internal server error"))
		return
	}
	RespondError(c, code, err)
}
