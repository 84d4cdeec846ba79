package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cvbuilder/internal/api/middleware"
	"cvbuilder/internal/errcode"
)

// errorBody 与 WebSocket 通知共用同一套 code。
type errorBody struct {
	Error         string `json:"error"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

func Error(c *gin.Context, status, code int, msg string) {
	c.JSON(status, errorBody{Error: msg, Code: code, CorrelationID: middleware.GetCorrelationID(c)})
}

func BadRequest(c *gin.Context, msg string) {
	Error(c, http.StatusBadRequest, errcode.InvalidInput, msg)
}

func NotFound(c *gin.Context, msg string) {
	Error(c, http.StatusNotFound, errcode.ResourceMissing, msg)
}

func Conflict(c *gin.Context, msg string) {
	Error(c, http.StatusConflict, errcode.ExportBusy, msg)
}

func ConfirmationRequired(c *gin.Context) {
	Error(c, http.StatusPreconditionRequired, errcode.ConfirmationRequired, "confirmation required")
}

func Unavailable(c *gin.Context, msg string) {
	Error(c, http.StatusServiceUnavailable, errcode.CapabilityUnavailable, msg)
}

func Internal(c *gin.Context, msg string) {
	Error(c, http.StatusInternalServerError, errcode.SystemError, msg)
}
