package util

import (
	"net/http"
	"time"

	"simulado_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response is the unified envelope every handler returns.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	ErrCode string      `json:"errCode,omitempty"` // stable domain code, see errors.go
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    http.StatusCreated,
		Message: "created",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
	})
}

func Unauthorized(c *gin.Context) {
	Error(c, http.StatusUnauthorized, "Unauthorized")
}

func Forbidden(c *gin.Context) {
	Error(c, http.StatusForbidden, "Forbidden")
}

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

func NotFound(c *gin.Context) {
	Error(c, http.StatusNotFound, "Resource not found")
}

func InternalServerError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, "Internal server error")
}

func LogInternalError(c *gin.Context, err error) {
	logger.Log.Error("Internal server error", zap.Error(err))
	InternalServerError(c)
}

// DomainError renders a taxonomy error with its stable code and any
// actionable detail (retry time, shortfall, resumable attempt). Errors
// outside the taxonomy fall through to a logged 500 so storage failures
// are never masked as client faults.
func DomainError(c *gin.Context, err error) {
	code := ErrorCode(err)
	if code == "" {
		LogInternalError(c, err)
		return
	}

	resp := Response{
		Code:    httpStatusFor(code),
		Message: err.Error(),
		ErrCode: code,
		Data:    errorDetail(err),
	}
	c.JSON(resp.Code, resp)
}

func httpStatusFor(code string) int {
	switch code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeAttemptNotOwned:
		return http.StatusForbidden
	case CodeInvalidAnswer, CodeSlotNotInVariant:
		return http.StatusBadRequest
	case CodeAttemptInProgress, CodeAttemptNotActive, CodeTimeExpired,
		CodeAttemptLimitReached, CodeCooldownActive, CodeVariantNotDraft:
		return http.StatusConflict
	default:
		return http.StatusUnprocessableEntity
	}
}

func errorDetail(err error) interface{} {
	if e, ok := asError[*CooldownActiveError](err); ok {
		return gin.H{"retryAt": e.RetryAt.Format(time.RFC3339)}
	}
	if e, ok := asError[*AttemptInProgressError](err); ok {
		return gin.H{"attemptId": e.PublicID}
	}
	if e, ok := asError[*InsufficientQuestionsError](err); ok {
		return gin.H{"need": e.Need, "have": e.Have}
	}
	if e, ok := asError[*InsufficientByDifficultyError](err); ok {
		return gin.H{"tier": e.Tier, "variantIndex": e.VariantIndex, "need": e.Need, "have": e.Have}
	}
	return nil
}
