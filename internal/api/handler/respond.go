package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taskpin/taskpin-be/internal/api/domain"
)

// statusForKind maps the stable error taxonomy to HTTP status codes.
func statusForKind(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindUnauthenticated:
		return http.StatusUnauthorized
	case domain.KindUnauthorized:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindPreconditionFailed, domain.KindInvalidTransition:
		return http.StatusConflict
	case domain.KindInsufficientFunds:
		return http.StatusPaymentRequired
	case domain.KindUpstreamUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the error envelope. Errors without a domain
// kind never leak internal detail to the caller.
func (h *JobHandler) respondError(c *gin.Context, err error) {
	kind := domain.KindOf(err)
	if kind == "" {
		h.logger.Error("Internal server error", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "internal_error",
				"message": "internal server error",
			},
		})
		return
	}

	var message string
	var de *domain.Error
	if errors.As(err, &de) {
		message = de.Message
	}

	c.JSON(statusForKind(kind), gin.H{
		"error": gin.H{
			"code":    string(kind),
			"message": message,
		},
	})
}

func respondValidation(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error": gin.H{
			"code":    string(domain.KindValidation),
			"message": message,
		},
	})
}
