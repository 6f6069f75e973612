package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/game-schedule/schedule-backend/internal/schedule/domain"
)

var badRequestErrors = []error{
	domain.ErrInvalidPriority,
	domain.ErrInvalidCategory,
	domain.ErrInvalidStatus,
	domain.ErrInvalidProgress,
	domain.ErrInconsistentProgress,
	domain.ErrEmptyName,
	domain.ErrInvalidPatch,
	domain.ErrInvalidProjectData,
	domain.ErrUnsupportedFormat,
	domain.ErrInvalidDeadline,
	domain.ErrInvalidView,
	domain.ErrInvalidTheme,
}

func statusFor(err error) int {
	if errors.Is(err, domain.ErrNoProject) || errors.Is(err, domain.ErrNotFound) {
		return http.StatusNotFound
	}
	for _, target := range badRequestErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}

func writeError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"ok": false, "error": err.Error()})
}

func badBody(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": msg})
}
