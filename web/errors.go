package web

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/deemkeen/reblog/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// respondError maps err onto a status and a JSON body.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.ErrInvalidCredentials.Message})
	case errors.Is(err, domain.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": domain.ErrForbidden.Message})
	case errors.Is(err, domain.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "reason": domain.Reason(err)})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, domain.ErrAdvisory):
		slog.Warn("upstream failure", slog.String("path", c.FullPath()), slog.Any("error", err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Upstream service unavailable"})
	default:
		slog.Error("request failed", slog.String("path", c.FullPath()), slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
	}
}

func badRequest(c *gin.Context, msg string) {
	respondError(c, domain.NewValidationError(domain.ReasonInvalidInput, "%s", msg))
}

// idParam parses the named path parameter as a uuid. Malformed ids are
// reported as not found.
func idParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		respondError(c, domain.ErrNotFound)
		return uuid.Nil, false
	}
	return id, true
}
