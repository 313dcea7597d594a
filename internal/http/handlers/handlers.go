package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/printshop/backend/internal/db"
	"github.com/printshop/backend/internal/models"
	"github.com/printshop/backend/internal/service"
	"github.com/printshop/backend/internal/utils"
)

// Store is the persistence side of the API. The scheduler commits first;
// handlers then persist and undo the in-memory change if that fails.
type Store interface {
	Ping(ctx context.Context) error
	PersistJob(ctx context.Context, job models.ProductionJob) error
	UpdateEquipment(ctx context.Context, eq models.Equipment) error
	ImportCatalog(ctx context.Context, equipment []models.Equipment, jobs []models.ProductionJob) (db.ImportCounts, error)
	PersistStageStatus(ctx context.Context, jobID string, st service.StageState) error
}

type Handler struct {
	Store     Store
	Scheduler *service.Scheduler
	Router    service.Router
	Tracker   *service.Tracker
	Validator *validator.Validate
	Logger    zerolog.Logger
	Location  *time.Location
	Grid      service.GridOptions
}

func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database unavailable", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}

// errPersist marks a failed store write. The in-memory change has already
// been rolled back when it is returned.
var errPersist = errors.New("failed to save")

func persistFailed(err error) error {
	return fmt.Errorf("%w: %v", errPersist, err)
}

// writeServiceError maps scheduler and tracker sentinels onto the error envelope.
func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errPersist):
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to save changes", err.Error())
	case errors.Is(err, service.ErrNotFound):
		writeError(c, http.StatusNotFound, "NOT_FOUND", "Not found", err.Error())
	case errors.Is(err, service.ErrInvalidAssignment):
		writeError(c, http.StatusUnprocessableEntity, "INVALID_ASSIGNMENT", "Job cannot run on this equipment", err.Error())
	case errors.Is(err, service.ErrMalformedCommand):
		writeError(c, http.StatusBadRequest, "MALFORMED_COMMAND", "Malformed schedule command", err.Error())
	case errors.Is(err, service.ErrDependencyNotSatisfied):
		writeError(c, http.StatusConflict, "DEPENDENCY_NOT_SATISFIED", "Prerequisite stages are not completed", err.Error())
	case errors.Is(err, service.ErrInvalidTransition):
		writeError(c, http.StatusConflict, "INVALID_TRANSITION", "Status change not allowed", err.Error())
	case errors.Is(err, service.ErrDuplicate):
		writeError(c, http.StatusConflict, "DUPLICATE", "Record already exists", err.Error())
	case errors.Is(err, service.ErrValidation):
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Internal error", err.Error())
	}
}

// dateParam reads ?date= as a calendar day in the schedule's location,
// defaulting to today.
func (h *Handler) dateParam(c *gin.Context) (time.Time, bool) {
	raw := strings.TrimSpace(c.Query("date"))
	if raw == "" {
		return utils.StartOfDay(h.Scheduler.Now(), h.Location), true
	}
	date, err := utils.ParseDate(raw, h.Location)
	if err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "date must be YYYY-MM-DD or RFC3339", err.Error())
		return time.Time{}, false
	}
	return date, true
}

func parseTime(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02T15:04", raw, loc)
}
