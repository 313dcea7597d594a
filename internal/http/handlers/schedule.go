package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/printshop/backend/internal/models"
	"github.com/printshop/backend/internal/service"
)

// @Summary List equipment
// @Tags equipment
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/equipment [get]
func (h *Handler) EquipmentList(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"items": h.Scheduler.Equipment()})
}

// @Summary Jobs on one machine for a day
// @Tags equipment
// @Produce json
// @Param id path string true "Equipment ID"
// @Param date query string false "YYYY-MM-DD, defaults to today"
// @Success 200 {object} map[string]any
// @Router /api/equipment/{id}/schedule [get]
func (h *Handler) EquipmentSchedule(c *gin.Context) {
	date, ok := h.dateParam(c)
	if !ok {
		return
	}
	eq, err := h.Scheduler.EquipmentByID(c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	jobs, err := h.Scheduler.EquipmentSchedule(eq.ID, date)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	util := service.Utilization(eq, jobs)
	c.JSON(http.StatusOK, gin.H{
		"equipment":           eq,
		"date":                date.Format("2006-01-02"),
		"jobs":                jobs,
		"utilization_percent": service.DisplayPercent(util),
	})
}

type EquipmentPatchRequest struct {
	Status      *string `json:"status" validate:"omitempty,oneof=available busy maintenance offline"`
	CurrentLoad *int    `json:"current_load" validate:"omitempty,gte=0,lte=100"`
}

// @Summary Update equipment status or load
// @Tags equipment
// @Accept json
// @Produce json
// @Param id path string true "Equipment ID"
// @Param body body EquipmentPatchRequest true "Fields to change"
// @Success 200 {object} models.Equipment
// @Router /api/equipment/{id} [patch]
func (h *Handler) UpdateEquipment(c *gin.Context) {
	var req EquipmentPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}
	upd := service.EquipmentUpdate{CurrentLoad: req.CurrentLoad}
	if req.Status != nil {
		st := models.EquipmentStatus(*req.Status)
		upd.Status = &st
	}
	var after models.Equipment
	err := h.Scheduler.Commit(func() error {
		before, updated, err := h.Scheduler.UpdateEquipment(c.Param("id"), upd)
		if err != nil {
			return err
		}
		if err := h.Store.UpdateEquipment(c.Request.Context(), updated); err != nil {
			h.Scheduler.RestoreEquipment(before)
			h.Logger.Error().Err(err).Str("equipment_id", updated.ID).Msg("failed to persist equipment")
			return persistFailed(err)
		}
		after = updated
		return nil
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, after)
}

type DropRequest struct {
	Payload     string `json:"payload" validate:"required"`
	EquipmentID string `json:"equipment_id" validate:"required"`
	SlotStart   string `json:"slot_start" validate:"required"`
}

// @Summary Apply a schedule-board drop
// @Description The payload is the serialized job record attached to the dragged card.
// @Tags schedule
// @Accept json
// @Produce json
// @Param body body DropRequest true "Drop"
// @Success 200 {object} models.ProductionJob
// @Failure 400 {object} map[string]any
// @Failure 422 {object} map[string]any
// @Router /api/schedule/drop [post]
func (h *Handler) Drop(c *gin.Context) {
	var req DropRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	cmd, err := service.ParseScheduleCommand(h.Validator, req.Payload, req.EquipmentID, req.SlotStart)
	if err != nil {
		h.Logger.Warn().Err(err).Str("equipment_id", req.EquipmentID).Msg("drop command discarded")
		writeServiceError(c, err)
		return
	}
	h.mutateJob(c, cmd.JobID, func() (models.ProductionJob, error) {
		job, err := h.Scheduler.Apply(cmd)
		if errors.Is(err, service.ErrMalformedCommand) {
			h.Logger.Warn().Err(err).Str("job_id", cmd.JobID).Msg("stale drop command discarded")
		}
		return job, err
	})
}

// @Summary Day grid
// @Description Hourly slots per machine with overlap columns, utilization and conflicts.
// @Tags schedule
// @Produce json
// @Param date query string false "YYYY-MM-DD, defaults to today"
// @Success 200 {object} service.DayGrid
// @Router /api/schedule/grid [get]
func (h *Handler) DayGrid(c *gin.Context) {
	date, ok := h.dateParam(c)
	if !ok {
		return
	}
	snap := h.Scheduler.Snapshot()
	opts := h.Grid
	opts.Now = snap.Now
	c.JSON(http.StatusOK, service.BuildDayGrid(snap.Equipment, snap.Jobs, date, opts))
}

// @Summary Conflicts for a day
// @Tags schedule
// @Produce json
// @Param date query string false "YYYY-MM-DD, defaults to today"
// @Success 200 {object} map[string]any
// @Router /api/schedule/conflicts [get]
func (h *Handler) Conflicts(c *gin.Context) {
	date, ok := h.dateParam(c)
	if !ok {
		return
	}
	snap := h.Scheduler.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"date":      date.Format("2006-01-02"),
		"conflicts": service.DetectScheduleConflicts(snap.Equipment, snap.Jobs, date, snap.Now),
	})
}

// @Summary Routing queue
// @Description Unassigned jobs ordered by urgency plus half the best equipment score.
// @Tags routing
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/routing/queue [get]
func (h *Handler) RoutingQueue(c *gin.Context) {
	snap := h.Scheduler.Snapshot()
	c.JSON(http.StatusOK, gin.H{"items": h.Router.Queue(snap.Jobs, snap.Equipment, snap.Now)})
}

// @Summary Debug compatibility
// @Tags debug
// @Produce json
// @Param job_id query string true "Job ID"
// @Success 200 {object} map[string]any
// @Router /api/debug/compatibility [get]
func (h *Handler) DebugCompatibility(c *gin.Context) {
	jobID := strings.TrimSpace(c.Query("job_id"))
	if jobID == "" {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "job_id is required", nil)
		return
	}
	job, err := h.Scheduler.Job(jobID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	res := service.FilterCompatibleEquipment(h.Scheduler.Equipment(), job)

	stageIDs := map[string][]string{}
	for _, stage := range res.Stages {
		ids := []string{}
		for _, eq := range stage.Candidates {
			ids = append(ids, eq.ID)
		}
		stageIDs[stage.Name] = ids
	}
	eligible := []string{}
	for _, eq := range res.Eligible {
		eligible = append(eligible, eq.ID)
	}
	c.JSON(http.StatusOK, gin.H{
		"job_id": job.ID,
		"stages": stageIDs,
		"final": gin.H{
			"eligible":    eligible,
			"reason_code": res.ReasonCode,
			"reason_text": res.ReasonText,
		},
	})
}
