package handlers

import (
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/printshop/backend/internal/models"
	"github.com/printshop/backend/internal/service"
	"github.com/printshop/backend/internal/utils"
)

// @Summary List production jobs
// @Tags jobs
// @Produce json
// @Param status query string false "pending, scheduled, in_progress or completed"
// @Param method query string false "Decoration method"
// @Success 200 {object} map[string]any
// @Router /api/jobs [get]
func (h *Handler) JobsList(c *gin.Context) {
	status := models.JobStatus(strings.TrimSpace(c.Query("status")))
	method := models.DecorationMethod(strings.TrimSpace(c.Query("method")))

	items := []models.ProductionJob{}
	for _, j := range h.Scheduler.Jobs() {
		if status != "" && j.Status != status {
			continue
		}
		if method != "" && j.DecorationMethod != method {
			continue
		}
		items = append(items, j)
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// @Summary Get a production job
// @Tags jobs
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} models.ProductionJob
// @Failure 404 {object} map[string]any
// @Router /api/jobs/{id} [get]
func (h *Handler) JobDetails(c *gin.Context) {
	job, err := h.Scheduler.Job(c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

type CreateJobRequest struct {
	ID               string  `json:"id"`
	ItemName         string  `json:"item_name" validate:"required"`
	CustomerName     string  `json:"customer_name"`
	Quantity         int     `json:"quantity" validate:"gt=0"`
	DueDate          string  `json:"due_date" validate:"required"`
	Priority         string  `json:"priority" validate:"required,oneof=low medium high rush"`
	DecorationMethod string  `json:"decoration_method" validate:"required,oneof=embroidery screen_printing dtg heat_transfer"`
	EstimatedMinutes int     `json:"estimated_minutes" validate:"gte=0"`
	EstimatedHours   float64 `json:"estimated_hours" validate:"gte=0"`
}

// @Summary Create a production job
// @Description New jobs start pending and unassigned. Duration may be given in minutes or hours.
// @Tags jobs
// @Accept json
// @Produce json
// @Param body body CreateJobRequest true "Job"
// @Success 201 {object} models.ProductionJob
// @Failure 400 {object} map[string]any
// @Router /api/jobs [post]
func (h *Handler) CreateJob(c *gin.Context) {
	var req CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}
	minutes := durationMinutes(req.EstimatedMinutes, req.EstimatedHours)
	if minutes <= 0 {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "estimated_minutes or estimated_hours required", nil)
		return
	}
	due, err := parseTime(req.DueDate, h.Location)
	if err != nil {
		if due, err = utils.ParseDate(req.DueDate, h.Location); err != nil {
			writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "due_date must be a date or RFC3339 time", err.Error())
			return
		}
	}

	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = "JOB-" + strings.ToUpper(uuid.NewString()[:8])
	}
	job := models.ProductionJob{
		ID:               id,
		ItemName:         strings.TrimSpace(req.ItemName),
		CustomerName:     strings.TrimSpace(req.CustomerName),
		Quantity:         req.Quantity,
		DueDate:          due,
		Priority:         models.Priority(req.Priority),
		DecorationMethod: models.DecorationMethod(req.DecorationMethod),
		EstimatedMinutes: minutes,
		Status:           models.JobPending,
	}
	var added models.ProductionJob
	err = h.Scheduler.Commit(func() error {
		var err error
		if added, err = h.Scheduler.AddJob(job); err != nil {
			return err
		}
		if err := h.Store.PersistJob(c.Request.Context(), added); err != nil {
			h.Scheduler.RemoveJob(added.ID)
			h.Logger.Error().Err(err).Str("job_id", added.ID).Msg("failed to persist new job")
			return persistFailed(err)
		}
		return nil
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, added)
}

type ScheduleRequest struct {
	EquipmentID string `json:"equipment_id" validate:"required"`
	Start       string `json:"start" validate:"required"`
}

func (h *Handler) bindSchedule(c *gin.Context) (ScheduleRequest, bool) {
	var req ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return req, false
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return req, false
	}
	return req, true
}

// @Summary Schedule a job
// @Tags schedule
// @Accept json
// @Produce json
// @Param id path string true "Job ID"
// @Param body body ScheduleRequest true "Target equipment and start"
// @Success 200 {object} models.ProductionJob
// @Failure 422 {object} map[string]any
// @Router /api/jobs/{id}/schedule [post]
func (h *Handler) ScheduleJob(c *gin.Context) {
	h.assign(c, h.Scheduler.ScheduleJob)
}

// @Summary Move a scheduled job
// @Tags schedule
// @Accept json
// @Produce json
// @Param id path string true "Job ID"
// @Param body body ScheduleRequest true "New equipment and start"
// @Success 200 {object} models.ProductionJob
// @Failure 422 {object} map[string]any
// @Router /api/jobs/{id}/move [post]
func (h *Handler) MoveJob(c *gin.Context) {
	h.assign(c, h.Scheduler.MoveScheduledJob)
}

func (h *Handler) assign(c *gin.Context, op func(jobID, equipmentID string, start time.Time) (models.ProductionJob, error)) {
	req, ok := h.bindSchedule(c)
	if !ok {
		return
	}
	start, err := parseTime(req.Start, h.Location)
	if err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "start must be an RFC3339 time", err.Error())
		return
	}
	h.mutateJob(c, c.Param("id"), func() (models.ProductionJob, error) {
		return op(c.Param("id"), strings.TrimSpace(req.EquipmentID), start)
	})
}

// @Summary Unschedule a job
// @Tags schedule
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} models.ProductionJob
// @Router /api/jobs/{id}/unschedule [post]
func (h *Handler) UnscheduleJob(c *gin.Context) {
	id := c.Param("id")
	h.mutateJob(c, id, func() (models.ProductionJob, error) {
		return h.Scheduler.UnscheduleJob(id)
	})
}

type StatusRequest struct {
	Status string `json:"status" validate:"required,oneof=in_progress completed"`
}

// @Summary Advance a job's status
// @Tags jobs
// @Accept json
// @Produce json
// @Param id path string true "Job ID"
// @Param body body StatusRequest true "in_progress or completed"
// @Success 200 {object} models.ProductionJob
// @Failure 409 {object} map[string]any
// @Router /api/jobs/{id}/status [post]
func (h *Handler) UpdateJobStatus(c *gin.Context) {
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}
	id := c.Param("id")
	h.mutateJob(c, id, func() (models.ProductionJob, error) {
		return h.Scheduler.TransitionJob(id, models.JobStatus(req.Status))
	})
}

// mutateJob runs op against the scheduler and persists the result as one
// commit, then answers with the updated job.
func (h *Handler) mutateJob(c *gin.Context, jobID string, op func() (models.ProductionJob, error)) {
	ctx := c.Request.Context()
	updated, err := h.Scheduler.Mutate(jobID, op, func(job models.ProductionJob) error {
		if err := h.Store.PersistJob(ctx, job); err != nil {
			h.Logger.Error().Err(err).Str("job_id", job.ID).Msg("failed to persist job")
			return persistFailed(err)
		}
		return nil
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// @Summary Equipment recommendations for a job
// @Tags routing
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} map[string]any
// @Router /api/jobs/{id}/recommendations [get]
func (h *Handler) Recommendations(c *gin.Context) {
	job, err := h.Scheduler.Job(c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	snap := h.Scheduler.Snapshot()
	recs := h.Router.Recommend(job, snap.Equipment, snap.Now)
	resp := gin.H{
		"job_id":          job.ID,
		"urgency":         h.Router.UrgencyScore(job, snap.Now),
		"recommendations": recs,
	}
	if len(recs) == 0 {
		res := service.FilterCompatibleEquipment(snap.Equipment, job)
		resp["reason_code"] = res.ReasonCode
		resp["reason_text"] = res.ReasonText
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Post-scheduling stage progress
// @Tags stages
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} service.JobProgress
// @Router /api/jobs/{id}/stages [get]
func (h *Handler) JobStages(c *gin.Context) {
	job, err := h.Scheduler.Job(c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.Tracker.Progress(job.ID))
}

type StageRequest struct {
	Status string `json:"status" validate:"required,oneof=not_started in_progress completed blocked on_hold"`
}

// @Summary Update one stage of a job
// @Tags stages
// @Accept json
// @Produce json
// @Param id path string true "Job ID"
// @Param stage path string true "Stage ID"
// @Param body body StageRequest true "New status"
// @Success 200 {object} service.JobProgress
// @Failure 409 {object} map[string]any
// @Router /api/jobs/{id}/stages/{stage} [patch]
func (h *Handler) UpdateJobStage(c *gin.Context) {
	var req StageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}
	job, err := h.Scheduler.Job(c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	stageID := c.Param("stage")
	err = h.Scheduler.Commit(func() error {
		previous := h.Tracker.State(job.ID, stageID)
		st, err := h.Tracker.SetStageStatus(job.ID, stageID, service.StageStatus(req.Status))
		if err != nil {
			return err
		}
		if err := h.Store.PersistStageStatus(c.Request.Context(), job.ID, st); err != nil {
			h.Tracker.Restore(job.ID, previous)
			h.Logger.Error().Err(err).Str("job_id", job.ID).Str("stage_id", stageID).Msg("failed to persist stage")
			return persistFailed(err)
		}
		return nil
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.Tracker.Progress(job.ID))
}

func durationMinutes(minutes int, hours float64) int {
	if minutes > 0 {
		return minutes
	}
	return int(math.Round(hours * 60))
}
