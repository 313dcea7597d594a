package handlers

import (
	"encoding/csv"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/printshop/backend/internal/db"
	"github.com/printshop/backend/internal/models"
	"github.com/printshop/backend/internal/utils"
)

type ImportSummary struct {
	Equipment struct {
		Parsed   int `json:"parsed"`
		Inserted int `json:"inserted"`
		Errors   int `json:"errors"`
	} `json:"equipment"`
	Jobs struct {
		Parsed   int `json:"parsed"`
		Inserted int `json:"inserted"`
		Errors   int `json:"errors"`
	} `json:"jobs"`
	Errors []string `json:"errors"`
}

// @Summary Import CSV data
// @Description Replace the equipment catalog and job list. Imported jobs start unscheduled.
// @Tags import
// @Accept multipart/form-data
// @Produce json
// @Param equipment formData file true "equipment.csv"
// @Param jobs formData file true "jobs.csv"
// @Success 200 {object} ImportSummary
// @Failure 400 {object} map[string]any
// @Router /api/import [post]
func (h *Handler) Import(c *gin.Context) {
	equipmentFile, err := c.FormFile("equipment")
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "equipment file required", nil)
		return
	}
	jobsFile, err := c.FormFile("jobs")
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "jobs file required", nil)
		return
	}
	if !validateExt(equipmentFile.Filename) || !validateExt(jobsFile.Filename) {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "all files must be .csv", nil)
		return
	}

	summary := ImportSummary{Errors: []string{}}
	now := h.Scheduler.Now().UTC()

	equipment, errs := parseEquipmentCSV(equipmentFile, now)
	summary.Equipment.Parsed = len(equipment)
	summary.Equipment.Errors = len(errs)
	summary.Errors = append(summary.Errors, errs...)

	jobs, errs := parseJobsCSV(jobsFile, h.Location, now)
	summary.Jobs.Parsed = len(jobs)
	summary.Jobs.Errors = len(errs)
	summary.Errors = append(summary.Errors, errs...)

	if len(summary.Errors) > 0 {
		writeError(c, http.StatusBadRequest, "CSV_PARSE_ERROR", "CSV validation errors", summary.Errors)
		return
	}

	var counts db.ImportCounts
	err = h.Scheduler.Commit(func() error {
		var err error
		if counts, err = h.Store.ImportCatalog(c.Request.Context(), equipment, jobs); err != nil {
			h.Logger.Error().Err(err).Msg("failed to import catalog")
			return persistFailed(err)
		}
		h.Scheduler.ReplaceCatalog(equipment, jobs)
		h.Tracker.Reset()
		return nil
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	summary.Equipment.Inserted = counts.Equipment
	summary.Jobs.Inserted = counts.Jobs

	h.Logger.Info().Int("equipment", counts.Equipment).Int("jobs", counts.Jobs).Msg("catalog imported")
	c.JSON(http.StatusOK, summary)
}

func openCSV(file *multipart.FileHeader) (*csv.Reader, io.Closer, map[string]int, error) {
	f, err := file.Open()
	if err != nil {
		return nil, nil, nil, err
	}
	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true
	headers, err := reader.Read()
	if err != nil {
		f.Close()
		return nil, nil, nil, fmt.Errorf("%s: failed to read header", file.Filename)
	}
	return reader, f, headerIndex(headers), nil
}

func parseEquipmentCSV(file *multipart.FileHeader, now time.Time) ([]models.Equipment, []string) {
	reader, closer, index, err := openCSV(file)
	if err != nil {
		return nil, []string{err.Error()}
	}
	defer closer.Close()

	var errors []string
	var out []models.Equipment
	seen := map[string]struct{}{}
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			errors = append(errors, err.Error())
			continue
		}

		id := getFieldAny(rec, index, "id", "equipment_id")
		kindRaw := normalizeMethod(getFieldAny(rec, index, "type", "method", "equipment_type"))
		kind, err := models.NewEquipmentKind(kindRaw,
			atoi(getField(rec, index, "heads")),
			atoi(getFieldAny(rec, index, "max_colors", "colors")),
			atoi(getField(rec, index, "screens")),
			parseBool(getFieldAny(rec, index, "is_automatic", "automatic")))
		if err != nil {
			errors = append(errors, fmt.Sprintf("equipment line %d: %v", line, err))
			continue
		}
		status := models.EquipmentStatus(strings.ToLower(getField(rec, index, "status")))
		if status == "" {
			status = models.EquipmentAvailable
		}
		if id == "" {
			id = fmt.Sprintf("EQ-%03d", len(out)+1)
		}

		eq := models.Equipment{
			ID:          id,
			Name:        getField(rec, index, "name"),
			Status:      status,
			Capacity:    atoi(getFieldAny(rec, index, "capacity", "daily_capacity")),
			CurrentLoad: atoi(getFieldAny(rec, index, "current_load", "load")),
			SetupTime:   atoi(getFieldAny(rec, index, "setup_time", "setup_minutes")),
			MinQuantity: atoi(getFieldAny(rec, index, "min_quantity", "min_qty")),
			MaxQuantity: atoi(getFieldAny(rec, index, "max_quantity", "max_qty")),
			Kind:        kind,
			UpdatedAt:   now,
		}
		if eq.Name == "" {
			eq.Name = eq.ID
		}
		if err := eq.Validate(); err != nil {
			errors = append(errors, fmt.Sprintf("equipment line %d: %v", line, err))
			continue
		}
		if _, dup := seen[eq.ID]; dup {
			errors = append(errors, fmt.Sprintf("equipment line %d: duplicate id %s", line, eq.ID))
			continue
		}
		seen[eq.ID] = struct{}{}
		out = append(out, eq)
	}
	return out, errors
}

func parseJobsCSV(file *multipart.FileHeader, loc *time.Location, now time.Time) ([]models.ProductionJob, []string) {
	reader, closer, index, err := openCSV(file)
	if err != nil {
		return nil, []string{err.Error()}
	}
	defer closer.Close()

	var errors []string
	var out []models.ProductionJob
	seen := map[string]struct{}{}
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			errors = append(errors, err.Error())
			continue
		}

		id := getFieldAny(rec, index, "id", "job_id", "order_id")
		dueRaw := getFieldAny(rec, index, "due_date", "due", "deadline")
		due, err := utils.ParseDate(dueRaw, loc)
		if err != nil {
			errors = append(errors, fmt.Sprintf("job line %d: due date %q", line, dueRaw))
			continue
		}
		hours, _ := strconv.ParseFloat(getFieldAny(rec, index, "estimated_hours", "hours"), 64)
		priority := models.Priority(strings.ToLower(getField(rec, index, "priority")))
		if priority == "" {
			priority = models.PriorityMedium
		}
		if id == "" {
			id = fmt.Sprintf("JOB-%04d", len(out)+1)
		}

		j := models.ProductionJob{
			ID:               id,
			ItemName:         getFieldAny(rec, index, "item_name", "item", "product"),
			CustomerName:     getFieldAny(rec, index, "customer_name", "customer"),
			Quantity:         atoi(getFieldAny(rec, index, "quantity", "qty")),
			DueDate:          due,
			Priority:         priority,
			DecorationMethod: models.DecorationMethod(normalizeMethod(getFieldAny(rec, index, "decoration_method", "method"))),
			EstimatedMinutes: durationMinutes(atoi(getFieldAny(rec, index, "estimated_minutes", "minutes")), hours),
			Status:           models.JobPending,
			UpdatedAt:        now,
		}
		if err := j.Validate(); err != nil {
			errors = append(errors, fmt.Sprintf("job line %d: %v", line, err))
			continue
		}
		if _, dup := seen[j.ID]; dup {
			errors = append(errors, fmt.Sprintf("job line %d: duplicate id %s", line, j.ID))
			continue
		}
		seen[j.ID] = struct{}{}
		out = append(out, j)
	}
	return out, errors
}

func headerIndex(headers []string) map[string]int {
	idx := map[string]int{}
	for i, h := range headers {
		idx[normalizeHeader(h)] = i
	}
	return idx
}

func getField(rec []string, idx map[string]int, name string) string {
	pos, ok := idx[name]
	if !ok || pos >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[pos])
}

func getFieldAny(rec []string, idx map[string]int, names ...string) string {
	for _, name := range names {
		if v := getField(rec, idx, normalizeHeader(name)); v != "" {
			return v
		}
	}
	return ""
}

func normalizeHeader(h string) string {
	h = strings.ReplaceAll(h, "\ufeff", "")
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.ReplaceAll(h, " ", "_")
}

// normalizeMethod accepts the spellings shops commonly use for each method.
func normalizeMethod(value string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	v = strings.NewReplacer("-", "_", " ", "_").Replace(v)
	switch v {
	case "embroidery", "emb":
		return string(models.MethodEmbroidery)
	case "screen_printing", "screen_print", "screenprint", "screen":
		return string(models.MethodScreenPrinting)
	case "dtg", "direct_to_garment":
		return string(models.MethodDTG)
	case "heat_transfer", "heat_press", "htv":
		return string(models.MethodHeatTransfer)
	}
	return v
}

func atoi(v string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(v))
	return n
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "auto", "automatic":
		return true
	}
	return false
}

func validateExt(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".csv"
}
