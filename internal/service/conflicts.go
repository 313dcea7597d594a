package service

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/printshop/backend/internal/models"
	"github.com/printshop/backend/internal/utils"
)

var (
	capacityConflictThreshold = decimal.NewFromInt(90)
	// capacityWarningThreshold marks the warning tier shown in the grid. It
	// never raises a conflict on its own.
	capacityWarningThreshold = decimal.NewFromInt(70)
)

func capacityActions() []string {
	return []string{"Reschedule non-urgent jobs", "Consider outsourcing", "Add overtime shift"}
}

func deadlineActions() []string {
	return []string{"Prioritize this job", "Consider rush processing"}
}

func unavailableActions() []string {
	return []string{"Move jobs to available equipment", "Confirm maintenance window"}
}

// DetectConflicts derives advisory conflicts for one piece of equipment from
// the jobs scheduled on it for a single day. It never mutates its inputs.
// Due-date risk covers scheduled jobs as well as pending ones, since a job
// placed on equipment is no longer pending.
func DetectConflicts(eq models.Equipment, jobsOnDate []models.ProductionJob, now time.Time) []models.SchedulingConflict {
	var out []models.SchedulingConflict

	util := Utilization(eq, jobsOnDate)
	if util.GreaterThanOrEqual(capacityConflictThreshold) {
		out = append(out, models.SchedulingConflict{
			Type:             models.ConflictCapacityExceeded,
			Description:      fmt.Sprintf("%s is at %s%% capacity", eq.Name, util.StringFixed(1)),
			Severity:         models.SeverityHigh,
			SuggestedActions: capacityActions(),
		})
	}

	if len(jobsOnDate) > 0 && (eq.Status == models.EquipmentMaintenance || eq.Status == models.EquipmentOffline) {
		out = append(out, models.SchedulingConflict{
			Type:             models.ConflictEquipmentUnavailable,
			Description:      fmt.Sprintf("%s is %s with %d job(s) scheduled", eq.Name, eq.Status, len(jobsOnDate)),
			Severity:         models.SeverityHigh,
			SuggestedActions: unavailableActions(),
		})
	}

	for _, j := range jobsOnDate {
		if j.Status != models.JobPending && j.Status != models.JobScheduled {
			continue
		}
		days := utils.DaysUntil(j.DueDate, now)
		if days > 1 {
			continue
		}
		severity := models.SeverityMedium
		if days <= 0 {
			severity = models.SeverityHigh
		}
		out = append(out, models.SchedulingConflict{
			Type:             models.ConflictDueDateRisk,
			Description:      fmt.Sprintf("%s (%s) is due in %d day(s)", j.ItemName, j.ID, days),
			Severity:         severity,
			SuggestedActions: deadlineActions(),
			JobID:            j.ID,
		})
	}
	return out
}

// DetectScheduleConflicts runs DetectConflicts for every piece of equipment on
// date and concatenates the results in catalog order.
func DetectScheduleConflicts(equipment []models.Equipment, jobs []models.ProductionJob, date, now time.Time) []models.SchedulingConflict {
	out := []models.SchedulingConflict{}
	for _, eq := range equipment {
		out = append(out, tagConflicts(eq, DetectConflicts(eq, JobsOnDate(eq.ID, jobs, date), now))...)
	}
	return out
}

func tagConflicts(eq models.Equipment, conflicts []models.SchedulingConflict) []models.SchedulingConflict {
	for i := range conflicts {
		conflicts[i].EquipmentID = eq.ID
		conflicts[i].EquipmentName = eq.Name
	}
	return conflicts
}
