package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/printshop/backend/internal/models"
	"github.com/printshop/backend/internal/utils"
)

var hundred = decimal.NewFromInt(100)

func IsCompatible(eq models.Equipment, job models.ProductionJob) bool {
	return methodMatches(eq, job) && quantityFits(eq, job)
}

func methodMatches(eq models.Equipment, job models.ProductionJob) bool {
	return eq.Kind != nil && eq.Method() == job.DecorationMethod
}

func quantityFits(eq models.Equipment, job models.ProductionJob) bool {
	return job.Quantity >= eq.MinQuantity && job.Quantity <= eq.MaxQuantity
}

// JobsOnDate returns the jobs assigned to equipmentID whose scheduled start
// falls on date's calendar day. Order follows jobs.
func JobsOnDate(equipmentID string, jobs []models.ProductionJob, date time.Time) []models.ProductionJob {
	var out []models.ProductionJob
	for _, j := range jobs {
		if !j.IsScheduled() || *j.AssignedEquipmentID != equipmentID {
			continue
		}
		if utils.SameDay(*j.ScheduledStart, date) {
			out = append(out, j)
		}
	}
	return out
}

// Utilization is the summed quantity of jobsOnDate as a percentage of the
// equipment's daily capacity, kept at full precision.
func Utilization(eq models.Equipment, jobsOnDate []models.ProductionJob) decimal.Decimal {
	if eq.Capacity <= 0 {
		return decimal.Zero
	}
	total := decimal.Zero
	for _, j := range jobsOnDate {
		total = total.Add(decimal.NewFromInt(int64(j.Quantity)))
	}
	return total.Div(decimal.NewFromInt(int64(eq.Capacity))).Mul(hundred)
}

// DisplayPercent rounds a utilization value for presentation.
func DisplayPercent(u decimal.Decimal) float64 {
	f, _ := u.Round(1).Float64()
	return f
}
