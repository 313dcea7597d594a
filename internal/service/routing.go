package service

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/printshop/backend/internal/models"
	"github.com/printshop/backend/internal/utils"
)

// ScoringWeights holds every constant of the suitability and urgency scores.
// Field tags double as configuration keys.
type ScoringWeights struct {
	Base                  int `mapstructure:"SCORE_BASE" json:"base"`
	RatioHigh             int `mapstructure:"SCORE_RATIO_HIGH" json:"ratio_high"`
	RatioMid              int `mapstructure:"SCORE_RATIO_MID" json:"ratio_mid"`
	RatioLow              int `mapstructure:"SCORE_RATIO_LOW" json:"ratio_low"`
	LoadLow               int `mapstructure:"SCORE_LOAD_LOW" json:"load_low"`
	LoadModerate          int `mapstructure:"SCORE_LOAD_MODERATE" json:"load_moderate"`
	LoadHigh              int `mapstructure:"SCORE_LOAD_HIGH" json:"load_high"`
	StatusAvailable       int `mapstructure:"SCORE_STATUS_AVAILABLE" json:"status_available"`
	StatusBusy            int `mapstructure:"SCORE_STATUS_BUSY" json:"status_busy"`
	StatusUnavailable     int `mapstructure:"SCORE_STATUS_UNAVAILABLE" json:"status_unavailable"`
	SetupFast             int `mapstructure:"SCORE_SETUP_FAST" json:"setup_fast"`
	SetupModerate         int `mapstructure:"SCORE_SETUP_MODERATE" json:"setup_moderate"`
	SetupSlow             int `mapstructure:"SCORE_SETUP_SLOW" json:"setup_slow"`
	PriorityBoost         int `mapstructure:"SCORE_PRIORITY_BOOST" json:"priority_boost"`
	PriorityBoostMaxLoad  int `mapstructure:"SCORE_PRIORITY_BOOST_MAX_LOAD" json:"priority_boost_max_load"`
	DeadlineBoost         int `mapstructure:"SCORE_DEADLINE_BOOST" json:"deadline_boost"`
	AutomationBonus       int `mapstructure:"SCORE_AUTOMATION_BONUS" json:"automation_bonus"`
	AutomationMinQuantity int `mapstructure:"SCORE_AUTOMATION_MIN_QUANTITY" json:"automation_min_quantity"`
	UrgencyRushBoost      int `mapstructure:"SCORE_URGENCY_RUSH_BOOST" json:"urgency_rush_boost"`
	UrgencyHighBoost      int `mapstructure:"SCORE_URGENCY_HIGH_BOOST" json:"urgency_high_boost"`
}

func DefaultScoringWeights() ScoringWeights {
	return ScoringWeights{
		Base:                  30,
		RatioHigh:             25,
		RatioMid:              15,
		RatioLow:              5,
		LoadLow:               20,
		LoadModerate:          10,
		LoadHigh:              -10,
		StatusAvailable:       15,
		StatusBusy:            -15,
		StatusUnavailable:     -30,
		SetupFast:             10,
		SetupModerate:         5,
		SetupSlow:             -5,
		PriorityBoost:         15,
		PriorityBoostMaxLoad:  70,
		DeadlineBoost:         20,
		AutomationBonus:       10,
		AutomationMinQuantity: 100,
		UrgencyRushBoost:      30,
		UrgencyHighBoost:      15,
	}
}

type CompatibilityStage struct {
	Name       string             `json:"name"`
	Candidates []models.Equipment `json:"candidates"`
}

type CompatibilityResult struct {
	Eligible   []models.Equipment   `json:"eligible"`
	ReasonCode string               `json:"reason_code,omitempty"`
	ReasonText string               `json:"reason_text,omitempty"`
	Stages     []CompatibilityStage `json:"stages"`
}

// FilterCompatibleEquipment narrows the catalog stage by stage and reports
// the first stage that emptied it. Catalog order is preserved.
func FilterCompatibleEquipment(catalog []models.Equipment, job models.ProductionJob) CompatibilityResult {
	result := CompatibilityResult{}
	result.Stages = append(result.Stages, CompatibilityStage{Name: "catalog", Candidates: catalog})
	if len(catalog) == 0 {
		result.ReasonCode = "NO_EQUIPMENT"
		result.ReasonText = "Equipment catalog is empty"
		return result
	}

	afterMethod := filterEquipment(catalog, func(eq models.Equipment) bool { return methodMatches(eq, job) })
	result.Stages = append(result.Stages, CompatibilityStage{Name: "method_rule", Candidates: afterMethod})
	if len(afterMethod) == 0 {
		result.ReasonCode = "METHOD_MISMATCH"
		result.ReasonText = fmt.Sprintf("No equipment runs %s", job.DecorationMethod)
		return result
	}

	afterQuantity := filterEquipment(afterMethod, func(eq models.Equipment) bool { return quantityFits(eq, job) })
	result.Stages = append(result.Stages, CompatibilityStage{Name: "quantity_rule", Candidates: afterQuantity})
	if len(afterQuantity) == 0 {
		result.ReasonCode = "QUANTITY_OUT_OF_RANGE"
		result.ReasonText = fmt.Sprintf("No %s equipment accepts quantity %d", job.DecorationMethod, job.Quantity)
		return result
	}

	result.Eligible = afterQuantity
	return result
}

func filterEquipment(equipment []models.Equipment, keep func(models.Equipment) bool) []models.Equipment {
	out := make([]models.Equipment, 0, len(equipment))
	for _, eq := range equipment {
		if keep(eq) {
			out = append(out, eq)
		}
	}
	return out
}

type Router struct {
	Weights ScoringWeights
}

func NewRouter(w ScoringWeights) Router {
	return Router{Weights: w}
}

// Recommend scores every compatible piece of equipment for job, best first.
// Equal scores keep catalog order.
func (r Router) Recommend(job models.ProductionJob, catalog []models.Equipment, now time.Time) []models.EquipmentRecommendation {
	eligible := FilterCompatibleEquipment(catalog, job).Eligible
	out := make([]models.EquipmentRecommendation, 0, len(eligible))
	for _, eq := range eligible {
		out = append(out, r.Score(job, eq, now))
	}
	slices.SortStableFunc(out, func(a, b models.EquipmentRecommendation) int {
		return cmp.Compare(b.SuitabilityScore, a.SuitabilityScore)
	})
	if len(out) > 0 {
		out[0].BestMatch = true
	}
	return out
}

// Score computes the additive suitability of eq for job. Compatibility is
// assumed; Recommend filters first.
func (r Router) Score(job models.ProductionJob, eq models.Equipment, now time.Time) models.EquipmentRecommendation {
	w := r.Weights
	rec := models.EquipmentRecommendation{
		Equipment: eq,
		Reasons:   []string{},
		Conflicts: []string{},
	}
	score := 0
	add := func(delta int, note string) {
		score += delta
		switch {
		case delta > 0:
			rec.Reasons = append(rec.Reasons, note)
		case delta < 0:
			rec.Conflicts = append(rec.Conflicts, note)
		}
	}

	add(w.Base, fmt.Sprintf("Compatible with %s", job.DecorationMethod))

	ratio := float64(job.Quantity) / float64(max(eq.Capacity, 1))
	pct := int(math.Round(ratio * 100))
	switch {
	case ratio > 1.0:
		rec.Conflicts = append(rec.Conflicts, fmt.Sprintf("Quantity is %d%% of daily capacity, run spans multiple days", pct))
	case ratio >= 0.7:
		add(w.RatioHigh, fmt.Sprintf("Efficient capacity use (%d%%)", pct))
	case ratio >= 0.3:
		add(w.RatioMid, fmt.Sprintf("Good capacity fit (%d%%)", pct))
	default:
		add(w.RatioLow, fmt.Sprintf("Ample spare capacity (%d%%)", pct))
	}

	switch {
	case eq.CurrentLoad < 50:
		add(w.LoadLow, fmt.Sprintf("Low current load (%d%%)", eq.CurrentLoad))
	case eq.CurrentLoad < 80:
		add(w.LoadModerate, fmt.Sprintf("Moderate current load (%d%%)", eq.CurrentLoad))
	default:
		add(w.LoadHigh, fmt.Sprintf("High current load (%d%%)", eq.CurrentLoad))
	}

	switch eq.Status {
	case models.EquipmentAvailable:
		add(w.StatusAvailable, "Available now")
	case models.EquipmentBusy:
		add(w.StatusBusy, "Currently busy")
	default:
		add(w.StatusUnavailable, fmt.Sprintf("Equipment is %s", eq.Status))
	}

	switch {
	case eq.SetupTime <= 30:
		add(w.SetupFast, fmt.Sprintf("Quick setup (%d min)", eq.SetupTime))
	case eq.SetupTime <= 60:
		add(w.SetupModerate, fmt.Sprintf("Moderate setup (%d min)", eq.SetupTime))
	default:
		add(w.SetupSlow, fmt.Sprintf("Long setup (%d min)", eq.SetupTime))
	}

	available := eq.Status == models.EquipmentAvailable
	urgentPriority := job.Priority == models.PriorityHigh || job.Priority == models.PriorityRush
	if urgentPriority && available && eq.CurrentLoad < w.PriorityBoostMaxLoad {
		add(w.PriorityBoost, fmt.Sprintf("Has room for %s priority work", job.Priority))
	}

	if utils.DaysUntil(job.DueDate, now) <= 1 {
		if available {
			add(w.DeadlineBoost, "Available for tight deadline")
		} else {
			rec.Conflicts = append(rec.Conflicts, "May not meet deadline")
		}
	}

	if sp, ok := eq.Kind.(models.ScreenPrinting); ok && sp.IsAutomatic && job.Quantity >= w.AutomationMinQuantity {
		add(w.AutomationBonus, "Automatic press suits large run")
	}

	rec.SuitabilityScore = min(max(score, 0), 100)
	rec.EstimatedMinutes = EstimateRunMinutes(job, eq)
	return rec
}

// EstimateRunMinutes is ceil(quantity/capacity * 8) hours of running plus
// the equipment's setup time.
func EstimateRunMinutes(job models.ProductionJob, eq models.Equipment) int {
	hours := math.Ceil(float64(job.Quantity) / float64(max(eq.Capacity, 1)) * 8)
	return int(hours)*60 + eq.SetupTime
}

// UrgencyScore rates how soon a job must run, 0-100.
func (r Router) UrgencyScore(job models.ProductionJob, now time.Time) int {
	days := utils.DaysUntil(job.DueDate, now)
	var score int
	switch {
	case days <= 0:
		score = 100
	case days <= 1:
		score = 90
	case days <= 2:
		score = 70
	case days <= 7:
		score = 50
	default:
		score = 20
	}
	switch job.Priority {
	case models.PriorityRush:
		score += r.Weights.UrgencyRushBoost
	case models.PriorityHigh:
		score += r.Weights.UrgencyHighBoost
	}
	return min(score, 100)
}

type QueueEntry struct {
	Job             models.ProductionJob             `json:"job"`
	Urgency         int                              `json:"urgency"`
	BestScore       int                              `json:"best_score"`
	Rank            float64                          `json:"rank"`
	Recommendations []models.EquipmentRecommendation `json:"recommendations"`
}

// Queue orders the unassigned jobs by urgency + best score / 2, highest first.
// Jobs with no compatible equipment rank on urgency alone.
func (r Router) Queue(jobs []models.ProductionJob, catalog []models.Equipment, now time.Time) []QueueEntry {
	out := []QueueEntry{}
	for _, j := range jobs {
		if j.Status != models.JobPending || j.IsScheduled() {
			continue
		}
		recs := r.Recommend(j, catalog, now)
		entry := QueueEntry{
			Job:             j,
			Urgency:         r.UrgencyScore(j, now),
			Recommendations: recs,
		}
		if len(recs) > 0 {
			entry.BestScore = recs[0].SuitabilityScore
		}
		entry.Rank = float64(entry.Urgency) + float64(entry.BestScore)/2
		out = append(out, entry)
	}
	slices.SortStableFunc(out, func(a, b QueueEntry) int {
		return cmp.Compare(b.Rank, a.Rank)
	})
	return out
}
