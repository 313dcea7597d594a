package service

import (
	"cmp"
	"slices"
	"time"

	"github.com/printshop/backend/internal/models"
)

type SlotPlacement struct {
	Job         models.ProductionJob `json:"job"`
	Column      int                  `json:"column"`
	SpansBeyond bool                 `json:"spans_beyond"`
}

type SlotLayout struct {
	EquipmentID string          `json:"equipment_id"`
	Start       time.Time       `json:"start"`
	Minutes     int             `json:"minutes"`
	Placements  []SlotPlacement `json:"placements"`
	MaxColumns  int             `json:"max_columns"`
}

// Overlapping reports whether more than one job shares the slot at the same time.
func (l SlotLayout) Overlapping() bool {
	return l.MaxColumns > 1
}

// LayoutSlot places every job on equipmentID whose [start, end) interval
// intersects the slot into the lowest column that holds no overlapping job.
// Jobs are taken in scheduled start order; ties keep the order of jobs.
func LayoutSlot(equipmentID string, slotStart time.Time, slotLen time.Duration, jobs []models.ProductionJob) SlotLayout {
	slotEnd := slotStart.Add(slotLen)
	layout := SlotLayout{
		EquipmentID: equipmentID,
		Start:       slotStart,
		Minutes:     int(slotLen / time.Minute),
	}

	var inSlot []models.ProductionJob
	for _, j := range jobs {
		if !j.IsScheduled() || *j.AssignedEquipmentID != equipmentID {
			continue
		}
		if intervalsOverlap(*j.ScheduledStart, *j.ScheduledEnd, slotStart, slotEnd) {
			inSlot = append(inSlot, j)
		}
	}
	slices.SortStableFunc(inSlot, func(a, b models.ProductionJob) int {
		return a.ScheduledStart.Compare(*b.ScheduledStart)
	})

	var columns [][]models.ProductionJob
	for _, j := range inSlot {
		col := firstFreeColumn(columns, j)
		if col == len(columns) {
			columns = append(columns, nil)
		}
		columns[col] = append(columns[col], j)

		start := *j.ScheduledStart
		startsHere := !start.Before(slotStart) && start.Before(slotEnd)
		layout.Placements = append(layout.Placements, SlotPlacement{
			Job:         j,
			Column:      col,
			SpansBeyond: startsHere && start.Sub(slotStart)+j.Duration() > slotLen,
		})
		layout.MaxColumns = max(layout.MaxColumns, col+1)
	}
	return layout
}

func firstFreeColumn(columns [][]models.ProductionJob, j models.ProductionJob) int {
	for i, placed := range columns {
		free := true
		for _, p := range placed {
			if intervalsOverlap(*p.ScheduledStart, *p.ScheduledEnd, *j.ScheduledStart, *j.ScheduledEnd) {
				free = false
				break
			}
		}
		if free {
			return i
		}
	}
	return len(columns)
}

func intervalsOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

type GridOptions struct {
	DayStartHour int
	DayEndHour   int
	SlotMinutes  int
	Now          time.Time
}

func (o GridOptions) withDefaults() GridOptions {
	if o.SlotMinutes <= 0 {
		o.SlotMinutes = 60
	}
	if o.DayEndHour <= o.DayStartHour {
		o.DayStartHour, o.DayEndHour = 8, 18
	}
	return o
}

type EquipmentDay struct {
	Equipment          models.Equipment            `json:"equipment"`
	UtilizationPercent float64                     `json:"utilization_percent"`
	CapacityWarning    bool                        `json:"capacity_warning"`
	Slots              []SlotLayout                `json:"slots"`
	Conflicts          []models.SchedulingConflict `json:"conflicts"`
}

type DayGrid struct {
	Date time.Time      `json:"date"`
	Rows []EquipmentDay `json:"rows"`
}

// BuildDayGrid lays out date for every piece of equipment, in catalog order.
// date must be midnight in the schedule's location.
func BuildDayGrid(equipment []models.Equipment, jobs []models.ProductionJob, date time.Time, opts GridOptions) DayGrid {
	opts = opts.withDefaults()
	slotLen := time.Duration(opts.SlotMinutes) * time.Minute
	first := date.Add(time.Duration(opts.DayStartHour) * time.Hour)
	last := date.Add(time.Duration(opts.DayEndHour) * time.Hour)

	grid := DayGrid{Date: date}
	for _, eq := range equipment {
		onDate := JobsOnDate(eq.ID, jobs, date)
		util := Utilization(eq, onDate)
		row := EquipmentDay{
			Equipment:          eq,
			UtilizationPercent: DisplayPercent(util),
			CapacityWarning:    util.GreaterThanOrEqual(capacityWarningThreshold),
			Conflicts:          tagConflicts(eq, DetectConflicts(eq, onDate, opts.Now)),
		}
		for t := first; t.Before(last); t = t.Add(slotLen) {
			row.Slots = append(row.Slots, LayoutSlot(eq.ID, t, slotLen, jobs))
		}
		grid.Rows = append(grid.Rows, row)
	}
	return grid
}

// sortJobsByStart orders scheduled jobs by start time, then id.
func sortJobsByStart(jobs []models.ProductionJob) {
	slices.SortStableFunc(jobs, func(a, b models.ProductionJob) int {
		if a.ScheduledStart != nil && b.ScheduledStart != nil {
			if c := a.ScheduledStart.Compare(*b.ScheduledStart); c != 0 {
				return c
			}
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
