package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type EquipmentStatus string

const (
	EquipmentAvailable   EquipmentStatus = "available"
	EquipmentBusy        EquipmentStatus = "busy"
	EquipmentMaintenance EquipmentStatus = "maintenance"
	EquipmentOffline     EquipmentStatus = "offline"
)

func (s EquipmentStatus) Valid() bool {
	switch s {
	case EquipmentAvailable, EquipmentBusy, EquipmentMaintenance, EquipmentOffline:
		return true
	}
	return false
}

type DecorationMethod string

const (
	MethodEmbroidery     DecorationMethod = "embroidery"
	MethodScreenPrinting DecorationMethod = "screen_printing"
	MethodDTG            DecorationMethod = "dtg"
	MethodHeatTransfer   DecorationMethod = "heat_transfer"
)

func (m DecorationMethod) Valid() bool {
	switch m {
	case MethodEmbroidery, MethodScreenPrinting, MethodDTG, MethodHeatTransfer:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityRush   Priority = "rush"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityRush:
		return true
	}
	return false
}

type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobScheduled  JobStatus = "scheduled"
	JobInProgress JobStatus = "in_progress"
	JobCompleted  JobStatus = "completed"
)

func (s JobStatus) Valid() bool {
	switch s {
	case JobPending, JobScheduled, JobInProgress, JobCompleted:
		return true
	}
	return false
}

// EquipmentKind is the machine-specific payload of an Equipment record.
// Only Embroidery and ScreenPrinting implement it.
type EquipmentKind interface {
	Method() DecorationMethod
	equipmentKind()
}

type Embroidery struct {
	Heads     int `json:"heads"`
	MaxColors int `json:"max_colors"`
}

func (Embroidery) Method() DecorationMethod { return MethodEmbroidery }
func (Embroidery) equipmentKind()           {}

type ScreenPrinting struct {
	Screens     int  `json:"screens"`
	IsAutomatic bool `json:"is_automatic"`
}

func (ScreenPrinting) Method() DecorationMethod { return MethodScreenPrinting }
func (ScreenPrinting) equipmentKind()           {}

type Equipment struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Status      EquipmentStatus `json:"status"`
	Capacity    int             `json:"capacity"`
	CurrentLoad int             `json:"current_load"`
	SetupTime   int             `json:"setup_time"`
	MinQuantity int             `json:"min_quantity"`
	MaxQuantity int             `json:"max_quantity"`
	Kind        EquipmentKind   `json:"-"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Method returns the decoration method the equipment runs, or "" when the
// kind payload is missing.
func (e Equipment) Method() DecorationMethod {
	if e.Kind == nil {
		return ""
	}
	return e.Kind.Method()
}

func (e Equipment) Validate() error {
	switch {
	case e.ID == "":
		return errors.New("equipment id required")
	case e.Kind == nil:
		return fmt.Errorf("equipment %s: kind required", e.ID)
	case !e.Status.Valid():
		return fmt.Errorf("equipment %s: unknown status %q", e.ID, e.Status)
	case e.Capacity <= 0:
		return fmt.Errorf("equipment %s: capacity must be positive", e.ID)
	case e.MinQuantity > e.MaxQuantity:
		return fmt.Errorf("equipment %s: min quantity %d exceeds max quantity %d", e.ID, e.MinQuantity, e.MaxQuantity)
	case e.CurrentLoad < 0 || e.CurrentLoad > 100:
		return fmt.Errorf("equipment %s: current load %d out of range", e.ID, e.CurrentLoad)
	}
	return nil
}

type equipmentJSON struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	Status      EquipmentStatus `json:"status"`
	Capacity    int             `json:"capacity"`
	CurrentLoad int             `json:"current_load"`
	SetupTime   int             `json:"setup_time"`
	MinQuantity int             `json:"min_quantity"`
	MaxQuantity int             `json:"max_quantity"`
	Heads       *int            `json:"heads,omitempty"`
	MaxColors   *int            `json:"max_colors,omitempty"`
	Screens     *int            `json:"screens,omitempty"`
	IsAutomatic *bool           `json:"is_automatic,omitempty"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (e Equipment) MarshalJSON() ([]byte, error) {
	out := equipmentJSON{
		ID:          e.ID,
		Name:        e.Name,
		Type:        string(e.Method()),
		Status:      e.Status,
		Capacity:    e.Capacity,
		CurrentLoad: e.CurrentLoad,
		SetupTime:   e.SetupTime,
		MinQuantity: e.MinQuantity,
		MaxQuantity: e.MaxQuantity,
		UpdatedAt:   e.UpdatedAt,
	}
	switch k := e.Kind.(type) {
	case Embroidery:
		out.Heads, out.MaxColors = &k.Heads, &k.MaxColors
	case ScreenPrinting:
		out.Screens, out.IsAutomatic = &k.Screens, &k.IsAutomatic
	}
	return json.Marshal(out)
}

func (e *Equipment) UnmarshalJSON(b []byte) error {
	var in equipmentJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	kind, err := NewEquipmentKind(in.Type, deref(in.Heads), deref(in.MaxColors), deref(in.Screens), in.IsAutomatic != nil && *in.IsAutomatic)
	if err != nil {
		return err
	}
	*e = Equipment{
		ID:          in.ID,
		Name:        in.Name,
		Status:      in.Status,
		Capacity:    in.Capacity,
		CurrentLoad: in.CurrentLoad,
		SetupTime:   in.SetupTime,
		MinQuantity: in.MinQuantity,
		MaxQuantity: in.MaxQuantity,
		Kind:        kind,
		UpdatedAt:   in.UpdatedAt,
	}
	return nil
}

// NewEquipmentKind builds the kind payload from its flat column form, as it
// is stored in the database and in CSV imports.
func NewEquipmentKind(kind string, heads, maxColors, screens int, automatic bool) (EquipmentKind, error) {
	switch DecorationMethod(kind) {
	case MethodEmbroidery:
		return Embroidery{Heads: heads, MaxColors: maxColors}, nil
	case MethodScreenPrinting:
		return ScreenPrinting{Screens: screens, IsAutomatic: automatic}, nil
	default:
		return nil, fmt.Errorf("unknown equipment type %q", kind)
	}
}

func deref(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

type ProductionJob struct {
	ID                  string           `json:"id"`
	ItemName            string           `json:"item_name"`
	CustomerName        string           `json:"customer_name,omitempty"`
	Quantity            int              `json:"quantity"`
	DueDate             time.Time        `json:"due_date"`
	Priority            Priority         `json:"priority"`
	DecorationMethod    DecorationMethod `json:"decoration_method"`
	EstimatedMinutes    int              `json:"estimated_minutes"`
	Status              JobStatus        `json:"status"`
	AssignedEquipmentID *string          `json:"assigned_equipment_id"`
	ScheduledStart      *time.Time       `json:"scheduled_start"`
	ScheduledEnd        *time.Time       `json:"scheduled_end"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

func (j ProductionJob) Duration() time.Duration {
	return time.Duration(j.EstimatedMinutes) * time.Minute
}

// IsScheduled reports whether the job carries a complete assignment.
func (j ProductionJob) IsScheduled() bool {
	return j.AssignedEquipmentID != nil && j.ScheduledStart != nil && j.ScheduledEnd != nil
}

// Clone returns a copy that shares no pointers with j.
func (j ProductionJob) Clone() ProductionJob {
	if j.AssignedEquipmentID != nil {
		id := *j.AssignedEquipmentID
		j.AssignedEquipmentID = &id
	}
	if j.ScheduledStart != nil {
		t := *j.ScheduledStart
		j.ScheduledStart = &t
	}
	if j.ScheduledEnd != nil {
		t := *j.ScheduledEnd
		j.ScheduledEnd = &t
	}
	return j
}

func (j ProductionJob) Validate() error {
	switch {
	case j.ID == "":
		return errors.New("job id required")
	case j.Quantity <= 0:
		return fmt.Errorf("job %s: quantity must be positive", j.ID)
	case j.EstimatedMinutes <= 0:
		return fmt.Errorf("job %s: estimated duration must be positive", j.ID)
	case !j.Priority.Valid():
		return fmt.Errorf("job %s: unknown priority %q", j.ID, j.Priority)
	case !j.DecorationMethod.Valid():
		return fmt.Errorf("job %s: unknown decoration method %q", j.ID, j.DecorationMethod)
	case !j.Status.Valid():
		return fmt.Errorf("job %s: unknown status %q", j.ID, j.Status)
	}
	if (j.ScheduledStart == nil) != (j.ScheduledEnd == nil) {
		return fmt.Errorf("job %s: scheduled start and end must be set together", j.ID)
	}
	if j.ScheduledStart != nil && !j.ScheduledEnd.Equal(j.ScheduledStart.Add(j.Duration())) {
		return fmt.Errorf("job %s: scheduled end does not match estimated duration", j.ID)
	}
	return nil
}

type ConflictType string

const (
	ConflictCapacityExceeded     ConflictType = "capacity_exceeded"
	ConflictDueDateRisk          ConflictType = "due_date_risk"
	ConflictEquipmentUnavailable ConflictType = "equipment_unavailable"
)

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

type SchedulingConflict struct {
	Type             ConflictType `json:"type"`
	Description      string       `json:"description"`
	Severity         Severity     `json:"severity"`
	SuggestedActions []string     `json:"suggested_actions"`
	EquipmentID      string       `json:"equipment_id,omitempty"`
	EquipmentName    string       `json:"equipment_name,omitempty"`
	JobID            string       `json:"job_id,omitempty"`
}

type EquipmentRecommendation struct {
	Equipment        Equipment `json:"equipment"`
	SuitabilityScore int       `json:"suitability_score"`
	Reasons          []string  `json:"reasons"`
	Conflicts        []string  `json:"conflicts"`
	EstimatedMinutes int       `json:"estimated_minutes"`
	BestMatch        bool      `json:"best_match"`
}
