package service

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// DropPayload is the serialized record a schedule board attaches to a
// dragged job. Fields beyond the ones listed are ignored.
type DropPayload struct {
	JobID             string  `json:"jobId" validate:"required"`
	IsScheduledMove   bool    `json:"isScheduledMove"`
	CurrentStartSlot  *string `json:"currentStartSlot,omitempty"`
	EstimatedDuration *int    `json:"estimatedDuration" validate:"required,gt=0"`
	ItemName          string  `json:"itemName,omitempty"`
	Quantity          int     `json:"quantity,omitempty" validate:"gte=0"`
}

// ScheduleCommand is a fully parsed drop: which job goes where and when.
type ScheduleCommand struct {
	JobID            string
	EquipmentID      string
	Start            time.Time
	Move             bool
	PreviousStart    *time.Time
	EstimatedMinutes int
}

// ParseScheduleCommand turns a raw drop payload plus its drop target into a
// ScheduleCommand. Any failure wraps ErrMalformedCommand; nothing is applied.
func ParseScheduleCommand(v *validator.Validate, payload, equipmentID, slotStart string) (ScheduleCommand, error) {
	if strings.TrimSpace(payload) == "" {
		return ScheduleCommand{}, fmt.Errorf("%w: empty payload", ErrMalformedCommand)
	}
	var p DropPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return ScheduleCommand{}, fmt.Errorf("%w: %v", ErrMalformedCommand, err)
	}
	if err := v.Struct(p); err != nil {
		return ScheduleCommand{}, fmt.Errorf("%w: %v", ErrMalformedCommand, err)
	}

	equipmentID = strings.TrimSpace(equipmentID)
	if equipmentID == "" {
		return ScheduleCommand{}, fmt.Errorf("%w: drop target equipment required", ErrMalformedCommand)
	}
	start, err := time.Parse(time.RFC3339, strings.TrimSpace(slotStart))
	if err != nil {
		return ScheduleCommand{}, fmt.Errorf("%w: slot start: %v", ErrMalformedCommand, err)
	}

	cmd := ScheduleCommand{
		JobID:            strings.TrimSpace(p.JobID),
		EquipmentID:      equipmentID,
		Start:            start,
		Move:             p.IsScheduledMove,
		EstimatedMinutes: *p.EstimatedDuration,
	}
	if p.CurrentStartSlot != nil {
		prev, err := time.Parse(time.RFC3339, *p.CurrentStartSlot)
		if err != nil {
			return ScheduleCommand{}, fmt.Errorf("%w: current start slot: %v", ErrMalformedCommand, err)
		}
		cmd.PreviousStart = &prev
	}
	if cmd.Move && cmd.PreviousStart == nil {
		return ScheduleCommand{}, fmt.Errorf("%w: scheduled move without current start slot", ErrMalformedCommand)
	}
	return cmd, nil
}
