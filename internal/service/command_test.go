package service

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
)

func TestParseScheduleCommand(t *testing.T) {
	v := validator.New()

	cmd, err := ParseScheduleCommand(v, `{"jobId":"J1","estimatedDuration":45,"itemName":"Polo","quantity":120,"extra":true}`, "E1", "2026-03-10T09:00:00Z")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cmd.JobID != "J1" || cmd.EquipmentID != "E1" || cmd.Move || cmd.EstimatedMinutes != 45 || !cmd.Start.Equal(at(9, 0)) {
		t.Fatalf("unexpected command %+v", cmd)
	}

	cmd, err = ParseScheduleCommand(v, `{"jobId":"J1","estimatedDuration":45,"isScheduledMove":true,"currentStartSlot":"2026-03-10T08:00:00Z"}`, "E2", "2026-03-10T11:00:00Z")
	if err != nil {
		t.Fatalf("parse move: %v", err)
	}
	if !cmd.Move || cmd.PreviousStart == nil || !cmd.PreviousStart.Equal(at(8, 0)) {
		t.Fatalf("unexpected move command %+v", cmd)
	}
}

func TestParseScheduleCommandMalformed(t *testing.T) {
	v := validator.New()
	tests := []struct {
		name, payload, equipment, slot string
	}{
		{"empty payload", "", "E1", "2026-03-10T09:00:00Z"},
		{"not json", "{jobId:", "E1", "2026-03-10T09:00:00Z"},
		{"missing job", `{"estimatedDuration":45}`, "E1", "2026-03-10T09:00:00Z"},
		{"missing duration", `{"jobId":"J1"}`, "E1", "2026-03-10T09:00:00Z"},
		{"zero duration", `{"jobId":"J1","estimatedDuration":0}`, "E1", "2026-03-10T09:00:00Z"},
		{"no target", `{"jobId":"J1","estimatedDuration":45}`, " ", "2026-03-10T09:00:00Z"},
		{"bad slot", `{"jobId":"J1","estimatedDuration":45}`, "E1", "9am"},
		{"move without slot", `{"jobId":"J1","estimatedDuration":45,"isScheduledMove":true}`, "E1", "2026-03-10T09:00:00Z"},
		{"bad current slot", `{"jobId":"J1","estimatedDuration":45,"isScheduledMove":true,"currentStartSlot":"later"}`, "E1", "2026-03-10T09:00:00Z"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseScheduleCommand(v, tc.payload, tc.equipment, tc.slot); !errors.Is(err, ErrMalformedCommand) {
				t.Fatalf("expected ErrMalformedCommand, got %v", err)
			}
		})
	}
}
