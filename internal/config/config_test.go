package config

import (
	"testing"
	_ "time/tzdata"

	"github.com/printshop/backend/internal/service"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" || cfg.SlotMinutes != 60 || cfg.DayStartHour != 8 || cfg.DayEndHour != 18 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.Scoring != service.DefaultScoringWeights() {
		t.Fatalf("expected default weights, got %+v", cfg.Scoring)
	}
}

func TestLoadOverridesFromEnv(t *testing.T) {
	t.Setenv("SCORE_BASE", "40")
	t.Setenv("SCORE_LOAD_HIGH", "-20")
	t.Setenv("SLOT_MINUTES", "30")
	t.Setenv("SCHEDULE_TIMEZONE", "America/Chicago")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Scoring.Base != 40 || cfg.Scoring.LoadHigh != -20 || cfg.Scoring.RatioHigh != 25 {
		t.Fatalf("unexpected weights %+v", cfg.Scoring)
	}
	if cfg.SlotMinutes != 30 || cfg.Location().String() != "America/Chicago" {
		t.Fatalf("unexpected grid settings %+v", cfg)
	}
}

func TestLoadRejectsBadGrid(t *testing.T) {
	t.Setenv("SLOT_MINUTES", "7")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for slot length that does not divide the day")
	}
}
