package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/printshop/backend/internal/service"
)

type Config struct {
	Env              string        `mapstructure:"ENV"`
	Port             string        `mapstructure:"PORT"`
	DatabaseURL      string        `mapstructure:"DATABASE_URL"`
	AdminKey         string        `mapstructure:"ADMIN_KEY"`
	CORSAllowed      string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	RequestTimeout   time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	LogLevel         string        `mapstructure:"LOG_LEVEL"`
	MaxUploadSizeMB  int64         `mapstructure:"MAX_UPLOAD_MB"`
	ScheduleTimezone string        `mapstructure:"SCHEDULE_TIMEZONE"`
	DayStartHour     int           `mapstructure:"DAY_START_HOUR"`
	DayEndHour       int           `mapstructure:"DAY_END_HOUR"`
	SlotMinutes      int           `mapstructure:"SLOT_MINUTES"`

	Scoring service.ScoringWeights `mapstructure:",squash"`
}

func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("ADMIN_KEY", "")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("MAX_UPLOAD_MB", 20)
	v.SetDefault("SCHEDULE_TIMEZONE", "UTC")
	v.SetDefault("DAY_START_HOUR", 8)
	v.SetDefault("DAY_END_HOUR", 18)
	v.SetDefault("SLOT_MINUTES", 60)
	setScoringDefaults(v, service.DefaultScoringWeights())

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// AutomaticEnv only resolves keys viper already knows, so every weight gets
// an explicit default.
func setScoringDefaults(v *viper.Viper, w service.ScoringWeights) {
	v.SetDefault("SCORE_BASE", w.Base)
	v.SetDefault("SCORE_RATIO_HIGH", w.RatioHigh)
	v.SetDefault("SCORE_RATIO_MID", w.RatioMid)
	v.SetDefault("SCORE_RATIO_LOW", w.RatioLow)
	v.SetDefault("SCORE_LOAD_LOW", w.LoadLow)
	v.SetDefault("SCORE_LOAD_MODERATE", w.LoadModerate)
	v.SetDefault("SCORE_LOAD_HIGH", w.LoadHigh)
	v.SetDefault("SCORE_STATUS_AVAILABLE", w.StatusAvailable)
	v.SetDefault("SCORE_STATUS_BUSY", w.StatusBusy)
	v.SetDefault("SCORE_STATUS_UNAVAILABLE", w.StatusUnavailable)
	v.SetDefault("SCORE_SETUP_FAST", w.SetupFast)
	v.SetDefault("SCORE_SETUP_MODERATE", w.SetupModerate)
	v.SetDefault("SCORE_SETUP_SLOW", w.SetupSlow)
	v.SetDefault("SCORE_PRIORITY_BOOST", w.PriorityBoost)
	v.SetDefault("SCORE_PRIORITY_BOOST_MAX_LOAD", w.PriorityBoostMaxLoad)
	v.SetDefault("SCORE_DEADLINE_BOOST", w.DeadlineBoost)
	v.SetDefault("SCORE_AUTOMATION_BONUS", w.AutomationBonus)
	v.SetDefault("SCORE_AUTOMATION_MIN_QUANTITY", w.AutomationMinQuantity)
	v.SetDefault("SCORE_URGENCY_RUSH_BOOST", w.UrgencyRushBoost)
	v.SetDefault("SCORE_URGENCY_HIGH_BOOST", w.UrgencyHighBoost)
}

func (c Config) validate() error {
	if _, err := time.LoadLocation(c.ScheduleTimezone); err != nil {
		return fmt.Errorf("SCHEDULE_TIMEZONE: %w", err)
	}
	if c.DayStartHour < 0 || c.DayEndHour > 24 || c.DayStartHour >= c.DayEndHour {
		return fmt.Errorf("DAY_START_HOUR/DAY_END_HOUR: invalid range %d-%d", c.DayStartHour, c.DayEndHour)
	}
	if c.SlotMinutes <= 0 || (c.DayEndHour-c.DayStartHour)*60%c.SlotMinutes != 0 {
		return fmt.Errorf("SLOT_MINUTES: %d does not divide the working day", c.SlotMinutes)
	}
	return nil
}

// Location resolves ScheduleTimezone; Load has already validated it.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.ScheduleTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c Config) GridOptions() service.GridOptions {
	return service.GridOptions{
		DayStartHour: c.DayStartHour,
		DayEndHour:   c.DayEndHour,
		SlotMinutes:  c.SlotMinutes,
	}
}
