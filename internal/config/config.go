package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Baseline provider kinds
const (
	ProviderStatic     = "static"
	ProviderAggregated = "aggregated"
)

// Config holds application configuration
type Config struct {
	Port     string
	LogLevel string

	BaselineProvider string
	WageTablePath    string
	WatchWageTable   bool

	DBConn     string
	SQLitePath string

	RefreshSchedule string
	DataMaxAge      time.Duration
	SourceDelay     time.Duration

	BandLow  float64
	BandHigh float64

	BLSReleaseURL   string
	BLSDailyLimit   int
	BLSJitter       float64
	GlassdoorJitter float64
	GlassdoorSample int

	ReportBrand  string
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SenderEmail  string
}

// NewConfig loads configuration from environment variables
func NewConfig() (*Config, error) {
	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		LogLevel:         getEnv("LOG_LEVEL", "INFO"),
		BaselineProvider: strings.ToLower(getEnv("BASELINE_PROVIDER", ProviderAggregated)),
		WageTablePath:    getEnv("WAGE_TABLE_PATH", ""),
		DBConn:           getEnv("DB_CONN", ""),
		SQLitePath:       getEnv("SQLITE_PATH", ""),
		RefreshSchedule:  getEnv("REFRESH_SCHEDULE", "@every 24h"),
		BLSReleaseURL:    getEnv("BLS_RELEASE_URL", ""),
		ReportBrand:      getEnv("REPORT_BRAND", "Reasonable Compensation"),
		SMTPHost:         getEnv("SMTP_HOST", "localhost"),
		SMTPPort:         getEnv("SMTP_PORT", "1025"),
		SMTPUsername:     getEnv("SMTP_USERNAME", ""),
		SMTPPassword:     getEnv("SMTP_PASSWORD", ""),
		SenderEmail:      getEnv("SENDER_EMAIL", "reports@localhost"),
	}

	var err error
	if cfg.WatchWageTable, err = getBool("WATCH_WAGE_TABLE", false); err != nil {
		return nil, err
	}
	if cfg.DataMaxAge, err = getDuration("DATA_MAX_AGE", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.SourceDelay, err = getDuration("SOURCE_DELAY", 200*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.BandLow, err = getFloat("BAND_LOW", 0.90); err != nil {
		return nil, err
	}
	if cfg.BandHigh, err = getFloat("BAND_HIGH", 1.15); err != nil {
		return nil, err
	}
	if cfg.BLSDailyLimit, err = getInt("BLS_DAILY_LIMIT", 500); err != nil {
		return nil, err
	}
	if cfg.BLSJitter, err = getFloat("BLS_JITTER", 0.08); err != nil {
		return nil, err
	}
	if cfg.GlassdoorJitter, err = getFloat("GLASSDOOR_JITTER", 0.15); err != nil {
		return nil, err
	}
	if cfg.GlassdoorSample, err = getInt("GLASSDOOR_SAMPLE", 5); err != nil {
		return nil, err
	}

	if cfg.Port == "" {
		return nil, fmt.Errorf("PORT is required")
	}
	if cfg.BaselineProvider != ProviderStatic && cfg.BaselineProvider != ProviderAggregated {
		return nil, fmt.Errorf("BASELINE_PROVIDER must be %q or %q, got %q", ProviderStatic, ProviderAggregated, cfg.BaselineProvider)
	}
	if cfg.WatchWageTable && cfg.WageTablePath == "" {
		return nil, fmt.Errorf("WATCH_WAGE_TABLE requires WAGE_TABLE_PATH")
	}
	if cfg.DataMaxAge <= 0 {
		return nil, fmt.Errorf("DATA_MAX_AGE must be positive")
	}
	if cfg.SourceDelay < 0 {
		return nil, fmt.Errorf("SOURCE_DELAY must not be negative")
	}
	if cfg.BLSJitter < 0 || cfg.BLSJitter >= 1 {
		return nil, fmt.Errorf("BLS_JITTER must be in [0, 1)")
	}
	if cfg.GlassdoorJitter < 0 || cfg.GlassdoorJitter >= 1 {
		return nil, fmt.Errorf("GLASSDOOR_JITTER must be in [0, 1)")
	}
	if cfg.GlassdoorSample <= 0 {
		return nil, fmt.Errorf("GLASSDOOR_SAMPLE must be positive")
	}
	if cfg.BLSDailyLimit <= 0 {
		return nil, fmt.Errorf("BLS_DAILY_LIMIT must be positive")
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getBool(key string, defaultVal bool) (bool, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultVal, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func getInt(key string, defaultVal int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultVal, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func getFloat(key string, defaultVal float64) (float64, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultVal, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultVal, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}
