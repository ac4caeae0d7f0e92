package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dgnsrekt/tv_crosshair/internal/crosshair"
	"github.com/joho/godotenv"
)

// Config holds all process settings for tv_crosshair.
type Config struct {
	// CDP connection settings
	CDPAddress    string
	CDPPort       int
	TabURLFilter  string
	EvalTimeoutMS int

	// HTTP API
	BindAddr         string
	PortCandidates   []string
	PortAutoFallback bool
	SSEHeartbeatMS   int

	// Overlay behaviour
	ResyncIntervalMS int
	HookQueueSize    int
	Mode             crosshair.Scope
	ScrollSync       bool
	Readout          crosshair.ReadoutStyle
	Timezone         string
	ChartsConfig     string

	// Event journal; empty JournalDir disables it.
	JournalDir       string
	JournalMaxSizeMB int

	LaunchBrowser     bool
	BrowserBinary     string
	BrowserProfileDir string

	LogLevel string
	LogFile  string
}

// Load reads configuration from environment variables and optional .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	cfg := &Config{
		CDPAddress:        getEnvOrDefault("CHROMIUM_CDP_ADDRESS", "127.0.0.1"),
		CDPPort:           getEnvIntOrDefault("CHROMIUM_CDP_PORT", 9220),
		TabURLFilter:      getEnvOrDefault("CROSSHAIR_TAB_URL_FILTER", "tradingview.com"),
		EvalTimeoutMS:     getEnvIntOrDefault("CROSSHAIR_EVAL_TIMEOUT_MS", 5000),
		BindAddr:          getEnvOrDefault("CROSSHAIR_BIND_ADDR", "127.0.0.1:8188"),
		PortCandidates:    getEnvListOrDefault("CROSSHAIR_PORT_CANDIDATES", []string{"127.0.0.1:8189", "127.0.0.1:8190"}),
		PortAutoFallback:  getEnvBoolOrDefault("CROSSHAIR_PORT_AUTO_FALLBACK", true),
		SSEHeartbeatMS:    getEnvIntOrDefault("CROSSHAIR_SSE_HEARTBEAT_MS", 15000),
		ResyncIntervalMS:  getEnvIntOrDefault("CROSSHAIR_RESYNC_INTERVAL_MS", 5000),
		HookQueueSize:     getEnvIntOrDefault("CROSSHAIR_HOOK_QUEUE_SIZE", 64),
		ScrollSync:        getEnvBoolOrDefault("CROSSHAIR_SCROLL_SYNC", false),
		Timezone:          getEnvOrDefault("CROSSHAIR_TIMEZONE", "UTC"),
		ChartsConfig:      getEnvOrDefault("CROSSHAIR_CHARTS_CONFIG", "./config/charts.yaml"),
		JournalDir:        getEnvOrDefault("CROSSHAIR_EVENT_JOURNAL_DIR", ""),
		JournalMaxSizeMB:  getEnvIntOrDefault("CROSSHAIR_EVENT_JOURNAL_MAX_MB", 50),
		LaunchBrowser:     getEnvBoolOrDefault("CROSSHAIR_LAUNCH_BROWSER", false),
		BrowserBinary:     getEnvOrDefault("CROSSHAIR_BROWSER_BIN", ""),
		BrowserProfileDir: getEnvOrDefault("CROSSHAIR_BROWSER_PROFILE_DIR", "./browser_profile"),
		LogLevel:          strings.ToLower(getEnvOrDefault("CROSSHAIR_LOG_LEVEL", "info")),
		LogFile:           getEnvOrDefault("CROSSHAIR_LOG_FILE", "logs/tv_crosshair.log"),
	}

	mode, err := crosshair.ParseScope(getEnvOrDefault("CROSSHAIR_MODE", "all"))
	if err != nil {
		return nil, fmt.Errorf("CROSSHAIR_MODE: %w", err)
	}
	cfg.Mode = mode

	h, err := crosshair.ParseHorizontalAlignment(getEnvOrDefault("CROSSHAIR_DATABOX_HALIGN", "right"))
	if err != nil {
		return nil, fmt.Errorf("CROSSHAIR_DATABOX_HALIGN: %w", err)
	}
	v, err := crosshair.ParseVerticalAlignment(getEnvOrDefault("CROSSHAIR_DATABOX_VALIGN", "bottom"))
	if err != nil {
		return nil, fmt.Errorf("CROSSHAIR_DATABOX_VALIGN: %w", err)
	}
	cfg.Readout = crosshair.ReadoutStyle{
		Horizontal: h,
		Vertical:   v,
		Opacity:    getEnvFloatOrDefault("CROSSHAIR_DATABOX_OPACITY", 0.8),
		Margin:     getEnvFloatOrDefault("CROSSHAIR_DATABOX_MARGIN", 1),
	}.Normalize()

	if _, err := cfg.Location(); err != nil {
		return nil, fmt.Errorf("CROSSHAIR_TIMEZONE: %w", err)
	}
	if cfg.EvalTimeoutMS < 1000 {
		cfg.EvalTimeoutMS = 1000
	}
	if cfg.ResyncIntervalMS < 500 {
		cfg.ResyncIntervalMS = 500
	}
	if cfg.HookQueueSize < 1 {
		cfg.HookQueueSize = 1
	}
	return cfg, nil
}

// CDPURL returns the CDP HTTP endpoint.
func (c *Config) CDPURL() string {
	return "http://" + c.CDPAddress + ":" + strconv.Itoa(c.CDPPort)
}

// Location resolves Timezone; "Local" is the host zone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// DefaultOptions are the overlay options before per-chart overrides.
func (c *Config) DefaultOptions() crosshair.Options {
	return crosshair.Options{Scope: c.Mode, ScrollSync: c.ScrollSync, Readout: c.Readout}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloatOrDefault(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvListOrDefault(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
