package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dgnsrekt/tv_crosshair/internal/crosshair"
	"gopkg.in/yaml.v3"
)

// ChartMatch selects charts by symbol and/or timeframe. Empty fields match
// anything; symbols compare case-insensitively.
type ChartMatch struct {
	Symbol    string `yaml:"symbol"`
	Timeframe string `yaml:"timeframe"`
}

// DataboxOverride overrides individual readout style fields.
type DataboxOverride struct {
	HAlign  string   `yaml:"halign"`
	VAlign  string   `yaml:"valign"`
	Opacity *float64 `yaml:"opacity"`
	Margin  *float64 `yaml:"margin"`
}

// ChartOverride adjusts overlay options for matching charts.
type ChartOverride struct {
	Match      ChartMatch       `yaml:"match"`
	Mode       string           `yaml:"mode"`
	ScrollSync *bool            `yaml:"scroll_sync"`
	Databox    *DataboxOverride `yaml:"databox"`
}

// ChartsConfig is the top-level YAML file: per-chart overrides and the
// chart URLs the launcher opens.
type ChartsConfig struct {
	Charts []ChartOverride `yaml:"charts"`
	URLs   []string        `yaml:"urls"`
}

// LoadCharts reads and validates a charts YAML file. A missing file yields
// an empty config.
func LoadCharts(path string) (*ChartsConfig, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &ChartsConfig{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("charts config: %w", err)
	}
	var cfg ChartsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("charts config: %w", err)
	}
	for i, c := range cfg.Charts {
		if c.Mode != "" {
			if _, err := crosshair.ParseScope(c.Mode); err != nil {
				return nil, fmt.Errorf("charts config: charts[%d]: %w", i, err)
			}
		}
		if c.Databox != nil {
			if _, err := crosshair.ParseHorizontalAlignment(c.Databox.HAlign); err != nil {
				return nil, fmt.Errorf("charts config: charts[%d]: %w", i, err)
			}
			if _, err := crosshair.ParseVerticalAlignment(c.Databox.VAlign); err != nil {
				return nil, fmt.Errorf("charts config: charts[%d]: %w", i, err)
			}
		}
	}
	for i, u := range cfg.URLs {
		if strings.TrimSpace(u) == "" {
			return nil, fmt.Errorf("charts config: urls[%d] is empty", i)
		}
	}
	return &cfg, nil
}

func (m ChartMatch) matches(key crosshair.ChartKey) bool {
	if m.Symbol != "" && !strings.EqualFold(m.Symbol, key.Symbol) {
		return false
	}
	if m.Timeframe != "" && m.Timeframe != key.Timeframe {
		return false
	}
	return true
}

// Resolve applies every matching override, in file order, on top of base.
// Later entries win field by field.
func (c *ChartsConfig) Resolve(base crosshair.Options, key crosshair.ChartKey) crosshair.Options {
	opts := base
	if c == nil {
		return opts
	}
	for _, o := range c.Charts {
		if !o.Match.matches(key) {
			continue
		}
		if o.Mode != "" {
			// Validated by LoadCharts.
			opts.Scope, _ = crosshair.ParseScope(o.Mode)
		}
		if o.ScrollSync != nil {
			opts.ScrollSync = *o.ScrollSync
		}
		if d := o.Databox; d != nil {
			if d.HAlign != "" {
				opts.Readout.Horizontal, _ = crosshair.ParseHorizontalAlignment(d.HAlign)
			}
			if d.VAlign != "" {
				opts.Readout.Vertical, _ = crosshair.ParseVerticalAlignment(d.VAlign)
			}
			if d.Opacity != nil {
				opts.Readout.Opacity = *d.Opacity
			}
			if d.Margin != nil {
				opts.Readout.Margin = *d.Margin
			}
		}
	}
	opts.Readout = opts.Readout.Normalize()
	return opts
}
