package crosshair

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// HorizontalAlignment anchors the readout panel horizontally.
type HorizontalAlignment string

// VerticalAlignment anchors the readout panel vertically.
type VerticalAlignment string

const (
	AlignLeft    HorizontalAlignment = "left"
	AlignHCenter HorizontalAlignment = "center"
	AlignRight   HorizontalAlignment = "right"
	AlignHFill   HorizontalAlignment = "stretch"

	AlignTop     VerticalAlignment = "top"
	AlignVCenter VerticalAlignment = "center"
	AlignBottom  VerticalAlignment = "bottom"
	AlignVFill   VerticalAlignment = "stretch"
)

func ParseHorizontalAlignment(v string) (HorizontalAlignment, error) {
	switch a := HorizontalAlignment(strings.ToLower(strings.TrimSpace(v))); a {
	case AlignLeft, AlignHCenter, AlignRight, AlignHFill:
		return a, nil
	case "":
		return AlignRight, nil
	}
	return "", fmt.Errorf("unknown horizontal alignment %q", v)
}

func ParseVerticalAlignment(v string) (VerticalAlignment, error) {
	switch a := VerticalAlignment(strings.ToLower(strings.TrimSpace(v))); a {
	case AlignTop, AlignVCenter, AlignBottom, AlignVFill:
		return a, nil
	case "":
		return AlignBottom, nil
	}
	return "", fmt.Errorf("unknown vertical alignment %q", v)
}

// ReadoutStyle places the measurement panel on screen.
type ReadoutStyle struct {
	Horizontal HorizontalAlignment `json:"horizontal" yaml:"horizontal"`
	Vertical   VerticalAlignment   `json:"vertical" yaml:"vertical"`
	Opacity    float64             `json:"opacity" yaml:"opacity"`
	Margin     float64             `json:"margin" yaml:"margin"`
}

// DefaultReadoutStyle is bottom-right, 0.8 opacity, margin 1.
func DefaultReadoutStyle() ReadoutStyle {
	return ReadoutStyle{Horizontal: AlignRight, Vertical: AlignBottom, Opacity: 0.8, Margin: 1}
}

// Normalize clamps opacity to [0,1] and margin to >= 0.
func (s ReadoutStyle) Normalize() ReadoutStyle {
	if s.Horizontal == "" {
		s.Horizontal = AlignRight
	}
	if s.Vertical == "" {
		s.Vertical = AlignBottom
	}
	s.Opacity = min(max(s.Opacity, 0), 1)
	s.Margin = max(s.Margin, 0)
	return s
}

// ReadoutValues are the four labeled fields of the panel.
type ReadoutValues struct {
	Time    string `json:"time"`
	Pips    string `json:"pips"`
	Periods string `json:"periods"`
	Price   string `json:"price"`
}

const readoutTimeLayout = "02/01/2006 15:04"

func formatReadout(t time.Time, loc *time.Location, pips float64, periods int, price float64, digits int) ReadoutValues {
	if loc == nil {
		loc = time.UTC
	}
	return ReadoutValues{
		Time:    t.In(loc).Format(readoutTimeLayout),
		Pips:    decimal.NewFromFloat(pips).Round(2).String(),
		Periods: strconv.Itoa(periods),
		Price:   decimal.NewFromFloat(price).Round(int32(digits)).String(),
	}
}
