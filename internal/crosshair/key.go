package crosshair

import (
	"fmt"
	"strings"
)

// ChartKey identifies one logical chart: symbol, timeframe and rendering mode.
type ChartKey struct {
	Symbol    string `json:"symbol"`
	Timeframe string `json:"timeframe"`
	ChartType string `json:"chart_type"`
}

func (k ChartKey) String() string {
	return fmt.Sprintf("%s_%s_%s", k.Symbol, k.Timeframe, k.ChartType)
}

// ParseChartKey reverses String. The chart type is the last segment and the
// timeframe the one before it, so symbols may contain underscores.
func ParseChartKey(s string) (ChartKey, error) {
	last := strings.LastIndex(s, "_")
	if last <= 0 {
		return ChartKey{}, fmt.Errorf("chart key %q: missing chart type", s)
	}
	rest, chartType := s[:last], s[last+1:]
	mid := strings.LastIndex(rest, "_")
	if mid <= 0 {
		return ChartKey{}, fmt.Errorf("chart key %q: missing timeframe", s)
	}
	k := ChartKey{Symbol: rest[:mid], Timeframe: rest[mid+1:], ChartType: chartType}
	if k.Timeframe == "" || k.ChartType == "" {
		return ChartKey{}, fmt.Errorf("chart key %q: empty segment", s)
	}
	return k, nil
}

func (k ChartKey) objectName(suffix string) string {
	return k.String() + "_" + suffix
}
