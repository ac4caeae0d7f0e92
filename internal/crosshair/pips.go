package crosshair

import "math"

// Precision is the instrument metadata needed to express distances in pips.
type Precision struct {
	TickSize float64 `json:"tick_size"`
	PipSize  float64 `json:"pip_size"`
	Digits   int     `json:"digits"`
}

// ToPips converts a price distance to pips:
// |delta| * (TickSize / PipSize) * 10^Digits.
func ToPips(delta float64, p Precision) float64 {
	if p.PipSize == 0 {
		return 0
	}
	return math.Abs(delta) * (p.TickSize / p.PipSize * math.Pow(10, float64(p.Digits)))
}
