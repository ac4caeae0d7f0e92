package crosshair

// PriceRange is the visible vertical range of a chart.
type PriceRange struct {
	Bottom float64 `json:"bottom"`
	Top    float64 `json:"top"`
}

// Height is Top - Bottom.
func (r PriceRange) Height() float64 { return r.Top - r.Bottom }

// Percent returns where y sits inside the range, 0 at Bottom and 1 at Top.
// A zero-height range yields 0.
func (r PriceRange) Percent(y float64) float64 {
	h := r.Height()
	if h == 0 {
		return 0
	}
	return (y - r.Bottom) / h
}

// At is the inverse of Percent.
func (r PriceRange) At(percent float64) float64 {
	return r.Bottom + percent*r.Height()
}

// Remap converts y on a chart showing from into the value at the same relative
// height on a chart showing to.
func Remap(y float64, from, to PriceRange) float64 {
	return to.At(from.Percent(y))
}
