package cdpcontrol

import "fmt"

const (
	CodeValidation     = "VALIDATION"
	CodeChartNotFound  = "CHART_NOT_FOUND"
	CodeAPIUnavailable = "API_UNAVAILABLE"
	CodeEvalFailure    = "EVAL_FAILURE"
	CodeEvalTimeout    = "EVAL_TIMEOUT"
	CodeCDPUnavailable = "CDP_UNAVAILABLE"
)

// CodedError is a typed error used for stable API mapping.
type CodedError struct {
	Code    string
	Message string
	Cause   error
}

func (e *CodedError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
}

func (e *CodedError) Unwrap() error { return e.Cause }

func newError(code, msg string, cause error) error {
	return &CodedError{Code: code, Message: msg, Cause: cause}
}

// ChartInfo describes a chart tab mapped from a browser target.
type ChartInfo struct {
	ChartID  string `json:"chart_id"`
	TargetID string `json:"target_id"`
	URL      string `json:"url"`
	Title    string `json:"title,omitempty"`
}

// ChartIdentity is what distinguishes one logical chart from another.
type ChartIdentity struct {
	Symbol      string `json:"symbol"`
	Resolution  string `json:"resolution"`
	ChartTypeID int    `json:"chart_type_id"`
	ChartType   string `json:"chart_type"`
}

var chartTypeNames = map[int]string{
	0:  "Bars",
	1:  "Candles",
	2:  "Line",
	3:  "Area",
	4:  "Renko",
	5:  "Kagi",
	6:  "PointAndFigure",
	7:  "LineBreak",
	8:  "HeikinAshi",
	9:  "HollowCandles",
	10: "Baseline",
	11: "Range",
	12: "HiLo",
	13: "Columns",
	14: "LineWithMarkers",
	15: "Stepline",
	16: "HLCArea",
}

// ChartTypeName maps a TradingView chart style id to a stable name.
func ChartTypeName(id int) string {
	if name, ok := chartTypeNames[id]; ok {
		return name
	}
	return fmt.Sprintf("Style%d", id)
}

// SymbolInfo describes extended metadata for a symbol.
type SymbolInfo struct {
	Symbol      string `json:"symbol"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Exchange    string `json:"exchange,omitempty"`
	Type        string `json:"type,omitempty"`
	Currency    string `json:"currency,omitempty"`
	Timezone    string `json:"timezone,omitempty"`
	PriceScale  int    `json:"pricescale,omitempty"`
	MinMov      int    `json:"minmov,omitempty"`
	HasIntraday bool   `json:"has_intraday,omitempty"`
	HasDaily    bool   `json:"has_daily,omitempty"`
}

// ShapePoint is a drawing anchor. Time is in unix seconds.
type ShapePoint struct {
	Time  int64   `json:"time,omitempty"`
	Price float64 `json:"price"`
}

// ShapeOptions are passed to createShape / createMultipointShape.
type ShapeOptions struct {
	Shape            string         `json:"shape"`
	Text             string         `json:"text,omitempty"`
	Lock             bool           `json:"lock,omitempty"`
	DisableSelection bool           `json:"disableSelection,omitempty"`
	DisableSave      bool           `json:"disableSave,omitempty"`
	DisableUndo      bool           `json:"disableUndo,omitempty"`
	Overrides        map[string]any `json:"overrides,omitempty"`
}

// VisibleRange is the visible time window in unix seconds.
type VisibleRange struct {
	From float64 `json:"from"`
	To   float64 `json:"to"`
}

// PriceRange is the visible price window of the main series scale.
type PriceRange struct {
	From float64 `json:"from"`
	To   float64 `json:"to"`
}

// Panel is the on-page measurement box.
type Panel struct {
	Horizontal string     `json:"horizontal"`
	Vertical   string     `json:"vertical"`
	Opacity    float64    `json:"opacity"`
	Margin     float64    `json:"margin"`
	Rows       []PanelRow `json:"rows"`
}

// PanelRow is one labeled line of a Panel.
type PanelRow struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// HookEvent is one user interaction reported by the page hooks.
type HookEvent struct {
	Type         string  `json:"type"`
	Time         float64 `json:"time,omitempty"`
	Price        float64 `json:"price,omitempty"`
	Modifier     bool    `json:"modifier,omitempty"`
	FirstVisible float64 `json:"first_visible,omitempty"`
}

const (
	HookMouseMove = "mouse_move"
	HookMouseDown = "mouse_down"
	HookScroll    = "scroll"
)
