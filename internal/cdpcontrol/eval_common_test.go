package cdpcontrol

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestJSStringAndJSONHelpers(t *testing.T) {
	if got := jsString("hello\nworld"); got != "\"hello\\nworld\"" {
		t.Fatalf("jsString = %q, want %q", got, "\"hello\\nworld\"")
	}

	got := jsJSON(map[string]any{"a": 1, "b": true})
	var m map[string]any
	if err := json.Unmarshal([]byte(got), &m); err != nil {
		t.Fatalf("jsJSON returned invalid JSON: %v", err)
	}
	if len(m) != 2 {
		t.Fatalf("jsJSON decoded map has %d fields, want 2", len(m))
	}
	if m["b"] != true {
		t.Fatalf("jsJSON decoded map = %v, want b=true", m["b"])
	}
}

func TestJSEvalWrappers(t *testing.T) {
	syncExpr := wrapJSEval("return 1;")
	if !strings.Contains(syncExpr, "(function(){\ntry {") {
		t.Fatalf("unexpected sync wrapper: %s", syncExpr)
	}
	if strings.Contains(syncExpr, "(async function") {
		t.Fatalf("sync wrapper should not be async: %s", syncExpr)
	}

	asyncExpr := wrapJSEvalAsync("await Promise.resolve(1);")
	if !strings.Contains(asyncExpr, "(async function(){\ntry {") {
		t.Fatalf("unexpected async wrapper: %s", asyncExpr)
	}
	if !strings.Contains(asyncExpr, "await Promise.resolve(1);") {
		t.Fatalf("async wrapper lost body: %s", asyncExpr)
	}
}

func TestEvaluatorsEmbedArguments(t *testing.T) {
	hooks := jsInstallHooks(bindingName)
	if !strings.Contains(hooks, `var binding = "__tvCrosshairEmit";`) {
		t.Fatalf("hook installer lost binding name: %s", hooks)
	}

	text := jsShowText("EURUSD_60_Candles_Message", `say "hi"`)
	if !strings.Contains(text, `el.textContent = "say \"hi\"";`) {
		t.Fatalf("text not escaped: %s", text)
	}

	panel := jsShowPanel(jsJSON(Panel{Horizontal: "center", Rows: []PanelRow{{Label: "Pips", Value: "12.3"}}}))
	if strings.Contains(panel, "%%") || !strings.Contains(panel, `"50%"`) {
		t.Fatalf("panel template not formatted: %s", panel)
	}
	if !strings.Contains(panel, `"label":"Pips"`) {
		t.Fatalf("panel rows not embedded: %s", panel)
	}

	move := jsSetShapePoints("abc", jsJSON([]ShapePoint{{Time: 1700000000, Price: 1.5}}))
	if !strings.Contains(move, `[{"time":1700000000,"price":1.5}]`) {
		t.Fatalf("points not embedded: %s", move)
	}
}

func TestChartTypeName(t *testing.T) {
	if got := ChartTypeName(1); got != "Candles" {
		t.Fatalf("ChartTypeName(1) = %q; want Candles", got)
	}
	if got := ChartTypeName(99); got != "Style99" {
		t.Fatalf("ChartTypeName(99) = %q; want Style99", got)
	}
}

func TestHistoryRequestMutesRangeHooks(t *testing.T) {
	history := jsRequestMoreHistory()
	mute := strings.Index(history, "window.__tvCrosshairMuted = (window.__tvCrosshairMuted || 0) + 1;")
	pan := strings.Index(history, "chart.setVisibleRange({from: before[0] - width")
	unmute := strings.Index(history, "window.__tvCrosshairMuted = Math.max(0")
	restore := strings.Index(history, "chart.setVisibleRange({from: r.from, to: r.to})")
	if mute < 0 || pan < 0 || unmute < 0 || restore < 0 {
		t.Fatalf("history request missing mute or range calls: %s", history)
	}
	if !(mute < pan && pan < restore && restore < unmute) {
		t.Fatalf("range changes not inside the muted section: mute=%d pan=%d restore=%d unmute=%d", mute, pan, restore, unmute)
	}

	hooks := jsInstallHooks(bindingName)
	if !strings.Contains(hooks, "if (!r || window.__tvCrosshairMuted > 0) return;") {
		t.Fatalf("range hook ignores mute flag: %s", hooks)
	}
}

func TestShapePointKeepsZeroPrice(t *testing.T) {
	got := jsJSON([]ShapePoint{{Time: 1700000000, Price: 0}, {Price: -1.5}})
	want := `[{"time":1700000000,"price":0},{"price":-1.5}]`
	if got != want {
		t.Fatalf("jsJSON(points) = %s, want %s", got, want)
	}
}
