package cdpcontrol

import "encoding/json"

const jsPreamble = `
var api = window.TradingViewApi;
var chart = api && typeof api.activeChart === "function" ? api.activeChart() : null;`

const jsResolutionToSeconds = `
function _resToSec(res) {
  if (!res) return 86400;
  var s = String(res).toUpperCase();
  if (s === "D" || s === "1D") return 86400;
  if (s === "W" || s === "1W") return 604800;
  if (s === "M" || s === "1M") return 2592000;
  var m = s.match(/^(\d+)([DWMS]?)$/);
  if (!m) return 86400;
  var n = parseInt(m[1], 10);
  var u = m[2];
  if (u === "D") return n * 86400;
  if (u === "W") return n * 604800;
  if (u === "M") return n * 2592000;
  if (u === "S") return n;
  return n * 60;
}
`

// jsChartContainer provides _chartHost(): the element overlay DOM nodes are
// positioned inside. Falls back to document.body.
const jsChartContainer = `
function _chartHost() {
  var el = document.querySelector(".chart-container.active") ||
    document.querySelector(".chart-container") ||
    document.querySelector(".chart-markup-table");
  if (!el) return document.body;
  if (getComputedStyle(el).position === "static") el.style.position = "relative";
  return el;
}
`

// jsBarTimesHelper provides _barTimes(): ascending open times in unix
// seconds of the loaded bars of the main series.
const jsBarTimesHelper = `
async function _barTimes() {
  if (chart && typeof chart.exportData === "function") {
    try {
      var ex = await chart.exportData({includeTime:true, includeSeries:false, includedStudies:[]});
      var tIdx = 0;
      if (ex && ex.schema) {
        for (var si = 0; si < ex.schema.length; si++) { if (ex.schema[si].type === "time") { tIdx = si; break; } }
      }
      if (ex && ex.data) {
        var out = [];
        for (var di = 0; di < ex.data.length; di++) {
          var v = ex.data[di][tIdx];
          if (typeof v === "number") out.push(v);
        }
        return out;
      }
    } catch(_) {}
  }
  var cw = chart && chart._chartWidget ? chart._chartWidget : null;
  if (cw && typeof cw.model === "function") {
    var bars = cw.model().mainSeries().bars();
    var res = [];
    var first = bars.firstIndex(), last = bars.lastIndex();
    for (var i = first; i <= last; i++) {
      var b = bars.valueAt(i);
      if (b) res.push(b[0]);
    }
    return res;
  }
  return null;
}
`

func jsString(v string) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func jsJSON(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func buildIIFE(async bool, body string) string {
	prefix := "(function(){\n"
	if async {
		prefix = "(async function(){\n"
	}
	return prefix + `try {
` + body + `
} catch (err) {
return JSON.stringify({ok:false,error_code:"` + CodeEvalFailure + `",error_message:String(err && err.message || err)});
}
})()`
}

func wrapJSEval(body string) string { return buildIIFE(false, body) }
func wrapJSEvalAsync(body string) string { return buildIIFE(true, body) }
