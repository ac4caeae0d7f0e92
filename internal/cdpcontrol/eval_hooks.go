package cdpcontrol

import "fmt"

// jsInstallHooks wires crosshair moves, left mouse-downs on the chart and
// visible-range changes to the binding. Reinstalling on the same chart
// widget is a no-op; a new widget (symbol or layout change) replaces the
// old subscriptions. Ctrl is the modifier. Range changes are not reported
// while a history request holds window.__tvCrosshairMuted.
func jsInstallHooks(binding string) string {
	return wrapJSEval(fmt.Sprintf(jsPreamble+jsChartContainer+`
var binding = %s;
if (!chart) return JSON.stringify({ok:false,error_code:"API_UNAVAILABLE",error_message:"chart unavailable"});
if (typeof window[binding] !== "function") return JSON.stringify({ok:false,error_code:"API_UNAVAILABLE",error_message:"binding not installed"});
if (typeof chart.crossHairMoved !== "function" || typeof chart.onVisibleRangeChanged !== "function") {
  return JSON.stringify({ok:false,error_code:"API_UNAVAILABLE",error_message:"chart subscriptions unavailable"});
}
var prev = window.__tvCrosshairHooks;
if (prev && prev.chart === chart) return JSON.stringify({ok:true,data:{status:"present"}});
if (prev && typeof prev.unsubscribe === "function") { try { prev.unsubscribe(); } catch(_) {} }

function send(o) { try { window[binding](JSON.stringify(o)); } catch(_) {} }

if (!window.__tvCrosshairKeys) {
  window.__tvCrosshairKeys = {ctrl:false};
  document.addEventListener("keydown", function(e) { window.__tvCrosshairKeys.ctrl = e.ctrlKey || e.key === "Control"; }, true);
  document.addEventListener("keyup", function(e) { window.__tvCrosshairKeys.ctrl = e.ctrlKey && e.key !== "Control"; }, true);
  window.addEventListener("blur", function() { window.__tvCrosshairKeys.ctrl = false; });
}

var onMove = function(p) {
  if (!p || p.time === undefined || p.time === null) return;
  send({type:"mouse_move", time:Number(p.time), price:Number(p.price), modifier:!!window.__tvCrosshairKeys.ctrl});
};
var onRange = function(r) {
  if (!r || window.__tvCrosshairMuted > 0) return;
  send({type:"scroll", first_visible:Number(r.from)});
};
var host = _chartHost();
var onDown = function(e) {
  if (e.button !== 0) return;
  send({type:"mouse_down", modifier:!!e.ctrlKey});
};

chart.crossHairMoved().subscribe(null, onMove);
chart.onVisibleRangeChanged().subscribe(null, onRange);
host.addEventListener("mousedown", onDown, true);

window.__tvCrosshairHooks = {
  chart: chart,
  unsubscribe: function() {
    chart.crossHairMoved().unsubscribe(null, onMove);
    chart.onVisibleRangeChanged().unsubscribe(null, onRange);
    host.removeEventListener("mousedown", onDown, true);
  }
};
return JSON.stringify({ok:true,data:{status:"installed"}});
`, jsString(binding)))
}
