package cdpcontrol

import "fmt"

func jsChartIdentity() string {
	return wrapJSEval(jsPreamble + `
if (!chart) return JSON.stringify({ok:false,error_code:"API_UNAVAILABLE",error_message:"chart unavailable"});
var symbol = "", resolution = "", ct = null;
if (typeof chart.symbol === "function") symbol = String(chart.symbol() || "");
if (!symbol && api && typeof api.getSymbol === "function") symbol = String(api.getSymbol() || "");
if (typeof chart.resolution === "function") resolution = String(chart.resolution() || "");
if (!resolution && api && typeof api.getResolution === "function") resolution = String(api.getResolution() || "");
if (typeof chart.chartType === "function") { try { ct = chart.chartType(); } catch(_) {} }
if (!symbol || !resolution) return JSON.stringify({ok:false,error_code:"API_UNAVAILABLE",error_message:"symbol or resolution getter unavailable"});
return JSON.stringify({ok:true,data:{symbol:symbol,resolution:resolution,chart_type_id:Number(ct || 0)}});
`)
}

func jsGetSymbolInfo() string {
	return wrapJSEval(jsPreamble + `
if (!api && !chart) return JSON.stringify({ok:false,error_code:"API_UNAVAILABLE",error_message:"TradingView API unavailable"});
var info = null;
if (chart && typeof chart.symbolExt === "function") {
  try { info = chart.symbolExt(); } catch(_) {}
}
if (!info && api && typeof api.getSymbolInfo === "function") {
  try { info = api.getSymbolInfo(); } catch(_) {}
}
var sym = "";
if (info && info.symbol) sym = String(info.symbol);
if (!sym && chart && typeof chart.symbol === "function") sym = String(chart.symbol() || "");
if (!sym && api && typeof api.getSymbol === "function") sym = String(api.getSymbol() || "");
if (!sym) return JSON.stringify({ok:false,error_code:"API_UNAVAILABLE",error_message:"symbol info unavailable"});
var i = info || {};
var result = {symbol:sym};
result.name = String(i.name || i.full_name || "");
result.description = String(i.description || i.short_description || "");
result.exchange = String(i.listed_exchange || i.exchange || "");
result.type = String(i.type || i.security_type || "");
result.currency = String(i.currency_code || i.currency || "");
result.timezone = String(i.timezone || "");
result.pricescale = Number(i.pricescale || i.price_scale || 0);
result.minmov = Number(i.minmov || i.min_mov || 0);
result.has_intraday = !!(i.has_intraday);
result.has_daily = !!(i.has_daily);
return JSON.stringify({ok:true,data:result});
`)
}

func jsGetVisibleRange() string {
	return wrapJSEval(jsPreamble + `
if (!chart) return JSON.stringify({ok:false,error_code:"API_UNAVAILABLE",error_message:"chart unavailable"});
if (typeof chart.getVisibleRange !== "function") {
  return JSON.stringify({ok:false,error_code:"API_UNAVAILABLE",error_message:"getVisibleRange unavailable"});
}
var r = chart.getVisibleRange();
if (!r) return JSON.stringify({ok:false,error_code:"EVAL_FAILURE",error_message:"getVisibleRange returned null"});
return JSON.stringify({ok:true,data:{from:Number(r.from || 0),to:Number(r.to || 0)}});
`)
}

func jsSetVisibleRange(from, to float64) string {
	return wrapJSEvalAsync(fmt.Sprintf(jsPreamble+jsResolutionToSeconds+`
var from = %v;
var to = %v;
if (!chart) return JSON.stringify({ok:false,error_code:"API_UNAVAILABLE",error_message:"chart unavailable"});
var done = false;
// Try native setVisibleRange first
if (typeof chart.setVisibleRange === "function") {
  try { await chart.setVisibleRange({from:from, to:to}); done = true; } catch(_) {}
}
// Fallback: scroll to the midpoint of the requested range
if (!done && typeof chart.getVisibleRange === "function" && typeof chart.scrollChartByBar === "function") {
  try {
    var r = chart.getVisibleRange();
    if (r && r.from && r.to) {
      var targetMid = (from + to) / 2;
      var curMid = (r.from + r.to) / 2;
      var res = typeof chart.resolution === "function" ? chart.resolution() : "D";
      var barSec = _resToSec(res);
      var offset = Math.round((targetMid - curMid) / barSec);
      if (offset !== 0) chart.scrollChartByBar(offset);
      done = true;
    }
  } catch(_) {}
}
if (!done) return JSON.stringify({ok:false,error_code:"API_UNAVAILABLE",error_message:"setVisibleRange unavailable"});
return JSON.stringify({ok:true,data:{from:from,to:to}});
`, from, to))
}

func jsVisiblePriceRange() string {
	return wrapJSEval(jsPreamble + `
if (!chart) return JSON.stringify({ok:false,error_code:"API_UNAVAILABLE",error_message:"chart unavailable"});
var r = null;
if (typeof chart.getPanes === "function") {
  try {
    var panes = chart.getPanes() || [];
    var scale = panes.length && typeof panes[0].getMainSourcePriceScale === "function" ? panes[0].getMainSourcePriceScale() : null;
    if (scale && typeof scale.getVisiblePriceRange === "function") r = scale.getVisiblePriceRange();
  } catch(_) {}
}
if (!r) return JSON.stringify({ok:false,error_code:"API_UNAVAILABLE",error_message:"getVisiblePriceRange unavailable"});
return JSON.stringify({ok:true,data:{from:Number(r.from),to:Number(r.to)}});
`)
}
