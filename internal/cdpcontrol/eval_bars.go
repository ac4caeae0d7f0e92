package cdpcontrol

func jsBarTimes() string {
	return wrapJSEvalAsync(jsPreamble + jsBarTimesHelper + `
if (!chart) return JSON.stringify({ok:false,error_code:"API_UNAVAILABLE",error_message:"chart unavailable"});
var times = await _barTimes();
if (!times) return JSON.stringify({ok:false,error_code:"API_UNAVAILABLE",error_message:"bar data unavailable"});
return JSON.stringify({ok:true,data:{times:times}});
`)
}

// jsRequestMoreHistory pans one screen left of the oldest loaded bar, which
// makes the data feed page in older history, waits for it, then restores the
// visible range. Range hooks stay muted until the restore has settled, so
// neither pan reports as a scroll.
func jsRequestMoreHistory() string {
	return wrapJSEvalAsync(jsPreamble + jsBarTimesHelper + `
if (!chart || typeof chart.getVisibleRange !== "function" || typeof chart.setVisibleRange !== "function") {
  return JSON.stringify({ok:false,error_code:"API_UNAVAILABLE",error_message:"visible range API unavailable"});
}
var before = await _barTimes();
if (!before) return JSON.stringify({ok:false,error_code:"API_UNAVAILABLE",error_message:"bar data unavailable"});
if (!before.length) return JSON.stringify({ok:true,data:{loaded:0}});
var r = chart.getVisibleRange();
var width = Math.max(1, Number(r.to) - Number(r.from));
var now = before;
window.__tvCrosshairMuted = (window.__tvCrosshairMuted || 0) + 1;
try {
  await chart.setVisibleRange({from: before[0] - width, to: before[0]});
  for (var i = 0; i < 12; i++) {
    await new Promise(function(res) { setTimeout(res, 250); });
    now = await _barTimes() || before;
    if (now.length > before.length) break;
  }
  try { await chart.setVisibleRange({from: r.from, to: r.to}); } catch(_) {}
  await new Promise(function(res) { requestAnimationFrame(function() { setTimeout(res, 50); }); });
} finally {
  window.__tvCrosshairMuted = Math.max(0, window.__tvCrosshairMuted - 1);
}
return JSON.stringify({ok:true,data:{loaded: Math.max(0, now.length - before.length)}});
`)
}
