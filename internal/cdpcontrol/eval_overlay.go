package cdpcontrol

import "fmt"

const panelElementID = "tv-crosshair-readout"

// jsShowPanel creates or updates the readout box. Rows are rendered as
// label/value pairs in order.
func jsShowPanel(panel string) string {
	return wrapJSEval(fmt.Sprintf(jsChartContainer+`
var p = %s;
var host = _chartHost();
var el = document.getElementById(%s);
if (!el) {
  el = document.createElement("div");
  el.id = %s;
  el.style.position = "absolute";
  el.style.zIndex = "50";
  el.style.pointerEvents = "none";
  el.style.font = "12px -apple-system, BlinkMacSystemFont, 'Trebuchet MS', Roboto, sans-serif";
  el.style.padding = "6px 8px";
  el.style.borderRadius = "4px";
  el.style.background = "rgba(19,23,34,1)";
  el.style.color = "#d1d4dc";
  host.appendChild(el);
}
var m = Math.max(0, Number(p.margin || 0)) * 8 + "px";
el.style.left = el.style.right = el.style.top = el.style.bottom = "";
el.style.transform = "";
var tx = "", ty = "";
switch (p.horizontal) {
  case "left": el.style.left = m; break;
  case "center": el.style.left = "50%%"; tx = "-50%%"; break;
  case "stretch": el.style.left = m; el.style.right = m; break;
  default: el.style.right = m;
}
switch (p.vertical) {
  case "top": el.style.top = m; break;
  case "center": el.style.top = "50%%"; ty = "-50%%"; break;
  case "stretch": el.style.top = m; el.style.bottom = m; break;
  default: el.style.bottom = m;
}
if (tx || ty) el.style.transform = "translate(" + (tx || "0") + "," + (ty || "0") + ")";
el.style.opacity = String(p.opacity);
var html = "";
var rows = p.rows || [];
for (var i = 0; i < rows.length; i++) {
  var label = String(rows[i].label).replace(/[<>&]/g, "");
  var value = String(rows[i].value).replace(/[<>&]/g, "");
  html += "<div><span style=\"opacity:.7\">" + label + ":</span> " + value + "</div>";
}
el.innerHTML = html;
el.style.display = "block";
return JSON.stringify({ok:true,data:{status:"shown"}});
`, panel, jsString(panelElementID), jsString(panelElementID)))
}

func jsHidePanel() string {
	return wrapJSEval(fmt.Sprintf(`
var el = document.getElementById(%s);
if (el) el.style.display = "none";
return JSON.stringify({ok:true,data:{status:"hidden"}});
`, jsString(panelElementID)))
}

// jsShowText pins a message to the top-left of the chart under a stable
// element id derived from name.
func jsShowText(name, text string) string {
	return wrapJSEval(fmt.Sprintf(jsChartContainer+`
var id = "tv-crosshair-text-" + %s;
var el = document.getElementById(id);
if (!el) {
  el = document.createElement("div");
  el.id = id;
  el.style.position = "absolute";
  el.style.left = "12px";
  el.style.top = "36px";
  el.style.zIndex = "50";
  el.style.pointerEvents = "none";
  el.style.font = "13px -apple-system, BlinkMacSystemFont, 'Trebuchet MS', Roboto, sans-serif";
  el.style.color = "#f23645";
  _chartHost().appendChild(el);
}
el.textContent = %s;
return JSON.stringify({ok:true,data:{status:"shown"}});
`, jsString(name), jsString(text)))
}

func jsRemoveText(name string) string {
	return wrapJSEval(fmt.Sprintf(`
var el = document.getElementById("tv-crosshair-text-" + %s);
if (el && el.parentNode) el.parentNode.removeChild(el);
return JSON.stringify({ok:true,data:{status:"removed"}});
`, jsString(name)))
}

func jsForegroundColor() string {
	return wrapJSEval(jsPreamble + `
var dark = false;
if (api && typeof api.getTheme === "function") {
  try { dark = String(api.getTheme() || "").toLowerCase() === "dark"; } catch(_) {}
} else {
  var root = document.documentElement;
  dark = root.classList.contains("theme-dark") || root.getAttribute("data-theme") === "dark";
}
return JSON.stringify({ok:true,data:{color: dark ? "#D1D4DC" : "#131722"}});
`)
}
