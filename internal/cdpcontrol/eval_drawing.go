package cdpcontrol

import "fmt"

func jsCreateShape(point string, options string) string {
	return wrapJSEvalAsync(fmt.Sprintf(jsPreamble+`
var point = %s;
var opts = %s;
if (!chart || typeof chart.createShape !== "function") {
  return JSON.stringify({ok:false,error_code:"API_UNAVAILABLE",error_message:"createShape unavailable"});
}
var id = await chart.createShape(point, opts);
if (!id) return JSON.stringify({ok:false,error_code:"EVAL_FAILURE",error_message:"createShape returned null"});
return JSON.stringify({ok:true,data:{id:String(id)}});
`, point, options))
}

func jsCreateMultipointShape(points string, options string) string {
	return wrapJSEvalAsync(fmt.Sprintf(jsPreamble+`
var points = %s;
var opts = %s;
if (!chart || typeof chart.createMultipointShape !== "function") {
  return JSON.stringify({ok:false,error_code:"API_UNAVAILABLE",error_message:"createMultipointShape unavailable"});
}
var id = await chart.createMultipointShape(points, opts);
if (!id) return JSON.stringify({ok:false,error_code:"EVAL_FAILURE",error_message:"createMultipointShape returned null"});
return JSON.stringify({ok:true,data:{id:String(id)}});
`, points, options))
}

// jsSetShapePoints moves an existing shape. A missing shape is reported as
// CHART_NOT_FOUND so callers can tell a closed chart from a broken API.
func jsSetShapePoints(id string, points string) string {
	return wrapJSEval(fmt.Sprintf(jsPreamble+`
var id = %s;
var points = %s;
if (!chart) return JSON.stringify({ok:false,error_code:"API_UNAVAILABLE",error_message:"chart unavailable"});
if (typeof chart.getShapeById !== "function") return JSON.stringify({ok:false,error_code:"API_UNAVAILABLE",error_message:"getShapeById unavailable"});
var shape = null;
try { shape = chart.getShapeById(id); } catch(_) {}
if (!shape) return JSON.stringify({ok:false,error_code:"CHART_NOT_FOUND",error_message:"shape not found: "+id});
if (typeof shape.setPoints !== "function") return JSON.stringify({ok:false,error_code:"API_UNAVAILABLE",error_message:"setPoints unavailable"});
shape.setPoints(points);
return JSON.stringify({ok:true,data:{id:id}});
`, jsString(id), points))
}

func jsRemoveEntity(id string) string {
	return wrapJSEval(fmt.Sprintf(jsPreamble+`
var id = %s;
if (!chart) return JSON.stringify({ok:false,error_code:"API_UNAVAILABLE",error_message:"chart unavailable"});
if (typeof chart.removeEntity !== "function") return JSON.stringify({ok:false,error_code:"API_UNAVAILABLE",error_message:"removeEntity unavailable"});
chart.removeEntity(id, {disableUndo: true});
return JSON.stringify({ok:true,data:{status:"removed"}});
`, jsString(id)))
}
