package view

import (
	"bytes"
	"html/template"
)

const headerTmpl = `{{define "header"}}
<header class="header">
  <div class="logo">&#x223F;</div>
  <div>
    <h1>Pi Monitor</h1>
    <p class="muted">Raspberry Pi 4 &middot; DHT22 &middot; Camera</p>
  </div>
</header>
{{end}}`

const cameraTmpl = `{{define "camera"}}
<section class="card camera">
  <div class="frame">
    {{if .StreamURL}}<img src="{{.StreamURL}}" alt="Live camera feed">
    {{else}}<div class="paused muted">Stream paused</div>{{end}}
    {{if .Playing}}<span class="badge live">LIVE</span>{{end}}
    <span class="badge res">720p</span>
  </div>
</section>
{{end}}`

const controlsTmpl = `{{define "controls"}}
<section class="card controls">
  <button data-action="toggle-stream" title="{{if .Playing}}Pause stream{{else}}Start stream{{end}}">{{if .Playing}}Pause{{else}}Start{{end}}</button>
  <button data-action="snapshot" data-href="{{.SnapshotURL}}" class="ghost" title="Take a snapshot">Snapshot</button>
  <button data-action="fullscreen" data-href="{{.FeedURL}}" class="ghost" title="Open fullscreen stream">Fullscreen</button>
  <span class="sep"></span>
  <button data-action="toggle-detection" data-key="faces" class="{{if .Faces}}on{{else}}ghost{{end}}"{{if .Toggling}} disabled{{end}}
    title="{{if .Faces}}Disable{{else}}Enable{{end}} face detection">Faces</button>
  <button data-action="toggle-detection" data-key="objects" class="{{if .Objects}}on{{else}}ghost{{end}}"{{if .Toggling}} disabled{{end}}
    title="{{if .Objects}}Disable{{else}}Enable{{end}} object detection">Objects</button>
</section>
{{end}}`

const sensorTmpl = `{{define "sensor"}}
<section class="card sensor {{.Accent}}" title="{{.Label}}: {{.Display}}">
  <div class="label">{{.Label}}</div>
  <div><span class="value">{{.Value}}</span> <span class="unit">{{.Unit}}</span></div>
  {{if .Subtitle}}<p class="muted small">{{.Subtitle}}</p>{{end}}
</section>
{{end}}`

const accessLogTmpl = `{{define "accesslog"}}
<section class="card accesslog">
  <div class="row between">
    <div class="title">Access Log{{if .Count}} <span class="badge count">{{.Count}}</span>{{end}}</div>
    <div>
      <button data-action="refresh-logs" class="ghost"{{if .Loading}} disabled{{end}} title="Refresh access logs">Refresh</button>
      {{if .Count}}<button data-action="clear-logs" class="danger" title="Delete all log entries">Clear</button>{{end}}
    </div>
  </div>
  {{if not .Entries}}
  <div class="empty muted">
    <p>No access events recorded</p>
    <p class="small">Events appear when a person is detected</p>
  </div>
  {{else}}
  <div class="entries">
    {{range .Entries}}
    <div class="entry{{if .Expanded}} expanded{{end}}">
      <button class="entry-head" data-action="expand" data-id="{{.ID}}">
        <span class="icon">{{if .Multiple}}&#x1F465;{{else}}&#x1F464;{{end}}</span>
        <span class="grow">
          <span class="entry-title">{{.Title}}</span>
          <span class="mono small muted">{{.Timestamp}}</span>
        </span>
        {{range .Labels}}<span class="badge">{{.}}</span>{{end}}
      </button>
      {{if .Expanded}}
      <div class="entry-body">
        <img src="{{.ImageURL}}" alt="Detection snapshot {{.Timestamp}}" loading="lazy">
        <button data-action="delete-log" data-id="{{.ID}}" class="danger">Delete</button>
      </div>
      {{end}}
    </div>
    {{end}}
  </div>
  {{end}}
</section>
{{end}}`

const statusTmpl = `{{define "status"}}
<section class="status">
  <div class="card row between">
    <div class="row">
      <span class="dot {{.State}}"></span>
      <span class="status-label">{{.Label}}</span>
      {{if .Timestamp}}<span class="muted small">&middot; {{.Timestamp}}</span>{{end}}
    </div>
    <button data-action="refresh-reading" class="ghost"{{if .Loading}} disabled{{end}}>Refresh</button>
  </div>
  {{if .Error}}<div class="error">{{.Error}}</div>{{end}}
</section>
{{end}}`

const bodyTmpl = `{{define "body"}}
{{template "header"}}
<div class="grid">
  <div class="main">
    {{template "camera" .Camera}}
    {{template "controls" .Controls}}
  </div>
  <div class="side">
    {{template "sensor" .Temperature}}
    {{template "sensor" .Humidity}}
  </div>
</div>
{{template "accesslog" .AccessLog}}
{{template "status" .Status}}
{{end}}`

const pageTmpl = `{{define "page"}}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Pi Monitor</title>
<style>
body{margin:0;font-family:system-ui,sans-serif;background:#0b0f14;color:#e6e6e6}
#app{max-width:1100px;margin:0 auto;padding:0 16px 48px}
.header{display:flex;gap:12px;align-items:center;padding:24px 0}
.header h1{margin:0;font-size:20px}.logo{font-size:24px;color:#ff6b4a}
.grid{display:grid;grid-template-columns:2fr 1fr;gap:16px}
@media(max-width:900px){.grid{grid-template-columns:1fr}}
.card{background:#141a22;border:1px solid #232b36;border-radius:12px;padding:16px;margin-bottom:16px}
.camera{padding:0;overflow:hidden}.frame{position:relative;aspect-ratio:16/9;background:#000;display:flex;align-items:center;justify-content:center}
.frame img{width:100%;height:100%;object-fit:contain}
.badge{display:inline-block;font-size:11px;padding:2px 6px;border-radius:6px;background:#232b36;margin-left:4px}
.live{position:absolute;top:12px;left:12px;background:#ef4444}.res{position:absolute;top:12px;right:12px}
.controls{display:flex;gap:8px;flex-wrap:wrap;align-items:center}.sep{width:1px;height:24px;background:#232b36}
button{background:#232b36;color:inherit;border:1px solid transparent;border-radius:8px;padding:6px 10px;cursor:pointer}
button:disabled{opacity:.5;cursor:default}button.ghost{background:transparent;color:#9aa4b2}
button.on{background:rgba(74,224,255,.15);color:#4ae0ff;border-color:rgba(74,224,255,.3)}button.danger{background:transparent;color:#f87171}
.sensor .value{font-size:36px;font-family:ui-monospace,monospace}.temp .label,.temp .value{color:#ff6b4a}.humid .label,.humid .value{color:#4ae0ff}
.muted{color:#9aa4b2}.small{font-size:12px}.mono{font-family:ui-monospace,monospace}
.row{display:flex;gap:10px;align-items:center}.between{justify-content:space-between}
.title{color:#fbbf24;font-weight:500}.empty{text-align:center;padding:24px 0}
.entry{border:1px solid #232b36;border-radius:8px;margin-top:8px}.entry-head{display:flex;width:100%;gap:12px;background:none;text-align:left;align-items:center}
.grow{flex:1;display:flex;flex-direction:column}.entry-body{padding:0 12px 12px}.entry-body img{width:100%;max-height:256px;object-fit:contain}
.dot{width:8px;height:8px;border-radius:50%;background:#22c55e}.dot.loading{background:#9aa4b2}.dot.error{background:#ef4444}
.error{background:rgba(239,68,68,.1);border:1px solid rgba(239,68,68,.2);color:#f87171;border-radius:12px;padding:10px 16px;margin-top:8px}
</style>
</head>
<body>
<div id="app">{{template "body" .}}</div>
<script>
(function () {
  var token = localStorage.getItem("pimonitor_token");
  function send(method, path) {
    var headers = {};
    if (token) { headers["Authorization"] = "Bearer " + token; }
    return fetch(path, {method: method, headers: headers});
  }
  // a 401 asks for operator credentials once, keeps the token, and retries
  function signIn() {
    var username = window.prompt("Operator username");
    if (!username) { return Promise.resolve(false); }
    var password = window.prompt("Password");
    if (password === null) { return Promise.resolve(false); }
    return fetch("/auth/sign-in", {
      method: "POST",
      headers: {"Content-Type": "application/json"},
      body: JSON.stringify({username: username, password: password})
    }).then(function (res) {
      if (!res.ok) { return false; }
      return res.json().then(function (body) {
        token = body.token;
        localStorage.setItem("pimonitor_token", token);
        return true;
      });
    });
  }
  function call(method, path) {
    return send(method, path).then(function (res) {
      if (res.status !== 401) { return res; }
      localStorage.removeItem("pimonitor_token");
      token = null;
      return signIn().then(function (ok) { return ok ? send(method, path) : res; });
    }).catch(function () {});
  }
  var actions = {
    "toggle-stream": function () { call("POST", "/api/stream/toggle"); },
    "snapshot": function (el) {
      var u = new URL(el.dataset.href, location.href);
      u.searchParams.set("t", Date.now());
      window.open(u.toString(), "_blank");
    },
    "fullscreen": function (el) { window.open(el.dataset.href, "_blank"); },
    "toggle-detection": function (el) { call("POST", "/api/detection/" + el.dataset.key + "/toggle"); },
    "refresh-reading": function () { call("POST", "/api/reading/refresh"); },
    "refresh-logs": function () { call("POST", "/api/access-logs/refresh"); },
    "clear-logs": function () { call("DELETE", "/api/access-logs"); },
    "expand": function (el) { call("POST", "/api/access-logs/" + encodeURIComponent(el.dataset.id) + "/expand"); },
    "delete-log": function (el) { call("DELETE", "/api/access-logs/" + encodeURIComponent(el.dataset.id)); }
  };
  document.addEventListener("click", function (ev) {
    var el = ev.target.closest("[data-action]");
    if (!el || el.disabled) { return; }
    ev.stopPropagation();
    var fn = actions[el.dataset.action];
    if (fn) { fn(el); }
  });

  var ws;
  function sendVisibility() {
    if (ws && ws.readyState === WebSocket.OPEN) {
      ws.send(JSON.stringify({type: "visibility", hidden: document.hidden}));
    }
  }
  function connect() {
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    ws = new WebSocket(proto + location.host + "/ws");
    ws.onopen = sendVisibility;
    ws.onmessage = function (ev) {
      var msg = JSON.parse(ev.data);
      if (msg.type === "state" && msg.data && msg.data.html !== undefined) {
        document.getElementById("app").innerHTML = msg.data.html;
      }
    };
    ws.onclose = function () { setTimeout(connect, 2000); };
  }
  document.addEventListener("visibilitychange", sendVisibility);
  connect();
})();
</script>
</body>
</html>
{{end}}`

var templates = template.Must(template.New("pimonitor").Parse(
	headerTmpl + cameraTmpl + controlsTmpl + sensorTmpl + accessLogTmpl + statusTmpl + bodyTmpl + pageTmpl,
))

// Templates returns the parsed template set, for gin's HTML renderer.
// "page" is the full document and "body" the content of #app.
func Templates() *template.Template { return templates }

// RenderBody returns the #app content pushed to websocket viewers.
func RenderBody(p Page) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "body", p); err != nil {
		return "", err
	}
	return buf.String(), nil
}
