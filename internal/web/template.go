package web

import (
	"fmt"
	"html/template"
	"io"
	"log"
	"time"

	"github.com/sweeney/vitals-monitor/internal/logic"
	"github.com/sweeney/vitals-monitor/internal/status"
	"github.com/sweeney/vitals-monitor/internal/store"
)

var funcs = template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	// clockMs renders a record timestamp (soft-clock ms since midnight).
	"clockMs": func(ms uint32) string {
		s := ms / 1000
		return fmt.Sprintf("%02d:%02d:%02d", s/3600, s/60%60, s%60)
	},
	"timeOrNotSet": func(t *logic.TimeOfDay) string {
		if t == nil {
			return notSet
		}
		return t.String()
	},
	"recordHealth": func(r store.PulseRecord) []logic.HealthWarning {
		return logic.AssessHealth(r.Vitals())
	},
}

var (
	indexTmpl = template.Must(template.New("index").Funcs(funcs).Parse(indexHTML))
	adminTmpl = template.Must(template.New("admin").Funcs(funcs).Parse(adminHTML))
)

const style = `<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
form { margin: 0.5em 0; }
input[type=number] { width: 4em; }
.warn { color: orange; }
.alarm { color: red; font-weight: bold; }
.connected { color: green; }
.disconnected { color: red; }
</style>`

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Health Monitoring</title>
` + style + `
</head>
<body>
<h1>Health Monitoring</h1>

<h2>Vitals</h2>
<table>
<tr><th>Time</th><td id="time">{{.Clock}}</td></tr>
{{if not .Ready}}<tr><th>Sensor</th><td class="alarm">not ready</td></tr>{{end}}
<tr><th>Finger</th><td id="finger">{{if .Present}}present{{else}}place finger{{end}}</td></tr>
<tr><th>Pulse</th><td id="pulse">{{.Vitals.PulseBPM}} bpm</td></tr>
<tr><th>SpO2</th><td id="spo2">{{.Vitals.SpO2}}%</td></tr>
</table>
<div id="warnings">{{range .Warnings}}<p class="warn">{{.Message}}</p>{{end}}</div>

<h2>Alarm</h2>
<p id="alarm" class="{{if .Alarm.Triggered}}alarm{{end}}">{{if .Alarm.Triggered}}ALARM!{{else if .Alarm.Target}}Set to {{.Alarm.Target}}{{else}}Not set{{end}}</p>
<form action="/setAlarm" method="get">
<input type="number" name="h" min="0" max="23" required>:<input type="number" name="m" min="0" max="59" required>
<button>Set alarm</button>
</form>
<form action="/clearAlarm" method="get"><button>Clear alarm</button></form>

<h2>Clock</h2>
<form action="/setTime" method="get">
<input type="number" name="h" min="0" max="23" required>:<input type="number" name="m" min="0" max="59" required>
<button>Set time</button>
</form>

<h2>User</h2>
{{with .Session}}
<p>Logged in as <b>{{.Username}}</b>{{if .IsAdmin}} (<a href="/admin">admin</a>){{end}} &middot; <a href="/logout">log out</a></p>
<table>
<tr><th>Bedtime</th><td>{{timeOrNotSet .Bedtime}}</td></tr>
<tr><th>Wake-up</th><td>{{timeOrNotSet .Wakeup}}</td></tr>
</table>
<form action="/setSleep" method="post">
Bedtime <input type="number" name="bedH" min="0" max="23">:<input type="number" name="bedM" min="0" max="59">
Wake-up <input type="number" name="wakeH" min="0" max="23">:<input type="number" name="wakeM" min="0" max="59">
<button>Save</button>
</form>
<h3>History</h3>
<table>
<tr><th>Time</th><th>Pulse</th><th>SpO2</th><th></th></tr>
{{range .Records}}<tr><td>{{clockMs .Timestamp}}</td><td>{{.PulseBPM}}</td><td>{{.SpO2}}%</td><td class="warn">{{range recordHealth .}}{{.Message}} {{end}}</td></tr>
{{else}}<tr><td colspan="4">No records yet</td></tr>
{{end}}</table>
{{else}}
<form action="/login" method="post">
<input name="username" placeholder="username" required> <input name="password" type="password" placeholder="password" required>
<button>Log in</button> <button formaction="/register">Register</button>
</form>
{{end}}

<h2>System</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}} {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
<tr><th>Storage</th><td>{{.Config.Store}}{{if .Degraded}} <span class="warn">(in memory only)</span>{{end}}</td></tr>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
</table>

<p><a href="/data">data</a> &middot; <a href="/index.json">JSON</a></p>
<script>
(function() {
  function set(id, text) { var el = document.getElementById(id); if (el) el.textContent = text; }
  function poll() {
    fetch("/data").then(function(r) { return r.json(); }).then(function(d) {
      set("time", d.time);
      set("finger", d.finger_present ? "present" : "place finger");
      set("pulse", d.pulse + " bpm");
      set("spo2", d.spo2 + "%");
      set("alarm", d.alarmTriggered ? "ALARM!" : (d.alarmEnabled ? "Set to " + d.alarmTime : "Not set"));
      document.getElementById("alarm").className = d.alarmTriggered ? "alarm" : "";
      var w = document.getElementById("warnings");
      w.textContent = "";
      (d.warnings || []).forEach(function(msg) {
        var p = document.createElement("p");
        p.className = "warn";
        p.textContent = msg;
        w.appendChild(p);
      });
    }).catch(function() {});
  }
  setInterval(poll, 1000);
})();
</script>
</body>
</html>
`

const adminHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Administration</title>
` + style + `
</head>
<body>
<h1>Administration</h1>
<table>
<tr><th>#</th><th>User</th><th>Records</th><th></th></tr>
{{$self := .Session.Index}}
{{range .Accounts}}<tr><td>{{.Index}}</td><td>{{.Username}}{{if .IsAdmin}} (admin){{end}}</td><td>{{.RecordCount}}</td><td>{{if ne .Index $self}}<a href="/deleteUser?id={{.Index}}">delete</a>{{end}}</td></tr>
{{end}}</table>
<p><a href="/">back</a></p>
</body>
</html>
`

type page struct {
	status.Snapshot
	Uptime   time.Duration
	Warnings []logic.HealthWarning
}

func renderHTML(w io.Writer, snap status.Snapshot) {
	data := page{Snapshot: snap, Uptime: snap.Uptime(), Warnings: snap.Health()}
	if err := indexTmpl.Execute(w, data); err != nil {
		log.Printf("web: render index: %v", err)
	}
}

func renderAdmin(w io.Writer, snap status.Snapshot) {
	if err := adminTmpl.Execute(w, snap); err != nil {
		log.Printf("web: render admin: %v", err)
	}
}
