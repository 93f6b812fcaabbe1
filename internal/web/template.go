package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/trigger-loop/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
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
	"level": func(v bool) string {
		if v {
			return "HIGH"
		}
		return "LOW"
	},
	"since": func(start, now time.Time) string {
		return now.Sub(start).Truncate(100 * time.Millisecond).String()
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="5">
<title>Trigger Loop</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.error { color: red; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Trigger Loop</h1>

<h2>Inputs</h2>
{{if .InputError}}<p class="error">{{.InputError}}</p>{{end}}
<table>
{{range $name, $v := .Inputs}}<tr><th>{{$name}}</th><td class="{{if $v}}on{{else}}off{{end}}">{{level $v}}</td></tr>
{{else}}<tr><td>no sample yet</td></tr>
{{end}}</table>

<h2>Tasks</h2>
<table>
{{range .Tasks}}<tr><th>{{.Name}}</th><td class="{{if .Active}}on{{else}}off{{end}}">{{if .Active}}running {{since .StartedAt $.Now}}{{if not .Interruptible}} (uninterruptible){{end}}{{else}}idle{{end}}</td></tr>
{{end}}</table>

<h2>Task Counts</h2>
<table>
<tr><th>Started</th><td>{{.Counts.Started}}</td></tr>
<tr><th>Cancelled</th><td>{{.Counts.Cancelled}}</td></tr>
<tr><th>Timed out</th><td>{{.Counts.TimedOut}}</td></tr>
<tr><th>Interrupted</th><td>{{.Counts.Interrupted}}</td></tr>
<tr><th>Refused</th><td>{{.Counts.Refused}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Run</th><td>{{.RunID}}</td></tr>
<tr><th>Ready</th><td>{{if .Ready}}yes{{else}}no{{end}}</td></tr>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Cycles</th><td>{{.Loop.Cycles}} ({{.Loop.Failed}} failed)</td></tr>
{{if .Loop.LastError}}<tr><th>Last error</th><td class="error">{{.Loop.LastError}}</td></tr>{{end}}
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>Bindings</th><td>{{.Config.Bindings}}</td></tr>
<tr><th>Config</th><td>{{.Config.Path}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() and Ready() methods; the template needs plain fields.
	data := struct {
		status.Snapshot
		Uptime time.Duration
		Ready  bool
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Ready:    snap.Ready(),
	}
	indexTmpl.Execute(w, data)
}
