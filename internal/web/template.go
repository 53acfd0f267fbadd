package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/eprom-ui/internal/status"
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
	"orNone": func(s string) string {
		if s == "" {
			return "none"
		}
		return s
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="5">
<title>EPROM Emulator</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.ice { color: green; font-weight: bold; }
.program { color: #36c; font-weight: bold; }
.error { color: red; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>EPROM Emulator</h1>

<h2>Emulator</h2>
<table>
<tr><th>Mode</th><td id="mode" class="{{if eq (printf "%s" .Mode) "ICE"}}ice{{else}}program{{end}}">{{.Mode}}</td></tr>
<tr><th>Image</th><td>{{orNone .Image}}</td></tr>
{{if .LoadError}}<tr><th>Last error</th><td class="error">{{.LoadError}}</td></tr>{{end}}
</table>

<h2>Browser</h2>
<table>
<tr><th>Directory</th><td>{{.Directory}}</td></tr>
<tr><th>Selected</th><td id="selected">{{orNone .Selected}}</td></tr>
<tr><th>Knob position</th><td>{{.Position}}</td></tr>
<tr><th>Button</th><td>{{if .Button}}released{{else}}pressed{{end}}</td></tr>
</table>

<h2>Activity</h2>
<table>
<tr><th>Steps CW</th><td>{{.Counts.StepsCW}}</td></tr>
<tr><th>Steps CCW</th><td>{{.Counts.StepsCCW}}</td></tr>
<tr><th>Presses</th><td>{{.Counts.Presses}}</td></tr>
<tr><th>Loads</th><td>{{.Counts.Loads}}</td></tr>
<tr><th>Load errors</th><td>{{.Counts.LoadErrors}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{orNone .Config.Broker}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Debounce</th><td>{{.Config.DebounceMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>Card</th><td>{{.Config.CardRoot}}</td></tr>
<tr><th>RAM</th><td>{{.Config.Capacity}} bytes</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	return indexTmpl.Execute(w, data)
}
