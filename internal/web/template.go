package web

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/sweeney/button-sensor/internal/status"
)

const stampLayout = "2006-01-02T15:04:05.000Z"

var pageTmpl = template.Must(template.New("page").Funcs(template.FuncMap{
	"uptime": formatUptime,
	"shown":  shownState,
	"stamp":  func(t time.Time) string { return t.UTC().Format(stampLayout) },
	"onoff": func(b bool, on, off string) string {
		if b {
			return on
		}
		return off
	},
}).Parse(pageHTML))

// shownState hides the state until the first successful read.
func shownState(snap status.Snapshot) string {
	if !snap.Ready || snap.State == "" {
		return "UNKNOWN"
	}
	return string(snap.State)
}

// formatUptime prints d as "2d 3h 0m 5s", dropping leading zero units.
func formatUptime(d time.Duration) string {
	secs := int64(d / time.Second)
	units := []struct {
		n    int64
		name string
	}{
		{secs / 86400, "d"},
		{secs / 3600 % 24, "h"},
		{secs / 60 % 60, "m"},
		{secs % 60, "s"},
	}

	var parts []string
	for i, u := range units {
		if len(parts) == 0 && u.n == 0 && i < len(units)-1 {
			continue
		}
		parts = append(parts, fmt.Sprintf("%d%s", u.n, u.name))
	}
	return strings.Join(parts, " ")
}

const pageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="5">
<title>{{.Config.Name}} · button-sensor</title>
<style>
:root { --dim: #777; --ok: #1a7f37; --bad: #cf222e; }
body { font: 14px/1.5 ui-monospace, monospace; margin: 1.5em auto; max-width: 36em; padding: 0 1em; }
section { margin-bottom: 1.5em; }
h2 { font-size: 1em; text-transform: uppercase; color: var(--dim); border-bottom: 1px solid #ccc; }
dl { display: grid; grid-template-columns: 12em 1fr; gap: 2px 1em; margin: 0; }
dt { color: var(--dim); }
dd { margin: 0; }
.big { font-size: 2em; }
.PRESSED, .HOLDING, .up { color: var(--ok); }
.UNKNOWN, .down { color: var(--bad); }
</style>
</head>
<body>
<h1>{{.Config.Name}}</h1>
{{$state := shown .}}
<p id="state" class="big {{$state}}">{{$state}}</p>

<section>
<h2>Gestures</h2>
<dl>
<dt>Last event</dt><dd id="last-event">{{with .LastEvent}}{{.Type}}{{if .Gesture}} {{.Gesture}}{{end}} at {{stamp .Timestamp}}{{else}}none yet{{end}}</dd>
<dt>Clicks before hold</dt><dd>{{.HoldClicks}}</dd>
<dt>Press / release</dt><dd>{{.Counts.Press}} / {{.Counts.Release}}</dd>
<dt>Click / groups</dt><dd>{{.Counts.Click}} / {{.Counts.Clicks}}</dd>
<dt>Hold start / end</dt><dd>{{.Counts.HoldStart}} / {{.Counts.HoldEnd}}</dd>
</dl>
</section>

<section>
<h2>Input</h2>
<dl>
<dt>Pin</dt><dd>{{.Config.Backend}} line {{.Config.Line}} ({{.Config.Direction}})</dd>
<dt>Read errors</dt><dd>{{.ReadErrors}}</dd>
<dt>Poll</dt><dd>{{.Config.PollMs}}ms</dd>
<dt>Debounce / hold / group</dt><dd>{{.Config.Timing.Debounce}} / {{.Config.Timing.Hold}} / {{.Config.Timing.ClickGroup}} ms</dd>
</dl>
</section>

<section>
<h2>Outputs</h2>
<dl>
<dt>MQTT</dt><dd class="{{onoff .MQTTConnected "up" "down"}}">{{onoff .MQTTConnected "connected" "disconnected"}} ({{.Config.Broker}})</dd>
<dt>HomeKit</dt><dd>{{onoff .Config.HomeKit "enabled" "disabled"}}</dd>
<dt>Heartbeat</dt><dd>{{if .Config.HeartbeatMs}}{{.Config.HeartbeatMs}}ms{{else}}off{{end}}</dd>
<dt>Uptime</dt><dd>{{uptime .Uptime}} since {{stamp .StartTime}}</dd>
</dl>
</section>

<p><a href="/index.json">index.json</a> · <a href="/healthz">healthz</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	return pageTmpl.Execute(w, snap)
}
