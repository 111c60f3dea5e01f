package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sweeney/plant-irrigator/internal/logic"
	"github.com/sweeney/plant-irrigator/internal/status"
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
	"ms": func(d time.Duration) int64 { return d.Milliseconds() },
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="60">
<title>Plant Irrigator</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
pre.lcd { background: #2b4; color: #021; padding: 8px; width: 16ch; }
.water { color: #06c; font-weight: bold; }
.ok { color: green; }
.warn { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Plant Irrigator</h1>

<pre class="lcd">{{.Row0}}
{{.Row1}}</pre>

<h2>Last Cycle</h2>
<table>
<tr><th>Cycle</th><td>{{.Cycle}}</td></tr>
<tr><th>Phase</th><td>{{if .Phase}}{{.Phase}}{{else}}STARTING{{end}}</td></tr>
{{if .Sampled}}<tr><th>Water sensor</th><td>{{.LastSample.Water}}</td></tr>
<tr><th>Moisture sensor</th><td>{{.LastSample.Moisture}}</td></tr>{{end}}
<tr><th>Decision</th><td class="{{if eq (printf "%s" .LastDecision) "NEEDS_WATER"}}water{{else if eq (printf "%s" .LastDecision) "SENSOR_NOT_IN_SOIL"}}warn{{else}}ok{{end}}">{{if .LastDecision}}{{.LastDecision}}{{else}}UNKNOWN{{end}}</td></tr>
{{if not .LastDecisionAt.IsZero}}<tr><th>Decided</th><td>{{.LastDecisionAt.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>{{end}}
</table>

<h2>Decisions</h2>
<table>
<tr><th>Sensor not in soil</th><td>{{.Counts.SensorNotInSoil}}</td></tr>
<tr><th>Needs water</th><td>{{.Counts.NeedsWater}}</td></tr>
<tr><th>Sufficient water</th><td>{{.Counts.SufficientWater}}</td></tr>
<tr><th>Countdown errors</th><td>{{.CountdownErrors}}</td></tr>
</table>

<h2>Schedule</h2>
<table>
<tr><th>Sensors on</th><td>{{ms .Schedule.SensorsOn}}ms</td></tr>
<tr><th>Pump on</th><td>{{ms .Schedule.PumpOn}}ms</td></tr>
<tr><th>Next check</th><td>{{.Schedule.NextCheckMinutes}}min + {{ms .Schedule.NextCheckRemainder}}ms</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .Config.Broker}}{{if .MQTTConnected}}connected{{else}}disconnected{{end}} ({{.Config.Broker}}){{else}}disabled{{end}}</td></tr>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>GPIO</th><td>sensors {{.Config.PinSensors}}, pump {{.Config.PinPump}}</td></tr>
<tr><th>I2C</th><td>{{.Config.I2CBus}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> · <a href="/metrics">metrics</a></p>
</body>
</html>
`

// screen returns the two rows the display is showing for snap's phase.
func screen(snap status.Snapshot) logic.Message {
	switch snap.Phase {
	case logic.EventSensing, logic.EventCycleComplete:
		return logic.MsgSensorsOn
	case logic.EventDecision:
		return snap.LastDecision.Message()
	case logic.EventCountdown:
		var buf [logic.CountdownLen]byte
		if logic.NewCountdown(snap.MinutesLeft).Format(&buf) != nil {
			return logic.MsgCountdownError
		}
		return logic.Message{Row0: logic.MeasuresIn, Row1: string(buf[:])}
	case logic.EventCountdownError:
		return logic.MsgCountdownError
	}
	return logic.Message{}
}

func renderHTML(w io.Writer, snap status.Snapshot) {
	msg := screen(snap)
	data := struct {
		status.Snapshot
		Uptime     time.Duration
		Row0, Row1 string
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Row0:     msg.Row0,
		Row1:     msg.Row1,
	}
	if err := indexTmpl.Execute(w, data); err != nil {
		log.WithError(err).Warn("render status page")
	}
}
