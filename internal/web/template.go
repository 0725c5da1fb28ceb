package web

import (
	"fmt"
	"html/template"
	"io"
	"log"
	"time"

	"github.com/sweeney/sensor-bridge/internal/status"
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
	"onOff": func(active bool) string {
		if active {
			return "on"
		}
		return "off"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Sensor Bridge</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>Sensor Bridge<span id="live-dot" class="live-dot pending" title="connecting"></span></h1>

<h2>Buttons</h2>
<table>
{{range .Buttons}}<tr><th>Button {{.ID}} (pin {{.Pin}}, LED {{.LEDPin}})</th><td id="button-{{.ID}}" class="{{onOff .Active}}">{{onOff .Active}}</td></tr>
{{end}}</table>

<h2>Capacitive</h2>
<table>
{{range .Pads}}<tr><th>Pad {{.ID}} (pin {{.Pin}})</th><td id="pad-{{.ID}}" class="{{onOff .Active}}">{{onOff .Active}}</td></tr>
{{end}}</table>

<h2>Distance</h2>
<table>
<tr><th>Last zone</th><td id="zone">{{if .Engine.LastZone}}{{.Engine.LastZone}}{{else}}none{{end}}</td></tr>
</table>
<p><button id="reset">Reset</button></p>

<h2>Connectivity</h2>
<table>
<tr><th>Websocket clients</th><td>{{.Clients}}</td></tr>
{{if .Config.Broker}}<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>{{end}}
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Button activated</th><td>{{.Engine.Counts.ButtonActivated}}</td></tr>
<tr><th>Button disabled</th><td>{{.Engine.Counts.ButtonDisabled}}</td></tr>
<tr><th>Capacitive activated</th><td>{{.Engine.Counts.CapacitiveActivated}}</td></tr>
<tr><th>Capacitive disabled</th><td>{{.Engine.Counts.CapacitiveDisabled}}</td></tr>
<tr><th>Distance changed</th><td>{{.Engine.Counts.DistanceChanged}}</td></tr>
<tr><th>Dropped</th><td>{{.Dropped}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Chip</th><td>{{.Config.Chip}}</td></tr>
<tr><th>Debounce</th><td>{{.Config.DebounceMs}}ms</td></tr>
<tr><th>Ranging</th><td>{{.Config.RangeIntervalMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
<script>
(function() {
  var dot = document.getElementById("live-dot");
  var ws;

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  function setSlot(id, active) {
    var el = document.getElementById(id);
    if (!el) return;
    el.textContent = active ? "on" : "off";
    el.className = active ? "on" : "off";
  }

  function connect() {
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    ws = new WebSocket(proto + location.host + "/ws");
    ws.onopen = function() { setDot("ok", "live"); };
    ws.onclose = function() {
      setDot("err", "offline");
      setTimeout(connect, 5000);
    };
    ws.onmessage = function(e) {
      try {
        var msg = JSON.parse(e.data);
        switch (msg.event) {
        case "ButtonActivated": setSlot("button-" + msg.id, true); break;
        case "ButtonDisabled": setSlot("button-" + msg.id, false); break;
        case "CapacitiveActivated": setSlot("pad-" + msg.id, true); break;
        case "CapacitiveDisabled": setSlot("pad-" + msg.id, false); break;
        case "DistanceChanged": document.getElementById("zone").textContent = msg.distance; break;
        }
      } catch (err) {}
    };
  }

  document.getElementById("reset").onclick = function() {
    if (ws && ws.readyState === WebSocket.OPEN) {
      ws.send(JSON.stringify({event: "Reset"}));
      document.querySelectorAll("[id^=button-],[id^=pad-]").forEach(function(el) { setSlot(el.id, false); });
      document.getElementById("zone").textContent = "none";
    }
  };

  connect();
})();
</script>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	buttons, pads := status.Slots(snap)
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime  time.Duration
		Buttons []status.SlotJSON
		Pads    []status.SlotJSON
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Buttons:  buttons,
		Pads:     pads,
	}
	if err := indexTmpl.Execute(w, data); err != nil {
		log.Printf("web: render index: %v", err)
	}
}
