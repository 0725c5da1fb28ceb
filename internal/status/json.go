package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Buttons       []SlotJSON   `json:"buttons"`
	Capacitive    []SlotJSON   `json:"capacitive"`
	Zone          int          `json:"zone"`
	Clients       int          `json:"clients"`
	Dropped       uint64       `json:"dropped_events"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"event_counts"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// SlotJSON is one binary sensor slot. ID is 1-based, as on the wire.
type SlotJSON struct {
	ID     int  `json:"id"`
	Pin    int  `json:"pin"`
	LEDPin int  `json:"led_pin,omitempty"`
	Active bool `json:"active"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Enabled   bool   `json:"enabled"`
	Connected bool   `json:"connected"`
	Broker    string `json:"broker,omitempty"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	ButtonActivated     int `json:"button_activated"`
	ButtonDisabled      int `json:"button_disabled"`
	CapacitiveActivated int `json:"capacitive_activated"`
	CapacitiveDisabled  int `json:"capacitive_disabled"`
	DistanceChanged     int `json:"distance_changed"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Chip            string `json:"chip"`
	DebounceMs      int64  `json:"debounce_ms"`
	RangeIntervalMs int64  `json:"range_interval_ms"`
	HeartbeatMs     int64  `json:"heartbeat_ms"`
	HTTPAddr        string `json:"http_addr"`
}

// Slots lists every button and capacitive slot with its activation state.
func Slots(snap Snapshot) (buttons, pads []SlotJSON) {
	bank := snap.Config.Bank
	activeButtons := toSet(snap.Engine.ActiveButtons)
	activePads := toSet(snap.Engine.ActivePads)

	buttons = make([]SlotJSON, 0, len(bank.Buttons))
	for i, pin := range bank.Buttons {
		s := SlotJSON{ID: i + 1, Pin: pin, Active: activeButtons[i]}
		if i < len(bank.LEDs) {
			s.LEDPin = bank.LEDs[i]
		}
		buttons = append(buttons, s)
	}
	pads = make([]SlotJSON, 0, len(bank.Capacitive))
	for i, pin := range bank.Capacitive {
		pads = append(pads, SlotJSON{ID: i + 1, Pin: pin, Active: activePads[i]})
	}
	return buttons, pads
}

func toSet(slots []int) map[int]bool {
	m := make(map[int]bool, len(slots))
	for _, s := range slots {
		m[s] = true
	}
	return m
}

func buildInner(snap Snapshot) StatusInner {
	buttons, pads := Slots(snap)
	c := snap.Engine.Counts

	return StatusInner{
		Buttons:       buttons,
		Capacitive:    pads,
		Zone:          int(snap.Engine.LastZone),
		Clients:       snap.Clients,
		Dropped:       snap.Dropped,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT: MQTTStatus{
			Enabled:   snap.Config.Broker != "",
			Connected: snap.MQTTConnected,
			Broker:    snap.Config.Broker,
		},
		Counts: CountsJSON{
			ButtonActivated:     c.ButtonActivated,
			ButtonDisabled:      c.ButtonDisabled,
			CapacitiveActivated: c.CapacitiveActivated,
			CapacitiveDisabled:  c.CapacitiveDisabled,
			DistanceChanged:     c.DistanceChanged,
		},
		Config: ConfigJSON{
			Chip:            snap.Config.Chip,
			DebounceMs:      snap.Config.DebounceMs,
			RangeIntervalMs: snap.Config.RangeIntervalMs,
			HeartbeatMs:     snap.Config.HeartbeatMs,
			HTTPAddr:        snap.Config.HTTPAddr,
		},
	}
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
