package main

import (
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/sweeney/sensor-bridge/internal/gpio"
	"github.com/sweeney/sensor-bridge/internal/logic"
	"github.com/sweeney/sensor-bridge/internal/mqtt"
	"github.com/sweeney/sensor-bridge/internal/ranging"
	"github.com/sweeney/sensor-bridge/internal/status"
)

// TestEnvVarNames verifies the env var constants match what pi-helper writes
// to /run/pi-helper.env.
func TestEnvVarNames(t *testing.T) {
	want := map[string]string{
		"NETWORK_TYPE":        envNetworkType,
		"NETWORK_IP":          envNetworkIP,
		"NETWORK_STATUS":      envNetworkStatus,
		"NETWORK_GATEWAY":     envNetworkGateway,
		"NETWORK_WIFI_STATUS": envNetworkWifiStatus,
		"NETWORK_WIFI_SSID":   envNetworkWifiSSID,
	}
	for canonical, got := range want {
		if got != canonical {
			t.Errorf("env var constant: got %q, want %q", got, canonical)
		}
	}
}

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pi-helper.env")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	return path
}

func TestReadNetworkInfoFromFile(t *testing.T) {
	path := writeEnvFile(t, `NETWORK_TYPE=wifi
NETWORK_IP=192.168.1.100
NETWORK_STATUS=connected
NETWORK_GATEWAY=192.168.1.1
NETWORK_WIFI_STATUS=connected
NETWORK_WIFI_SSID="My Network"
`)

	info := readNetworkInfo(path)
	if info == nil {
		t.Fatal("expected non-nil NetworkInfo")
	}

	want := status.NetworkInfo{
		Type:       "wifi",
		IP:         "192.168.1.100",
		Status:     "connected",
		Gateway:    "192.168.1.1",
		WifiStatus: "connected",
		SSID:       "My Network",
	}
	if *info != want {
		t.Errorf("NetworkInfo: got %+v, want %+v", *info, want)
	}
}

func TestReadNetworkInfoFileOverridesEnv(t *testing.T) {
	t.Setenv(envNetworkStatus, "disconnected")
	path := writeEnvFile(t, "NETWORK_STATUS=connected\n")

	info := readNetworkInfo(path)
	if info == nil {
		t.Fatal("expected non-nil NetworkInfo")
	}
	if info.Status != "connected" {
		t.Errorf("Status: got %q, want connected", info.Status)
	}
}

func TestReadNetworkInfoFallsBackToEnv(t *testing.T) {
	t.Setenv(envNetworkStatus, "connected")
	t.Setenv(envNetworkIP, "10.0.0.5")

	info := readNetworkInfo(filepath.Join(t.TempDir(), "missing.env"))
	if info == nil {
		t.Fatal("expected non-nil NetworkInfo when NETWORK_STATUS is set")
	}
	if info.IP != "10.0.0.5" {
		t.Errorf("IP: got %q, want 10.0.0.5", info.IP)
	}
	if info.SSID != "" {
		t.Errorf("SSID: got %q, want empty", info.SSID)
	}
}

func TestReadNetworkInfoNoneSet(t *testing.T) {
	t.Setenv(envNetworkStatus, "")
	if info := readNetworkInfo(""); info != nil {
		t.Errorf("expected nil when NETWORK_STATUS is unset, got %+v", info)
	}
}

func TestSignalName(t *testing.T) {
	tests := []struct {
		sig  os.Signal
		want string
	}{
		{syscall.SIGINT, "SIGINT"},
		{syscall.SIGTERM, "SIGTERM"},
		{syscall.SIGHUP, "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := signalName(tt.sig); got != tt.want {
			t.Errorf("signalName(%v): got %q, want %q", tt.sig, got, tt.want)
		}
	}
}

func newTestEngine(t *testing.T, emit logic.EmitFunc) (*logic.Engine, *gpio.FakeOutputs) {
	t.Helper()
	leds := gpio.NewFakeOutputs()
	engine, err := logic.NewEngine(defaultBank(), leds, emit, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return engine, leds
}

func TestWatchInputsRegistersEveryPin(t *testing.T) {
	engine, leds := newTestEngine(t, nil)
	in := gpio.NewFakeInputs()

	if n := watchInputs(in, engine); n != 4 {
		t.Errorf("watched: got %d, want 4", n)
	}
	for _, pin := range append(gpio.DefaultButtonPins, gpio.DefaultCapacitivePins...) {
		if !in.Watched(pin) {
			t.Errorf("pin %d not watched", pin)
		}
	}

	in.Trigger(27, 0)
	if leds.Level(3) != logic.LevelOn {
		t.Error("expected LED 3 on after button on pin 27")
	}
	in.Trigger(16, 1)
	if got := engine.Snapshot().ActivePads; len(got) != 1 || got[0] != 0 {
		t.Errorf("ActivePads: got %v, want [0]", got)
	}
}

func TestWatchInputsContinuesPastFailure(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	in := gpio.NewFakeInputs()
	in.WatchErrors[17] = errors.New("line busy")

	if n := watchInputs(in, engine); n != 3 {
		t.Errorf("watched: got %d, want 3", n)
	}
	if in.Watched(17) {
		t.Error("pin 17 should not be watched")
	}
	if !in.Watched(22) || !in.Watched(16) {
		t.Error("pins after the failure should still be watched")
	}
}

func TestWatchDistance(t *testing.T) {
	var got []logic.Event
	engine, _ := newTestEngine(t, func(ev logic.Event) { got = append(got, ev) })
	sensor := ranging.NewFakeSensor()

	if !watchDistance(sensor, engine) {
		t.Fatal("watchDistance failed")
	}
	sensor.Emit(20)
	sensor.Emit(50)

	if len(got) != 1 || got[0].Distance != 2 {
		t.Errorf("events: got %+v, want one zone 2 event", got)
	}
}

func TestWatchDistanceFailure(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	sensor := ranging.NewFakeSensor()
	sensor.WatchError = errors.New("no echo line")

	if watchDistance(sensor, engine) {
		t.Error("expected watchDistance to report failure")
	}
}

// --- runLoop tests ---

func newTestDaemon(t *testing.T, pub *mqtt.FakePublisher) *daemon {
	t.Helper()
	engine, _ := newTestEngine(t, nil)
	d := &daemon{
		engine:  engine,
		tracker: status.NewTracker(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), status.Config{Bank: defaultBank()}),
		clients: func() int { return 2 },
		dropped: func() uint64 { return 1 },
		now:     func() time.Time { return time.Date(2026, 1, 1, 0, 5, 0, 0, time.UTC) },
	}
	if pub != nil {
		d.publisher = pub
		d.mqttStatus = pub
	}
	return d
}

type loopChans struct {
	heartbeat chan time.Time
	refresh   chan time.Time
	sig       chan os.Signal
	done      chan error
}

func startLoop(d *daemon) loopChans {
	c := loopChans{
		heartbeat: make(chan time.Time),
		refresh:   make(chan time.Time),
		sig:       make(chan os.Signal, 1),
		done:      make(chan error, 1),
	}
	go func() {
		c.done <- runLoop(d, c.heartbeat, c.refresh, c.sig)
	}()
	return c
}

func TestRunLoopShutdown(t *testing.T) {
	pub := mqtt.NewFakePublisher()
	d := newTestDaemon(t, pub)
	c := startLoop(d)

	c.sig <- syscall.SIGTERM
	if err := <-c.done; err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if len(pub.SystemEvents) != 1 {
		t.Fatalf("expected 1 system event, got %d", len(pub.SystemEvents))
	}
	ev := pub.SystemEvents[0]
	if ev.Event != "SHUTDOWN" || ev.Reason != "SIGTERM" || !ev.Retained {
		t.Errorf("shutdown event: got %+v", ev)
	}
	if len(ev.RawPayload) == 0 {
		t.Error("expected status snapshot payload")
	}
}

func TestRunLoopHeartbeat(t *testing.T) {
	pub := mqtt.NewFakePublisher()
	d := newTestDaemon(t, pub)
	d.engine.ToggleButton(0)
	c := startLoop(d)

	c.heartbeat <- time.Time{}
	c.sig <- syscall.SIGINT
	if err := <-c.done; err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if len(pub.SystemEvents) != 2 {
		t.Fatalf("expected 2 system events, got %d", len(pub.SystemEvents))
	}
	hb := pub.SystemEvents[0]
	if hb.Event != "HEARTBEAT" || hb.Retained {
		t.Errorf("heartbeat event: got %+v", hb)
	}
	if pub.SystemEvents[1].Reason != "SIGINT" {
		t.Errorf("shutdown reason: got %q, want SIGINT", pub.SystemEvents[1].Reason)
	}
}

func TestRunLoopRefreshUpdatesTracker(t *testing.T) {
	pub := mqtt.NewFakePublisher()
	pub.Connected = true
	d := newTestDaemon(t, pub)
	c := startLoop(d)

	d.engine.ToggleButton(2)
	c.refresh <- time.Time{}
	c.sig <- syscall.SIGTERM
	<-c.done

	snap := d.tracker.Snapshot()
	if got := snap.Engine.ActiveButtons; len(got) != 1 || got[0] != 2 {
		t.Errorf("ActiveButtons: got %v, want [2]", got)
	}
	if snap.Clients != 2 {
		t.Errorf("Clients: got %d, want 2", snap.Clients)
	}
	if snap.Dropped != 1 {
		t.Errorf("Dropped: got %d, want 1", snap.Dropped)
	}
	if !snap.MQTTConnected {
		t.Error("expected MQTTConnected=true")
	}
}

func TestRunLoopWithoutMQTT(t *testing.T) {
	d := newTestDaemon(t, nil)
	c := startLoop(d)

	c.heartbeat <- time.Time{}
	c.sig <- syscall.SIGTERM
	if err := <-c.done; err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}
	if snap := d.tracker.Snapshot(); snap.MQTTConnected {
		t.Error("expected MQTTConnected=false with MQTT disabled")
	}
}

func TestRunLoopPublishFailureDoesNotStop(t *testing.T) {
	pub := mqtt.NewFakePublisher()
	pub.PublishSystemError = errors.New("broker down")
	d := newTestDaemon(t, pub)
	c := startLoop(d)

	c.heartbeat <- time.Time{}
	c.heartbeat <- time.Time{}
	c.sig <- syscall.SIGTERM
	if err := <-c.done; err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}
}
