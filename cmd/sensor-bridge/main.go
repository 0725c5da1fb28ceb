// Command sensor-bridge watches buttons, capacitive pads and an ultrasonic
// ranger and broadcasts state changes to websocket clients and MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/sweeney/sensor-bridge/internal/bridge"
	"github.com/sweeney/sensor-bridge/internal/gpio"
	"github.com/sweeney/sensor-bridge/internal/hub"
	"github.com/sweeney/sensor-bridge/internal/logic"
	"github.com/sweeney/sensor-bridge/internal/mqtt"
	"github.com/sweeney/sensor-bridge/internal/ranging"
	"github.com/sweeney/sensor-bridge/internal/status"
	"github.com/sweeney/sensor-bridge/internal/web"
)

// statusRefresh is how often the status page view of the engine is updated.
const statusRefresh = time.Second

func main() {
	httpAddr := flag.String("http", ":8080", "HTTP address for the status page and websocket")
	broker := flag.String("broker", "", "MQTT broker address (empty to disable)")
	chip := flag.String("chip", gpio.DefaultChip, "GPIO character device")
	debounce := flag.Duration("debounce", 10*time.Millisecond, "Kernel debounce period for inputs")
	rangeInterval := flag.Duration("range-interval", ranging.DefaultInterval, "Ultrasonic sampling interval")
	heartbeat := flag.Duration("heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	envFile := flag.String("env-file", "/run/pi-helper.env", "pi-helper env file with network info")

	flag.Parse()

	cfg := config{
		httpAddr:      *httpAddr,
		broker:        *broker,
		chip:          *chip,
		debounce:      *debounce,
		rangeInterval: *rangeInterval,
		heartbeat:     *heartbeat,
		envFile:       *envFile,
	}
	if err := run(cfg); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

type config struct {
	httpAddr      string
	broker        string
	chip          string
	debounce      time.Duration
	rangeInterval time.Duration
	heartbeat     time.Duration
	envFile       string
}

func defaultBank() logic.Bank {
	return logic.Bank{
		Buttons:    gpio.DefaultButtonPins,
		LEDs:       gpio.DefaultLEDPins,
		Capacitive: gpio.DefaultCapacitivePins,
	}
}

func run(cfg config) error {
	bank := defaultBank()

	chip, err := gpio.NewRealChip(cfg.chip, cfg.debounce, bank.LEDs)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer chip.Close()

	// Nothing emits until the watches below are registered, by which time
	// the dispatcher exists.
	var dispatcher *bridge.Dispatcher
	engine, err := logic.NewEngine(bank, chip, func(ev logic.Event) { dispatcher.Emit(ev) }, nil)
	if err != nil {
		return fmt.Errorf("init engine: %w", err)
	}

	registry := hub.NewRegistry()
	sinks := []bridge.Sink{hub.NewBroadcaster(registry)}

	var publisher mqtt.Publisher
	var mqttStatus mqtt.ConnectionStatus
	if cfg.broker != "" {
		p, err := mqtt.NewRealPublisher(cfg.broker, engine.Reset)
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		defer p.Close()
		publisher, mqttStatus = p, p
		sinks = append(sinks, p)
	} else {
		log.Printf("mqtt: disabled (no --broker)")
	}

	dispatcher = bridge.NewDispatcher(bridge.DefaultQueueSize, sinks...)
	ctx, cancel := context.WithCancel(context.Background())
	dispatchDone := make(chan struct{})
	go func() {
		dispatcher.Run(ctx)
		close(dispatchDone)
	}()
	defer func() {
		cancel()
		<-dispatchDone
	}()

	tracker := status.NewTracker(time.Now(), status.Config{
		Chip:            cfg.chip,
		DebounceMs:      cfg.debounce.Milliseconds(),
		RangeIntervalMs: cfg.rangeInterval.Milliseconds(),
		HeartbeatMs:     cfg.heartbeat.Milliseconds(),
		Broker:          cfg.broker,
		HTTPAddr:        cfg.httpAddr,
		Bank:            bank,
	})
	if net := readNetworkInfo(cfg.envFile); net != nil {
		tracker.SetNetwork(net)
	}

	d := &daemon{
		engine:     engine,
		tracker:    tracker,
		publisher:  publisher,
		mqttStatus: mqttStatus,
		clients:    registry.Len,
		dropped:    dispatcher.Dropped,
		envFile:    cfg.envFile,
		now:        time.Now,
	}
	d.publishSystem("STARTUP", "", true)

	// Hub and server come up before the inputs so the first edge already has
	// somewhere to go.
	wsHub := hub.NewHub(registry, engine.Reset)
	defer wsHub.Close()

	srv := web.New(cfg.httpAddr, tracker, http.HandlerFunc(wsHub.ServeWS))
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("http server error: %v", err)
		}
	}()
	defer srv.Shutdown(context.Background())
	log.Printf("http status server listening on %s", cfg.httpAddr)

	watched := watchInputs(chip, engine)

	sensor, err := ranging.NewRealSensor(cfg.chip, ranging.DefaultTriggerPin, ranging.DefaultEchoPin, cfg.rangeInterval)
	if err != nil {
		log.Printf("ranging: init failed, continuing without distance: %v", err)
	} else {
		defer sensor.Close()
		watchDistance(sensor, engine)
	}

	log.Printf("started: chip=%s inputs=%d debounce=%v range-interval=%v broker=%q heartbeat=%v",
		cfg.chip, watched, cfg.debounce, cfg.rangeInterval, cfg.broker, cfg.heartbeat)

	var heartbeatC <-chan time.Time
	if cfg.heartbeat > 0 {
		hb := time.NewTicker(cfg.heartbeat)
		defer hb.Stop()
		heartbeatC = hb.C
	}
	refresh := time.NewTicker(statusRefresh)
	defer refresh.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(d, heartbeatC, refresh.C, sigCh)
}

// watchInputs registers every button and capacitive pin with the engine.
// A pin that cannot be watched is logged and skipped. It returns the number
// of pins being watched.
func watchInputs(in gpio.Inputs, engine *logic.Engine) int {
	bank := engine.Bank()
	n := 0
	for _, pin := range bank.Buttons {
		if err := in.Watch(pin, engine.ButtonChanged); err != nil {
			log.Printf("gpio: watch button pin %d: %v", pin, err)
			continue
		}
		n++
	}
	for _, pin := range bank.Capacitive {
		if err := in.Watch(pin, engine.CapacitiveChanged); err != nil {
			log.Printf("gpio: watch capacitive pin %d: %v", pin, err)
			continue
		}
		n++
	}
	return n
}

// watchDistance feeds ranging samples to the engine. Failure is logged.
func watchDistance(sensor ranging.Sensor, engine *logic.Engine) bool {
	err := sensor.Watch(func(cm float64) {
		engine.DistanceSampled(cm)
	})
	if err != nil {
		log.Printf("ranging: watch: %v", err)
		return false
	}
	return true
}

// daemon holds what runLoop needs to report status. publisher and
// mqttStatus are nil when MQTT is disabled.
type daemon struct {
	engine     *logic.Engine
	tracker    *status.Tracker
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	clients    func() int
	dropped    func() uint64
	envFile    string
	now        func() time.Time
}

// refresh copies the engine and connection state into the tracker.
func (d *daemon) refresh() {
	d.tracker.Update(d.engine.Snapshot(), d.clients(), d.dropped())
	if d.mqttStatus != nil {
		d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
	}
}

// publishSystem sends a lifecycle event carrying a full status snapshot.
func (d *daemon) publishSystem(event, reason string, retained bool) {
	d.refresh()
	snap := d.tracker.Snapshot()
	if d.publisher == nil {
		log.Printf("system: %s %s", event, reason)
		return
	}
	ev := mqtt.SystemEvent{
		Timestamp:  d.now(),
		Event:      event,
		Reason:     reason,
		Retained:   retained,
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	}
	if err := d.publisher.PublishSystem(ev); err != nil {
		log.Printf("failed to publish %s event: %v", event, err)
		return
	}
	log.Printf("published %s event", event)
}

func runLoop(d *daemon, heartbeat, refresh <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			d.publishSystem("SHUTDOWN", signalName(s), true)
			return nil

		case <-heartbeat:
			if net := readNetworkInfo(d.envFile); net != nil {
				d.tracker.SetNetwork(net)
			}
			c := d.engine.Snapshot().Counts
			log.Printf("heartbeat: clients=%d button_on=%d button_off=%d pad_on=%d pad_off=%d distance=%d",
				d.clients(), c.ButtonActivated, c.ButtonDisabled, c.CapacitiveActivated, c.CapacitiveDisabled, c.DistanceChanged)
			d.publishSystem("HEARTBEAT", "", false)

		case <-refresh:
			d.refresh()
		}
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

// readNetworkInfo reads network state from the pi-helper env file. If the
// file is missing or unreadable the process environment is used instead.
// Returns nil when no network status is known.
func readNetworkInfo(path string) *status.NetworkInfo {
	get := os.Getenv
	if path != "" {
		if vars, err := godotenv.Read(path); err == nil {
			get = func(k string) string { return vars[k] }
		}
	}
	s := get(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       get(envNetworkType),
		IP:         get(envNetworkIP),
		Status:     s,
		Gateway:    get(envNetworkGateway),
		WifiStatus: get(envNetworkWifiStatus),
		SSID:       get(envNetworkWifiSSID),
	}
}
