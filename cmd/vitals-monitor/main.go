// Command vitals-monitor runs the bedside vitals monitor: pulse and SpO2
// acquisition, alarm clock, per-user history and the local web interface.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/vitals-monitor/internal/config"
	"github.com/sweeney/vitals-monitor/internal/device"
	"github.com/sweeney/vitals-monitor/internal/display"
	"github.com/sweeney/vitals-monitor/internal/gpio"
	"github.com/sweeney/vitals-monitor/internal/logic"
	"github.com/sweeney/vitals-monitor/internal/mqtt"
	"github.com/sweeney/vitals-monitor/internal/sensor"
	"github.com/sweeney/vitals-monitor/internal/status"
	"github.com/sweeney/vitals-monitor/internal/store"
	"github.com/sweeney/vitals-monitor/internal/web"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file (optional)")
	printState := flag.Bool("print-state", false, "Print one sensor reading and exit")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	if err := run(cfg, *printState); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(cfg config.Config, printState bool) error {
	if printState {
		reader, err := sensor.NewI2CReader(cfg.I2CDevice, cfg.I2CAddress)
		if err != nil {
			return fmt.Errorf("init sensor: %w", err)
		}
		defer reader.Close()
		return printReading(os.Stdout, reader, cfg.FingerThreshold)
	}

	bootID := uuid.NewString()
	clientID := cfg.ClientID + "-" + bootID[:8]

	codec, closeCodec := openCodec(cfg)
	defer closeCodec()
	st := store.New(codec)
	if err := st.Load(); err != nil {
		log.Printf("store: %v, starting empty", err)
	}
	if err := st.EnsureAdmin(); err != nil {
		log.Printf("store: %v", err)
	}

	opts := device.Options{
		Store:           st,
		FingerThreshold: cfg.FingerThreshold,
		Heartbeat:       cfg.Heartbeat,
		Network:         readNetworkInfo,
		Yield:           runtime.Gosched,
	}

	// A sensor that cannot be opened leaves the device in the not-ready
	// state; everything else keeps running.
	if reader, err := sensor.NewI2CReader(cfg.I2CDevice, cfg.I2CAddress); err != nil {
		log.Printf("sensor: %v", err)
	} else {
		defer reader.Close()
		opts.Sensor = reader
	}

	if cfg.PanelEnabled() {
		if panel, err := gpio.NewRealPanel(cfg.GPIOChip, cfg.PinButton, cfg.PinBuzzer); err != nil {
			log.Printf("panel: %v, continuing without button and buzzer", err)
		} else {
			defer panel.Close()
			opts.Panel = panel
		}
	}

	if cfg.DisplayPath != "" {
		opts.Display = display.NewFile(cfg.DisplayPath)
	}

	var publisher mqtt.Publisher = mqtt.NopPublisher{}
	var mqttStatus mqtt.ConnectionStatus
	if cfg.Broker != "" {
		p := mqtt.NewRealPublisher(cfg.Broker, clientID, bootID)
		defer p.Close()
		publisher, mqttStatus = p, p
	}
	opts.Publisher = publisher
	opts.MQTT = mqttStatus

	tracker := status.NewTracker(time.Now(), bootID, status.Config{
		PassMs:      cfg.PassInterval.Milliseconds(),
		HeartbeatMs: cfg.Heartbeat.Milliseconds(),
		Broker:      cfg.Broker,
		HTTPAddr:    cfg.HTTP,
		Store:       cfg.Store,
		DataPath:    cfg.StorePath(),
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}
	opts.Tracker = tracker

	ticks := tickSource(time.Now())
	dev := device.New(opts, ticks())

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		BootID:     bootID,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	if cfg.HTTP != "" {
		srv := web.New(cfg.HTTP, tracker, dev)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http server listening on %s", cfg.HTTP)
	}

	log.Printf("started: boot=%s store=%s broker=%s heartbeat=%v pass=%v sensor_ready=%v",
		bootID, cfg.Store, cfg.Broker, cfg.Heartbeat, cfg.PassInterval, dev.Ready())

	ticker := time.NewTicker(cfg.PassInterval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(dev, publisher, mqttStatus, tracker, time.Now, ticks, ticker.C, sigCh)
}

// passer runs one cooperative pass.
type passer interface {
	Tick(now logic.Ticks)
}

// runLoop drives one device pass per tick until a signal arrives, then
// publishes the SHUTDOWN event.
func runLoop(dev passer, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, now func() time.Time, ticks func() logic.Ticks, tick <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				snap := tracker.Snapshot()
				event.BootID = snap.BootID
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case <-tick:
			dev.Tick(ticks())
		}
	}
}

// tickSource returns the millisecond tick counter. It wraps at 2^32 like
// the hardware counter it replaces.
func tickSource(start time.Time) func() logic.Ticks {
	return func() logic.Ticks {
		return logic.Ticks(time.Since(start).Milliseconds())
	}
}

// openCodec selects the persistence backend. A database that cannot be
// opened yields a nil codec, which runs the store in memory.
func openCodec(cfg config.Config) (store.Codec, func()) {
	switch cfg.Store {
	case config.StoreJSON:
		return store.NewJSONFile(cfg.StorePath()), func() {}
	case config.StoreSQLite:
		db, err := store.OpenSQLite(cfg.StorePath())
		if err != nil {
			log.Printf("store: %v, running in memory", err)
			return nil, func() {}
		}
		return db, func() {
			if err := db.Close(); err != nil {
				log.Printf("store: close: %v", err)
			}
		}
	}
	return store.NewMemoryCodec(), func() {}
}

// printReading prints one raw sample and whether it counts as a finger.
func printReading(w io.Writer, r sensor.Reader, threshold uint32) error {
	red, ir, err := r.Read()
	if err != nil {
		return fmt.Errorf("read sensor: %w", err)
	}
	if threshold == 0 {
		threshold = logic.DefaultFingerThreshold
	}
	finger := "ABSENT"
	if ir >= threshold {
		finger = "PRESENT"
	}
	fmt.Fprintf(w, "RED: %d, IR: %d, FINGER: %s\n", red, ir, finger)
	return nil
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

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
