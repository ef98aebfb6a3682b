// Moodcast station
//
// The station is the display side of Moodcast. It reads one gesture per
// line from stdin (up, down, left, right or their first letters), draws
// the current screen on stdout and talks to the gateway over MQTT.
// Logs go to stderr so they never mix with the display.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/moodcast/internal/infrastructure/config"
	"github.com/nerrad567/moodcast/internal/infrastructure/logging"
	"github.com/nerrad567/moodcast/internal/infrastructure/mqtt"
	"github.com/nerrad567/moodcast/internal/station"
)

// Version information - set at build time via ldflags
var (
	version = "dev"
	commit  = "unknown"
)

const serviceName = "station"

// gestureBuffer holds lines read while the machine is busy. The machine
// discards them after a request, so typing during a wait is not replayed.
const gestureBuffer = 16

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run connects the station and drives it from in until ctx is cancelled
// or in reaches EOF. Screens are drawn on out.
func run(ctx context.Context, in io.Reader, out io.Writer) error {
	configPath := config.Path()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logCfg := cfg.Logging
	logCfg.Output = "stderr"
	log := logging.New(logCfg, serviceName, version)
	log.Info("starting Moodcast station", "version", version, "commit", commit, "config", configPath)

	renderer := station.NewTextRenderer(out, cfg.Station.DisplayWidth)

	mqttCfg := cfg.MQTT
	if cfg.Station.ClientID != "" {
		mqttCfg.Broker.ClientID = cfg.Station.ClientID
	}
	mqttClient, err := mqtt.Connect(mqttCfg)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	mqttClient.SetLogger(log.With("component", "mqtt"))
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	log.Info("MQTT connected", "client_id", mqttClient.ClientID())

	link := station.NewMQTTLink(mqttClient, byte(cfg.MQTT.QoS))
	link.SetLogger(log.With("component", "link"))

	if err := watchPeers(mqttClient, mqttClient.ClientID(), byte(cfg.MQTT.QoS), log.With("component", "status")); err != nil {
		log.Warn("gateway status unavailable", "error", err)
	}

	machine, err := station.NewMachine(station.Options{
		Link:         link,
		Renderer:     renderer,
		Logger:       log.With("component", "machine"),
		RequestTopic: cfg.Gateway.RequestTopic,
		ReplyTimeout: cfg.Station.ReplyTimeout,
		PollInterval: cfg.Station.PollInterval,
	})
	if err != nil {
		return fmt.Errorf("creating state machine: %w", err)
	}
	if err := machine.Start(); err != nil {
		return err
	}

	if err := machine.Run(ctx, readGestures(ctx, in, log)); err != nil {
		return fmt.Errorf("running station: %w", err)
	}
	log.Info("station stopped")
	return nil
}

// statusSubscriber is the part of the MQTT client watchPeers needs.
type statusSubscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// peerLogger is the logging surface watchPeers needs.
type peerLogger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// watchPeers logs the retained online/offline status of the other
// Moodcast clients, so an unreachable gateway shows up in the station log
// before requests start timing out. The station's own status is skipped.
func watchPeers(client statusSubscriber, self string, qos byte, log peerLogger) error {
	return client.Subscribe(mqtt.Topics{}.AllStatus(), qos, func(topic string, payload []byte) error {
		status, err := mqtt.ParseStatus(payload)
		if err != nil {
			return fmt.Errorf("status on %s: %w", topic, err)
		}
		if status.ClientID == self {
			return nil
		}
		if status.Online {
			log.Info("peer online", "client_id", status.ClientID)
			return nil
		}
		log.Warn("peer offline", "client_id", status.ClientID, "reason", status.Reason)
		return nil
	})
}

// gestureLogger is the logging surface readGestures needs.
type gestureLogger interface {
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// readGestures parses one gesture per line from r. Unknown lines are
// logged and skipped. The channel is closed at EOF.
func readGestures(ctx context.Context, r io.Reader, log gestureLogger) <-chan station.Gesture {
	gestures := make(chan station.Gesture, gestureBuffer)

	go func() {
		defer close(gestures)

		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}
			g, err := station.ParseGesture(line)
			if err != nil {
				log.Warn("ignoring input", "line", line, "error", err)
				continue
			}
			select {
			case gestures <- g:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
			log.Error("reading gestures failed", "error", err)
		}
	}()

	return gestures
}
