package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/moodcast/internal/catalog"
	"github.com/nerrad567/moodcast/internal/history"
	"github.com/nerrad567/moodcast/internal/infrastructure/metrics"
	"github.com/nerrad567/moodcast/internal/infrastructure/mqtt"
	"github.com/nerrad567/moodcast/internal/protocol"
	"github.com/nerrad567/moodcast/internal/weather"
)

// Service defaults.
const (
	DefaultUpstreamTimeout = 5 * time.Second
	DefaultQoS             = 1
)

// MQTTClient is the subset of the MQTT client the gateway needs.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// MoodStore holds the per-city mood.
type MoodStore interface {
	Get(city catalog.City) catalog.Mood
	SetAndSave(city catalog.City, mood catalog.Mood) error
}

// Recorder persists served replies. Optional.
type Recorder interface {
	Record(ctx context.Context, l history.Lookup) error
}

// Telemetry receives served readings. Optional.
type Telemetry interface {
	WriteWeather(city string, temperature, humidity int, mood string, at time.Time)
}

// Event channels published through Events.
const (
	EventReplyPublished = "reply.published"
	EventMoodUpdated    = "mood.updated"
)

// MoodEvent is the payload of EventMoodUpdated.
type MoodEvent struct {
	City string `json:"city"`
	Mood string `json:"mood"`
}

// Events fans gateway activity out to live subscribers. Optional.
type Events interface {
	Broadcast(channel string, payload any)
}

// Metrics counts requests and outcomes. Optional.
type Metrics interface {
	RequestReceived(kind string)
	RequestDropped(reason string)
	ReplyPublished()
	MoodUpdated(mood string)
	PersistFailed()
	ObserveUpstream(d time.Duration, ok bool)
}

// Logger is the structured logger used by the service.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Options holds the dependencies of a Service.
type Options struct {
	// MQTT is the broker connection. Required.
	MQTT MQTTClient

	// Store is the mood store. Required.
	Store MoodStore

	// Weather is the upstream provider. Required.
	Weather weather.Provider

	History   Recorder
	Telemetry Telemetry
	Events    Events
	Metrics   Metrics
	Logger    Logger

	// RequestTopic defaults to "requests".
	RequestTopic string

	// QoS for the subscription and replies. Defaults to 1.
	QoS byte

	// UpstreamTimeout bounds each weather lookup. Defaults to 5s.
	UpstreamTimeout time.Duration
}

// Service is the gateway request loop.
//
// Thread Safety: All methods are safe for concurrent use.
type Service struct {
	mqtt      MQTTClient
	store     MoodStore
	weather   weather.Provider
	history   Recorder
	telemetry Telemetry
	events    Events
	metrics   Metrics
	logger    Logger

	requestTopic    string
	qos             byte
	upstreamTimeout time.Duration
	now             func() time.Time

	// tails holds, per city, a channel closed when the most recently
	// queued request for that city finishes.
	tails   map[catalog.City]chan struct{}
	tailsMu sync.Mutex

	ctx       context.Context
	ctxCancel context.CancelFunc
	wg        sync.WaitGroup
	stateMu   sync.Mutex
	started   bool
	stopOnce  sync.Once

	// runMu guards stopping and every wg.Add.
	runMu    sync.Mutex
	stopping bool
}

// New creates a Service. Call Start to begin serving.
func New(opts Options) (*Service, error) {
	if opts.MQTT == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("mood store is required")
	}
	if opts.Weather == nil {
		return nil, fmt.Errorf("weather provider is required")
	}

	s := &Service{
		mqtt:            opts.MQTT,
		store:           opts.Store,
		weather:         opts.Weather,
		history:         opts.History,
		telemetry:       opts.Telemetry,
		events:          opts.Events,
		metrics:         opts.Metrics,
		logger:          opts.Logger,
		requestTopic:    opts.RequestTopic,
		qos:             opts.QoS,
		upstreamTimeout: opts.UpstreamTimeout,
		now:             time.Now,
		tails:           make(map[catalog.City]chan struct{}),
	}
	if s.requestTopic == "" {
		s.requestTopic = mqtt.Topics{}.Requests()
	}
	if s.qos == 0 {
		s.qos = DefaultQoS
	}
	if s.upstreamTimeout <= 0 {
		s.upstreamTimeout = DefaultUpstreamTimeout
	}
	if s.metrics == nil {
		s.metrics = noopMetrics{}
	}
	if s.logger == nil {
		s.logger = noopLogger{}
	}
	s.ctx, s.ctxCancel = context.WithCancel(context.Background())

	return s, nil
}

// Start subscribes to the request topic. Cancelling ctx has the same
// effect as calling Stop.
func (s *Service) Start(ctx context.Context) error {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if s.started {
		return ErrAlreadyStarted
	}

	if err := s.mqtt.Subscribe(s.requestTopic, s.qos, s.HandleMessage); err != nil {
		return fmt.Errorf("subscribe to requests: %w", err)
	}
	s.started = true

	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-s.ctx.Done():
		}
	}()

	s.logger.Info("gateway started", "topic", s.requestTopic)
	return nil
}

// Stop unsubscribes, cancels in-flight lookups and waits for them to
// finish. Requests still queued behind another request for the same city
// are dropped without a reply. Safe to call more than once.
func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		s.stateMu.Lock()
		started := s.started
		s.stateMu.Unlock()

		s.runMu.Lock()
		s.stopping = true
		s.runMu.Unlock()

		if started {
			if err := s.mqtt.Unsubscribe(s.requestTopic); err != nil {
				s.logger.Warn("unsubscribe from requests failed", "error", err)
			}
		}
		s.ctxCancel()
		s.wg.Wait()
		s.logger.Info("gateway stopped")
	})
}

// HandleMessage is the MQTT handler for the request topic. It decodes the
// payload and queues the request behind any earlier request for the same
// city. Undecodable payloads are dropped.
func (s *Service) HandleMessage(_ string, payload []byte) error {
	requestID := uuid.NewString()

	req, err := protocol.DecodeRequest(payload)
	if err != nil {
		s.metrics.RequestDropped(metrics.DropMalformed)
		s.logger.Warn("dropping malformed request",
			"request_id", requestID,
			"payload", truncate(payload),
			"error", err)
		return nil
	}

	s.runMu.Lock()
	if s.stopping {
		s.runMu.Unlock()
		s.logger.Debug("dropping request after stop", "request_id", requestID, "city", req.City)
		return nil
	}
	s.wg.Add(1)
	s.runMu.Unlock()

	prev, done := s.enqueue(req.City)
	go func() {
		defer s.wg.Done()
		defer s.release(req.City, done)

		if prev != nil {
			select {
			case <-prev:
			case <-s.ctx.Done():
				return
			}
		}
		_, _ = s.Serve(s.ctx, requestID, req) //nolint:errcheck // Outcome is logged by Serve
	}()

	return nil
}

// Serve handles one decoded request synchronously and returns the reply
// that was published.
//
// The mood is applied before the weather lookup, so the reply always
// carries the updated mood. A failed mood file write is logged and does
// not stop the reply.
func (s *Service) Serve(ctx context.Context, requestID string, req protocol.Request) (protocol.Reply, error) {
	logger := s.logger
	kind := metrics.KindLookup
	if req.HasMood {
		kind = metrics.KindUpdate
	}
	s.metrics.RequestReceived(kind)

	if req.HasMood {
		if err := s.store.SetAndSave(req.City, req.Mood); err != nil {
			s.metrics.PersistFailed()
			logger.Warn("mood not persisted",
				"request_id", requestID,
				"city", req.City,
				"error", err)
		}
		s.metrics.MoodUpdated(string(req.Mood))
		if s.events != nil {
			s.events.Broadcast(EventMoodUpdated, MoodEvent{City: string(req.City), Mood: string(req.Mood)})
		}
	}

	lookupCtx, cancel := context.WithTimeout(ctx, s.upstreamTimeout)
	started := s.now()
	cond, err := s.weather.Current(lookupCtx, req.City)
	cancel()
	s.metrics.ObserveUpstream(s.now().Sub(started), err == nil)
	if err != nil {
		s.metrics.RequestDropped(metrics.DropUpstream)
		logger.Warn("weather lookup failed",
			"request_id", requestID,
			"city", req.City,
			"error", err)
		return protocol.Reply{}, fmt.Errorf("weather lookup for %s: %w", req.City, err)
	}

	// Read only after a successful lookup: Get adds unknown cities to the
	// store, and failed lookups for made-up names must not.
	mood := s.store.Get(req.City)
	reply := protocol.Reply{
		Temperature: cond.Temperature,
		Humidity:    cond.Humidity,
		Mood:        string(mood),
	}
	topic := mqtt.Topics{}.Reply(string(req.City))
	if err := s.mqtt.Publish(topic, protocol.EncodeReply(reply), s.qos, false); err != nil {
		s.metrics.RequestDropped(metrics.DropPublish)
		logger.Error("publishing reply failed",
			"request_id", requestID,
			"topic", topic,
			"error", err)
		return protocol.Reply{}, fmt.Errorf("publish reply for %s: %w", req.City, err)
	}
	s.metrics.ReplyPublished()

	served := history.Lookup{
		RequestID:   requestID,
		City:        req.City,
		Temperature: reply.Temperature,
		Humidity:    reply.Humidity,
		Mood:        mood,
		ServedAt:    s.now(),
	}
	servedAt := served.ServedAt
	if s.history != nil {
		if err := s.history.Record(ctx, served); err != nil {
			logger.Warn("recording lookup failed", "request_id", requestID, "error", err)
		}
	}
	if s.events != nil {
		s.events.Broadcast(EventReplyPublished, served)
	}
	if s.telemetry != nil {
		s.telemetry.WriteWeather(string(req.City), reply.Temperature, reply.Humidity, reply.Mood, servedAt)
	}

	logger.Info("reply published",
		"request_id", requestID,
		"city", req.City,
		"temperature", reply.Temperature,
		"humidity", reply.Humidity,
		"mood", reply.Mood)

	return reply, nil
}

// enqueue registers a new request for city and returns the channel of the
// request it must wait for (nil if none) and its own completion channel.
func (s *Service) enqueue(city catalog.City) (prev, done chan struct{}) {
	s.tailsMu.Lock()
	defer s.tailsMu.Unlock()

	prev = s.tails[city]
	done = make(chan struct{})
	s.tails[city] = done
	return prev, done
}

// release marks a request finished and forgets the city when no later
// request is queued behind it.
func (s *Service) release(city catalog.City, done chan struct{}) {
	s.tailsMu.Lock()
	defer s.tailsMu.Unlock()

	close(done)
	if s.tails[city] == done {
		delete(s.tails, city)
	}
}

// maxLoggedPayload caps how much of a bad payload ends up in the log.
const maxLoggedPayload = 128

func truncate(payload []byte) string {
	if len(payload) > maxLoggedPayload {
		return string(payload[:maxLoggedPayload]) + "..."
	}
	return string(payload)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

type noopMetrics struct{}

func (noopMetrics) RequestReceived(string)              {}
func (noopMetrics) RequestDropped(string)               {}
func (noopMetrics) ReplyPublished()                     {}
func (noopMetrics) MoodUpdated(string)                  {}
func (noopMetrics) PersistFailed()                      {}
func (noopMetrics) ObserveUpstream(time.Duration, bool) {}
