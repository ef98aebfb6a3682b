package station

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/moodcast/internal/catalog"
	"github.com/nerrad567/moodcast/internal/infrastructure/mqtt"
	"github.com/nerrad567/moodcast/internal/protocol"
)

// Machine defaults.
const (
	DefaultReplyTimeout = 3000 * time.Millisecond
	DefaultPollInterval = 50 * time.Millisecond
)

// Logger is the structured logger used by the station.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// State is a snapshot of the machine.
type State struct {
	Screen    Screen
	CityIndex int

	// Mood is the local view. It may be stale until the next reply.
	Mood catalog.Mood

	// PendingReply is set once a message arrives on the subscribed reply
	// topic; LastMessage holds its payload.
	PendingReply bool
	LastMessage  []byte

	// TimedOut is true while the Detail screen shows the timeout notice.
	TimedOut bool
}

// City returns the selected city.
func (s State) City() catalog.City {
	return catalog.CityAt(s.CityIndex)
}

// Options configures a Machine.
type Options struct {
	// Link is the network connection. Required.
	Link Link

	// Renderer draws screens. Required.
	Renderer Renderer

	Clock  Clock
	Logger Logger

	// RequestTopic defaults to "requests".
	RequestTopic string

	// ReplyTimeout defaults to 3000ms.
	ReplyTimeout time.Duration

	// PollInterval is the longest single wait on the link. Defaults to 50ms.
	PollInterval time.Duration
}

// Machine is the station state machine. It is not safe for concurrent
// use; drive it from one goroutine with Run or HandleGesture.
type Machine struct {
	link     Link
	renderer Renderer
	clock    Clock
	logger   Logger

	requestTopic string
	replyTimeout time.Duration
	pollInterval time.Duration

	state      State
	reply      protocol.Reply
	subscribed string

	// waited is set when a request blocked on its reply.
	waited bool
}

// NewMachine creates a machine on the Start screen.
func NewMachine(opts Options) (*Machine, error) {
	if opts.Link == nil {
		return nil, fmt.Errorf("link is required")
	}
	if opts.Renderer == nil {
		return nil, fmt.Errorf("renderer is required")
	}

	m := &Machine{
		link:         opts.Link,
		renderer:     opts.Renderer,
		clock:        opts.Clock,
		logger:       opts.Logger,
		requestTopic: opts.RequestTopic,
		replyTimeout: opts.ReplyTimeout,
		pollInterval: opts.PollInterval,
		state: State{
			Screen: ScreenStart,
			Mood:   catalog.DefaultMood,
		},
	}
	if m.clock == nil {
		m.clock = systemClock{}
	}
	if m.logger == nil {
		m.logger = noopLogger{}
	}
	if m.requestTopic == "" {
		m.requestTopic = mqtt.Topics{}.Requests()
	}
	if m.replyTimeout <= 0 {
		m.replyTimeout = DefaultReplyTimeout
	}
	if m.pollInterval <= 0 {
		m.pollInterval = DefaultPollInterval
	}

	return m, nil
}

// State returns a copy of the current state.
func (m *Machine) State() State {
	s := m.state
	s.LastMessage = append([]byte(nil), m.state.LastMessage...)
	return s
}

// Start draws the Start screen. A failure here means the display is
// unusable.
func (m *Machine) Start() error {
	if err := m.renderer.Render(m.view()); err != nil {
		return fmt.Errorf("bring up display: %w", err)
	}
	return nil
}

// Run handles gestures until ctx is cancelled or gestures is closed.
// Between gestures it keeps draining the link so stale replies do not
// pile up. Gestures queued while a request was waiting for its reply are
// discarded, not replayed.
func (m *Machine) Run(ctx context.Context, gestures <-chan Gesture) error {
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case g, ok := <-gestures:
			if !ok {
				return nil
			}
			m.HandleGesture(g)
			if m.waited {
				m.waited = false
				m.discardGestures(gestures)
			}
		case <-ticker.C:
			m.drain()
		}
	}
}

// HandleGesture applies one gesture. Gestures that have no effect on the
// current screen are ignored. Requests block until their reply or the
// reply timeout.
func (m *Machine) HandleGesture(g Gesture) {
	switch g {
	case GestureUp, GestureDown, GestureLeft, GestureRight:
	default:
		m.logger.Debug("ignoring gesture", "gesture", g, "screen", m.state.Screen)
		return
	}

	prev := m.state.Screen

	switch m.state.Screen {
	case ScreenStart:
		m.state.Screen = ScreenCity
		m.state.CityIndex = 0

	case ScreenCity:
		switch g {
		case GestureUp:
			m.state.Screen = ScreenStart
		case GestureDown:
			m.request(protocol.LookupRequest(m.state.City()), prev)
			return
		case GestureLeft:
			m.state.CityIndex = catalog.PrevIndex(m.state.CityIndex)
		case GestureRight:
			m.state.CityIndex = catalog.NextIndex(m.state.CityIndex)
		}

	case ScreenDetail:
		switch g {
		case GestureUp:
			m.state.Screen = ScreenCity
		case GestureDown:
			m.state.Screen = ScreenMood
		default:
			return
		}
		m.state.TimedOut = false

	case ScreenMood:
		switch g {
		case GestureUp:
			m.request(protocol.UpdateRequest(m.state.City(), m.state.Mood), prev)
			return
		case GestureDown:
			return
		case GestureLeft:
			m.state.Mood = m.state.Mood.Decrease()
		case GestureRight:
			m.state.Mood = m.state.Mood.Increase()
		}
	}

	m.render()
}

// HandleMessage records a message from the link. Only messages on the
// subscribed reply topic count as a reply.
func (m *Machine) HandleMessage(topic string, payload []byte) {
	if topic != m.subscribed {
		m.logger.Debug("ignoring message", "topic", topic)
		return
	}
	m.state.LastMessage = append([]byte(nil), payload...)
	m.state.PendingReply = true
}

// request publishes req and waits for the reply. On success or timeout
// the machine ends on Detail; a malformed reply leaves it on prev with
// the display untouched.
func (m *Machine) request(req protocol.Request, prev Screen) {
	topic := mqtt.Topics{}.Reply(string(req.City))

	m.drain()
	m.state.PendingReply = false
	m.state.LastMessage = nil

	if err := m.subscribe(topic); err != nil {
		m.logger.Warn("subscribe to reply failed", "topic", topic, "error", err)
		m.timeout()
		return
	}
	if err := m.link.Publish(m.requestTopic, protocol.EncodeRequest(req)); err != nil {
		m.logger.Warn("publish request failed", "city", req.City, "error", err)
		m.timeout()
		return
	}
	m.logger.Debug("request sent", "city", req.City, "mood", req.Mood, "has_mood", req.HasMood)
	m.waited = true

	res := Await(m.clock, m.replyTimeout, func() ([]byte, bool) {
		if msg, ok := m.link.Poll(m.pollInterval); ok {
			m.HandleMessage(msg.Topic, msg.Payload)
		}
		if m.state.PendingReply {
			return m.state.LastMessage, true
		}
		return nil, false
	})

	if res.Status == StatusTimeout {
		m.logger.Warn("reply timed out", "city", req.City, "timeout", m.replyTimeout)
		m.timeout()
		return
	}

	reply, err := protocol.DecodeReply(res.Payload)
	if err != nil {
		m.logger.Warn("discarding malformed reply", "city", req.City, "error", err)
		m.state.Screen = prev
		return
	}

	m.reply = reply
	if mood, err := catalog.ParseMood(reply.Mood); err == nil {
		m.state.Mood = mood
	}
	m.state.Screen = ScreenDetail
	m.state.TimedOut = false
	m.render()
}

// subscribe moves the reply subscription to topic. The subscription is
// renewed even when unchanged so a dropped session cannot lose it.
func (m *Machine) subscribe(topic string) error {
	if m.subscribed != "" && m.subscribed != topic {
		if err := m.link.Unsubscribe(m.subscribed); err != nil {
			m.logger.Debug("unsubscribe failed", "topic", m.subscribed, "error", err)
		}
	}
	m.subscribed = ""
	if err := m.link.Subscribe(topic); err != nil {
		return err
	}
	m.subscribed = topic
	return nil
}

func (m *Machine) timeout() {
	m.state.Screen = ScreenDetail
	m.state.TimedOut = true
	m.render()
}

// drain discards anything already queued on the link.
func (m *Machine) drain() {
	for {
		msg, ok := m.link.Poll(0)
		if !ok {
			return
		}
		m.logger.Debug("discarding stale message", "topic", msg.Topic)
	}
}

// discardGestures empties gestures without blocking.
func (m *Machine) discardGestures(gestures <-chan Gesture) {
	for {
		select {
		case g, ok := <-gestures:
			if !ok {
				return
			}
			m.logger.Debug("discarding gesture made during request", "gesture", g)
		default:
			return
		}
	}
}

func (m *Machine) view() View {
	return View{
		Screen:   m.state.Screen,
		City:     m.state.City(),
		Mood:     m.state.Mood,
		Reply:    m.reply,
		TimedOut: m.state.TimedOut,
	}
}

func (m *Machine) render() {
	if err := m.renderer.Render(m.view()); err != nil {
		m.logger.Error("render failed", "screen", m.state.Screen, "error", err)
	}
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
