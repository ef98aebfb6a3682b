package gateway

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/moodcast/internal/catalog"
	"github.com/nerrad567/moodcast/internal/history"
	"github.com/nerrad567/moodcast/internal/infrastructure/metrics"
	"github.com/nerrad567/moodcast/internal/infrastructure/mqtt"
	"github.com/nerrad567/moodcast/internal/moodstore"
	"github.com/nerrad567/moodcast/internal/protocol"
	"github.com/nerrad567/moodcast/internal/weather"
)

// mockMQTT records publishes and hands out the registered handler.
type mockMQTT struct {
	mu           sync.Mutex
	handlers     map[string]mqtt.MessageHandler
	published    []publishedMsg
	unsubscribed []string
	publishErr   error
	subscribeErr error
}

type publishedMsg struct {
	topic    string
	payload  string
	qos      byte
	retained bool
}

func newMockMQTT() *mockMQTT {
	return &mockMQTT{handlers: make(map[string]mqtt.MessageHandler)}
}

func (m *mockMQTT) Publish(topic string, payload []byte, qos byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishErr != nil {
		return m.publishErr
	}
	m.published = append(m.published, publishedMsg{topic, string(payload), qos, retained})
	return nil
}

func (m *mockMQTT) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.subscribeErr != nil {
		return m.subscribeErr
	}
	m.handlers[topic] = handler
	return nil
}

func (m *mockMQTT) Unsubscribe(topic string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.handlers, topic)
	m.unsubscribed = append(m.unsubscribed, topic)
	return nil
}

func (m *mockMQTT) deliver(t *testing.T, topic, payload string) {
	t.Helper()
	m.mu.Lock()
	h := m.handlers[topic]
	m.mu.Unlock()
	require.NotNil(t, h, "no handler for %s", topic)
	require.NoError(t, h(topic, []byte(payload)))
}

func (m *mockMQTT) messages() []publishedMsg {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]publishedMsg(nil), m.published...)
}

type mockRecorder struct {
	mu      sync.Mutex
	lookups []history.Lookup
}

func (r *mockRecorder) Record(_ context.Context, l history.Lookup) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookups = append(r.lookups, l)
	return nil
}

type mockTelemetry struct {
	mu     sync.Mutex
	points []string
}

func (m *mockTelemetry) WriteWeather(city string, _, _ int, mood string, _ time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.points = append(m.points, city+"/"+mood)
}

type mockEvents struct {
	mu       sync.Mutex
	channels []string
	payloads []any
}

func (m *mockEvents) Broadcast(channel string, payload any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels = append(m.channels, channel)
	m.payloads = append(m.payloads, payload)
}

func fixedWeather(temp, hum int) weather.Provider {
	return weather.ProviderFunc(func(context.Context, catalog.City) (weather.Conditions, error) {
		return weather.Conditions{Temperature: temp, Humidity: hum}, nil
	})
}

type fixture struct {
	svc   *Service
	mqtt  *mockMQTT
	store *moodstore.Store
}

func newFixture(t *testing.T, provider weather.Provider, opts ...func(*Options)) *fixture {
	t.Helper()
	store := moodstore.New(t.TempDir() + "/moods.txt")
	require.NoError(t, store.Load())

	client := newMockMQTT()
	o := Options{
		MQTT:    client,
		Store:   store,
		Weather: provider,
	}
	for _, fn := range opts {
		fn(&o)
	}
	svc, err := New(o)
	require.NoError(t, err)
	t.Cleanup(svc.Stop)

	return &fixture{svc: svc, mqtt: client, store: store}
}

func TestNew_RequiresDependencies(t *testing.T) {
	store := moodstore.New(t.TempDir() + "/moods.txt")
	provider := fixedWeather(0, 0)

	_, err := New(Options{Store: store, Weather: provider})
	assert.Error(t, err)
	_, err = New(Options{MQTT: newMockMQTT(), Weather: provider})
	assert.Error(t, err)
	_, err = New(Options{MQTT: newMockMQTT(), Store: store})
	assert.Error(t, err)
}

func TestNew_Defaults(t *testing.T) {
	f := newFixture(t, fixedWeather(0, 0))
	assert.Equal(t, "requests", f.svc.requestTopic)
	assert.Equal(t, byte(1), f.svc.qos)
	assert.Equal(t, DefaultUpstreamTimeout, f.svc.upstreamTimeout)
}

func TestServe_LookupUsesStoredMood(t *testing.T) {
	f := newFixture(t, fixedWeather(20, 50))

	reply, err := f.svc.Serve(context.Background(), "req-1", protocol.LookupRequest("Brno"))
	require.NoError(t, err)
	assert.Equal(t, protocol.Reply{Temperature: 20, Humidity: 50, Mood: "Neutral"}, reply)

	msgs := f.mqtt.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "Brno", msgs[0].topic)
	assert.Equal(t, `{ "temperature": 20, "humidity": 50, "mood": "Neutral" }`, msgs[0].payload)
	assert.Equal(t, byte(1), msgs[0].qos)
	assert.False(t, msgs[0].retained)
}

func TestServe_UpdatePersistsMood(t *testing.T) {
	f := newFixture(t, fixedWeather(20, 50))

	reply, err := f.svc.Serve(context.Background(), "req-1", protocol.UpdateRequest("Brno", catalog.MoodHappy))
	require.NoError(t, err)
	assert.Equal(t, "Happy", reply.Mood)
	assert.Equal(t, catalog.MoodHappy, f.store.Get("Brno"))

	reloaded := moodstore.New(f.store.Path())
	require.NoError(t, reloaded.Load())
	assert.Equal(t, catalog.MoodHappy, reloaded.Get("Brno"))

	// A later lookup sees the new mood.
	reply, err = f.svc.Serve(context.Background(), "req-2", protocol.LookupRequest("Brno"))
	require.NoError(t, err)
	assert.Equal(t, "Happy", reply.Mood)
}

func TestServe_UncataloguedCityDefaultsToNeutral(t *testing.T) {
	f := newFixture(t, fixedWeather(5, 70))

	reply, err := f.svc.Serve(context.Background(), "req-1", protocol.LookupRequest("Madrid"))
	require.NoError(t, err)
	assert.Equal(t, "Neutral", reply.Mood)
	assert.Equal(t, "Madrid", f.mqtt.messages()[0].topic)
}

func TestServe_UpstreamFailurePublishesNothing(t *testing.T) {
	failing := weather.ProviderFunc(func(context.Context, catalog.City) (weather.Conditions, error) {
		return weather.Conditions{}, weather.ErrUpstream
	})
	f := newFixture(t, failing)

	_, err := f.svc.Serve(context.Background(), "req-1", protocol.UpdateRequest("Brno", catalog.MoodSad))
	require.ErrorIs(t, err, weather.ErrUpstream)
	assert.Empty(t, f.mqtt.messages())

	// The mood update still happened.
	assert.Equal(t, catalog.MoodSad, f.store.Get("Brno"))
}

func TestServe_UpstreamTimeout(t *testing.T) {
	slow := weather.ProviderFunc(func(ctx context.Context, _ catalog.City) (weather.Conditions, error) {
		<-ctx.Done()
		return weather.Conditions{}, ctx.Err()
	})
	f := newFixture(t, slow, func(o *Options) { o.UpstreamTimeout = 20 * time.Millisecond })

	_, err := f.svc.Serve(context.Background(), "req-1", protocol.LookupRequest("Brno"))
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, f.mqtt.messages())
}

func TestServe_PublishFailure(t *testing.T) {
	rec := &mockRecorder{}
	f := newFixture(t, fixedWeather(1, 2), func(o *Options) { o.History = rec })
	f.mqtt.publishErr = errors.New("broker gone")

	_, err := f.svc.Serve(context.Background(), "req-1", protocol.LookupRequest("Brno"))
	require.Error(t, err)
	assert.Empty(t, rec.lookups)
}

func TestServe_PersistFailureStillReplies(t *testing.T) {
	// A store whose file cannot be written.
	store := moodstore.New(t.TempDir())
	client := newMockMQTT()
	m := metrics.New()
	svc, err := New(Options{MQTT: client, Store: store, Weather: fixedWeather(3, 4), Metrics: m})
	require.NoError(t, err)
	t.Cleanup(svc.Stop)

	reply, err := svc.Serve(context.Background(), "req-1", protocol.UpdateRequest("Brno", catalog.MoodExcited))
	require.NoError(t, err)
	assert.Equal(t, "Excited", reply.Mood)
	assert.Len(t, client.messages(), 1)
}

func TestServe_RecordsHistoryAndTelemetry(t *testing.T) {
	rec := &mockRecorder{}
	tel := &mockTelemetry{}
	f := newFixture(t, fixedWeather(21, 48), func(o *Options) {
		o.History = rec
		o.Telemetry = tel
	})

	_, err := f.svc.Serve(context.Background(), "req-7", protocol.UpdateRequest("Rome", catalog.MoodHappy))
	require.NoError(t, err)

	require.Len(t, rec.lookups, 1)
	got := rec.lookups[0]
	assert.Equal(t, "req-7", got.RequestID)
	assert.Equal(t, catalog.City("Rome"), got.City)
	assert.Equal(t, 21, got.Temperature)
	assert.Equal(t, 48, got.Humidity)
	assert.Equal(t, catalog.MoodHappy, got.Mood)
	assert.False(t, got.ServedAt.IsZero())

	assert.Equal(t, []string{"Rome/Happy"}, tel.points)
}

func TestServe_BroadcastsEvents(t *testing.T) {
	events := &mockEvents{}
	f := newFixture(t, fixedWeather(12, 60), func(o *Options) { o.Events = events })

	_, err := f.svc.Serve(context.Background(), "req-1", protocol.UpdateRequest("Brno", catalog.MoodMiserable))
	require.NoError(t, err)
	_, err = f.svc.Serve(context.Background(), "req-2", protocol.LookupRequest("Brno"))
	require.NoError(t, err)

	assert.Equal(t, []string{EventMoodUpdated, EventReplyPublished, EventReplyPublished}, events.channels)
	assert.Equal(t, MoodEvent{City: "Brno", Mood: "Miserable"}, events.payloads[0])

	served, ok := events.payloads[2].(history.Lookup)
	require.True(t, ok)
	assert.Equal(t, "req-2", served.RequestID)
	assert.Equal(t, catalog.MoodMiserable, served.Mood)
	assert.Equal(t, 12, served.Temperature)
}

func TestServe_NoReplyEventOnUpstreamFailure(t *testing.T) {
	events := &mockEvents{}
	failing := weather.ProviderFunc(func(context.Context, catalog.City) (weather.Conditions, error) {
		return weather.Conditions{}, weather.ErrUpstream
	})
	f := newFixture(t, failing, func(o *Options) { o.Events = events })

	_, err := f.svc.Serve(context.Background(), "req-1", protocol.UpdateRequest("Brno", catalog.MoodHappy))
	require.Error(t, err)
	assert.Equal(t, []string{EventMoodUpdated}, events.channels)
}

func TestStart_SubscribesAndServes(t *testing.T) {
	f := newFixture(t, fixedWeather(20, 50))
	require.NoError(t, f.svc.Start(context.Background()))
	assert.ErrorIs(t, f.svc.Start(context.Background()), ErrAlreadyStarted)

	f.mqtt.deliver(t, "requests", "Brno Happy")
	f.svc.Stop()

	msgs := f.mqtt.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, `{ "temperature": 20, "humidity": 50, "mood": "Happy" }`, msgs[0].payload)
	assert.Equal(t, []string{"requests"}, f.mqtt.unsubscribed)
}

func TestStart_SubscribeError(t *testing.T) {
	f := newFixture(t, fixedWeather(0, 0))
	f.mqtt.subscribeErr = errors.New("refused")
	assert.Error(t, f.svc.Start(context.Background()))
}

func TestHandleMessage_MalformedDropped(t *testing.T) {
	f := newFixture(t, fixedWeather(20, 50))
	require.NoError(t, f.svc.Start(context.Background()))

	f.mqtt.deliver(t, "requests", "")
	f.mqtt.deliver(t, "requests", "Brno Grumpy")
	f.mqtt.deliver(t, "requests", "Br#no")
	f.svc.Stop()

	assert.Empty(t, f.mqtt.messages())
	assert.Equal(t, catalog.MoodNeutral, f.store.Get("Brno"))
}

func TestHandleMessage_SameCityInOrder(t *testing.T) {
	release := make(chan struct{})
	var calls sync.WaitGroup
	calls.Add(1)
	var first sync.Once

	// The first lookup blocks until released so the update queues behind it.
	provider := weather.ProviderFunc(func(ctx context.Context, _ catalog.City) (weather.Conditions, error) {
		blocked := false
		first.Do(func() { blocked = true })
		if blocked {
			calls.Done()
			<-release
		}
		return weather.Conditions{Temperature: 1, Humidity: 1}, nil
	})
	f := newFixture(t, provider)
	require.NoError(t, f.svc.Start(context.Background()))

	f.mqtt.deliver(t, "requests", "Brno")
	calls.Wait()
	f.mqtt.deliver(t, "requests", "Brno Miserable")
	close(release)

	require.Eventually(t, func() bool { return len(f.mqtt.messages()) == 2 }, time.Second, 5*time.Millisecond)
	f.svc.Stop()

	msgs := f.mqtt.messages()
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0].payload, `"Neutral"`)
	assert.Contains(t, msgs[1].payload, `"Miserable"`)
}

func TestHandleMessage_OtherCitiesNotBlocked(t *testing.T) {
	release := make(chan struct{})
	provider := weather.ProviderFunc(func(ctx context.Context, city catalog.City) (weather.Conditions, error) {
		if city == "Oslo" {
			<-release
		}
		return weather.Conditions{Temperature: 2, Humidity: 3}, nil
	})
	f := newFixture(t, provider)
	require.NoError(t, f.svc.Start(context.Background()))

	f.mqtt.deliver(t, "requests", "Oslo")
	f.mqtt.deliver(t, "requests", "Rome")

	require.Eventually(t, func() bool {
		for _, m := range f.mqtt.messages() {
			if m.topic == "Rome" {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)

	close(release)
	f.svc.Stop()
	assert.Len(t, f.mqtt.messages(), 2)
}

func TestStop_DropsQueuedRequests(t *testing.T) {
	started := make(chan struct{})
	var once sync.Once
	provider := weather.ProviderFunc(func(ctx context.Context, _ catalog.City) (weather.Conditions, error) {
		once.Do(func() { close(started) })
		<-ctx.Done()
		return weather.Conditions{}, ctx.Err()
	})
	f := newFixture(t, provider)
	require.NoError(t, f.svc.Start(context.Background()))

	f.mqtt.deliver(t, "requests", "Brno")
	<-started
	f.mqtt.deliver(t, "requests", "Brno")

	f.svc.Stop()
	assert.Empty(t, f.mqtt.messages())

	// Anything arriving after Stop is dropped, not served.
	require.NoError(t, f.svc.HandleMessage("requests", []byte("Brno")))
	assert.Empty(t, f.mqtt.messages())
}

func TestHandleMessage_ConcurrentWithStop(t *testing.T) {
	f := newFixture(t, fixedWeather(1, 1))
	require.NoError(t, f.svc.Start(context.Background()))

	var senders sync.WaitGroup
	for i := 0; i < 20; i++ {
		senders.Add(1)
		go func() {
			defer senders.Done()
			for j := 0; j < 10; j++ {
				assert.NoError(t, f.svc.HandleMessage("requests", []byte("Brno")))
			}
		}()
	}
	f.svc.Stop()
	senders.Wait()

	// Every request either ran to completion before Stop returned or was
	// dropped; nothing publishes afterwards.
	n := len(f.mqtt.messages())
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, n, len(f.mqtt.messages()))
}

func TestServe_FailedLookupDoesNotGrowStore(t *testing.T) {
	failing := weather.ProviderFunc(func(context.Context, catalog.City) (weather.Conditions, error) {
		return weather.Conditions{}, weather.ErrUpstream
	})
	f := newFixture(t, failing)
	before := f.store.Len()

	for _, city := range []catalog.City{"junk1", "junk2", "junk3"} {
		_, err := f.svc.Serve(context.Background(), "req", protocol.LookupRequest(city))
		require.ErrorIs(t, err, weather.ErrUpstream)
	}
	assert.Equal(t, before, f.store.Len())

	// A later update only writes the catalog plus the updated city.
	_, err := f.svc.Serve(context.Background(), "req", protocol.UpdateRequest("Brno", catalog.MoodHappy))
	require.ErrorIs(t, err, weather.ErrUpstream)
	assert.Equal(t, before, f.store.Len())

	reloaded := moodstore.New(f.store.Path())
	require.NoError(t, reloaded.Load())
	assert.Equal(t, before, reloaded.Len())
	assert.Equal(t, catalog.MoodHappy, reloaded.Get("Brno"))
}

func TestStop_ContextCancel(t *testing.T) {
	f := newFixture(t, fixedWeather(0, 0))
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, f.svc.Start(ctx))

	cancel()
	require.Eventually(t, func() bool {
		f.mqtt.mu.Lock()
		defer f.mqtt.mu.Unlock()
		return len(f.mqtt.unsubscribed) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestTruncate(t *testing.T) {
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'x'
	}
	assert.Len(t, truncate(long), maxLoggedPayload+3)
	assert.Equal(t, "Brno", truncate([]byte("Brno")))
}
