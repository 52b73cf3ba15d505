package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/iwtcode/hexapodService/internal/config"
	"github.com/iwtcode/hexapodService/internal/domain/models"
	"github.com/iwtcode/hexapodService/internal/middleware/logging"
	"github.com/iwtcode/hexapodService/internal/services/telemetry"
	pub "github.com/iwtcode/hexapodService/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type message struct {
	key   string
	value []byte
}

type fakeProducer struct {
	mu       sync.Mutex
	messages []message
	fail     bool
	closed   bool
}

func (p *fakeProducer) Produce(_ context.Context, key, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker unavailable")
	}
	p.messages = append(p.messages, message{key: string(key), value: value})
	return nil
}

func (p *fakeProducer) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}

func (p *fakeProducer) sent() []message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]message(nil), p.messages...)
}

func TestForwarderSendsTelemetry(t *testing.T) {
	broker := telemetry.NewBroker(16, logging.NewNop())
	defer broker.Close()
	producer := &fakeProducer{}

	f := NewForwarder(broker, producer, 16, logging.NewNop())
	f.Start()
	f.Start()
	require.Equal(t, 1, broker.Subscribers())

	pos := pub.Vector6{0.001}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	broker.Publish(pub.Event{Type: pub.EventPosition, Device: "Hex1", Seq: 7, Timestamp: now, State: pub.StateConnected, Position: &pos})
	broker.Publish(pub.Event{Type: pub.EventAnalog, Device: "Hex2", Seq: 3, Timestamp: now, State: pub.StateConnected,
		Analog: &pub.AnalogReading{Ch5: 1, Ch6: 2}, Elapsed: 1500 * time.Millisecond})

	require.Eventually(t, func() bool { return len(producer.sent()) == 2 }, time.Second, 5*time.Millisecond)
	f.Stop()
	f.Stop()
	assert.Zero(t, broker.Subscribers())

	sent := producer.sent()
	assert.Equal(t, "Hex1", sent[0].key)
	assert.Equal(t, "Hex2", sent[1].key)

	var first models.TelemetryMessage
	require.NoError(t, json.Unmarshal(sent[0].value, &first))
	assert.Equal(t, pub.EventPosition, first.Type)
	assert.Equal(t, uint64(7), first.Seq)
	assert.Equal(t, "connected", first.State)
	assert.Equal(t, "2026-03-01T12:00:00Z", first.Timestamp)
	require.NotNil(t, first.Position)
	assert.Equal(t, 0.001, first.Position[0])
	assert.Nil(t, first.Moving)

	var second models.TelemetryMessage
	require.NoError(t, json.Unmarshal(sent[1].value, &second))
	require.NotNil(t, second.ElapsedMs)
	assert.Equal(t, 1500.0, *second.ElapsedMs)
	assert.Equal(t, &pub.AnalogReading{Ch5: 1, Ch6: 2}, second.Analog)
}

func TestForwarderSurvivesProducerErrors(t *testing.T) {
	broker := telemetry.NewBroker(16, logging.NewNop())
	defer broker.Close()
	producer := &fakeProducer{fail: true}

	f := NewForwarder(broker, producer, 16, logging.NewNop())
	f.Start()
	broker.Publish(pub.Event{Type: pub.EventState, Device: "Hex1", State: pub.StateConnecting})

	producer.mu.Lock()
	producer.fail = false
	producer.mu.Unlock()
	time.Sleep(20 * time.Millisecond)
	broker.Publish(pub.Event{Type: pub.EventState, Device: "Hex1", State: pub.StateConnected})

	require.Eventually(t, func() bool { return len(producer.sent()) >= 1 }, time.Second, 5*time.Millisecond)
	f.Stop()
}

func TestNewKafkaProducerDisabled(t *testing.T) {
	cfg := &config.AppConfig{Kafka: config.KafkaConfig{Enable: false}}
	producer, err := NewKafkaProducer(cfg, logging.NewNop())
	require.NoError(t, err)
	assert.IsType(t, NopProducer{}, producer)
	assert.NoError(t, producer.Produce(context.Background(), []byte("k"), []byte("v")))
	assert.NoError(t, producer.Close())
}

func TestNewKafkaProducerEnabled(t *testing.T) {
	cfg := &config.AppConfig{Kafka: config.KafkaConfig{Enable: true, Broker: "localhost:9092", Topic: "hexapod_telemetry"}}
	producer, err := NewKafkaProducer(cfg, logging.NewNop())
	require.NoError(t, err)
	kp, ok := producer.(*KafkaProducer)
	require.True(t, ok)
	assert.Equal(t, "hexapod_telemetry", kp.writer.Topic)
	assert.NoError(t, producer.Close())
}
