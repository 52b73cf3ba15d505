package kafka

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/iwtcode/hexapodService/internal/domain/models"
	"github.com/iwtcode/hexapodService/internal/interfaces"
	"github.com/iwtcode/hexapodService/internal/middleware/logging"
)

const produceTimeout = 5 * time.Second

// Forwarder подписывается на телеметрию и отправляет события в Kafka с ключом по имени
// устройства. Медленный брокер Kafka не тормозит сессии: при переполнении очереди
// подписки события отбрасываются брокером телеметрии.
type Forwarder struct {
	broker   interfaces.TelemetryBroker
	producer interfaces.KafkaService
	buffer   int
	logger   *logging.Logger

	mu     sync.Mutex
	sub    interfaces.TelemetrySubscription
	cancel context.CancelFunc
	done   chan struct{}
}

func NewForwarder(broker interfaces.TelemetryBroker, producer interfaces.KafkaService, buffer int, logger *logging.Logger) *Forwarder {
	return &Forwarder{
		broker:   broker,
		producer: producer,
		buffer:   buffer,
		logger:   logger.WithPrefix("KAFKA"),
	}
}

// Start запускает пересылку. Повторный вызов ничего не делает.
func (f *Forwarder) Start() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sub != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	f.sub = f.broker.Subscribe(f.buffer, nil)
	f.cancel = cancel
	f.done = make(chan struct{})

	go f.run(ctx, f.sub, f.done)
	f.logger.Info("Telemetry forwarding started", "subscriber", f.sub.ID())
}

func (f *Forwarder) run(ctx context.Context, sub interfaces.TelemetrySubscription, done chan struct{}) {
	defer close(done)
	for ev := range sub.Events() {
		data, err := json.Marshal(models.NewTelemetryMessage(ev))
		if err != nil {
			f.logger.Error("Failed to serialize telemetry event", "device", ev.Device, "error", err)
			continue
		}

		pctx, cancel := context.WithTimeout(ctx, produceTimeout)
		err = f.producer.Produce(pctx, []byte(ev.Device), data)
		cancel()
		if err != nil {
			f.logger.Error("Failed to send data to Kafka", "device", ev.Device, "type", ev.Type, "error", err)
		}
	}
}

// Stop закрывает подписку и дожидается отправки уже полученных событий.
func (f *Forwarder) Stop() {
	f.mu.Lock()
	sub, cancel, done := f.sub, f.cancel, f.done
	f.sub = nil
	f.mu.Unlock()
	if sub == nil {
		return
	}

	sub.Close()
	select {
	case <-done:
	case <-time.After(produceTimeout):
		cancel()
		<-done
	}
	cancel()

	if dropped := sub.Dropped(); dropped > 0 {
		f.logger.Warn("Telemetry events dropped before reaching Kafka", "dropped", dropped)
	}
	f.logger.Info("Telemetry forwarding stopped")
}
