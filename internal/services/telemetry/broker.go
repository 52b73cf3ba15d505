package telemetry

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/iwtcode/hexapodService/internal/interfaces"
	"github.com/iwtcode/hexapodService/internal/middleware/logging"
	"github.com/iwtcode/hexapodService/models"
)

// DefaultBuffer - емкость очереди подписчика по умолчанию.
const DefaultBuffer = 64

// Broker раздает телеметрию подписчикам через ограниченные каналы.
// Publish не блокируется: если очередь подписчика заполнена, событие отбрасывается
// и учитывается в его счетчике потерь.
type Broker struct {
	mu            sync.RWMutex
	subscribers   map[string]*Subscription
	defaultBuffer int
	closed        bool
	published     atomic.Uint64
	logger        *logging.Logger
}

// Subscription - очередь событий одного подписчика.
type Subscription struct {
	id      string
	events  chan models.Event
	filter  interfaces.EventFilter
	dropped atomic.Uint64
	broker  *Broker
	once    sync.Once
}

// NewBroker создает брокер телеметрии.
func NewBroker(defaultBuffer int, logger *logging.Logger) *Broker {
	if defaultBuffer <= 0 {
		defaultBuffer = DefaultBuffer
	}
	return &Broker{
		subscribers:   make(map[string]*Subscription),
		defaultBuffer: defaultBuffer,
		logger:        logger.WithPrefix("TELEMETRY"),
	}
}

// Subscribe регистрирует подписчика. buffer <= 0 означает емкость по умолчанию.
// После закрытия брокера возвращается уже закрытая подписка.
func (b *Broker) Subscribe(buffer int, filter interfaces.EventFilter) interfaces.TelemetrySubscription {
	if buffer <= 0 {
		buffer = b.defaultBuffer
	}
	sub := &Subscription{
		id:     uuid.New().String(),
		events: make(chan models.Event, buffer),
		filter: filter,
		broker: b,
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		sub.once.Do(func() { close(sub.events) })
		return sub
	}
	b.subscribers[sub.id] = sub
	b.logger.Debug("Subscriber added", "id", sub.id, "buffer", buffer, "total", len(b.subscribers))
	return sub
}

// Publish доставляет событие всем подписчикам, чей фильтр его пропускает.
func (b *Broker) Publish(event models.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	b.published.Add(1)

	for _, sub := range b.subscribers {
		if sub.filter != nil && !sub.filter(event) {
			continue
		}
		select {
		case sub.events <- event:
		default:
			if n := sub.dropped.Add(1); n == 1 || n%100 == 0 {
				b.logger.Warn("Subscriber queue full, event dropped", "id", sub.id, "type", event.Type, "dropped", n)
			}
		}
	}
}

// Published возвращает число принятых событий.
func (b *Broker) Published() uint64 {
	return b.published.Load()
}

// Subscribers возвращает число активных подписчиков.
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close закрывает очереди всех подписчиков; последующие Publish игнорируются.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subscribers {
		sub.once.Do(func() { close(sub.events) })
		delete(b.subscribers, id)
	}
	b.logger.Info("Telemetry broker closed", "published", b.published.Load())
}

func (b *Broker) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subscribers[sub.id]; ok {
		delete(b.subscribers, sub.id)
		b.logger.Debug("Subscriber removed", "id", sub.id, "dropped", sub.dropped.Load())
	}
	sub.once.Do(func() { close(sub.events) })
}

func (s *Subscription) ID() string { return s.id }

// Events возвращает канал событий; он закрывается при Close подписки или брокера.
func (s *Subscription) Events() <-chan models.Event { return s.events }

// Dropped возвращает число событий, не поместившихся в очередь.
func (s *Subscription) Dropped() uint64 { return s.dropped.Load() }

func (s *Subscription) Close() { s.broker.unsubscribe(s) }

// ForDevice отбирает события одного устройства; пустое имя пропускает все.
func ForDevice(name string) interfaces.EventFilter {
	if name == "" {
		return nil
	}
	key := models.NameKey(name)
	return func(ev models.Event) bool {
		return models.NameKey(ev.Device) == key
	}
}
