package interfaces

import "github.com/iwtcode/hexapodService/models"

// EventFilter отбирает события для подписчика; nil пропускает все.
type EventFilter func(models.Event) bool

// TelemetryPublisher принимает события сессий. Publish никогда не блокируется.
type TelemetryPublisher interface {
	Publish(event models.Event)
}

// TelemetrySubscription - ограниченная очередь событий одного подписчика.
type TelemetrySubscription interface {
	ID() string
	Events() <-chan models.Event
	Dropped() uint64
	Close()
}

// TelemetryBroker раздает события всем подписчикам.
type TelemetryBroker interface {
	TelemetryPublisher
	Subscribe(buffer int, filter EventFilter) TelemetrySubscription
	Close()
}

// ChannelAggregator - потокобезопасное хранилище скользящих средних по каналам.
type ChannelAggregator interface {
	Has(channel string) bool
	AddSample(channel string, value float64, windowSize int) error
	Read(channel string) (models.ChannelSnapshot, error)
	SetTarget(channel string, target float64) error
	Evaluate(channel string) (models.Evaluation, error)
	Names() []string
	Snapshot() []models.ChannelSnapshot
}
