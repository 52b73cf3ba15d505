package aggregator

import (
	"fmt"
	"math"
	"sync"

	"github.com/iwtcode/hexapodService/internal/interfaces"
	"github.com/iwtcode/hexapodService/internal/middleware/logging"
	"github.com/iwtcode/hexapodService/models"
	apperrors "github.com/iwtcode/hexapodService/pkg/errors"
)

// DefaultWindow - размер окна скользящего среднего по умолчанию.
const DefaultWindow = 3

type channel struct {
	mu      sync.RWMutex
	spec    models.ChannelSpec
	value   float64
	window  []float64
	average float64
	samples uint64
}

// Aggregator хранит закрытый набор каналов. Набор создается один раз и не меняется,
// поэтому карта читается без блокировки; каждый канал защищен своим мьютексом.
type Aggregator struct {
	channels      map[string]*channel
	order         []string
	defaultWindow int
	logger        *logging.Logger
}

// New создает агрегатор по каталогу каналов.
func New(specs []models.ChannelSpec, defaultWindow int, logger *logging.Logger) (*Aggregator, error) {
	if defaultWindow <= 0 {
		defaultWindow = DefaultWindow
	}
	a := &Aggregator{
		channels:      make(map[string]*channel, len(specs)),
		order:         make([]string, 0, len(specs)),
		defaultWindow: defaultWindow,
		logger:        logger.WithPrefix("AGGREGATOR"),
	}
	for _, spec := range specs {
		if spec.Name == "" {
			return nil, fmt.Errorf("channel with id %d has empty name", spec.ID)
		}
		if _, dup := a.channels[spec.Name]; dup {
			return nil, fmt.Errorf("duplicate channel %q", spec.Name)
		}
		a.channels[spec.Name] = &channel{spec: spec}
		a.order = append(a.order, spec.Name)
	}
	return a, nil
}

// NewAggregator - конструктор для fx.
func NewAggregator(specs []models.ChannelSpec, window int, logger *logging.Logger) (interfaces.ChannelAggregator, error) {
	return New(specs, window, logger)
}

func (a *Aggregator) lookup(name string) (*channel, error) {
	ch, ok := a.channels[name]
	if !ok {
		return nil, fmt.Errorf("channel %q: %w", name, apperrors.ErrUnknownChannel)
	}
	return ch, nil
}

// Has сообщает, есть ли канал в каталоге.
func (a *Aggregator) Has(name string) bool {
	_, ok := a.channels[name]
	return ok
}

// AddSample добавляет значение в окно канала. windowSize <= 0 означает окно по умолчанию.
// Запись в неизвестный канал отбрасывается.
func (a *Aggregator) AddSample(name string, value float64, windowSize int) error {
	ch, err := a.lookup(name)
	if err != nil {
		a.logger.Warn("Sample for unknown channel dropped", "channel", name, "value", value)
		return err
	}
	if windowSize <= 0 {
		windowSize = a.defaultWindow
	}

	ch.mu.Lock()
	defer ch.mu.Unlock()

	ch.window = append(ch.window, value)
	if over := len(ch.window) - windowSize; over > 0 {
		ch.window = append(ch.window[:0], ch.window[over:]...)
	}
	sum := 0.0
	for _, v := range ch.window {
		sum += v
	}
	ch.average = sum / float64(len(ch.window))
	ch.value = value
	ch.samples++
	return nil
}

// Read возвращает согласованный снимок канала.
func (a *Aggregator) Read(name string) (models.ChannelSnapshot, error) {
	ch, err := a.lookup(name)
	if err != nil {
		return models.ChannelSnapshot{}, err
	}
	return ch.snapshot(), nil
}

func (ch *channel) snapshot() models.ChannelSnapshot {
	ch.mu.RLock()
	defer ch.mu.RUnlock()

	window := make([]float64, len(ch.window))
	copy(window, ch.window)
	return models.ChannelSnapshot{
		Name:    ch.spec.Name,
		Unit:    ch.spec.Unit,
		Value:   ch.value,
		Average: ch.average,
		Target:  ch.spec.Target,
		Window:  window,
		Samples: ch.samples,
	}
}

// SetTarget задает целевое значение канала.
func (a *Aggregator) SetTarget(name string, target float64) error {
	ch, err := a.lookup(name)
	if err != nil {
		return err
	}
	if math.IsNaN(target) || math.IsInf(target, 0) {
		return fmt.Errorf("channel %q: target must be finite", name)
	}
	ch.mu.Lock()
	ch.spec.Target = target
	ch.mu.Unlock()
	return nil
}

// Evaluate сравнивает среднее значение канала с целевым.
func (a *Aggregator) Evaluate(name string) (models.Evaluation, error) {
	snap, err := a.Read(name)
	if err != nil {
		return models.Evaluation{}, err
	}
	percent, verdict := Grade(snap.Average, snap.Target)
	return models.Evaluation{Channel: name, Percent: percent, Verdict: verdict}, nil
}

// Names возвращает имена каналов в порядке каталога.
func (a *Aggregator) Names() []string {
	names := make([]string, len(a.order))
	copy(names, a.order)
	return names
}

// Snapshot возвращает снимки всех каналов в порядке каталога.
func (a *Aggregator) Snapshot() []models.ChannelSnapshot {
	out := make([]models.ChannelSnapshot, 0, len(a.order))
	for _, name := range a.order {
		out = append(out, a.channels[name].snapshot())
	}
	return out
}

// Grade вычисляет процент достижения цели: меньше 90% - n/a, до 100% - need work,
// от 100% - pass. При нулевой цели процент равен нулю.
func Grade(average, target float64) (float64, models.Verdict) {
	percent := 0.0
	if target != 0 {
		percent = average / target * 100
	}
	switch {
	case percent >= 100:
		return percent, models.VerdictPass
	case percent >= 90:
		return percent, models.VerdictNeedWork
	default:
		return percent, models.VerdictNA
	}
}

// FormatWithUnit форматирует значение с приставкой p, n, u или m и тремя знаками после запятой.
func FormatWithUnit(value float64, unit string) string {
	abs := math.Abs(value)
	switch {
	case abs < 1e-9:
		return fmt.Sprintf("%.3f p%s", value*1e12, unit)
	case abs < 1e-6:
		return fmt.Sprintf("%.3f n%s", value*1e9, unit)
	case abs < 1e-3:
		return fmt.Sprintf("%.3f u%s", value*1e6, unit)
	case abs < 1:
		return fmt.Sprintf("%.3f m%s", value*1e3, unit)
	default:
		return fmt.Sprintf("%.3f %s", value, unit)
	}
}
