// Package sim - программная модель контроллера гексапода для разработки и тестов.
// Устройство повторяет заданные смещения в позиции, держит флаги движения заданное
// время после команды и отдает синтетические аналоговые значения.
package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/iwtcode/hexapodService/internal/interfaces"
	"github.com/iwtcode/hexapodService/models"
	apperrors "github.com/iwtcode/hexapodService/pkg/errors"
)

// ErrHandleClosed возвращается операциями закрытого соединения.
var ErrHandleClosed = errors.New("sim: handle closed")

// ErrInjected - ошибка по умолчанию для FailNext.
var ErrInjected = errors.New("sim: injected failure")

// Options задают поведение новых устройств.
type Options struct {
	Latency        time.Duration // задержка каждой операции
	MotionDuration time.Duration // сколько ось считается движущейся после команды
	Analog         models.AnalogReading
}

// DefaultOptions возвращает параметры, близкие к реальному контроллеру.
func DefaultOptions() Options {
	return Options{
		Latency:        2 * time.Millisecond,
		MotionDuration: 50 * time.Millisecond,
		Analog:         models.AnalogReading{Ch5: 1.5, Ch6: 2.5},
	}
}

// Transport хранит модели устройств по адресу; состояние устройства переживает
// переподключения.
type Transport struct {
	mu      sync.Mutex
	opts    Options
	devices map[string]*Device
}

// New создает транспорт с заданными параметрами.
func New(opts Options) *Transport {
	return &Transport{
		opts:    opts,
		devices: make(map[string]*Device),
	}
}

// NewTransport - конструктор для fx.
func NewTransport(opts Options) interfaces.DeviceTransport {
	return New(opts)
}

// Device возвращает модель устройства по адресу, создавая ее при необходимости.
func (t *Transport) Device(address string, port int) *Device {
	endpoint := fmt.Sprintf("%s:%d", address, port)

	t.mu.Lock()
	defer t.mu.Unlock()
	dev, ok := t.devices[endpoint]
	if !ok {
		dev = &Device{
			endpoint:       endpoint,
			latency:        t.opts.Latency,
			motionDuration: t.opts.MotionDuration,
			analog:         t.opts.Analog,
		}
		t.devices[endpoint] = dev
	}
	return dev
}

// Connect открывает соединение с моделью устройства.
func (t *Transport) Connect(ctx context.Context, address string, port int) (interfaces.DeviceHandle, error) {
	dev := t.Device(address, port)

	dev.mu.Lock()
	refuse, wait := dev.refuseConnect, dev.latency+dev.connectDelay
	dev.mu.Unlock()

	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	if refuse != nil {
		return nil, fmt.Errorf("sim %s: %w", dev.endpoint, refuse)
	}

	dev.connects.Add(1)
	dev.open.Add(1)
	return &handle{dev: dev}, nil
}

// Device - модель одного контроллера.
type Device struct {
	endpoint string

	mu             sync.Mutex
	position       models.Vector6
	movingUntil    [models.AxisCount]time.Time
	analog         models.AnalogReading
	latency        time.Duration
	motionDuration time.Duration
	connectDelay   time.Duration
	stall          time.Duration
	refuseConnect  error
	rejectMoves    bool
	failNext       int
	failErr        error

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	ops         atomic.Uint64
	moves       atomic.Uint64
	connects    atomic.Uint64
	open        atomic.Int32
}

// SetLatency меняет задержку операций.
func (d *Device) SetLatency(latency time.Duration) {
	d.mu.Lock()
	d.latency = latency
	d.mu.Unlock()
}

// SetConnectDelay добавляет задержку к рукопожатию.
func (d *Device) SetConnectDelay(delay time.Duration) {
	d.mu.Lock()
	d.connectDelay = delay
	d.mu.Unlock()
}

// SetStall заставляет операции висеть заданное время, не реагируя на отмену контекста.
func (d *Device) SetStall(stall time.Duration) {
	d.mu.Lock()
	d.stall = stall
	d.mu.Unlock()
}

// RefuseConnect заставляет Connect возвращать err; nil снимает отказ.
func (d *Device) RefuseConnect(err error) {
	if err != nil && !errors.Is(err, apperrors.ErrConnectRefused) && !errors.Is(err, apperrors.ErrProtocolMismatch) {
		err = fmt.Errorf("%w: %v", apperrors.ErrConnectRefused, err)
	}
	d.mu.Lock()
	d.refuseConnect = err
	d.mu.Unlock()
}

// RejectMoves включает отказ контроллера от команд движения.
func (d *Device) RejectMoves(reject bool) {
	d.mu.Lock()
	d.rejectMoves = reject
	d.mu.Unlock()
}

// FailNext заставляет следующие n операций вернуть err (ErrInjected, если nil).
func (d *Device) FailNext(n int, err error) {
	if err == nil {
		err = ErrInjected
	}
	d.mu.Lock()
	d.failNext = n
	d.failErr = err
	d.mu.Unlock()
}

// SetPosition задает текущую позицию.
func (d *Device) SetPosition(pos models.Vector6) {
	d.mu.Lock()
	d.position = pos
	d.mu.Unlock()
}

// Position возвращает текущую позицию без задержки.
func (d *Device) Position() models.Vector6 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.position
}

// SetAnalog задает значения аналоговых входов.
func (d *Device) SetAnalog(reading models.AnalogReading) {
	d.mu.Lock()
	d.analog = reading
	d.mu.Unlock()
}

// MaxInFlight возвращает наибольшее число одновременных операций.
func (d *Device) MaxInFlight() int { return int(d.maxInFlight.Load()) }

// Ops возвращает число начатых операций.
func (d *Device) Ops() uint64 { return d.ops.Load() }

// Moves возвращает число принятых команд движения.
func (d *Device) Moves() uint64 { return d.moves.Load() }

// Connects возвращает число успешных рукопожатий.
func (d *Device) Connects() uint64 { return d.connects.Load() }

// OpenHandles возвращает число незакрытых соединений.
func (d *Device) OpenHandles() int { return int(d.open.Load()) }

type handle struct {
	dev    *Device
	closed atomic.Bool
}

func (h *handle) do(ctx context.Context, op func(now time.Time) error) error {
	if h.closed.Load() {
		return ErrHandleClosed
	}
	d := h.dev

	n := d.inFlight.Add(1)
	defer d.inFlight.Add(-1)
	for {
		peak := d.maxInFlight.Load()
		if n <= peak || d.maxInFlight.CompareAndSwap(peak, n) {
			break
		}
	}
	d.ops.Add(1)

	d.mu.Lock()
	latency, stall := d.latency, d.stall
	d.mu.Unlock()

	if stall > 0 {
		time.Sleep(stall)
	}
	if latency > 0 {
		timer := time.NewTimer(latency)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failNext > 0 {
		d.failNext--
		return fmt.Errorf("sim %s: %w", d.endpoint, d.failErr)
	}
	return op(time.Now())
}

func (h *handle) MoveRelative(ctx context.Context, vector models.Vector6) error {
	return h.do(ctx, func(now time.Time) error {
		d := h.dev
		if d.rejectMoves {
			return fmt.Errorf("sim %s: move rejected by controller", d.endpoint)
		}
		d.position = d.position.Add(vector)
		for i, delta := range vector {
			if delta != 0 {
				d.movingUntil[i] = now.Add(d.motionDuration)
			}
		}
		d.moves.Add(1)
		return nil
	})
}

func (h *handle) ReadPosition(ctx context.Context) (models.Vector6, error) {
	var pos models.Vector6
	err := h.do(ctx, func(time.Time) error {
		pos = h.dev.position
		return nil
	})
	return pos, err
}

func (h *handle) ReadMotionFlags(ctx context.Context) (models.MotionFlags, error) {
	var flags models.MotionFlags
	err := h.do(ctx, func(now time.Time) error {
		for i, until := range h.dev.movingUntil {
			flags[i] = now.Before(until)
		}
		return nil
	})
	return flags, err
}

func (h *handle) ReadAnalog(ctx context.Context) (models.AnalogReading, error) {
	var reading models.AnalogReading
	err := h.do(ctx, func(time.Time) error {
		reading = h.dev.analog
		return nil
	})
	return reading, err
}

func (h *handle) Close() error {
	if h.closed.CompareAndSwap(false, true) {
		h.dev.open.Add(-1)
	}
	return nil
}
