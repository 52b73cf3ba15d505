package hexapod_service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/iwtcode/hexapodService/internal/interfaces"
	"github.com/iwtcode/hexapodService/internal/middleware/logging"
	"github.com/iwtcode/hexapodService/models"
	apperrors "github.com/iwtcode/hexapodService/pkg/errors"
)

// PollIntervals задает периоды циклов опроса. Нулевой или отрицательный интервал
// отключает соответствующий цикл.
type PollIntervals struct {
	Position time.Duration
	Motion   time.Duration
	Analog   time.Duration
}

// SessionOptions - таймауты и параметры опроса сессии.
type SessionOptions struct {
	ConnectTimeout   time.Duration
	IOTimeout        time.Duration
	DrainTimeout     time.Duration
	FailureThreshold int
	Polling          PollIntervals
	Window           int // окно агрегатора для значений опроса, 0 - по умолчанию
}

// DefaultSessionOptions возвращает значения по умолчанию.
func DefaultSessionOptions() SessionOptions {
	return SessionOptions{
		ConnectTimeout:   5 * time.Second,
		IOTimeout:        time.Second,
		DrainTimeout:     time.Second,
		FailureThreshold: 3,
		Polling: PollIntervals{
			Position: 100 * time.Millisecond,
			Motion:   100 * time.Millisecond,
			Analog:   time.Second,
		},
	}
}

func (o SessionOptions) withDefaults() SessionOptions {
	def := DefaultSessionOptions()
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = def.ConnectTimeout
	}
	if o.IOTimeout <= 0 {
		o.IOTimeout = def.IOTimeout
	}
	if o.DrainTimeout <= 0 {
		o.DrainTimeout = def.DrainTimeout
	}
	if o.FailureThreshold <= 0 {
		o.FailureThreshold = def.FailureThreshold
	}
	return o
}

var errConnectAborted = errors.New("connect aborted by disconnect")

// gateError - операция не дождалась очереди к устройству; к устройству запрос не ушел.
type gateError struct{ err error }

func (e *gateError) Error() string { return "waiting for device: " + e.err.Error() }
func (e *gateError) Unwrap() error { return e.err }

// Session - соединение с одним гексаподом. Все обращения к устройству проходят
// через шлюз на одно место, поэтому в каждый момент к устройству идет не больше
// одного запроса.
type Session struct {
	id         string
	conn       models.DeviceConnection
	opts       SessionOptions
	transport  interfaces.DeviceTransport
	aggregator interfaces.ChannelAggregator
	publisher  interfaces.TelemetryPublisher
	logger     *logging.Logger

	gate chan struct{}

	mu            sync.RWMutex
	state         models.SessionState
	handle        interfaces.DeviceHandle
	runCtx        context.Context
	runCancel     context.CancelFunc
	poller        *Poller
	connectCancel context.CancelFunc
	connectDone   chan struct{}
	aborted       bool
	disconnecting chan struct{}

	position    models.Vector6
	motion      models.MotionFlags
	motionKnown bool
	analog      models.AnalogReading
	analogSince time.Time
	seq         uint64
	failures    int
	connectedAt time.Time
	lastUpdate  time.Time
}

// NewSession создает сессию в состоянии Disconnected. aggregator и publisher могут быть nil.
func NewSession(
	conn models.DeviceConnection,
	transport interfaces.DeviceTransport,
	aggregator interfaces.ChannelAggregator,
	publisher interfaces.TelemetryPublisher,
	opts SessionOptions,
	logger *logging.Logger,
) *Session {
	id := uuid.New().String()
	return &Session{
		id:         id,
		conn:       conn,
		opts:       opts.withDefaults(),
		transport:  transport,
		aggregator: aggregator,
		publisher:  publisher,
		logger:     logger.WithPrefix("SESSION " + conn.Name),
		gate:       make(chan struct{}, 1),
		state:      models.StateDisconnected,
	}
}

func (s *Session) ID() string                          { return s.id }
func (s *Session) Name() string                        { return s.conn.Name }
func (s *Session) Connection() models.DeviceConnection { return s.conn }

// State возвращает текущее состояние.
func (s *Session) State() models.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Snapshot возвращает согласованный снимок состояния сессии.
func (s *Session) Snapshot() models.SessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.SessionInfo{
		SessionID:   s.id,
		Name:        s.conn.Name,
		Address:     s.conn.Address,
		Port:        s.conn.Port,
		State:       s.state,
		Position:    s.position,
		MotionFlags: s.motion,
		Moving:      s.motion.Any(),
		Analog:      s.analog,
		Seq:         s.seq,
		Failures:    s.failures,
		ConnectedAt: s.connectedAt,
		LastUpdate:  s.lastUpdate,
	}
}

// Cycles возвращает счетчики циклов опроса (position, motion, analog).
func (s *Session) Cycles() (position, motion, analog uint64) {
	s.mu.RLock()
	p := s.poller
	s.mu.RUnlock()
	if p == nil {
		return 0, 0, 0
	}
	return p.Cycles()
}

// Connect выполняет рукопожатие и запускает опрос.
func (s *Session) Connect(ctx context.Context) error {
	if err := s.reserve(); err != nil {
		return err
	}
	return s.handshake(ctx)
}

// reserve переводит сессию из Disconnected в Connecting.
func (s *Session) reserve() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case models.StateFaulted:
		return fmt.Errorf("device %q: %w", s.conn.Name, apperrors.ErrSessionFaulted)
	case models.StateDisconnected:
	default:
		return apperrors.NewRegistryError(apperrors.ErrAlreadyActive, s.conn.Name)
	}

	s.state = models.StateConnecting
	s.aborted = false
	s.connectDone = make(chan struct{})
	return nil
}

func (s *Session) handshake(ctx context.Context) error {
	cctx, cancel := context.WithTimeout(ctx, s.opts.ConnectTimeout)
	defer cancel()

	s.mu.Lock()
	s.connectCancel = cancel
	if s.aborted {
		cancel()
	}
	done := s.connectDone
	s.mu.Unlock()
	defer close(done)

	s.emitState(models.StateConnecting, "")
	s.logger.Info("Connecting", "endpoint", s.conn.Endpoint())

	handle, err := s.transport.Connect(cctx, s.conn.Address, s.conn.Port)

	s.mu.Lock()
	s.connectCancel = nil
	if err == nil && s.aborted {
		_ = handle.Close()
		err = errConnectAborted
	}
	if err != nil {
		aborted := s.aborted
		s.state = models.StateDisconnected
		s.mu.Unlock()

		cerr := s.classifyConnect(err, cctx, aborted)
		s.logger.Warn("Connect failed", "endpoint", s.conn.Endpoint(), "error", cerr)
		s.emitState(models.StateDisconnected, cerr.Error())
		return cerr
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	now := time.Now()
	s.handle = handle
	s.state = models.StateConnected
	s.runCtx, s.runCancel = runCtx, runCancel
	s.failures = 0
	s.motionKnown = false
	s.connectedAt = now
	s.analogSince = now
	s.poller = NewPoller(s, s.opts.Polling, s.logger)
	s.poller.Start(runCtx)
	s.mu.Unlock()

	s.logger.Info("Connected", "endpoint", s.conn.Endpoint(), "sessionID", s.id)
	s.emitState(models.StateConnected, "")
	return nil
}

func (s *Session) classifyConnect(err error, cctx context.Context, aborted bool) error {
	switch {
	case errors.Is(err, apperrors.ErrProtocolMismatch):
		return apperrors.NewConnectError(apperrors.ErrProtocolMismatch, s.conn.Name, err)
	case aborted:
		return apperrors.NewConnectError(apperrors.ErrConnectRefused, s.conn.Name, errConnectAborted)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(cctx.Err(), context.DeadlineExceeded):
		return apperrors.NewConnectError(apperrors.ErrConnectTimeout, s.conn.Name, err)
	default:
		return apperrors.NewConnectError(apperrors.ErrConnectRefused, s.conn.Name, err)
	}
}

// Disconnect останавливает опрос, дожидается освобождения шлюза и закрывает соединение.
// Повторный вызов ничего не делает. Если за DrainTimeout операции не завершились,
// соединение закрывается принудительно, сессия переходит в Faulted и возвращается
// ErrDrainTimeout.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	switch s.state {
	case models.StateDisconnected, models.StateFaulted:
		s.mu.Unlock()
		return nil
	case models.StateConnecting:
		s.aborted = true
		cancel, done := s.connectCancel, s.connectDone
		s.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		return s.awaitConnectAbort(done)
	case models.StateDisconnecting:
		done := s.disconnecting
		s.mu.Unlock()
		select {
		case <-done:
			return nil
		case <-time.After(s.opts.DrainTimeout):
			return fmt.Errorf("device %q: %w", s.conn.Name, apperrors.ErrDrainTimeout)
		}
	}

	s.state = models.StateDisconnecting
	s.disconnecting = make(chan struct{})
	done := s.disconnecting
	runCancel, poller, handle := s.runCancel, s.poller, s.handle
	s.mu.Unlock()
	defer close(done)

	s.logger.Info("Disconnecting", "endpoint", s.conn.Endpoint())
	s.emitState(models.StateDisconnecting, "")
	runCancel()

	deadline := time.NewTimer(s.opts.DrainTimeout)
	defer deadline.Stop()

	drained := poller.Wait(deadline.C)
	if drained {
		select {
		case s.gate <- struct{}{}:
			defer func() { <-s.gate }()
		case <-deadline.C:
			drained = false
		}
	}

	s.mu.Lock()
	s.handle = nil
	if drained {
		s.state = models.StateDisconnected
	} else {
		s.state = models.StateFaulted
	}
	s.mu.Unlock()

	if err := handle.Close(); err != nil {
		s.logger.Warn("Failed to close device link", "error", err)
	}

	if !drained {
		s.logger.Error("Drain timeout, link force-closed", "endpoint", s.conn.Endpoint(), "timeout", s.opts.DrainTimeout)
		s.emitFault(apperrors.ErrDrainTimeout.Error())
		return fmt.Errorf("device %q: %w", s.conn.Name, apperrors.ErrDrainTimeout)
	}
	s.logger.Info("Disconnected", "endpoint", s.conn.Endpoint())
	s.emitState(models.StateDisconnected, "")
	return nil
}

func (s *Session) awaitConnectAbort(done <-chan struct{}) error {
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-time.After(s.opts.DrainTimeout):
		s.mu.Lock()
		if s.state == models.StateConnecting {
			s.state = models.StateFaulted
		}
		s.mu.Unlock()
		return fmt.Errorf("device %q: %w", s.conn.Name, apperrors.ErrDrainTimeout)
	}
}

// withGate выполняет fn с эксклюзивным доступом к устройству. Ожидание шлюза
// ограничено ctx, сам запрос - IOTimeout; остановка сессии отменяет и то, и другое.
func (s *Session) withGate(ctx context.Context, fn func(ctx context.Context, h interfaces.DeviceHandle) error) error {
	s.mu.RLock()
	state, runCtx := s.state, s.runCtx
	s.mu.RUnlock()
	if state != models.StateConnected {
		return apperrors.ErrNotConnected
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(runCtx, cancel)
	defer stop()

	select {
	case s.gate <- struct{}{}:
	case <-ctx.Done():
		return &gateError{err: ctx.Err()}
	}
	defer func() { <-s.gate }()

	if err := ctx.Err(); err != nil {
		return &gateError{err: err}
	}

	s.mu.RLock()
	state, handle := s.state, s.handle
	s.mu.RUnlock()
	if state != models.StateConnected || handle == nil {
		return apperrors.ErrNotConnected
	}

	ioCtx, ioCancel := context.WithTimeout(ctx, s.opts.IOTimeout)
	defer ioCancel()
	return fn(ioCtx, handle)
}

func (s *Session) stopping() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state != models.StateConnected || (s.runCtx != nil && s.runCtx.Err() != nil)
}

// MoveRelative отправляет устройству вектор смещения целиком одним запросом.
func (s *Session) MoveRelative(ctx context.Context, vector models.Vector6) error {
	const op = "move_relative"
	if !vector.Finite() {
		return apperrors.NewMotionError(apperrors.ErrDeviceRejected, s.conn.Name, op, errors.New("vector has non-finite components"))
	}

	err := s.withGate(ctx, func(ctx context.Context, h interfaces.DeviceHandle) error {
		return h.MoveRelative(ctx, vector)
	})
	if err == nil {
		s.logger.Debug("Move accepted", "vector", vector)
		return nil
	}

	var gerr *gateError
	switch {
	case errors.Is(err, apperrors.ErrNotConnected):
		return apperrors.NewMotionError(apperrors.ErrNotConnected, s.conn.Name, op, nil)
	case (errors.Is(err, context.Canceled) || errors.As(err, &gerr)) && s.stopping():
		return apperrors.NewMotionError(apperrors.ErrNotConnected, s.conn.Name, op, err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return apperrors.NewMotionError(apperrors.ErrMotionTimeout, s.conn.Name, op, err)
	default:
		s.logger.Warn("Move rejected", "vector", vector, "error", err)
		return apperrors.NewMotionError(apperrors.ErrDeviceRejected, s.conn.Name, op, err)
	}
}

// ReadPosition читает позицию, обновляет состояние сессии и публикует событие.
func (s *Session) ReadPosition(ctx context.Context) (models.Vector6, error) {
	var pos models.Vector6
	err := s.poll(ctx, "read_position", func(ctx context.Context, h interfaces.DeviceHandle) (err error) {
		pos, err = h.ReadPosition(ctx)
		return err
	}, func(seq uint64, now time.Time) {
		s.position = pos
		for i := 0; i < models.AxisCount; i++ {
			s.sample(models.PositionChannel(models.Axis(i)), pos[i])
		}
		p := pos
		s.publish(models.Event{Type: models.EventPosition, Seq: seq, Timestamp: now, State: models.StateConnected, Position: &p})
	})
	return pos, err
}

// ReadMotionFlags читает флаги движения; событие публикуется при изменении флагов
// и при первом чтении после подключения.
func (s *Session) ReadMotionFlags(ctx context.Context) (models.MotionFlags, error) {
	var flags models.MotionFlags
	err := s.poll(ctx, "read_motion", func(ctx context.Context, h interfaces.DeviceHandle) (err error) {
		flags, err = h.ReadMotionFlags(ctx)
		return err
	}, func(seq uint64, now time.Time) {
		changed := !s.motionKnown || s.motion != flags
		s.motion = flags
		s.motionKnown = true
		if changed {
			f := flags
			s.publish(models.Event{Type: models.EventMotion, Seq: seq, Timestamp: now, State: models.StateConnected, Motion: &f, Moving: f.Any()})
		}
	})
	return flags, err
}

// ReadAnalog читает каналы 5 и 6; событие несет время с предыдущего чтения
// (для первого чтения - с момента запуска опроса).
func (s *Session) ReadAnalog(ctx context.Context) (models.AnalogReading, error) {
	var reading models.AnalogReading
	err := s.poll(ctx, "read_analog", func(ctx context.Context, h interfaces.DeviceHandle) (err error) {
		reading, err = h.ReadAnalog(ctx)
		return err
	}, func(seq uint64, now time.Time) {
		elapsed := now.Sub(s.analogSince)
		s.analogSince = now
		s.analog = reading
		s.sample(models.ChannelAnalog5, reading.Ch5)
		s.sample(models.ChannelAnalog6, reading.Ch6)
		r := reading
		s.publish(models.Event{Type: models.EventAnalog, Seq: seq, Timestamp: now, State: models.StateConnected, Analog: &r, Elapsed: elapsed})
	})
	return reading, err
}

// poll выполняет чтение через шлюз. Учет результата идет под тем же шлюзом:
// при успехе commit вызывается под блокировкой сессии и только пока сессия подключена,
// при отказе устройства растет счетчик последовательных ошибок.
func (s *Session) poll(
	ctx context.Context,
	op string,
	read func(ctx context.Context, h interfaces.DeviceHandle) error,
	commit func(seq uint64, now time.Time),
) error {
	err := s.withGate(ctx, func(ctx context.Context, h interfaces.DeviceHandle) error {
		if err := read(ctx, h); err != nil {
			return s.readFailed(ctx, op, err)
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.state != models.StateConnected {
			return apperrors.NewPollError(apperrors.ErrNotConnected, s.conn.Name, op, nil)
		}
		now := time.Now()
		s.seq++
		s.failures = 0
		s.lastUpdate = now
		commit(s.seq, now)
		return nil
	})

	var (
		perr *apperrors.PollError
		gerr *gateError
	)
	switch {
	case err == nil, errors.As(err, &perr):
		return err
	case errors.Is(err, apperrors.ErrNotConnected):
		return apperrors.NewPollError(apperrors.ErrNotConnected, s.conn.Name, op, nil)
	case errors.As(err, &gerr) && s.stopping():
		return apperrors.NewPollError(apperrors.ErrNotConnected, s.conn.Name, op, err)
	default:
		return apperrors.NewPollError(apperrors.ErrPollTimeout, s.conn.Name, op, err)
	}
}

// readFailed классифицирует ошибку чтения. Вызывается под шлюзом.
func (s *Session) readFailed(ctx context.Context, op string, err error) error {
	switch {
	case s.stopping():
		return apperrors.NewPollError(apperrors.ErrNotConnected, s.conn.Name, op, err)
	case errors.Is(ctx.Err(), context.Canceled):
		return apperrors.NewPollError(apperrors.ErrPollTimeout, s.conn.Name, op, err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		perr := apperrors.NewPollError(apperrors.ErrPollTimeout, s.conn.Name, op, err)
		s.recordFailure(perr)
		return perr
	default:
		perr := apperrors.NewPollError(apperrors.ErrDeviceFault, s.conn.Name, op, err)
		s.recordFailure(perr)
		return perr
	}
}

// recordFailure учитывает отказ чтения; по достижении порога сессия переходит в Faulted,
// соединение закрывается и публикуется одно событие fault. Вызывается под шлюзом.
func (s *Session) recordFailure(cause error) {
	s.mu.Lock()
	if s.state != models.StateConnected {
		s.mu.Unlock()
		return
	}
	s.failures++
	failures := s.failures
	if failures < s.opts.FailureThreshold {
		s.mu.Unlock()
		s.logger.Warn("Poll failed", "failures", failures, "threshold", s.opts.FailureThreshold, "error", cause)
		return
	}

	s.state = models.StateFaulted
	handle, runCancel := s.handle, s.runCancel
	s.handle = nil
	s.mu.Unlock()

	runCancel()
	if handle != nil {
		_ = handle.Close()
	}
	s.logger.Error("Session faulted", "failures", failures, "error", cause)
	s.emitFault(cause.Error())
}

// sample пишет значение в канал агрегатора, если такой канал есть в каталоге.
func (s *Session) sample(channel string, value float64) {
	if s.aggregator == nil || !s.aggregator.Has(channel) {
		return
	}
	_ = s.aggregator.AddSample(channel, value, s.opts.Window)
}

func (s *Session) publish(ev models.Event) {
	if s.publisher == nil {
		return
	}
	ev.Device = s.conn.Name
	ev.SessionID = s.id
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	s.publisher.Publish(ev)
}

func (s *Session) emitState(state models.SessionState, reason string) {
	s.mu.RLock()
	seq := s.seq
	s.mu.RUnlock()
	s.publish(models.Event{Type: models.EventState, Seq: seq, State: state, Error: reason})
}

func (s *Session) emitFault(reason string) {
	s.mu.RLock()
	seq, failures := s.seq, s.failures
	s.mu.RUnlock()
	s.publish(models.Event{Type: models.EventFault, Seq: seq, State: models.StateFaulted, Failures: failures, Error: reason})
}
