package hexapod_service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/iwtcode/hexapodService/internal/middleware/logging"
	"github.com/iwtcode/hexapodService/models"
	apperrors "github.com/iwtcode/hexapodService/pkg/errors"
)

// JogPolicy определяет, что делать с толчковой командой, пока предыдущая не завершена.
type JogPolicy string

const (
	// JogQueue ставит команду в очередь до Backlog ожидающих, остальные получают Busy.
	JogQueue JogPolicy = "queue"
	// JogReject отклоняет команду, если у сессии есть незавершенная.
	JogReject JogPolicy = "reject"
)

// ParseJogPolicy разбирает политику; неизвестное значение означает JogQueue.
func ParseJogPolicy(s string) JogPolicy {
	if JogPolicy(s) == JogReject {
		return JogReject
	}
	return JogQueue
}

// motionLane - очередь толчковых команд одной сессии.
type motionLane struct {
	outstanding int
	busy        bool
	waiters     []chan struct{}
}

// JogDispatcher превращает толчковые команды в векторы смещения и упорядочивает их
// по сессиям. Состояния осей не хранит.
type JogDispatcher struct {
	mu      sync.Mutex
	lanes   map[*Session]*motionLane
	policy  JogPolicy
	backlog int
	logger  *logging.Logger
}

func NewJogDispatcher(policy JogPolicy, backlog int, logger *logging.Logger) *JogDispatcher {
	if backlog < 0 {
		backlog = 0
	}
	return &JogDispatcher{
		lanes:   make(map[*Session]*motionLane),
		policy:  policy,
		backlog: backlog,
		logger:  logger.WithPrefix("JOG"),
	}
}

// JogVector строит вектор с единственной ненулевой компонентой direction*step.
func JogVector(axis models.Axis, direction int, step float64) (models.Vector6, error) {
	var v models.Vector6
	if !axis.Valid() {
		return v, fmt.Errorf("%w: %d", apperrors.ErrInvalidAxis, int(axis))
	}
	if direction != 1 && direction != -1 {
		return v, fmt.Errorf("%w: direction must be +1 or -1, got %d", apperrors.ErrInvalidJog, direction)
	}
	if step <= 0 || math.IsNaN(step) || math.IsInf(step, 0) {
		return v, fmt.Errorf("%w: step must be positive, got %v", apperrors.ErrInvalidJog, step)
	}
	v[axis] = float64(direction) * step
	return v, nil
}

// Jog отправляет толчковое перемещение по оси в сессию.
func (d *JogDispatcher) Jog(ctx context.Context, s *Session, axis models.Axis, direction int, step float64) error {
	const op = "jog"
	vector, err := JogVector(axis, direction, step)
	if err != nil {
		return apperrors.NewMotionError(unwrapCode(err), s.Name(), op, err)
	}

	release, err := d.enter(ctx, s)
	if err != nil {
		return err
	}
	defer release()

	d.logger.Debug("Jog", "device", s.Name(), "axis", axis, "direction", direction, "step", step)
	return s.MoveRelative(ctx, vector)
}

// JogWithCatalog выполняет Jog с выбранным в каталоге шагом.
func (d *JogDispatcher) JogWithCatalog(ctx context.Context, s *Session, axis models.Axis, direction int, catalog *models.JogStepCatalog) error {
	step, _ := catalog.Current()
	return d.Jog(ctx, s, axis, direction, step)
}

// enter занимает место в очереди сессии и дожидается своей очереди.
func (d *JogDispatcher) enter(ctx context.Context, s *Session) (func(), error) {
	limit := 1
	if d.policy == JogQueue {
		limit += d.backlog
	}

	d.mu.Lock()
	lane, ok := d.lanes[s]
	if !ok {
		lane = &motionLane{}
		d.lanes[s] = lane
	}
	if lane.outstanding >= limit {
		d.mu.Unlock()
		return nil, apperrors.NewMotionError(apperrors.ErrBusy, s.Name(), "jog", nil)
	}
	lane.outstanding++

	if !lane.busy {
		lane.busy = true
		d.mu.Unlock()
		return func() { d.leave(s, lane) }, nil
	}
	turn := make(chan struct{})
	lane.waiters = append(lane.waiters, turn)
	d.mu.Unlock()

	select {
	case <-turn:
		return func() { d.leave(s, lane) }, nil
	case <-ctx.Done():
	}

	d.mu.Lock()
	for i, w := range lane.waiters {
		if w == turn {
			lane.waiters = append(lane.waiters[:i], lane.waiters[i+1:]...)
			d.dropLocked(s, lane)
			d.mu.Unlock()
			return nil, apperrors.NewMotionError(apperrors.ErrMotionTimeout, s.Name(), "jog", ctx.Err())
		}
	}
	d.mu.Unlock()

	// Очередь уже передана этой команде: освобождаем ее для следующей.
	d.leave(s, lane)
	return nil, apperrors.NewMotionError(apperrors.ErrMotionTimeout, s.Name(), "jog", ctx.Err())
}

func (d *JogDispatcher) leave(s *Session, lane *motionLane) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(lane.waiters) > 0 {
		next := lane.waiters[0]
		lane.waiters = lane.waiters[1:]
		close(next)
	} else {
		lane.busy = false
	}
	d.dropLocked(s, lane)
}

func (d *JogDispatcher) dropLocked(s *Session, lane *motionLane) {
	lane.outstanding--
	if lane.outstanding == 0 && d.lanes[s] == lane {
		delete(d.lanes, s)
	}
}

// Outstanding возвращает число незавершенных толчковых команд сессии.
func (d *JogDispatcher) Outstanding(s *Session) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if lane, ok := d.lanes[s]; ok {
		return lane.outstanding
	}
	return 0
}

// Lanes возвращает число сессий с незавершенными командами.
func (d *JogDispatcher) Lanes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.lanes)
}

func unwrapCode(err error) error {
	switch {
	case errors.Is(err, apperrors.ErrInvalidAxis):
		return apperrors.ErrInvalidAxis
	default:
		return apperrors.ErrInvalidJog
	}
}
