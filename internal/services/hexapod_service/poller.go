package hexapod_service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/iwtcode/hexapodService/internal/middleware/logging"
	apperrors "github.com/iwtcode/hexapodService/pkg/errors"
)

// Poller запускает циклы опроса одной сессии: позиция, флаги движения и аналоговые
// входы. Каждый цикл - отдельная горутина со своим тикером; тики, пришедшие во время
// опроса, тикер отбрасывает, поэтому цикл не перекрывается сам с собой.
type Poller struct {
	session   *Session
	intervals PollIntervals
	logger    *logging.Logger
	wg        sync.WaitGroup

	positionCycles atomic.Uint64
	motionCycles   atomic.Uint64
	analogCycles   atomic.Uint64
}

func NewPoller(session *Session, intervals PollIntervals, logger *logging.Logger) *Poller {
	return &Poller{
		session:   session,
		intervals: intervals,
		logger:    logger.WithPrefix("POLLER"),
	}
}

// Start запускает циклы; они завершаются при отмене ctx.
func (p *Poller) Start(ctx context.Context) {
	p.spawn(ctx, "position", p.intervals.Position, &p.positionCycles, func(ctx context.Context) error {
		_, err := p.session.ReadPosition(ctx)
		return err
	})
	p.spawn(ctx, "motion", p.intervals.Motion, &p.motionCycles, func(ctx context.Context) error {
		_, err := p.session.ReadMotionFlags(ctx)
		return err
	})
	p.spawn(ctx, "analog", p.intervals.Analog, &p.analogCycles, func(ctx context.Context) error {
		_, err := p.session.ReadAnalog(ctx)
		return err
	})
}

func (p *Poller) spawn(ctx context.Context, name string, interval time.Duration, cycles *atomic.Uint64, poll func(context.Context) error) {
	if interval <= 0 {
		p.logger.Debug("Polling loop disabled", "loop", name)
		return
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.logger.Debug("Starting polling loop", "loop", name, "interval", interval)
		defer p.logger.Debug("Polling loop stopped", "loop", name)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			if ctx.Err() != nil {
				return
			}

			err := poll(ctx)
			cycles.Add(1)
			if err == nil {
				continue
			}
			if errors.Is(err, apperrors.ErrNotConnected) {
				return
			}
			p.logger.Debug("Poll cycle failed", "loop", name, "error", err)
		}
	}()
}

// Wait ждет завершения всех циклов. Возвращает false, если deadline сработал раньше.
func (p *Poller) Wait(deadline <-chan time.Time) bool {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-deadline:
		return false
	}
}

// Cycles возвращает число выполненных циклов (position, motion, analog).
func (p *Poller) Cycles() (position, motion, analog uint64) {
	return p.positionCycles.Load(), p.motionCycles.Load(), p.analogCycles.Load()
}
