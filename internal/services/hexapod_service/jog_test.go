package hexapod_service

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/iwtcode/hexapodService/internal/middleware/logging"
	"github.com/iwtcode/hexapodService/models"
	apperrors "github.com/iwtcode/hexapodService/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJogVector(t *testing.T) {
	v, err := JogVector(models.AxisV, -1, 0.02)
	require.NoError(t, err)
	assert.Equal(t, models.Vector6{0, 0, 0, 0, -0.02, 0}, v)
	assert.Equal(t, 1, v.NonZero())

	cases := []struct {
		name      string
		axis      models.Axis
		direction int
		step      float64
		code      error
	}{
		{"axis out of range", models.Axis(6), 1, 0.1, apperrors.ErrInvalidAxis},
		{"negative axis", models.Axis(-1), 1, 0.1, apperrors.ErrInvalidAxis},
		{"zero direction", models.AxisX, 0, 0.1, apperrors.ErrInvalidJog},
		{"direction two", models.AxisX, 2, 0.1, apperrors.ErrInvalidJog},
		{"zero step", models.AxisX, 1, 0, apperrors.ErrInvalidJog},
		{"negative step", models.AxisX, 1, -0.1, apperrors.ErrInvalidJog},
		{"NaN step", models.AxisX, 1, math.NaN(), apperrors.ErrInvalidJog},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := JogVector(tc.axis, tc.direction, tc.step)
			assert.ErrorIs(t, err, tc.code)
		})
	}
}

func TestJogMovesDevice(t *testing.T) {
	f := newFixture(t)
	s := f.session(hex1, SessionOptions{})
	require.NoError(t, s.Connect(context.Background()))
	defer s.Disconnect()

	d := NewJogDispatcher(JogQueue, 1, logging.NewNop())
	ctx := context.Background()
	require.NoError(t, d.Jog(ctx, s, models.AxisX, 1, 0.001))
	require.NoError(t, d.Jog(ctx, s, models.AxisW, -1, 0.5))

	catalog, err := models.NewJogStepCatalog(nil, 2)
	require.NoError(t, err)
	require.NoError(t, d.JogWithCatalog(ctx, s, models.AxisY, 1, catalog))

	pos := f.transport.Device(hex1.Address, hex1.Port).Position()
	assert.InDelta(t, 0.001, pos[models.AxisX], 1e-12)
	assert.InDelta(t, 0.001, pos[models.AxisY], 1e-12)
	assert.InDelta(t, -0.5, pos[models.AxisW], 1e-12)
	assert.Zero(t, d.Lanes())

	err = d.Jog(ctx, s, models.Axis(9), 1, 0.1)
	var merr *apperrors.MotionError
	require.ErrorAs(t, err, &merr)
	assert.ErrorIs(t, err, apperrors.ErrInvalidAxis)
}

func TestJogRejectPolicy(t *testing.T) {
	f := newFixture(t)
	s := f.session(hex1, SessionOptions{})
	require.NoError(t, s.Connect(context.Background()))
	defer s.Disconnect()
	f.transport.Device(hex1.Address, hex1.Port).SetLatency(100 * time.Millisecond)

	d := NewJogDispatcher(JogReject, 5, logging.NewNop())
	first := make(chan error, 1)
	go func() { first <- d.Jog(context.Background(), s, models.AxisX, 1, 0.1) }()
	require.Eventually(t, func() bool { return d.Outstanding(s) == 1 }, time.Second, time.Millisecond)

	err := d.Jog(context.Background(), s, models.AxisY, 1, 0.1)
	assert.ErrorIs(t, err, apperrors.ErrBusy)

	require.NoError(t, <-first)
	assert.Zero(t, d.Outstanding(s))
}

func TestJogQueuePolicy(t *testing.T) {
	f := newFixture(t)
	s := f.session(hex1, SessionOptions{})
	require.NoError(t, s.Connect(context.Background()))
	defer s.Disconnect()
	f.transport.Device(hex1.Address, hex1.Port).SetLatency(100 * time.Millisecond)

	d := NewJogDispatcher(JogQueue, 1, logging.NewNop())
	results := make(chan error, 2)
	for i := 1; i <= 2; i++ {
		go func() { results <- d.Jog(context.Background(), s, models.AxisX, 1, 0.1) }()
		want := i
		require.Eventually(t, func() bool { return d.Outstanding(s) == want }, time.Second, time.Millisecond)
	}

	err := d.Jog(context.Background(), s, models.AxisX, 1, 0.1)
	assert.ErrorIs(t, err, apperrors.ErrBusy)

	require.NoError(t, <-results)
	require.NoError(t, <-results)
	assert.Zero(t, d.Lanes())
	assert.InDelta(t, 0.2, f.transport.Device(hex1.Address, hex1.Port).Position()[models.AxisX], 1e-12)
}

func TestJogQueueIsFIFO(t *testing.T) {
	f := newFixture(t)
	s := f.session(hex1, SessionOptions{})
	require.NoError(t, s.Connect(context.Background()))
	defer s.Disconnect()
	f.transport.Device(hex1.Address, hex1.Port).SetLatency(20 * time.Millisecond)

	d := NewJogDispatcher(JogQueue, 10, logging.NewNop())
	const n = 6
	var (
		mu       sync.Mutex
		order    []models.Axis
		finished atomic.Int32
		wg       sync.WaitGroup
	)
	for i := 0; i < n; i++ {
		axis := models.Axis(i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, d.Jog(context.Background(), s, axis, 1, 0.01))
			mu.Lock()
			order = append(order, axis)
			mu.Unlock()
			finished.Add(1)
		}()
		want := i + 1
		require.Eventually(t, func() bool {
			return d.Outstanding(s)+int(finished.Load()) >= want
		}, time.Second, time.Millisecond)
	}
	wg.Wait()

	assert.Equal(t, []models.Axis{models.AxisX, models.AxisY, models.AxisZ, models.AxisU, models.AxisV, models.AxisW}, order)
}

func TestJogCancelledWhileQueued(t *testing.T) {
	f := newFixture(t)
	s := f.session(hex1, SessionOptions{})
	require.NoError(t, s.Connect(context.Background()))
	defer s.Disconnect()
	f.transport.Device(hex1.Address, hex1.Port).SetLatency(200 * time.Millisecond)

	d := NewJogDispatcher(JogQueue, 1, logging.NewNop())
	first := make(chan error, 1)
	go func() { first <- d.Jog(context.Background(), s, models.AxisX, 1, 0.1) }()
	require.Eventually(t, func() bool { return d.Outstanding(s) == 1 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := d.Jog(ctx, s, models.AxisY, 1, 0.1)
	assert.ErrorIs(t, err, apperrors.ErrMotionTimeout)
	assert.Equal(t, 1, d.Outstanding(s))

	require.NoError(t, <-first)
	assert.Zero(t, d.Lanes())
}

func TestAtMostOneRequestInFlight(t *testing.T) {
	f := newFixture(t)
	dev := f.transport.Device(hex1.Address, hex1.Port)
	dev.SetLatency(time.Millisecond)

	s := f.session(hex1, SessionOptions{Polling: PollIntervals{
		Position: 2 * time.Millisecond,
		Motion:   3 * time.Millisecond,
		Analog:   5 * time.Millisecond,
	}})
	require.NoError(t, s.Connect(context.Background()))

	d := NewJogDispatcher(JogQueue, 100, logging.NewNop())
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, d.Jog(context.Background(), s, models.Axis(i%models.AxisCount), 1, 0.001))
		}(i)
	}
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.MoveRelative(context.Background(), models.Vector6{0, 0, 0, 0, 0, 0.001}))
		}()
	}
	wg.Wait()
	require.NoError(t, s.Disconnect())

	assert.Equal(t, 1, dev.MaxInFlight())
	assert.Equal(t, uint64(30), dev.Moves())
	assert.Greater(t, dev.Ops(), uint64(30))
}
