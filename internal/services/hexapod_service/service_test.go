package hexapod_service

import (
	"context"
	"testing"
	"time"

	"github.com/iwtcode/hexapodService/internal/config"
	"github.com/iwtcode/hexapodService/internal/middleware/logging"
	"github.com/iwtcode/hexapodService/internal/services/telemetry"
	"github.com/iwtcode/hexapodService/models"
	apperrors "github.com/iwtcode/hexapodService/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServiceOptions(t *testing.T) {
	cfg := &config.AppConfig{
		Session: config.SessionConfig{ConnectTimeoutMs: 2000, IOTimeoutMs: 500, DrainTimeoutMs: 800, FailureThreshold: 5},
		Polling: config.PollingConfig{PositionIntervalMs: 50, MotionIntervalMs: 75, AnalogIntervalMs: 1000, AnalogEnable: false},
		Jog:     config.JogConfig{Policy: "reject", Backlog: 3},

		AggregatorWindow: 4,
	}

	opts := NewServiceOptions(cfg)
	assert.Equal(t, 2*time.Second, opts.Session.ConnectTimeout)
	assert.Equal(t, 500*time.Millisecond, opts.Session.IOTimeout)
	assert.Equal(t, 800*time.Millisecond, opts.Session.DrainTimeout)
	assert.Equal(t, 5, opts.Session.FailureThreshold)
	assert.Equal(t, PollIntervals{Position: 50 * time.Millisecond, Motion: 75 * time.Millisecond}, opts.Session.Polling)
	assert.Equal(t, 4, opts.Session.Window)
	assert.Equal(t, JogReject, opts.JogPolicy)
	assert.Equal(t, 3, opts.JogBacklog)

	assert.Equal(t, JogQueue, ParseJogPolicy("anything"))
}

func TestHexapodServiceFlow(t *testing.T) {
	f := newFixture(t)
	broker := telemetry.NewBroker(16, logging.NewNop())
	defer broker.Close()
	sub := broker.Subscribe(64, telemetry.ForDevice("hex1"))
	defer sub.Close()

	svc := NewHexapodService(f.transport, f.agg, broker, ServiceOptions{JogPolicy: JogQueue, JogBacklog: 1}, logging.NewNop())
	ctx := context.Background()

	_, err := svc.GetSession("Hex1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.ErrorIs(t, svc.MoveRelative(ctx, "Hex1", models.Vector6{1}), apperrors.ErrNotFound)

	info, err := svc.OpenSession(ctx, hex1)
	require.NoError(t, err)
	assert.Equal(t, models.StateConnected, info.State)
	assert.NotEmpty(t, info.SessionID)

	require.NoError(t, svc.Jog(ctx, "hex1", models.AxisX, 1, 0.001))
	pos, err := svc.ReadPosition(ctx, "HEX1")
	require.NoError(t, err)
	assert.InDelta(t, 0.001, pos[models.AxisX], 1e-12)

	got, err := svc.GetSession("Hex1")
	require.NoError(t, err)
	assert.Equal(t, info.SessionID, got.SessionID)
	assert.Len(t, svc.ListSessions(), 1)

	var sawPosition bool
	timeout := time.After(time.Second)
	for !sawPosition {
		select {
		case ev := <-sub.Events():
			assert.Equal(t, "Hex1", ev.Device)
			sawPosition = ev.Type == models.EventPosition
		case <-timeout:
			t.Fatal("no position event received")
		}
	}

	require.NoError(t, svc.CloseSession("Hex1"))
	require.NoError(t, svc.ShutdownAll())
	assert.Empty(t, svc.ListSessions())
}
