package hexapod_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	hexapod "github.com/iwtcode/hexapodService"
	"github.com/iwtcode/hexapodService/models"
	apperrors "github.com/iwtcode/hexapodService/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const devicesJSON = `{
  "connections": [
    {"name": "Lab", "ipAddress": "10.0.0.5", "port": 50000},
    {"name": "Bench", "ipAddress": "10.0.0.6", "port": 50001}
  ]
}`

func setupClient(t *testing.T) (*hexapod.Client, *hexapod.Simulator) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hexapod_config.json")
	require.NoError(t, os.WriteFile(path, []byte(devicesJSON), 0644))

	cfg := &hexapod.Config{
		DevicesFile:        path,
		ConnectTimeoutMs:   1000,
		IOTimeoutMs:        500,
		DrainTimeoutMs:     500,
		FailureThreshold:   3,
		PositionIntervalMs: 20,
		MotionIntervalMs:   20,
		AggregatorWindow:   3,
		JogBacklog:         1,
		JogStepIndex:       models.DefaultJogStepIndex,
		SubscriberBuffer:   64,
		LogLevel:           "off",
	}
	simulator := hexapod.NewSimulator(cfg)
	c, err := hexapod.New(cfg, simulator)
	require.NoError(t, err, "Не удалось создать клиент")
	t.Cleanup(func() { _ = c.Close() })
	return c, simulator
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SESSION_IO_TIMEOUT_MS", "250")
	t.Setenv("POLL_ANALOG_INTERVAL_MS", "0")
	t.Setenv("LOG_LEVEL", "")

	cfg := hexapod.Load()
	assert.Equal(t, 250, cfg.IOTimeoutMs)
	assert.Equal(t, 0, cfg.AnalogIntervalMs)
	assert.Equal(t, 5000, cfg.ConnectTimeoutMs)
	assert.Equal(t, 6, cfg.JogStepIndex)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestClientDevices(t *testing.T) {
	c, _ := setupClient(t)

	devices := c.Devices()
	require.Len(t, devices, 2)
	assert.Equal(t, "Lab", devices[0].Name)
	assert.Equal(t, "10.0.0.6:50001", devices[1].Endpoint())

	_, err := c.Connect(context.Background(), "Nope")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestClientJogAndMove(t *testing.T) {
	c, simulator := setupClient(t)
	ctx := context.Background()

	info, err := c.Connect(ctx, "lab")
	require.NoError(t, err)
	assert.Equal(t, models.StateConnected, info.State)
	assert.NotEmpty(t, info.SessionID)

	require.NoError(t, c.Jog(ctx, "Lab", models.AxisX, 1))
	require.NoError(t, c.JogBy(ctx, "Lab", models.AxisZ, -1, 0.5))
	require.NoError(t, c.Move(ctx, "Lab", models.Vector6{0, 1}))

	pos, err := c.GetPosition(ctx, "Lab")
	require.NoError(t, err)
	assert.InDelta(t, 0.02, pos[models.AxisX], 1e-12)
	assert.InDelta(t, 1, pos[models.AxisY], 1e-12)
	assert.InDelta(t, -0.5, pos[models.AxisZ], 1e-12)
	assert.Equal(t, pos, simulator.Device("10.0.0.5", 50000).Position())

	require.NoError(t, c.JogSteps().Select(0))
	require.NoError(t, c.Jog(ctx, "Lab", models.AxisX, -1))
	assert.InDelta(t, 0.0198, simulator.Device("10.0.0.5", 50000).Position()[models.AxisX], 1e-12)

	err = c.Jog(ctx, "Lab", models.AxisX, 0)
	assert.ErrorIs(t, err, apperrors.ErrInvalidJog)

	require.NoError(t, c.Disconnect("Lab"))
	require.NoError(t, c.Disconnect("Lab"))
	_, err = c.Session("Lab")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestClientTelemetry(t *testing.T) {
	c, _ := setupClient(t)
	ctx := context.Background()

	sub := c.Subscribe("Bench")
	defer sub.Close()

	_, err := c.Connect(ctx, "Bench")
	require.NoError(t, err)
	_, err = c.ConnectTo(ctx, models.DeviceConnection{Name: "Extra", Address: "10.0.0.9", Port: 50000})
	require.NoError(t, err)
	assert.Len(t, c.Sessions(), 2)

	deadline := time.After(2 * time.Second)
	sawPosition := false
	for !sawPosition {
		select {
		case ev := <-sub.Events():
			assert.Equal(t, "Bench", ev.Device)
			sawPosition = ev.Type == models.EventPosition
		case <-deadline:
			t.Fatal("position event not delivered")
		}
	}

	require.Eventually(t, func() bool {
		snap, err := c.GetChannel(models.PositionChannel(models.AxisX))
		return err == nil && snap.Samples > 0
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, c.SetChannelTarget(models.ChannelAnalog5, 1.5))
	_, err = c.Evaluate(models.ChannelAnalog5)
	require.NoError(t, err)
	assert.Len(t, c.GetChannels(), 8)
}
