package app

import (
	"testing"

	"github.com/iwtcode/hexapodService/internal/config"
	"github.com/iwtcode/hexapodService/internal/middleware/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
)

func TestDependencyGraph(t *testing.T) {
	require.NoError(t, fx.ValidateApp(Options()))
}

func TestProvideTransport(t *testing.T) {
	logger := logging.NewNop()

	cfg := &config.AppConfig{Hexapod: config.HexapodConfig{Transport: "sim", SimLatencyMs: 1}}
	transport, err := ProvideTransport(cfg, logger)
	require.NoError(t, err)
	assert.NotNil(t, transport)

	cfg.Hexapod.Transport = "serial"
	_, err = ProvideTransport(cfg, logger)
	assert.Error(t, err)
}
