package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesPrefixedFile(t *testing.T) {
	dir := t.TempDir()
	logger := NewLogger(&Config{Enabled: true, Level: "DEBUG", LogsDir: dir}, "App")
	child := logger.WithPrefix("REGISTRY")

	child.Info("Session opened", "device", "Hex1", "port", 50000)
	child.Debug("Gate acquired")
	require.NoError(t, logger.Close())
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(filepath.Join(dir, time.Now().Format("2006-01-02")+".log"))
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "App [REGISTRY] Session opened")
	assert.Contains(t, text, "device=Hex1")
	assert.Contains(t, text, "port=50000")
	assert.Contains(t, text, "Gate acquired")
}

func TestShouldLog(t *testing.T) {
	logger := NewLogger(&Config{Enabled: true, Level: "WARN"}, "")
	assert.False(t, logger.ShouldLog("DEBUG"))
	assert.False(t, logger.ShouldLog("INFO"))
	assert.True(t, logger.ShouldLog("WARN"))
	assert.True(t, logger.ShouldLog("ERROR"))

	fallback := NewLogger(&Config{Enabled: true, Level: "bogus"}, "")
	assert.True(t, fallback.ShouldLog("INFO"))
	assert.False(t, fallback.ShouldLog("DEBUG"))

	assert.False(t, NewNop().ShouldLog("ERROR"))
}

func TestRemoveExpired(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "2000-01-01.log")
	fresh := filepath.Join(dir, "fresh.log")
	other := filepath.Join(dir, "notes.txt")
	for _, p := range []string{old, fresh, other} {
		require.NoError(t, os.WriteFile(p, []byte("x"), 0644))
	}
	past := time.Now().AddDate(0, 0, -30)
	require.NoError(t, os.Chtimes(old, past, past))
	require.NoError(t, os.Chtimes(other, past, past))

	logger := &Logger{config: &Config{Enabled: true, LogsDir: dir, SavingDays: 7}, base: NewNop().base, shared: &sink{stop: make(chan struct{})}}
	logger.removeExpired(time.Now())

	assert.NoFileExists(t, old)
	assert.FileExists(t, fresh)
	assert.FileExists(t, other)
}
