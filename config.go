package hexapod

import (
	"os"
	"strconv"
	"strings"
)

// Config хранит настройки клиента библиотеки
type Config struct {
	DevicesFile  string // пустой путь - список устройств по умолчанию
	ChannelsFile string // пустой путь - каталог каналов по умолчанию
	SimLatencyMs int

	ConnectTimeoutMs int
	IOTimeoutMs      int
	DrainTimeoutMs   int
	FailureThreshold int

	PositionIntervalMs int
	MotionIntervalMs   int
	AnalogIntervalMs   int

	AggregatorWindow int
	JogPolicy        string
	JogBacklog       int
	JogStepIndex     int
	SubscriberBuffer int
	LogLevel         string
}

// Load загружает конфигурацию из переменных окружения
func Load() *Config {
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	return &Config{
		DevicesFile:        os.Getenv("HEXAPOD_DEVICES_FILE"),
		ChannelsFile:       os.Getenv("HEXAPOD_CHANNELS_FILE"),
		SimLatencyMs:       envInt("HEXAPOD_SIM_LATENCY_MS", 2),
		ConnectTimeoutMs:   envInt("SESSION_CONNECT_TIMEOUT_MS", 5000),
		IOTimeoutMs:        envInt("SESSION_IO_TIMEOUT_MS", 1000),
		DrainTimeoutMs:     envInt("SESSION_DRAIN_TIMEOUT_MS", 1000),
		FailureThreshold:   envInt("SESSION_FAILURE_THRESHOLD", 3),
		PositionIntervalMs: envInt("POLL_POSITION_INTERVAL_MS", 100),
		MotionIntervalMs:   envInt("POLL_MOTION_INTERVAL_MS", 100),
		AnalogIntervalMs:   envInt("POLL_ANALOG_INTERVAL_MS", 1000),
		AggregatorWindow:   envInt("AGGREGATOR_WINDOW", 3),
		JogPolicy:          strings.ToLower(os.Getenv("JOG_POLICY")),
		JogBacklog:         envInt("JOG_BACKLOG", 1),
		JogStepIndex:       envInt("JOG_DEFAULT_STEP_INDEX", 6),
		SubscriberBuffer:   envInt("TELEMETRY_SUBSCRIBER_BUFFER", 64),
		LogLevel:           logLevel,
	}
}

func envInt(key string, fallback int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return value
}
