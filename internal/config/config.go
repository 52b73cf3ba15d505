package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig содержит конфигурацию приложения
type AppConfig struct {
	ServerPort string
	GinMode    string
	Kafka      KafkaConfig
	Logging    LoggerConfig
	Hexapod    HexapodConfig
	Session    SessionConfig
	Polling    PollingConfig
	Jog        JogConfig

	AggregatorWindow int
	SubscriberBuffer int
}

// LoggerConfig содержит настройки логгера
type LoggerConfig struct {
	Enable     bool
	LogsDir    string
	Level      string
	SavingDays int
}

// KafkaConfig содержит настройки отправки телеметрии в Kafka
type KafkaConfig struct {
	Enable bool
	Broker string
	Topic  string
}

// HexapodConfig содержит пути к файлам устройств и каналов и выбор транспорта
type HexapodConfig struct {
	DevicesFile  string
	ChannelsFile string
	Transport    string // sim
	SimLatencyMs int
}

// SessionConfig содержит таймауты сессии устройства
type SessionConfig struct {
	ConnectTimeoutMs int
	IOTimeoutMs      int
	DrainTimeoutMs   int
	FailureThreshold int
}

// PollingConfig содержит интервалы циклов опроса
type PollingConfig struct {
	PositionIntervalMs int
	MotionIntervalMs   int
	AnalogIntervalMs   int
	AnalogEnable       bool
}

// JogConfig содержит политику очереди толчковых команд
type JogConfig struct {
	Policy           string // queue | reject
	Backlog          int
	DefaultStepIndex int
}

// LoadConfiguration загружает конфигурацию из .env файла или переменных окружения
func LoadConfiguration() (*AppConfig, error) {
	_ = godotenv.Load()

	config := &AppConfig{
		ServerPort: getEnv("APP_PORT", "8083"),
		GinMode:    getEnv("GIN_MODE", "release"),
		Kafka: KafkaConfig{
			Enable: getEnvAsBool("KAFKA_ENABLE", false),
			Broker: getEnv("KAFKA_BROKER", "localhost:9092"),
			Topic:  getEnv("KAFKA_TOPIC", "hexapod_telemetry"),
		},
		Logging: LoggerConfig{
			Enable:     getEnvAsBool("LOGGER_ENABLE", true),
			LogsDir:    getEnv("LOGGER_LOGS_DIR", "./logs"),
			Level:      getEnv("LOGGER_LOG_LEVEL", "INFO"),
			SavingDays: getEnvAsInt("LOGGER_SAVING_DAYS", 7),
		},
		Hexapod: HexapodConfig{
			DevicesFile:  getEnv("HEXAPOD_DEVICES_FILE", "./config/hexapod_config.json"),
			ChannelsFile: getEnv("HEXAPOD_CHANNELS_FILE", "./config/realtimedataname.json"),
			Transport:    strings.ToLower(getEnv("HEXAPOD_TRANSPORT", "sim")),
			SimLatencyMs: getEnvAsInt("HEXAPOD_SIM_LATENCY_MS", 2),
		},
		Session: SessionConfig{
			ConnectTimeoutMs: getEnvAsInt("SESSION_CONNECT_TIMEOUT_MS", 5000),
			IOTimeoutMs:      getEnvAsInt("SESSION_IO_TIMEOUT_MS", 1000),
			DrainTimeoutMs:   getEnvAsInt("SESSION_DRAIN_TIMEOUT_MS", 1000),
			FailureThreshold: getEnvAsInt("SESSION_FAILURE_THRESHOLD", 3),
		},
		Polling: PollingConfig{
			PositionIntervalMs: getEnvAsInt("POLL_POSITION_INTERVAL_MS", 100),
			MotionIntervalMs:   getEnvAsInt("POLL_MOTION_INTERVAL_MS", 100),
			AnalogIntervalMs:   getEnvAsInt("POLL_ANALOG_INTERVAL_MS", 1000),
			AnalogEnable:       getEnvAsBool("POLL_ANALOG_ENABLE", true),
		},
		Jog: JogConfig{
			Policy:           strings.ToLower(getEnv("JOG_POLICY", "queue")),
			Backlog:          getEnvAsInt("JOG_BACKLOG", 1),
			DefaultStepIndex: getEnvAsInt("JOG_DEFAULT_STEP_INDEX", 6),
		},
		AggregatorWindow: getEnvAsInt("AGGREGATOR_WINDOW", 3),
		SubscriberBuffer: getEnvAsInt("TELEMETRY_SUBSCRIBER_BUFFER", 64),
	}

	return config, nil
}

// Millis переводит значение в миллисекундах в time.Duration.
func Millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(name string, defaultValue int) int {
	valueStr := getEnv(name, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	val, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return val
}
