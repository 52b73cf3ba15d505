package hexapod

import (
	"context"
	"fmt"
	"strings"

	"github.com/iwtcode/hexapodService/internal/config"
	"github.com/iwtcode/hexapodService/internal/interfaces"
	"github.com/iwtcode/hexapodService/internal/middleware/logging"
	"github.com/iwtcode/hexapodService/internal/services/aggregator"
	"github.com/iwtcode/hexapodService/internal/services/hexapod_service"
	"github.com/iwtcode/hexapodService/internal/services/hexapod_service/sim"
	"github.com/iwtcode/hexapodService/internal/services/telemetry"
	"github.com/iwtcode/hexapodService/models"
	apperrors "github.com/iwtcode/hexapodService/pkg/errors"

	"github.com/sirupsen/logrus"
)

// DeviceTransport открывает соединения с контроллерами гексаподов.
type DeviceTransport = interfaces.DeviceTransport

// DeviceHandle - открытое соединение с одним контроллером.
type DeviceHandle = interfaces.DeviceHandle

// Subscription - ограниченная очередь событий телеметрии.
type Subscription = interfaces.TelemetrySubscription

// Simulator - встроенный симулятор контроллеров.
type Simulator = sim.Transport

// NewSimulator создает симулятор с задержкой операций из конфигурации.
func NewSimulator(cfg *Config) *Simulator {
	opts := sim.DefaultOptions()
	opts.Latency = config.Millis(cfg.SimLatencyMs)
	return sim.New(opts)
}

// Client является основной точкой входа для взаимодействия с библиотекой.
type Client struct {
	config     *Config
	logger     *logging.Logger
	devices    []models.DeviceConnection
	aggregator interfaces.ChannelAggregator
	broker     interfaces.TelemetryBroker
	service    interfaces.HexapodService
	jogSteps   *models.JogStepCatalog
}

// New создает клиент. Если transport равен nil, используется симулятор.
// Соединения с устройствами не открываются до вызова Connect.
func New(cfg *Config, transport DeviceTransport) (*Client, error) {
	level := strings.ToLower(cfg.LogLevel)
	logger := logging.NewLogger(&logging.Config{
		Enabled: level != "off" && level != "none",
		Level:   cfg.LogLevel,
	}, "HexapodClient")

	devices := config.DefaultDevices()
	if cfg.DevicesFile != "" {
		list, err := config.LoadDevices(cfg.DevicesFile, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to load devices: %w", err)
		}
		devices = list
	}

	channels := config.DefaultChannels()
	if cfg.ChannelsFile != "" {
		specs, err := config.LoadChannels(cfg.ChannelsFile, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to load channels: %w", err)
		}
		channels = specs
	}

	agg, err := aggregator.NewAggregator(channels, cfg.AggregatorWindow, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create aggregator: %w", err)
	}

	jogSteps, err := models.NewJogStepCatalog(models.DefaultJogSteps, cfg.JogStepIndex)
	if err != nil {
		return nil, fmt.Errorf("failed to create jog step catalog: %w", err)
	}

	if transport == nil {
		transport = NewSimulator(cfg)
	}

	broker := telemetry.NewBroker(cfg.SubscriberBuffer, logger)
	opts := hexapod_service.ServiceOptions{
		Session: hexapod_service.SessionOptions{
			ConnectTimeout:   config.Millis(cfg.ConnectTimeoutMs),
			IOTimeout:        config.Millis(cfg.IOTimeoutMs),
			DrainTimeout:     config.Millis(cfg.DrainTimeoutMs),
			FailureThreshold: cfg.FailureThreshold,
			Polling: hexapod_service.PollIntervals{
				Position: config.Millis(cfg.PositionIntervalMs),
				Motion:   config.Millis(cfg.MotionIntervalMs),
				Analog:   config.Millis(cfg.AnalogIntervalMs),
			},
			Window: cfg.AggregatorWindow,
		},
		JogPolicy:  hexapod_service.ParseJogPolicy(cfg.JogPolicy),
		JogBacklog: cfg.JogBacklog,
	}

	return &Client{
		config:     cfg,
		logger:     logger,
		devices:    devices,
		aggregator: agg,
		broker:     broker,
		service:    hexapod_service.NewHexapodService(transport, agg, broker, opts, logger),
		jogSteps:   jogSteps,
	}, nil
}

// Close отключает все устройства и останавливает рассылку телеметрии.
func (c *Client) Close() error {
	err := c.service.ShutdownAll()
	c.broker.Close()
	if cerr := c.logger.Close(); err == nil {
		err = cerr
	}
	return err
}

// GetLogger возвращает используемый логгер.
func (c *Client) GetLogger() *logrus.Logger {
	return c.logger.Logrus()
}

// Devices возвращает известные устройства.
func (c *Client) Devices() []models.DeviceConnection {
	return append([]models.DeviceConnection(nil), c.devices...)
}

// Connect открывает сессию с устройством из списка по имени.
func (c *Client) Connect(ctx context.Context, name string) (models.SessionInfo, error) {
	conn, ok := config.FindDevice(c.devices, name)
	if !ok {
		return models.SessionInfo{}, apperrors.NewRegistryError(apperrors.ErrNotFound, name)
	}
	return c.service.OpenSession(ctx, conn)
}

// ConnectTo открывает сессию с устройством, которого нет в списке.
func (c *Client) ConnectTo(ctx context.Context, conn models.DeviceConnection) (models.SessionInfo, error) {
	return c.service.OpenSession(ctx, conn)
}

// Disconnect закрывает сессию. Отсутствующая сессия не считается ошибкой.
func (c *Client) Disconnect(name string) error {
	return c.service.CloseSession(name)
}

// Session возвращает снимок сессии.
func (c *Client) Session(name string) (models.SessionInfo, error) {
	return c.service.GetSession(name)
}

// Sessions возвращает снимки всех сессий, упорядоченные по имени.
func (c *Client) Sessions() []models.SessionInfo {
	return c.service.ListSessions()
}

// GetPosition читает позицию устройства.
func (c *Client) GetPosition(ctx context.Context, name string) (models.Vector6, error) {
	return c.service.ReadPosition(ctx, name)
}

// Move выполняет относительное перемещение.
func (c *Client) Move(ctx context.Context, name string, vector models.Vector6) error {
	return c.service.MoveRelative(ctx, name, vector)
}

// Jog сдвигает одну ось на выбранный шаг.
func (c *Client) Jog(ctx context.Context, name string, axis models.Axis, direction int) error {
	step, _ := c.jogSteps.Current()
	return c.service.Jog(ctx, name, axis, direction, step)
}

// JogBy сдвигает одну ось на произвольный шаг.
func (c *Client) JogBy(ctx context.Context, name string, axis models.Axis, direction int, step float64) error {
	return c.service.Jog(ctx, name, axis, direction, step)
}

// JogSteps возвращает каталог шагов толчкового перемещения.
func (c *Client) JogSteps() *models.JogStepCatalog {
	return c.jogSteps
}

// GetChannel возвращает текущее состояние канала.
func (c *Client) GetChannel(name string) (models.ChannelSnapshot, error) {
	return c.aggregator.Read(name)
}

// GetChannels возвращает состояние всех каналов.
func (c *Client) GetChannels() []models.ChannelSnapshot {
	return c.aggregator.Snapshot()
}

// SetChannelTarget задает целевое значение канала.
func (c *Client) SetChannelTarget(name string, target float64) error {
	return c.aggregator.SetTarget(name, target)
}

// Evaluate сравнивает среднее канала с целевым значением.
func (c *Client) Evaluate(name string) (models.Evaluation, error) {
	return c.aggregator.Evaluate(name)
}

// Subscribe подписывается на телеметрию. Пустое имя - все устройства.
func (c *Client) Subscribe(device string) Subscription {
	return c.broker.Subscribe(c.config.SubscriberBuffer, telemetry.ForDevice(device))
}
