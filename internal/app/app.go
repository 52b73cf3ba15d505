package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/iwtcode/hexapodService/internal/adapters/handlers"
	"github.com/iwtcode/hexapodService/internal/config"
	"github.com/iwtcode/hexapodService/internal/interfaces"
	"github.com/iwtcode/hexapodService/internal/middleware/logging"
	"github.com/iwtcode/hexapodService/internal/services/aggregator"
	"github.com/iwtcode/hexapodService/internal/services/hexapod_service"
	"github.com/iwtcode/hexapodService/internal/services/hexapod_service/sim"
	"github.com/iwtcode/hexapodService/internal/services/kafka"
	"github.com/iwtcode/hexapodService/internal/services/telemetry"
	"github.com/iwtcode/hexapodService/internal/usecases"
	"github.com/iwtcode/hexapodService/models"

	"go.uber.org/fx"
)

// New создает новый экземпляр fx.App
func New() *fx.App {
	return fx.New(Options())
}

// Options собирает все модули приложения.
func Options() fx.Option {
	return fx.Options(
		ConfigModule,
		LoggingModule,
		TelemetryModule,
		TransportModule,
		ProducerModule,
		ServiceModule,
		UsecaseModule,
		HttpServerModule,
		// Invoke-функции для запуска фоновых задач и хуков жизненного цикла
		fx.Invoke(InvokeTelemetryForwarder),
		fx.Invoke(InvokeRestoreConnections),
	)
}

// --- Модули FX ---

var ConfigModule = fx.Module("config_module",
	fx.Provide(
		config.LoadConfiguration,
		config.ProvideDevices,
		config.ProvideChannels,
	),
)

func ProvideLogger(lc fx.Lifecycle, cfg *config.AppConfig) *logging.Logger {
	loggerCfg := &logging.Config{
		Enabled:    cfg.Logging.Enable,
		Level:      cfg.Logging.Level,
		LogsDir:    cfg.Logging.LogsDir,
		SavingDays: uint(cfg.Logging.SavingDays),
	}
	logger := logging.NewLogger(loggerCfg, "HexapodServiceApp")
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return logger.Close()
		},
	})
	return logger
}

var LoggingModule = fx.Module("logging_module",
	fx.Provide(ProvideLogger),
)

// ProvideAggregator создает агрегатор по каталогу каналов.
func ProvideAggregator(cfg *config.AppConfig, specs []models.ChannelSpec, logger *logging.Logger) (interfaces.ChannelAggregator, error) {
	return aggregator.NewAggregator(specs, cfg.AggregatorWindow, logger)
}

// ProvideBroker создает брокер телеметрии и закрывает его при остановке.
func ProvideBroker(lc fx.Lifecycle, cfg *config.AppConfig, logger *logging.Logger) interfaces.TelemetryBroker {
	broker := telemetry.NewBroker(cfg.SubscriberBuffer, logger)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			broker.Close()
			return nil
		},
	})
	return broker
}

var TelemetryModule = fx.Module("telemetry_module",
	fx.Provide(
		ProvideAggregator,
		ProvideBroker,
	),
)

// ProvideTransport выбирает транспорт устройств по конфигурации.
func ProvideTransport(cfg *config.AppConfig, logger *logging.Logger) (interfaces.DeviceTransport, error) {
	switch cfg.Hexapod.Transport {
	case "sim", "":
		opts := sim.DefaultOptions()
		opts.Latency = config.Millis(cfg.Hexapod.SimLatencyMs)
		logger.Info("Using simulated hexapod transport", "latency", opts.Latency)
		return sim.NewTransport(opts), nil
	default:
		return nil, fmt.Errorf("unsupported hexapod transport %q", cfg.Hexapod.Transport)
	}
}

var TransportModule = fx.Module("transport_module",
	fx.Provide(ProvideTransport),
)

// ProvideProducer создает продюсера Kafka и закрывает его при остановке.
func ProvideProducer(lc fx.Lifecycle, cfg *config.AppConfig, logger *logging.Logger) (interfaces.KafkaService, error) {
	producer, err := kafka.NewKafkaProducer(cfg, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return producer.Close()
		},
	})
	return producer, nil
}

func ProvideForwarder(cfg *config.AppConfig, broker interfaces.TelemetryBroker, producer interfaces.KafkaService, logger *logging.Logger) *kafka.Forwarder {
	return kafka.NewForwarder(broker, producer, cfg.SubscriberBuffer, logger)
}

var ProducerModule = fx.Module("producer_module",
	fx.Provide(
		ProvideProducer,
		ProvideForwarder,
	),
)

// ProvideHexapodService создает сервис и отключает все сессии при остановке.
func ProvideHexapodService(
	lc fx.Lifecycle,
	cfg *config.AppConfig,
	transport interfaces.DeviceTransport,
	aggregator interfaces.ChannelAggregator,
	broker interfaces.TelemetryBroker,
	logger *logging.Logger,
) interfaces.HexapodService {
	svc := hexapod_service.NewHexapodService(transport, aggregator, broker, hexapod_service.NewServiceOptions(cfg), logger)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Info("Disconnecting all hexapods...")
			if err := svc.ShutdownAll(); err != nil {
				logger.Error("Some sessions did not stop cleanly", "error", err)
			}
			return nil
		},
	})
	return svc
}

var ServiceModule = fx.Module("service_module",
	fx.Provide(ProvideHexapodService),
)

var UsecaseModule = fx.Module("usecases_module",
	fx.Provide(
		usecases.NewJogStepCatalog,
		usecases.NewUsecases,
	),
)

var HttpServerModule = fx.Module("http_server_module",
	fx.Provide(
		handlers.NewHandler,
		handlers.ProvideRouter,
	),
	fx.Invoke(InvokeHttpServer),
)

// InvokeTelemetryForwarder запускает пересылку телеметрии в Kafka, если она включена.
func InvokeTelemetryForwarder(lc fx.Lifecycle, cfg *config.AppConfig, forwarder *kafka.Forwarder) {
	if !cfg.Kafka.Enable {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			forwarder.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			forwarder.Stop()
			return nil
		},
	})
}

// InvokeRestoreConnections подключает устройства с autoConnect при старте.
func InvokeRestoreConnections(lc fx.Lifecycle, uc interfaces.Usecases, devices *config.Devices, logger *logging.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			auto := 0
			for _, d := range devices.All() {
				if d.AutoConnect {
					auto++
				}
			}
			if auto == 0 {
				logger.Info("No devices marked for auto-connect.")
				return nil
			}

			logger.Info("Restoring hexapod connections...", "devices", auto)
			// Подключение идет в фоне, чтобы недоступное устройство не задерживало старт.
			go func() {
				restored := uc.RestoreConnections(context.Background())
				logger.Info("Connections restored", "restored", restored, "requested", auto)
			}()
			return nil
		},
	})
}

// InvokeHttpServer запускает HTTP-сервер.
func InvokeHttpServer(lc fx.Lifecycle, cfg *config.AppConfig, h http.Handler, logger *logging.Logger) {
	serverAddr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:        serverAddr,
		Handler:     h,
		ReadTimeout: 10 * time.Second,
		// WriteTimeout не задан: поток телеметрии по WebSocket живет дольше запроса.
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("HTTP Server is starting", "address", serverAddr)
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("Failed to start server", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Stopping HTTP server...")
			return server.Shutdown(ctx)
		},
	})
}
