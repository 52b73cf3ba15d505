package usecases

import (
	"github.com/iwtcode/hexapodService/internal/config"
	"github.com/iwtcode/hexapodService/internal/interfaces"
	"github.com/iwtcode/hexapodService/internal/middleware/logging"
	pub "github.com/iwtcode/hexapodService/models"
)

// NewUsecases - конструктор для UseCases
func NewUsecases(
	hexapodSvc interfaces.HexapodService,
	devices *config.Devices,
	aggregator interfaces.ChannelAggregator,
	broker interfaces.TelemetryBroker,
	catalog *pub.JogStepCatalog,
	cfg *config.AppConfig,
	logger *logging.Logger,
) interfaces.Usecases {
	return NewUsecase(hexapodSvc, devices, aggregator, broker, catalog, cfg.SubscriberBuffer, logger)
}

// NewJogStepCatalog создает каталог шагов с выбором из конфигурации.
func NewJogStepCatalog(cfg *config.AppConfig) (*pub.JogStepCatalog, error) {
	return pub.NewJogStepCatalog(pub.DefaultJogSteps, cfg.Jog.DefaultStepIndex)
}
