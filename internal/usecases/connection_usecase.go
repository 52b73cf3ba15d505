package usecases

import (
	"context"

	"github.com/iwtcode/hexapodService/internal/config"
	"github.com/iwtcode/hexapodService/internal/domain/models"
	"github.com/iwtcode/hexapodService/internal/interfaces"
	"github.com/iwtcode/hexapodService/internal/middleware/logging"
	pub "github.com/iwtcode/hexapodService/models"
	apperrors "github.com/iwtcode/hexapodService/pkg/errors"
)

type Usecase struct {
	hexapodSvc       interfaces.HexapodService
	devices          *config.Devices
	aggregator       interfaces.ChannelAggregator
	broker           interfaces.TelemetryBroker
	catalog          *pub.JogStepCatalog
	subscriberBuffer int
	logger           *logging.Logger
}

func NewUsecase(
	hexapodSvc interfaces.HexapodService,
	devices *config.Devices,
	aggregator interfaces.ChannelAggregator,
	broker interfaces.TelemetryBroker,
	catalog *pub.JogStepCatalog,
	subscriberBuffer int,
	logger *logging.Logger,
) interfaces.Usecases {
	return &Usecase{
		hexapodSvc:       hexapodSvc,
		devices:          devices,
		aggregator:       aggregator,
		broker:           broker,
		catalog:          catalog,
		subscriberBuffer: subscriberBuffer,
		logger:           logger.WithPrefix("USECASE"),
	}
}

func (u *Usecase) ListDevices() []models.DeviceStatus {
	devices := u.devices.All()
	statuses := make([]models.DeviceStatus, 0, len(devices))
	for _, d := range devices {
		status := models.DeviceStatus{
			Name:        d.Name,
			Address:     d.Address,
			Port:        d.Port,
			AutoConnect: d.AutoConnect,
			State:       pub.StateDisconnected,
		}
		if info, err := u.hexapodSvc.GetSession(d.Name); err == nil {
			status.State = info.State
			status.SessionID = info.SessionID
		}
		statuses = append(statuses, status)
	}
	return statuses
}

func (u *Usecase) Connect(ctx context.Context, name string) (pub.SessionInfo, error) {
	conn, ok := u.devices.Find(name)
	if !ok {
		return pub.SessionInfo{}, apperrors.NewRegistryError(apperrors.ErrNotFound, name)
	}
	return u.hexapodSvc.OpenSession(ctx, conn)
}

func (u *Usecase) Disconnect(name string) error {
	return u.hexapodSvc.CloseSession(name)
}

func (u *Usecase) GetSession(name string) (pub.SessionInfo, error) {
	return u.hexapodSvc.GetSession(name)
}

// RestoreConnections подключает устройства с autoConnect и возвращает число успешных подключений.
func (u *Usecase) RestoreConnections(ctx context.Context) int {
	restored := 0
	for _, d := range u.devices.All() {
		if !d.AutoConnect {
			continue
		}
		if _, err := u.hexapodSvc.OpenSession(ctx, d); err != nil {
			u.logger.Error("Failed to restore connection", "device", d.Name, "endpoint", d.Endpoint(), "error", err)
			continue
		}
		restored++
	}
	return restored
}
