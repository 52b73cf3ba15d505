package interfaces

import (
	"context"

	"github.com/iwtcode/hexapodService/models"
)

// DeviceTransport устанавливает соединение с контроллером гексапода.
// Реализация протокола производителя находится за пределами ядра.
type DeviceTransport interface {
	Connect(ctx context.Context, address string, port int) (DeviceHandle, error)
}

// DeviceHandle - открытое соединение с одним устройством.
// Ядро гарантирует не более одного одновременного запроса на соединение.
type DeviceHandle interface {
	MoveRelative(ctx context.Context, vector models.Vector6) error
	ReadPosition(ctx context.Context) (models.Vector6, error)
	ReadMotionFlags(ctx context.Context) (models.MotionFlags, error)
	ReadAnalog(ctx context.Context) (models.AnalogReading, error)
	Close() error
}
