package interfaces

import (
	"context"

	"github.com/iwtcode/hexapodService/internal/domain/models"
	pub "github.com/iwtcode/hexapodService/models"
)

// Usecases - это агрегирующий интерфейс для всех use cases
type Usecases interface {
	ListDevices() []models.DeviceStatus
	Connect(ctx context.Context, name string) (pub.SessionInfo, error)
	Disconnect(name string) error
	GetSession(name string) (pub.SessionInfo, error)
	RestoreConnections(ctx context.Context) int

	ReadPosition(ctx context.Context, name string) (pub.Vector6, error)
	Jog(ctx context.Context, name string, req models.JogRequest) (models.JogResult, error)
	Move(ctx context.Context, name string, vector pub.Vector6) error

	JogSteps() models.JogStepsResponse
	SelectJogStep(index int) (models.JogStepsResponse, error)

	Channels() []models.ChannelState
	Channel(name string) (models.ChannelState, error)
	SetChannelTarget(name string, target float64) (models.ChannelState, error)

	Subscribe(device string) TelemetrySubscription
}
