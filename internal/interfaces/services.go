package interfaces

import (
	"context"

	"github.com/iwtcode/hexapodService/models"
)

// HexapodService - это агрегирующий интерфейс для всей бизнес-логики.
type HexapodService interface {
	SessionManager
	MotionManager
}

// SessionManager определяет контракт для управления сессиями устройств.
type SessionManager interface {
	OpenSession(ctx context.Context, conn models.DeviceConnection) (models.SessionInfo, error)
	CloseSession(name string) error
	GetSession(name string) (models.SessionInfo, error)
	ListSessions() []models.SessionInfo
	ShutdownAll() error
}

// MotionManager определяет контракт для команд движения и чтения позиции.
type MotionManager interface {
	MoveRelative(ctx context.Context, name string, vector models.Vector6) error
	ReadPosition(ctx context.Context, name string) (models.Vector6, error)
	Jog(ctx context.Context, name string, axis models.Axis, direction int, step float64) error
}
