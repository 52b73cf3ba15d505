package models

import pub "github.com/iwtcode/hexapodService/models"

// DeviceStatus - устройство из конфигурации вместе с состоянием его сессии.
type DeviceStatus struct {
	Name        string           `json:"name"`
	Address     string           `json:"ip_address"`
	Port        int              `json:"port"`
	AutoConnect bool             `json:"auto_connect"`
	State       pub.SessionState `json:"state"`
	SessionID   string           `json:"session_id,omitempty"`
}

// JogRequest определяет структуру запроса на толчковое перемещение.
type JogRequest struct {
	Axis      string   `json:"axis" binding:"required"`                 // "X".."W"
	Direction int      `json:"direction" binding:"required,oneof=-1 1"` // +1 или -1
	Step      *float64 `json:"step,omitempty" binding:"omitempty,gt=0"` // мм, по умолчанию выбранный шаг
}

// JogResult описывает выполненное толчковое перемещение.
type JogResult struct {
	Device string      `json:"device"`
	Axis   string      `json:"axis"`
	Step   float64     `json:"step"`
	Vector pub.Vector6 `json:"vector"`
}

// MoveRequest определяет структуру запроса на относительное перемещение.
type MoveRequest struct {
	Vector *pub.Vector6 `json:"vector" binding:"required"`
}

// JogStepRequest выбирает шаг из каталога.
type JogStepRequest struct {
	Index *int `json:"index" binding:"required,gte=0"`
}

// ChannelTargetRequest задает целевое значение канала.
type ChannelTargetRequest struct {
	Target *float64 `json:"target" binding:"required"`
}
