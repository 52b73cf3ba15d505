package models

import pub "github.com/iwtcode/hexapodService/models"

// ErrorResponse представляет стандартный ответ с ошибкой.
type ErrorResponse struct {
	Status string `json:"status" example:"error"`
	Error  struct {
		Code    int    `json:"code" example:"404"`
		Message string `json:"message" example:"Сессия не найдена"`
	} `json:"error"`
}

// MessageResponse представляет стандартный успешный ответ с сообщением.
type MessageResponse struct {
	Status  string `json:"status" example:"ok"`
	Message string `json:"message" example:"Hex1 disconnected"`
}

// JogStepsResponse - каталог шагов и выбранный шаг.
type JogStepsResponse struct {
	Steps    []float64 `json:"steps"`
	Selected int       `json:"selected"`
	Step     float64   `json:"step"`
}

// SessionResponse - ответ с состоянием сессии.
type SessionResponse struct {
	Status  string          `json:"status" example:"ok"`
	Session pub.SessionInfo `json:"session"`
}
