package handlers

import (
	"net/http"
	"time"

	"github.com/iwtcode/hexapodService/internal/domain/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// TelemetryStream передает телеметрию по WebSocket.
// @Summary Поток телеметрии
// @Description Открывает WebSocket и отправляет события позиции, движения, аналоговых входов и состояния. Параметр device ограничивает поток одним устройством.
// @Tags Telemetry
// @Param device query string false "Имя устройства"
// @Success 101 {object} models.TelemetryMessage "Поток событий"
// @Router /telemetry/ws [get]
func (h *Handler) TelemetryStream(c *gin.Context) {
	device := c.Query("device")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket connection", "error", err)
		return
	}
	defer conn.Close()

	sub := h.usecase.Subscribe(device)
	defer sub.Close()
	h.logger.Info("Telemetry subscriber connected", "subscriber", sub.ID(), "device", device)

	closed := make(chan struct{})
	go h.readPump(conn, closed)

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-sub.Events():
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "telemetry stopped"))
				return
			}
			if err := conn.WriteJSON(models.NewTelemetryMessage(ev)); err != nil {
				h.logger.Warn("Failed to write telemetry", "subscriber", sub.ID(), "error", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			h.logger.Info("Telemetry subscriber disconnected", "subscriber", sub.ID(), "dropped", sub.Dropped())
			return
		}
	}
}

// readPump читает входящие кадры, чтобы обрабатывать pong и закрытие соединения.
func (h *Handler) readPump(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)

	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("WebSocket read failed", "error", err)
			}
			return
		}
	}
}
