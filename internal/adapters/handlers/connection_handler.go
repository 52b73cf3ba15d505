package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListDevices возвращает список настроенных устройств с состоянием сессий.
// @Summary Получить список устройств
// @Description Возвращает гексаподы из файла конфигурации и состояние их сессий.
// @Tags Devices
// @Produce json
// @Success 200 {object} map[string]interface{} "Список устройств"
// @Router /devices [get]
func (h *Handler) ListDevices(c *gin.Context) {
	devices := h.usecase.ListDevices()
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"count":   len(devices),
		"devices": devices,
	})
}

// Connect открывает сессию с устройством из конфигурации.
// @Summary Подключиться к устройству
// @Description Выполняет рукопожатие с гексаподом и запускает опрос.
// @Tags Devices
// @Produce json
// @Param name path string true "Имя устройства, например Hex1"
// @Success 200 {object} models.SessionResponse "Сессия открыта"
// @Failure 404 {object} models.ErrorResponse "Устройство не найдено в конфигурации"
// @Failure 409 {object} models.ErrorResponse "Сессия уже активна"
// @Failure 502 {object} models.ErrorResponse "Устройство отклонило подключение"
// @Failure 504 {object} models.ErrorResponse "Таймаут подключения"
// @Router /devices/{name}/connect [post]
func (h *Handler) Connect(c *gin.Context) {
	name := c.Param("name")
	h.logger.Info("Attempting to connect", "device", name)

	info, err := h.usecase.Connect(c.Request.Context(), name)
	if err != nil {
		h.DeviceError(c, err)
		return
	}

	h.logger.Info("Successfully connected", "device", name, "sessionID", info.SessionID)
	c.JSON(http.StatusOK, gin.H{"status": "ok", "session": info})
}

// Disconnect закрывает сессию устройства.
// @Summary Отключиться от устройства
// @Description Останавливает опрос и закрывает соединение. Повторный вызов не является ошибкой.
// @Tags Devices
// @Produce json
// @Param name path string true "Имя устройства"
// @Success 200 {object} models.MessageResponse "Сессия закрыта"
// @Failure 500 {object} models.ErrorResponse "Операции не завершились за отведенное время"
// @Router /devices/{name}/connect [delete]
func (h *Handler) Disconnect(c *gin.Context) {
	name := c.Param("name")
	h.logger.Info("Attempting to disconnect", "device", name)

	if err := h.usecase.Disconnect(name); err != nil {
		h.DeviceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": name + " disconnected",
	})
}

// GetSession возвращает снимок сессии устройства.
// @Summary Получить состояние сессии
// @Tags Devices
// @Produce json
// @Param name path string true "Имя устройства"
// @Success 200 {object} models.SessionResponse "Снимок сессии"
// @Failure 404 {object} models.ErrorResponse "Сессия не найдена"
// @Router /devices/{name} [get]
func (h *Handler) GetSession(c *gin.Context) {
	info, err := h.usecase.GetSession(c.Param("name"))
	if err != nil {
		h.DeviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "session": info})
}
