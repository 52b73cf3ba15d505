package handlers

import (
	"net/http"

	"github.com/iwtcode/hexapodService/internal/domain/models"

	"github.com/gin-gonic/gin"
)

// ReadPosition читает текущую позицию устройства.
// @Summary Прочитать позицию
// @Description Выполняет чтение позиции через очередь запросов сессии.
// @Tags Motion
// @Produce json
// @Param name path string true "Имя устройства"
// @Success 200 {object} map[string]interface{} "Позиция по осям X, Y, Z, U, V, W"
// @Failure 404 {object} models.ErrorResponse "Сессия не найдена"
// @Failure 409 {object} models.ErrorResponse "Устройство не подключено"
// @Failure 504 {object} models.ErrorResponse "Таймаут чтения"
// @Router /devices/{name}/position [get]
func (h *Handler) ReadPosition(c *gin.Context) {
	name := c.Param("name")
	pos, err := h.usecase.ReadPosition(c.Request.Context(), name)
	if err != nil {
		h.DeviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "device": name, "position": pos})
}

// Jog выполняет толчковое перемещение по одной оси.
// @Summary Толчковое перемещение
// @Description Смещает одну ось на шаг в заданном направлении. Без шага используется выбранный в каталоге.
// @Tags Motion
// @Accept json
// @Produce json
// @Param name path string true "Имя устройства"
// @Param input body models.JogRequest true "Ось, направление и шаг"
// @Success 200 {object} map[string]interface{} "Выполненное перемещение"
// @Failure 400 {object} models.ErrorResponse "Неверный формат запроса"
// @Failure 409 {object} models.ErrorResponse "Устройство не подключено или занято"
// @Failure 422 {object} models.ErrorResponse "Команда отклонена"
// @Router /devices/{name}/jog [post]
func (h *Handler) Jog(c *gin.Context) {
	var req models.JogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err, "Invalid request payload")
		return
	}

	name := c.Param("name")
	result, err := h.usecase.Jog(c.Request.Context(), name, req)
	if err != nil {
		h.DeviceError(c, err)
		return
	}

	h.logger.Info("Jog executed", "device", name, "axis", result.Axis, "step", result.Step, "direction", req.Direction)
	c.JSON(http.StatusOK, gin.H{"status": "ok", "jog": result})
}

// Move выполняет относительное перемещение по всем осям одной командой.
// @Summary Относительное перемещение
// @Tags Motion
// @Accept json
// @Produce json
// @Param name path string true "Имя устройства"
// @Param input body models.MoveRequest true "Вектор смещения X, Y, Z, U, V, W"
// @Success 200 {object} models.MessageResponse "Команда принята"
// @Failure 400 {object} models.ErrorResponse "Неверный формат запроса"
// @Failure 409 {object} models.ErrorResponse "Устройство не подключено"
// @Failure 422 {object} models.ErrorResponse "Команда отклонена"
// @Router /devices/{name}/move [post]
func (h *Handler) Move(c *gin.Context) {
	var req models.MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err, "Invalid request payload")
		return
	}

	name := c.Param("name")
	if err := h.usecase.Move(c.Request.Context(), name, *req.Vector); err != nil {
		h.DeviceError(c, err)
		return
	}

	h.logger.Info("Move executed", "device", name, "vector", *req.Vector)
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "move accepted"})
}

// GetJogSteps возвращает каталог шагов.
// @Summary Получить каталог шагов
// @Tags Jog
// @Produce json
// @Success 200 {object} models.JogStepsResponse "Шаги и выбранный шаг"
// @Router /jog/steps [get]
func (h *Handler) GetJogSteps(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "jog": h.usecase.JogSteps()})
}

// SelectJogStep выбирает шаг по индексу.
// @Summary Выбрать шаг
// @Tags Jog
// @Accept json
// @Produce json
// @Param input body models.JogStepRequest true "Индекс шага"
// @Success 200 {object} models.JogStepsResponse "Обновленный каталог"
// @Failure 400 {object} models.ErrorResponse "Неверный формат запроса"
// @Failure 422 {object} models.ErrorResponse "Индекс вне диапазона"
// @Router /jog/steps [put]
func (h *Handler) SelectJogStep(c *gin.Context) {
	var req models.JogStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err, "Invalid request payload")
		return
	}

	steps, err := h.usecase.SelectJogStep(*req.Index)
	if err != nil {
		h.DeviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "jog": steps})
}
