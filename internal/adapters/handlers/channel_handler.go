package handlers

import (
	"net/http"

	"github.com/iwtcode/hexapodService/internal/domain/models"

	"github.com/gin-gonic/gin"
)

// ListChannels возвращает все каналы агрегатора.
// @Summary Получить каналы
// @Description Возвращает окно значений, среднее, цель и вердикт по каждому каналу.
// @Tags Channels
// @Produce json
// @Success 200 {object} map[string]interface{} "Список каналов"
// @Router /channels [get]
func (h *Handler) ListChannels(c *gin.Context) {
	channels := h.usecase.Channels()
	c.JSON(http.StatusOK, gin.H{"status": "ok", "count": len(channels), "channels": channels})
}

// GetChannel возвращает один канал.
// @Summary Получить канал
// @Tags Channels
// @Produce json
// @Param name path string true "Имя канала, например PICH5"
// @Success 200 {object} models.ChannelState "Состояние канала"
// @Failure 422 {object} models.ErrorResponse "Канал не найден в каталоге"
// @Router /channels/{name} [get]
func (h *Handler) GetChannel(c *gin.Context) {
	state, err := h.usecase.Channel(c.Param("name"))
	if err != nil {
		h.DeviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "channel": state})
}

// SetChannelTarget задает целевое значение канала.
// @Summary Задать цель канала
// @Tags Channels
// @Accept json
// @Produce json
// @Param name path string true "Имя канала"
// @Param input body models.ChannelTargetRequest true "Целевое значение"
// @Success 200 {object} models.ChannelState "Обновленный канал"
// @Failure 400 {object} models.ErrorResponse "Неверный формат запроса"
// @Failure 422 {object} models.ErrorResponse "Канал не найден в каталоге"
// @Router /channels/{name}/target [put]
func (h *Handler) SetChannelTarget(c *gin.Context) {
	var req models.ChannelTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err, "Invalid request payload")
		return
	}

	state, err := h.usecase.SetChannelTarget(c.Param("name"), *req.Target)
	if err != nil {
		h.DeviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "channel": state})
}
