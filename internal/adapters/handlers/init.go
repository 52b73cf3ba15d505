package handlers

import (
	"net/http"

	"github.com/iwtcode/hexapodService/internal/config"
	"github.com/iwtcode/hexapodService/internal/interfaces"
	"github.com/iwtcode/hexapodService/internal/middleware/logging"

	"github.com/gin-gonic/gin"
)

// Handler - структура для обработчиков HTTP-запросов
type Handler struct {
	usecase interfaces.Usecases
	logger  *logging.Logger
}

// NewHandler создает новый экземпляр Handler
func NewHandler(usecase interfaces.Usecases, logger *logging.Logger) *Handler {
	return &Handler{
		usecase: usecase,
		logger:  logger.WithPrefix("HANDLER"),
	}
}

// ProvideRouter настраивает и возвращает HTTP-роутер
func ProvideRouter(h *Handler, cfg *config.AppConfig) http.Handler {
	gin.SetMode(cfg.GinMode)

	router := gin.Default()

	// Logger Middleware
	router.Use(LoggingMiddleware(h.logger))

	// Группа API v1
	v1 := router.Group("/api/v1")
	{
		v1.GET("/devices", h.ListDevices)

		device := v1.Group("/devices/:name")
		{
			device.GET("", h.GetSession)
			device.POST("/connect", h.Connect)
			device.DELETE("/connect", h.Disconnect)
			device.GET("/position", h.ReadPosition)
			device.POST("/jog", h.Jog)
			device.POST("/move", h.Move)
		}

		jog := v1.Group("/jog")
		{
			jog.GET("/steps", h.GetJogSteps)
			jog.PUT("/steps", h.SelectJogStep)
		}

		channels := v1.Group("/channels")
		{
			channels.GET("", h.ListChannels)
			channels.GET("/:name", h.GetChannel)
			channels.PUT("/:name/target", h.SetChannelTarget)
		}

		v1.GET("/telemetry/ws", h.TelemetryStream)
	}

	return router
}
