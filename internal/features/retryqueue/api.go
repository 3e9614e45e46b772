package retryqueue

import (
	"voicepool/internal/config"
	"voicepool/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type RetryQueueApi struct {
	controller *RetryQueueController
	config     *config.Config
}

func NewRetryQueueApi(controller *RetryQueueController, config *config.Config) *RetryQueueApi {
	return &RetryQueueApi{
		controller: controller,
		config:     config,
	}
}

func (h *RetryQueueApi) Setup(app *fiber.App) {
	auth := middleware.AuthMiddleware(h.config.SkipAuth)

	app.Get("/api/retry-queue/status", auth, h.controller.Status)
	app.Post("/api/retry-queue/process", auth, h.controller.Process)
}
