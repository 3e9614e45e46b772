package allocator

import (
	"voicepool/internal/config"
	"voicepool/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type AllocatorApi struct {
	controller *AllocatorController
	config     *config.Config
}

func NewAllocatorApi(controller *AllocatorController, config *config.Config) *AllocatorApi {
	return &AllocatorApi{
		controller: controller,
		config:     config,
	}
}

func (h *AllocatorApi) Setup(app *fiber.App) {
	group := app.Group("/api/allocator", middleware.AuthMiddleware(h.config.SkipAuth))
	group.Post("/select", h.controller.SelectCredential)
}
