package health

import (
	"voicepool/internal/config"
	"voicepool/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type HealthApi struct {
	controller *HealthController
	config     *config.Config
}

func NewHealthApi(controller *HealthController, config *config.Config) *HealthApi {
	return &HealthApi{
		controller: controller,
		config:     config,
	}
}

func (h *HealthApi) Setup(app *fiber.App) {
	auth := middleware.AuthMiddleware(h.config.SkipAuth)

	app.Post("/api/health-checks/run", auth, h.controller.RunHealthChecks)
}
