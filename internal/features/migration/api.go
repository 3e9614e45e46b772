package migration

import (
	"voicepool/internal/config"
	"voicepool/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type MigrationApi struct {
	controller *MigrationController
	config     *config.Config
}

func NewMigrationApi(controller *MigrationController, config *config.Config) *MigrationApi {
	return &MigrationApi{
		controller: controller,
		config:     config,
	}
}

func (h *MigrationApi) Setup(app *fiber.App) {
	auth := middleware.AuthMiddleware(h.config.SkipAuth)

	app.Post("/api/migrations/resource", auth, h.controller.MigrateResource)
	app.Post("/api/migrations/all-mismatched", auth, h.controller.MigrateAllMismatched)
	app.Post("/api/migrations/agents/:id/phones", auth, h.controller.MigrateAgentPhoneNumbers)
	app.Get("/api/migrations/attempts", auth, h.controller.ListAttempts)
}
