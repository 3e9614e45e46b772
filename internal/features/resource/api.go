package resource

import (
	"voicepool/internal/config"
	"voicepool/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type ResourceApi struct {
	controller *ResourceController
	config     *config.Config
}

func NewResourceApi(controller *ResourceController, config *config.Config) *ResourceApi {
	return &ResourceApi{
		controller: controller,
		config:     config,
	}
}

func (h *ResourceApi) Setup(app *fiber.App) {
	auth := middleware.AuthMiddleware(h.config.SkipAuth)

	resources := app.Group("/api/resources", auth)
	resources.Post("/", h.controller.ProvisionResource)
	resources.Get("/", h.controller.ListResources)
	resources.Get("/:id", h.controller.GetResource)

	connections := app.Group("/api/connections", auth)
	connections.Post("/", h.controller.Connect)
	connections.Get("/", h.controller.ListConnections)
	connections.Delete("/:id", h.controller.Disconnect)
}
