package credential

import (
	"voicepool/internal/config"
	"voicepool/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type CredentialApi struct {
	controller *CredentialController
	config     *config.Config
}

func NewCredentialApi(controller *CredentialController, config *config.Config) *CredentialApi {
	return &CredentialApi{
		controller: controller,
		config:     config,
	}
}

func (h *CredentialApi) Setup(app *fiber.App) {
	creds := app.Group("/api/credentials", middleware.AuthMiddleware(h.config.SkipAuth))

	creds.Post("/", h.controller.CreateCredential)
	creds.Get("/", h.controller.ListCredentials)
	creds.Get("/:id", h.controller.GetCredential)
	creds.Put("/:id", h.controller.UpdateCredential)
	creds.Post("/:id/deactivate", h.controller.DeactivateCredential)
	creds.Delete("/:id", h.controller.DeleteCredential)
}
