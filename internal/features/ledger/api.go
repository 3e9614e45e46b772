package ledger

import (
	"voicepool/internal/config"
	"voicepool/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type LedgerApi struct {
	controller *LedgerController
	config     *config.Config
}

func NewLedgerApi(controller *LedgerController, config *config.Config) *LedgerApi {
	return &LedgerApi{
		controller: controller,
		config:     config,
	}
}

func (h *LedgerApi) Setup(app *fiber.App) {
	auth := middleware.AuthMiddleware(h.config.SkipAuth)

	app.Post("/api/ledger/recalculate", auth, h.controller.RecalculateCounts)
	app.Get("/api/drift-report", auth, h.controller.DriftReport)
	app.Get("/api/drift-report/export", auth, h.controller.ExportDriftReport)
}
