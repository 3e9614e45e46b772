package system

import (
	"context"
	"time"

	"voicepool/internal/common/api"
	"voicepool/internal/database"

	"github.com/gofiber/fiber/v2"
)

type StatusApi struct {
	db *database.MongodbDB
}

func NewStatusApi(db *database.MongodbDB) api.Route {
	return &StatusApi{db: db}
}

func (h *StatusApi) Setup(app *fiber.App) {
	app.Get("/healthz", h.healthz)
}

func (h *StatusApi) healthz(ctx *fiber.Ctx) error {
	ctxt, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := h.db.DB.Client().Ping(ctxt, nil); err != nil {
		return ctx.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "degraded",
			"error":  err.Error(),
		})
	}

	return ctx.JSON(fiber.Map{"status": "ok"})
}
