package sync

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

type SyncController struct {
	Service SyncService
}

func NewSyncController(service SyncService) *SyncController {
	return &SyncController{Service: service}
}

// SyncFromPanel godoc
// @Summary Import resources and connections from the panel store
// @Tags sync
// @Produce json
// @Success 200 {object} SyncRun
// @Failure 500 {object} map[string]interface{}
// @Router /api/sync/panel [post]
func (c *SyncController) SyncFromPanel(ctx *fiber.Ctx) error {
	ctxt, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	run, err := c.Service.SyncFromPanel(ctxt)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(run)
}

// ListRuns godoc
// @Summary List recent panel sync runs
// @Tags sync
// @Produce json
// @Param limit query int false "Max rows returned"
// @Success 200 {array} SyncRun
// @Router /api/sync/runs [get]
func (c *SyncController) ListRuns(ctx *fiber.Ctx) error {
	limit := int64(ctx.QueryInt("limit", 20))

	ctxt, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	runs, err := c.Service.ListRecentRuns(ctxt, limit)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(runs)
}
