package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
)

type LedgerController struct {
	Service LedgerService
}

func NewLedgerController(service LedgerService) *LedgerController {
	return &LedgerController{Service: service}
}

// RecalculateCounts godoc
// @Summary Reconcile credential counters
// @Description Recomputes every credential's assigned counts from the resource rows
// @Tags ledger
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/ledger/recalculate [post]
func (c *LedgerController) RecalculateCounts(ctx *fiber.Ctx) error {
	ctxt, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.Service.RecalculateCounts(ctxt); err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(fiber.Map{"status": "reconciled"})
}

// DriftReport godoc
// @Summary System-wide drift report
// @Description Lists every connection's credential consistency, plus unconnected phone numbers
// @Tags ledger
// @Produce json
// @Success 200 {object} DriftReport
// @Failure 500 {object} map[string]interface{}
// @Router /api/drift-report [get]
func (c *LedgerController) DriftReport(ctx *fiber.Ctx) error {
	ctxt, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	report, err := c.Service.SystemWideDriftReport(ctxt)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(report)
}

// ExportDriftReport godoc
// @Summary Download drift report as XLSX
// @Tags ledger
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} binary
// @Failure 500 {object} map[string]interface{}
// @Router /api/drift-report/export [get]
func (c *LedgerController) ExportDriftReport(ctx *fiber.Ctx) error {
	ctxt, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	report, err := c.Service.SystemWideDriftReport(ctxt)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	data, filename, err := ExportDriftReport(report)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	ctx.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	ctx.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	return ctx.Send(data)
}
