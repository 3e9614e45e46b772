package health

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

type HealthController struct {
	Service HealthService
}

func NewHealthController(service HealthService) *HealthController {
	return &HealthController{Service: service}
}

// RunHealthChecks godoc
// @Summary Probe every active credential
// @Tags health
// @Produce json
// @Success 200 {array} CheckResult
// @Failure 500 {object} map[string]interface{}
// @Router /api/health-checks/run [post]
func (c *HealthController) RunHealthChecks(ctx *fiber.Ctx) error {
	ctxt, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	results, err := c.Service.PerformHealthChecks(ctxt)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(results)
}
