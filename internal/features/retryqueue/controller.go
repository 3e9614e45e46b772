package retryqueue

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

type RetryQueueController struct {
	Service RetryQueueService
}

func NewRetryQueueController(service RetryQueueService) *RetryQueueController {
	return &RetryQueueController{Service: service}
}

// Status godoc
// @Summary Retry queue status
// @Tags retry-queue
// @Produce json
// @Success 200 {object} QueueStatus
// @Failure 500 {object} map[string]interface{}
// @Router /api/retry-queue/status [get]
func (c *RetryQueueController) Status(ctx *fiber.Ctx) error {
	ctxt, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	status, err := c.Service.Status(ctxt)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(status)
}

// Process godoc
// @Summary Replay every queued migration attempt once
// @Tags retry-queue
// @Produce json
// @Success 200 {object} common_models.BatchSummary
// @Failure 500 {object} map[string]interface{}
// @Router /api/retry-queue/process [post]
func (c *RetryQueueController) Process(ctx *fiber.Ctx) error {
	ctxt, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	summary, err := c.Service.ProcessQueue(ctxt)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(summary)
}
