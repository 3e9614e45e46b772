package allocator

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
)

type AllocatorController struct {
	Service AllocatorService
}

func NewAllocatorController(service AllocatorService) *AllocatorController {
	return &AllocatorController{Service: service}
}

// SelectCredential godoc
// @Summary Select a credential for a new or relocating resource
// @Description Runs the allocation strategy chain and returns the least-loaded eligible credential
// @Tags allocator
// @Accept json
// @Produce json
// @Param request body SelectionRequest true "Selection request"
// @Success 200 {object} credential.Credential
// @Failure 400 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{} "No capacity in pool"
// @Failure 500 {object} map[string]interface{}
// @Router /api/allocator/select [post]
func (c *AllocatorController) SelectCredential(ctx *fiber.Ctx) error {
	var req SelectionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	ctxt, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cred, err := c.Service.SelectCredential(ctxt, req)
	if err != nil {
		if errors.Is(err, ErrNoCapacity) {
			return ctx.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(cred)
}
