package settings

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

type SettingsController struct {
	Service SettingsService
}

func NewSettingsController(service SettingsService) *SettingsController {
	return &SettingsController{Service: service}
}

// GetSettings godoc
// @Summary Get pool settings
// @Tags settings
// @Produce json
// @Success 200 {object} Settings
// @Failure 500 {object} map[string]interface{}
// @Router /api/settings [get]
func (c *SettingsController) GetSettings(ctx *fiber.Ctx) error {
	ctxt, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := c.Service.GetSettings(ctxt)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(s)
}

// UpdateSettings godoc
// @Summary Update pool settings
// @Tags settings
// @Accept json
// @Produce json
// @Param settings body Settings true "Settings"
// @Success 200 {object} Settings
// @Failure 400 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/settings [put]
func (c *SettingsController) UpdateSettings(ctx *fiber.Ctx) error {
	var s Settings
	if err := ctx.BodyParser(&s); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	ctxt, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := c.Service.UpdateSettings(ctxt, &s); err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(s)
}
