package migration

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
)

type MigrationController struct {
	Service     MigrationService
	AttemptRepo AttemptRepository
}

func NewMigrationController(service MigrationService, attemptRepo AttemptRepository) *MigrationController {
	return &MigrationController{Service: service, AttemptRepo: attemptRepo}
}

type migrateResourceRequest struct {
	ResourceID       string `json:"resource_id"`
	DestCredentialID string `json:"dest_credential_id"`
	DryRun           bool   `json:"dry_run"`
	Force            bool   `json:"force"`
}

// MigrateResource godoc
// @Summary Migrate one resource to a destination credential
// @Tags migrations
// @Accept json
// @Produce json
// @Param request body migrateResourceRequest true "Migration request"
// @Success 200 {object} MigrationResult
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/migrations/resource [post]
func (c *MigrationController) MigrateResource(ctx *fiber.Ctx) error {
	var req migrateResourceRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.ResourceID == "" || req.DestCredentialID == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "resource_id and dest_credential_id are required"})
	}

	ctxt, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	result, err := c.Service.MigrateResource(ctxt, req.ResourceID, req.DestCredentialID, MigrateOptions{
		DryRun: req.DryRun,
		Force:  req.Force,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrResourceNotFound), errors.Is(err, ErrCredentialNotFound):
			return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, ErrCapacityExhausted):
			return ctx.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, ErrNoTargetCredential):
			return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		// The attempt is persisted and replayable; the caller still gets
		// the structured result alongside the failure.
		if result != nil {
			return ctx.Status(fiber.StatusBadGateway).JSON(result)
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(result)
}

// MigrateAllMismatched godoc
// @Summary Migrate every drifted phone number onto its agent's credential
// @Tags migrations
// @Produce json
// @Success 200 {object} common_models.BatchSummary
// @Failure 500 {object} map[string]interface{}
// @Router /api/migrations/all-mismatched [post]
func (c *MigrationController) MigrateAllMismatched(ctx *fiber.Ctx) error {
	ctxt, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	summary, err := c.Service.MigrateAllMismatched(ctxt)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(summary)
}

// MigrateAgentPhoneNumbers godoc
// @Summary Migrate an agent's connected phone numbers onto its credential
// @Tags migrations
// @Produce json
// @Param id path string true "Agent resource ID"
// @Success 200 {object} common_models.BatchSummary
// @Failure 404 {object} map[string]interface{}
// @Router /api/migrations/agents/{id}/phones [post]
func (c *MigrationController) MigrateAgentPhoneNumbers(ctx *fiber.Ctx) error {
	agentID := ctx.Params("id")

	ctxt, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	summary, err := c.Service.MigrateAgentPhoneNumbers(ctxt, agentID)
	if err != nil {
		if errors.Is(err, ErrResourceNotFound) {
			return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(summary)
}

// ListAttempts godoc
// @Summary List migration attempts
// @Tags migrations
// @Produce json
// @Param limit query int false "Max rows returned"
// @Param status query string false "Filter by status"
// @Success 200 {array} MigrationAttempt
// @Router /api/migrations/attempts [get]
func (c *MigrationController) ListAttempts(ctx *fiber.Ctx) error {
	limit := int64(ctx.QueryInt("limit", 100))
	filter := map[string]interface{}{}
	if status := ctx.Query("status"); status != "" {
		filter["status"] = status
	}

	ctxt, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	attempts, err := c.AttemptRepo.List(ctxt, filter, limit)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(attempts)
}
