package credential

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
)

type CredentialController struct {
	Service CredentialService
}

func NewCredentialController(service CredentialService) *CredentialController {
	return &CredentialController{Service: service}
}

// CreateCredential godoc
// @Summary Register a new pool credential
// @Tags credentials
// @Accept json
// @Produce json
// @Param credential body Credential true "Credential"
// @Success 201 {object} Credential
// @Failure 400 {object} map[string]interface{}
// @Router /api/credentials [post]
func (c *CredentialController) CreateCredential(ctx *fiber.Ctx) error {
	var cred Credential
	if err := ctx.BodyParser(&cred); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	// Secret never round-trips through JSON; pull it out of the raw body.
	var withSecret struct {
		Secret string `json:"secret"`
	}
	if err := ctx.BodyParser(&withSecret); err == nil {
		cred.Secret = withSecret.Secret
	}

	ctxt, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := c.Service.CreateCredential(ctxt, &cred); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.Status(fiber.StatusCreated).JSON(cred)
}

// ListCredentials godoc
// @Summary List pool credentials
// @Tags credentials
// @Produce json
// @Param active query boolean false "Filter by active flag"
// @Success 200 {array} Credential
// @Router /api/credentials [get]
func (c *CredentialController) ListCredentials(ctx *fiber.Ctx) error {
	filter := make(map[string]interface{})
	if active := ctx.Query("active"); active != "" {
		filter["is_active"] = active == "true"
	}

	ctxt, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	creds, err := c.Service.ListCredentials(ctxt, filter)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(creds)
}

// GetCredential godoc
// @Summary Get one credential
// @Tags credentials
// @Produce json
// @Param id path string true "Credential ID"
// @Success 200 {object} Credential
// @Failure 404 {object} map[string]interface{}
// @Router /api/credentials/{id} [get]
func (c *CredentialController) GetCredential(ctx *fiber.Ctx) error {
	ctxt, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cred, err := c.Service.GetCredential(ctxt, ctx.Params("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(cred)
}

// UpdateCredential godoc
// @Summary Update label, threshold or active flag
// @Tags credentials
// @Accept json
// @Produce json
// @Param id path string true "Credential ID"
// @Param updates body map[string]interface{} true "Fields to update"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/credentials/{id} [put]
func (c *CredentialController) UpdateCredential(ctx *fiber.Ctx) error {
	var updates map[string]interface{}
	if err := ctx.BodyParser(&updates); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	ctxt, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := c.Service.UpdateCredential(ctxt, ctx.Params("id"), updates); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(fiber.Map{"status": "updated"})
}

// DeactivateCredential godoc
// @Summary Stop new assignments to a credential
// @Tags credentials
// @Produce json
// @Param id path string true "Credential ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/credentials/{id}/deactivate [post]
func (c *CredentialController) DeactivateCredential(ctx *fiber.Ctx) error {
	ctxt, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := c.Service.Deactivate(ctxt, ctx.Params("id")); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(fiber.Map{"status": "deactivated"})
}

// DeleteCredential godoc
// @Summary Delete a drained credential
// @Tags credentials
// @Produce json
// @Param id path string true "Credential ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/credentials/{id} [delete]
func (c *CredentialController) DeleteCredential(ctx *fiber.Ctx) error {
	ctxt, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := c.Service.DeleteCredential(ctxt, ctx.Params("id")); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, ErrNotDrained):
			return ctx.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(fiber.Map{"status": "deleted"})
}
