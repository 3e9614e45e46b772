package resource

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
)

type ResourceController struct {
	Service ResourceService
}

func NewResourceController(service ResourceService) *ResourceController {
	return &ResourceController{Service: service}
}

// ProvisionResource godoc
// @Summary Register a resource and place it on a credential
// @Tags resources
// @Accept json
// @Produce json
// @Param resource body Resource true "Resource"
// @Success 201 {object} Resource
// @Failure 400 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/resources [post]
func (c *ResourceController) ProvisionResource(ctx *fiber.Ctx) error {
	var res Resource
	if err := ctx.BodyParser(&res); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	ctxt, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	created, err := c.Service.ProvisionResource(ctxt, &res)
	if err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return ctx.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		}
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.Status(fiber.StatusCreated).JSON(created)
}

// ListResources godoc
// @Summary List resources
// @Tags resources
// @Produce json
// @Param kind query string false "Filter by kind"
// @Param credential_id query string false "Filter by assigned credential"
// @Param owner_id query string false "Filter by owner"
// @Success 200 {array} Resource
// @Router /api/resources [get]
func (c *ResourceController) ListResources(ctx *fiber.Ctx) error {
	filter := make(map[string]interface{})
	if kind := ctx.Query("kind"); kind != "" {
		filter["kind"] = kind
	}
	if credID := ctx.Query("credential_id"); credID != "" {
		filter["assigned_credential_id"] = credID
	}
	if ownerID := ctx.Query("owner_id"); ownerID != "" {
		filter["owner_id"] = ownerID
	}

	ctxt, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resources, err := c.Service.ListResources(ctxt, filter)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(resources)
}

// GetResource godoc
// @Summary Get one resource
// @Tags resources
// @Produce json
// @Param id path string true "Resource ID"
// @Success 200 {object} Resource
// @Failure 404 {object} map[string]interface{}
// @Router /api/resources/{id} [get]
func (c *ResourceController) GetResource(ctx *fiber.Ctx) error {
	ctxt, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	res, err := c.Service.GetResource(ctxt, ctx.Params("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(res)
}

type connectRequest struct {
	PhoneNumberID string `json:"phone_number_id"`
	AgentID       string `json:"agent_id"`
}

// Connect godoc
// @Summary Route a phone number to an agent
// @Tags connections
// @Accept json
// @Produce json
// @Param request body connectRequest true "Connection"
// @Success 201 {object} Connection
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/connections [post]
func (c *ResourceController) Connect(ctx *fiber.Ctx) error {
	var req connectRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.PhoneNumberID == "" || req.AgentID == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "phone_number_id and agent_id are required"})
	}

	ctxt, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := c.Service.Connect(ctxt, req.PhoneNumberID, req.AgentID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.Status(fiber.StatusCreated).JSON(conn)
}

// ListConnections godoc
// @Summary List phone to agent connections
// @Tags connections
// @Produce json
// @Success 200 {array} Connection
// @Router /api/connections [get]
func (c *ResourceController) ListConnections(ctx *fiber.Ctx) error {
	ctxt, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conns, err := c.Service.ListConnections(ctxt)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(conns)
}

// Disconnect godoc
// @Summary Remove a phone number's route
// @Tags connections
// @Produce json
// @Param id path string true "Phone number resource ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/connections/{id} [delete]
func (c *ResourceController) Disconnect(ctx *fiber.Ctx) error {
	ctxt, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := c.Service.Disconnect(ctxt, ctx.Params("id")); err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(fiber.Map{"status": "disconnected"})
}
