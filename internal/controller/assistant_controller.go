package controller

import (
	"doc-assistant-be/internal/dto"
	"doc-assistant-be/internal/pkg/serverutils"
	"doc-assistant-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

// IAssistantController is the entry point for the messaging transport.
type IAssistantController interface {
	RegisterRoutes(r fiber.Router, jwtMiddleware fiber.Handler)
	SendMessage(ctx *fiber.Ctx) error
	SendAttachment(ctx *fiber.Ctx) error
}

type assistantController struct {
	service service.IAssistantService
}

func NewAssistantController(service service.IAssistantService) IAssistantController {
	return &assistantController{service: service}
}

// RegisterRoutes mounts the transport endpoints. Attachments make the server
// read local files, so they need a token.
func (c *assistantController) RegisterRoutes(r fiber.Router, jwtMiddleware fiber.Handler) {
	h := r.Group("/assistant/v1")
	h.Post("/messages", c.SendMessage)
	h.Post("/attachments", jwtMiddleware, c.SendAttachment)
}

func (c *assistantController) SendMessage(ctx *fiber.Ctx) error {
	var req dto.SendMessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Process(ctx.UserContext(), req.SenderId, req.Text)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Message processed", res))
}

func (c *assistantController) SendAttachment(ctx *fiber.Ctx) error {
	var req dto.SendAttachmentRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	// Tokens issued to a single user may only attach for that user.
	if owner, ok := ctx.Locals("sender_id").(string); ok && owner != "" && owner != req.SenderId {
		return fiber.NewError(fiber.StatusForbidden, "Token does not belong to this sender")
	}

	res, err := c.service.HandleAttachment(ctx.UserContext(), req.SenderId, req.LocalPath, req.Filename)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Attachment processed", res))
}
