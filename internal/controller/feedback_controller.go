package controller

import (
	"confusion-engine-be/internal/dto"
	"confusion-engine-be/internal/pkg/serverutils"
	"confusion-engine-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IFeedbackController interface {
	RegisterRoutes(r fiber.Router)
	Ingest(ctx *fiber.Ctx) error
	RegisterExplanation(ctx *fiber.Ctx) error
	GetWeights(ctx *fiber.Ctx) error
}

type feedbackController struct {
	service service.IFeedbackService
}

func NewFeedbackController(service service.IFeedbackService) IFeedbackController {
	return &feedbackController{service: service}
}

func (c *feedbackController) RegisterRoutes(r fiber.Router) {
	r.Post("/feedback/v1", c.Ingest)
	r.Post("/explanations/v1", c.RegisterExplanation)
	r.Get("/weights/v1", c.GetWeights)
}

func (c *feedbackController) Ingest(ctx *fiber.Ctx) error {
	var req dto.IngestFeedbackRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if len(req.Signals) == 0 || len(req.Signals) > 1000 {
		return fiber.NewError(fiber.StatusBadRequest, "signals must hold between 1 and 1000 items")
	}

	res := c.service.Ingest(ctx.Context(), req.Signals)
	return ctx.JSON(serverutils.SuccessResponse("Feedback processed", res))
}

func (c *feedbackController) RegisterExplanation(ctx *fiber.Ctx) error {
	var req dto.RegisterExplanationRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.RegisterExplanation(ctx.Context(), req)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Explanation registered", res))
}

func (c *feedbackController) GetWeights(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Success get weights", c.service.Weights(ctx.Context())))
}
