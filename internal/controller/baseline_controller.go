package controller

import (
	"confusion-engine-be/internal/entity"
	"confusion-engine-be/internal/pkg/serverutils"
	"confusion-engine-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IBaselineController interface {
	RegisterRoutes(r fiber.Router)
	Show(ctx *fiber.Ctx) error
	Recompute(ctx *fiber.Ctx) error
}

type baselineController struct {
	service service.IBaselineService
}

func NewBaselineController(service service.IBaselineService) IBaselineController {
	return &baselineController{service: service}
}

func (c *baselineController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/baselines/v1")
	h.Post("/recompute", c.Recompute)
	h.Get("/:segmentId", c.Show)
}

func (c *baselineController) Show(ctx *fiber.Ctx) error {
	contentType := entity.ContentType(ctx.Query("content_type", string(entity.ContentText)))
	if contentType != entity.ContentText && contentType != entity.ContentVideo {
		return fiber.NewError(fiber.StatusBadRequest, "content_type must be text or video")
	}

	res := c.service.Get(ctx.Context(), ctx.Params("segmentId"), contentType)
	return ctx.JSON(serverutils.SuccessResponse("Success get baseline", res))
}

// Recompute is the trigger used by the external daily scheduler.
func (c *baselineController) Recompute(ctx *fiber.Ctx) error {
	res, err := c.service.Recompute(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Baselines recomputed", res))
}
