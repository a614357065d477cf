package controller

import (
	"errors"

	"confusion-engine-be/internal/dto"
	"confusion-engine-be/internal/entity"
	"confusion-engine-be/internal/pkg/serverutils"
	"confusion-engine-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IEventController interface {
	RegisterRoutes(r fiber.Router)
	Ingest(ctx *fiber.Ctx) error
	CloseSegment(ctx *fiber.Ctx) error
}

type eventController struct {
	service service.IIngestionService
}

func NewEventController(service service.IIngestionService) IEventController {
	return &eventController{service: service}
}

func (c *eventController) RegisterRoutes(r fiber.Router) {
	r.Post("/events/v1", c.Ingest)
	r.Post("/segments/v1/close", c.CloseSegment)
}

// Ingest only validates the envelope; individual events are validated and
// counted by the ingestion service so one bad record never rejects a batch.
func (c *eventController) Ingest(ctx *fiber.Ctx) error {
	var req dto.IngestEventsRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if len(req.Events) == 0 || len(req.Events) > 1000 {
		return fiber.NewError(fiber.StatusBadRequest, "events must hold between 1 and 1000 items")
	}

	res := c.service.Ingest(ctx.Context(), req.Events)
	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Events accepted", res))
}

func (c *eventController) CloseSegment(ctx *fiber.Ctx) error {
	var req dto.CloseSegmentRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	terminal, err := c.service.CloseSegment(ctx.UserContext(), entity.WindowKey{LearnerId: req.LearnerId, SegmentId: req.SegmentId})
	if errors.Is(err, service.ErrIngestionClosed) {
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	}
	if err != nil {
		return err
	}

	res := dto.CloseSegmentResponse{}
	if terminal != nil {
		res.Closed = true
		res.DwellTimeMs = float64(terminal.DwellSpan.Milliseconds())
		res.RewindCount = terminal.RewindCount
	}
	return ctx.JSON(serverutils.SuccessResponse("Segment closed", res))
}
