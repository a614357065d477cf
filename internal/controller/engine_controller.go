package controller

import (
	"errors"

	"confusion-engine-be/internal/dto"
	"confusion-engine-be/internal/pkg/serverutils"
	"confusion-engine-be/internal/service"
	"confusion-engine-be/pkg/baseline"
	"confusion-engine-be/pkg/weights"

	"github.com/gofiber/fiber/v2"
)

type IEngineController interface {
	RegisterRoutes(r fiber.Router)
	GetStats(ctx *fiber.Ctx) error
	GetPoints(ctx *fiber.Ctx) error
}

type engineController struct {
	engine     service.IEngineService
	ingestion  service.IIngestionService
	confusion  service.IConfusionService
	controller *weights.Controller
	baselines  *baseline.Store
}

func NewEngineController(
	engine service.IEngineService,
	ingestion service.IIngestionService,
	confusion service.IConfusionService,
	controller *weights.Controller,
	baselines *baseline.Store,
) IEngineController {
	return &engineController{
		engine:     engine,
		ingestion:  ingestion,
		confusion:  confusion,
		controller: controller,
		baselines:  baselines,
	}
}

func (c *engineController) RegisterRoutes(r fiber.Router) {
	r.Get("/engine/v1/stats", c.GetStats)
	r.Get("/confusion/v1/points/:segmentId", c.GetPoints)
}

func (c *engineController) GetStats(ctx *fiber.Ctx) error {
	stats := c.engine.Stats()
	res := dto.EngineStatsResponse{
		Lanes:            []dto.LaneStatsResponse{},
		ActiveWindows:    stats.ActiveWindows,
		Evaluations:      stats.Evaluations,
		BudgetMisses:     stats.BudgetMisses,
		InvalidEvents:    c.ingestion.InvalidCount(),
		PointsEmitted:    stats.Publisher.Points,
		ScoresEmitted:    stats.Publisher.Scores,
		SinkDrops:        stats.Publisher.Dropped,
		WeightVersion:    c.controller.Snapshot().Version(),
		TrackedBaselines: len(c.baselines.Snapshot()),
	}
	for _, l := range c.ingestion.Stats() {
		res.Lanes = append(res.Lanes, dto.LaneStatsResponse{Lane: l.Lane, Depth: l.Depth, Dropped: l.Dropped})
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get engine stats", res))
}

func (c *engineController) GetPoints(ctx *fiber.Ctx) error {
	var query dto.ConfusionPointQuery
	if err := ctx.QueryParser(&query); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid query")
	}
	if err := serverutils.ValidateRequest(query); err != nil {
		return err
	}

	res, err := c.confusion.ListPoints(ctx.Context(), ctx.Params("segmentId"), query)
	if errors.Is(err, service.ErrHistoryDisabled) {
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	}
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get confusion points", res))
}
