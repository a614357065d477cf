package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"confusion-engine-be/internal/constant"
	"confusion-engine-be/internal/dto"
	"confusion-engine-be/internal/entity"
	"confusion-engine-be/internal/mapper"
	"confusion-engine-be/internal/metrics"
	"confusion-engine-be/internal/pkg/logger"
	"confusion-engine-be/internal/pkg/serverutils"
	"confusion-engine-be/internal/repository/contract"
	"confusion-engine-be/pkg/weights"
)

var (
	ErrInvalidFeedback    = errors.New("invalid feedback signal")
	ErrUnknownExplanation = errors.New("unknown explanation")
	ErrInvalidExplanation = errors.New("invalid explanation")
)

type IFeedbackService interface {
	Ingest(ctx context.Context, reqs []dto.FeedbackSignalRequest) dto.IngestFeedbackResponse
	// Apply attributes the signal to its explanation's heuristics and feeds the
	// weight controller for that explanation's content type.
	Apply(signal entity.FeedbackSignal) ([]weights.Adjustment, error)
	RegisterExplanation(ctx context.Context, req dto.RegisterExplanationRequest) (*dto.ExplanationResponse, error)
	Register(explanation entity.Explanation) error
	Weights(ctx context.Context) *dto.WeightTableResponse
}

type feedbackService struct {
	controller   *weights.Controller
	explanations contract.ExplanationRepository
	mapper       *mapper.EventMapper
	weightMapper *mapper.HeuristicWeightMapper
	logger       logger.ILogger
}

func NewFeedbackService(controller *weights.Controller, explanations contract.ExplanationRepository, log logger.ILogger) IFeedbackService {
	return &feedbackService{
		controller:   controller,
		explanations: explanations,
		mapper:       mapper.NewEventMapper(),
		weightMapper: mapper.NewHeuristicWeightMapper(),
		logger:       log,
	}
}

func (s *feedbackService) Ingest(_ context.Context, reqs []dto.FeedbackSignalRequest) dto.IngestFeedbackResponse {
	now := time.Now()
	res := dto.IngestFeedbackResponse{Adjustments: []dto.WeightAdjustmentResponse{}}
	for _, req := range reqs {
		if err := serverutils.ValidateRequest(req); err != nil {
			s.rejectInvalid(req.ExplanationId, err)
			res.Invalid++
			continue
		}
		adjustments, err := s.Apply(s.mapper.FeedbackToEntity(req, now))
		switch {
		case errors.Is(err, ErrUnknownExplanation):
			res.Unknown++
			continue
		case err != nil:
			res.Invalid++
			continue
		}
		res.Accepted++
		for _, a := range adjustments {
			res.Adjustments = append(res.Adjustments, dto.WeightAdjustmentResponse{
				Heuristic:   a.Heuristic,
				ContentType: string(a.ContentType),
				Direction:   a.Direction,
				From:        a.From,
				To:          a.To,
			})
		}
	}
	return res
}

func (s *feedbackService) rejectInvalid(explanationID string, err error) {
	metrics.RecordInvalid("feedback")
	s.logger.Warn(constant.ModuleFeedback, "Dropping malformed feedback", map[string]interface{}{
		"explanation_id": explanationID,
		"error":          err.Error(),
	})
}

func (s *feedbackService) Apply(signal entity.FeedbackSignal) ([]weights.Adjustment, error) {
	switch {
	case signal.ExplanationId == "" || signal.LearnerId == "":
		err := fmt.Errorf("%w: missing identifier", ErrInvalidFeedback)
		s.rejectInvalid(signal.ExplanationId, err)
		return nil, err
	case signal.Outcome != entity.OutcomePositive && signal.Outcome != entity.OutcomeNegative && signal.Outcome != entity.OutcomeNeutral:
		err := fmt.Errorf("%w: unknown outcome %q", ErrInvalidFeedback, signal.Outcome)
		s.rejectInvalid(signal.ExplanationId, err)
		return nil, err
	}

	explanation, ok := s.explanations.Get(signal.ExplanationId)
	if !ok {
		s.logger.Warn(constant.ModuleFeedback, "Feedback for untracked explanation", map[string]interface{}{
			"explanation_id": signal.ExplanationId,
			"learner_id":     signal.LearnerId,
		})
		return nil, ErrUnknownExplanation
	}

	return s.controller.Apply(signal, explanation.TriggeringHeuristics, explanation.ContentType), nil
}

func (s *feedbackService) RegisterExplanation(_ context.Context, req dto.RegisterExplanationRequest) (*dto.ExplanationResponse, error) {
	explanation := s.mapper.ExplanationToEntity(req, time.Now())
	if err := s.Register(explanation); err != nil {
		return nil, err
	}
	res := s.mapper.ExplanationToResponse(explanation)
	return &res, nil
}

func (s *feedbackService) Register(explanation entity.Explanation) error {
	if explanation.ExplanationId == "" || len(explanation.TriggeringHeuristics) == 0 {
		metrics.RecordInvalid("explanation")
		return fmt.Errorf("%w: id and heuristics are required", ErrInvalidExplanation)
	}
	if explanation.ContentType != entity.ContentText && explanation.ContentType != entity.ContentVideo {
		metrics.RecordInvalid("explanation")
		return fmt.Errorf("%w: unknown content type %q", ErrInvalidExplanation, explanation.ContentType)
	}
	s.explanations.Save(explanation)
	return nil
}

func (s *feedbackService) Weights(_ context.Context) *dto.WeightTableResponse {
	table := s.controller.Snapshot()
	res := &dto.WeightTableResponse{Version: table.Version()}
	for _, w := range table.All() {
		res.Weights = append(res.Weights, s.weightMapper.ToResponse(w))
	}
	return res
}
