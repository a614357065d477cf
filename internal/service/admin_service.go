package service

import (
	"context"

	"confusion-engine-be/internal/dto"
	"confusion-engine-be/internal/pkg/logger"
)

type IAdminService interface {
	GetSystemLogs(ctx context.Context, query dto.LogQueryRequest) ([]dto.LogListResponse, error)
	GetLogDetail(ctx context.Context, logId string) (*dto.LogDetailResponse, error)
}

type adminService struct {
	logger logger.ILogger
}

func NewAdminService(log logger.ILogger) IAdminService {
	return &adminService{logger: log}
}

func (s *adminService) GetSystemLogs(_ context.Context, query dto.LogQueryRequest) ([]dto.LogListResponse, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = 50
	}
	entries, err := s.logger.GetLogs(query.Level, limit, query.Offset)
	if err != nil {
		return nil, err
	}
	res := make([]dto.LogListResponse, 0, len(entries))
	for _, e := range entries {
		res = append(res, toLogListResponse(e))
	}
	return res, nil
}

func (s *adminService) GetLogDetail(_ context.Context, logId string) (*dto.LogDetailResponse, error) {
	e, err := s.logger.GetLogById(logId)
	if err != nil {
		return nil, err
	}
	return &dto.LogDetailResponse{LogListResponse: toLogListResponse(*e), Details: e.Details}, nil
}

func toLogListResponse(e logger.LogEntry) dto.LogListResponse {
	return dto.LogListResponse{
		Id:        e.Id,
		Level:     e.Level,
		Module:    e.Module,
		Message:   e.Message,
		Timestamp: e.Timestamp,
	}
}
