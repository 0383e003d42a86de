package service

import (
	"time"

	"service-resolver-be/internal/dto"
	"service-resolver-be/internal/pkg/logger"
)

type IAdminService interface {
	GetLogs(level string, limit, offset int) ([]dto.LogListResponse, error)
	GetLogById(id string) (*dto.LogDetailResponse, error)
}

type adminService struct {
	log logger.ILogger
}

func NewAdminService(log logger.ILogger) IAdminService {
	return &adminService{log: log}
}

func (s *adminService) GetLogs(level string, limit, offset int) ([]dto.LogListResponse, error) {
	entries, err := s.log.GetLogs(level, limit, offset)
	if err != nil {
		return nil, err
	}

	out := make([]dto.LogListResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, toLogListResponse(entry))
	}
	return out, nil
}

func (s *adminService) GetLogById(id string) (*dto.LogDetailResponse, error) {
	entry, err := s.log.GetLogById(id)
	if err != nil {
		return nil, err
	}
	return &dto.LogDetailResponse{
		LogListResponse: toLogListResponse(*entry),
		Details:         entry.Details,
	}, nil
}

func toLogListResponse(entry logger.LogEntry) dto.LogListResponse {
	createdAt, err := time.Parse("2006-01-02T15:04:05.000Z0700", entry.Timestamp)
	if err != nil {
		createdAt, _ = time.Parse(time.RFC3339, entry.Timestamp)
	}
	return dto.LogListResponse{
		Id:        entry.Id,
		Level:     entry.Level,
		Module:    entry.Module,
		Message:   entry.Message,
		CreatedAt: createdAt,
	}
}
