package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"crm-system/internal/entities"
	"crm-system/internal/events"
	"crm-system/internal/repositories"
	"crm-system/pkg/types"
	"crm-system/pkg/utils"
)

const (
	auditExportMaxRows = 5000
	auditExportSheet   = "Audit"
)

type AuditServiceInterface interface {
	Record(ctx context.Context, event events.AuditEvent) (*entities.AuditLog, error)
	List(ctx context.Context, filter types.Filter) ([]entities.AuditLog, uint64, error)
	Stats(ctx context.Context, top int) (*entities.AuditStats, error)
	Recent(ctx context.Context, limit int) ([]entities.AuditLog, error)
	Export(ctx context.Context, filter types.Filter) ([]byte, error)
}

type AuditService struct {
	auditRepo repositories.AuditRepositoryInterface
	logger    *zap.Logger
}

func NewAuditService(auditRepo repositories.AuditRepositoryInterface, logger *zap.Logger) AuditServiceInterface {
	return &AuditService{auditRepo: auditRepo, logger: logger}
}

func (s *AuditService) Record(ctx context.Context, event events.AuditEvent) (*entities.AuditLog, error) {
	entry := &entities.AuditLog{
		ActionType: event.ActionType,
		TargetType: event.TargetType,
		Details:    event.Details,
		CreatedAt:  event.At,
	}
	if event.ActorID != "" {
		entry.ActorID = utils.StringPtr(event.ActorID)
	}
	if event.TargetID != "" {
		entry.TargetID = utils.StringPtr(event.TargetID)
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	if err := s.auditRepo.Create(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *AuditService) List(ctx context.Context, filter types.Filter) ([]entities.AuditLog, uint64, error) {
	return s.auditRepo.List(ctx, filter)
}

func (s *AuditService) Stats(ctx context.Context, top int) (*entities.AuditStats, error) {
	byAction, err := s.auditRepo.CountBy(ctx, "action_type", top)
	if err != nil {
		return nil, err
	}
	byTarget, err := s.auditRepo.CountBy(ctx, "target_type", top)
	if err != nil {
		return nil, err
	}
	return &entities.AuditStats{ByAction: byAction, ByTarget: byTarget}, nil
}

func (s *AuditService) Recent(ctx context.Context, limit int) ([]entities.AuditLog, error) {
	return s.auditRepo.Recent(ctx, limit)
}

// Export renders the filtered log as an .xlsx workbook, newest first,
// capped at auditExportMaxRows.
func (s *AuditService) Export(ctx context.Context, filter types.Filter) ([]byte, error) {
	filter.Limit = auditExportMaxRows
	filter.Offset = 0
	filter.Page = 1
	entries, _, err := s.auditRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	book := excelize.NewFile()
	defer func() {
		if err := book.Close(); err != nil {
			s.logger.Warn("failed to close workbook", zap.Error(err))
		}
	}()

	if err := book.SetSheetName(book.GetSheetName(0), auditExportSheet); err != nil {
		return nil, err
	}
	header := []interface{}{"ID", "Created At", "Actor", "Action", "Target Type", "Target ID", "Details"}
	if err := book.SetSheetRow(auditExportSheet, "A1", &header); err != nil {
		return nil, err
	}

	for i, e := range entries {
		details := ""
		if len(e.Details) > 0 {
			raw, err := json.Marshal(e.Details)
			if err == nil {
				details = string(raw)
			}
		}
		row := []interface{}{
			e.ID,
			e.CreatedAt.Format(time.RFC3339),
			utils.StringOrEmpty(e.ActorID),
			e.ActionType,
			e.TargetType,
			utils.StringOrEmpty(e.TargetID),
			details,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := book.SetSheetRow(auditExportSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write audit row %d: %w", i+2, err)
		}
	}

	var buf bytes.Buffer
	if err := book.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
