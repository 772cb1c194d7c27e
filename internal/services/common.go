package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"crm-system/internal/events"
	apperrors "crm-system/pkg/errors"
	"crm-system/pkg/eventbus"
)

func publishAudit(ctx context.Context, bus eventbus.Publisher, actorID, action, targetType, targetID string, details map[string]interface{}, at time.Time) {
	if bus == nil {
		return
	}
	bus.Publish(ctx, events.AuditEvent{
		ActorID:    actorID,
		ActionType: action,
		TargetType: targetType,
		TargetID:   targetID,
		Details:    details,
		At:         at,
	})
}

// logFailure keeps expected business rejections at debug level.
func logFailure(logger *zap.Logger, op string, err error, fields ...zap.Field) {
	fields = append(fields, zap.Error(err))
	var httpErr *apperrors.HttpError
	if errors.As(err, &httpErr) {
		logger.Debug(op+" rejected", fields...)
		return
	}
	logger.Error("failed to "+op, fields...)
}

func fieldNames(fields map[string]bool) []string {
	names := make([]string, 0, len(fields))
	for name, sent := range fields {
		if sent {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
