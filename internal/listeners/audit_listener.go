package listeners

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"crm-system/internal/events"
	"crm-system/internal/services"
	"crm-system/pkg/eventbus"
)

// AuditListener appends audit entries after the business transaction committed.
// A failed write is logged and never reaches the caller.
type AuditListener struct {
	auditService services.AuditServiceInterface
	logger       *zap.Logger
}

func NewAuditListener(auditService services.AuditServiceInterface, logger *zap.Logger) *AuditListener {
	return &AuditListener{auditService: auditService, logger: logger}
}

func (l *AuditListener) Register(bus *eventbus.Bus) {
	bus.Subscribe(events.AuditRecordedName, l.handle)
	l.logger.Info("AuditListener subscribed", zap.String("event", events.AuditRecordedName))
}

func (l *AuditListener) handle(ctx context.Context, event eventbus.Event) error {
	e, ok := event.(events.AuditEvent)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}
	if _, err := l.auditService.Record(ctx, e); err != nil {
		l.logger.Error("failed to record audit entry",
			zap.String("action", e.ActionType),
			zap.String("targetType", e.TargetType),
			zap.String("targetID", e.TargetID),
			zap.Error(err),
		)
		return err
	}
	return nil
}
