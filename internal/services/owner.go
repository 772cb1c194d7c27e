package services

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"crm-system/internal/entities"
	"crm-system/internal/repositories"
	"crm-system/pkg/constants"
	apperrors "crm-system/pkg/errors"
)

// owners loads and touches the request or client that a comment or
// attachment hangs off.
type owners struct {
	requests repositories.RequestRepositoryInterface
	clients  repositories.ClientRepositoryInterface
}

func (o owners) find(ctx context.Context, kind entities.OwnerKind, id string) (interface{}, error) {
	switch kind {
	case entities.OwnerRequest:
		return o.requests.FindByID(ctx, id)
	case entities.OwnerClient:
		return o.clients.FindByID(ctx, id)
	}
	return nil, apperrors.NewValidationError("unknown owner kind", map[string]string{"owner": string(kind)})
}

func (o owners) lockInTx(ctx context.Context, tx pgx.Tx, kind entities.OwnerKind, id string) (interface{}, error) {
	switch kind {
	case entities.OwnerRequest:
		return o.requests.FindForUpdateInTx(ctx, tx, id)
	case entities.OwnerClient:
		return o.clients.FindForUpdateInTx(ctx, tx, id)
	}
	return nil, apperrors.NewValidationError("unknown owner kind", map[string]string{"owner": string(kind)})
}

func (o owners) touchInTx(ctx context.Context, tx pgx.Tx, kind entities.OwnerKind, id string, at time.Time) error {
	if kind == entities.OwnerRequest {
		return o.requests.TouchInTx(ctx, tx, id, at)
	}
	return o.clients.TouchInTx(ctx, tx, id, at)
}

func ownerRefs(kind entities.OwnerKind, id string) (requestID, clientID *string) {
	ownerID := id
	if kind == entities.OwnerRequest {
		return &ownerID, nil
	}
	return nil, &ownerID
}

func ownerTarget(kind entities.OwnerKind) string {
	if kind == entities.OwnerRequest {
		return constants.AuditTargetRequest
	}
	return constants.AuditTargetClient
}
