package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"crm-system/internal/authz"
	"crm-system/internal/entities"
	"crm-system/internal/repositories"
	"crm-system/pkg/constants"
	apperrors "crm-system/pkg/errors"
	"crm-system/pkg/eventbus"
)

type CommentServiceInterface interface {
	Add(ctx context.Context, actor authz.Actor, kind entities.OwnerKind, ownerID, body string) (*entities.Comment, error)
	List(ctx context.Context, actor authz.Actor, kind entities.OwnerKind, ownerID string) ([]entities.Comment, error)
}

type CommentService struct {
	txManager   repositories.TxManagerInterface
	commentRepo repositories.CommentRepositoryInterface
	owners      owners
	policy      *authz.Policy
	bus         eventbus.Publisher
	logger      *zap.Logger
	now         func() time.Time
}

func NewCommentService(
	txManager repositories.TxManagerInterface,
	commentRepo repositories.CommentRepositoryInterface,
	requestRepo repositories.RequestRepositoryInterface,
	clientRepo repositories.ClientRepositoryInterface,
	policy *authz.Policy,
	bus eventbus.Publisher,
	logger *zap.Logger,
) CommentServiceInterface {
	return &CommentService{
		txManager:   txManager,
		commentRepo: commentRepo,
		owners:      owners{requests: requestRepo, clients: clientRepo},
		policy:      policy,
		bus:         bus,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Add stores the comment and bumps the owner's updatedAt in one transaction.
func (s *CommentService) Add(ctx context.Context, actor authz.Actor, kind entities.OwnerKind, ownerID, body string) (*entities.Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("comment body is empty", map[string]string{"body": "required"})
	}

	now := s.now()
	requestID, clientID := ownerRefs(kind, ownerID)
	comment := &entities.Comment{
		ID:        uuid.NewString(),
		RequestID: requestID,
		ClientID:  clientID,
		AuthorID:  actor.ID,
		Body:      body,
		CreatedAt: now,
	}

	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		owner, err := s.owners.lockInTx(ctx, tx, kind, ownerID)
		if err != nil {
			return err
		}
		if err := s.policy.Authorize(actor, authz.ActionUpdate, owner); err != nil {
			return err
		}
		if err := s.commentRepo.CreateInTx(ctx, tx, comment); err != nil {
			return err
		}
		return s.owners.touchInTx(ctx, tx, kind, ownerID, now)
	})
	if err != nil {
		logFailure(s.logger, "add comment", err, zap.String("owner", string(kind)), zap.String("ownerID", ownerID))
		return nil, err
	}

	publishAudit(ctx, s.bus, actor.ID, constants.AuditActionComment, ownerTarget(kind), ownerID,
		map[string]interface{}{"commentId": comment.ID}, now)
	return comment, nil
}

func (s *CommentService) List(ctx context.Context, actor authz.Actor, kind entities.OwnerKind, ownerID string) ([]entities.Comment, error) {
	owner, err := s.owners.find(ctx, kind, ownerID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(actor, authz.ActionView, owner); err != nil {
		return nil, err
	}
	return s.commentRepo.ListByOwner(ctx, kind, ownerID)
}
