package services

import (
	"context"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"crm-system/internal/authz"
	"crm-system/internal/entities"
	"crm-system/internal/repositories"
	"crm-system/pkg/constants"
	apperrors "crm-system/pkg/errors"
	"crm-system/pkg/eventbus"
	"crm-system/pkg/filestorage"
	"crm-system/pkg/utils"
)

type AttachmentServiceInterface interface {
	Upload(ctx context.Context, actor authz.Actor, kind entities.OwnerKind, ownerID string, file io.ReadSeeker, fileName string, size int64) (*entities.Attachment, error)
	List(ctx context.Context, actor authz.Actor, kind entities.OwnerKind, ownerID string) ([]entities.Attachment, error)
	URL(ctx context.Context, actor authz.Actor, id string) (string, error)
	Delete(ctx context.Context, actor authz.Actor, id string) error
}

type AttachmentService struct {
	attachmentRepo repositories.AttachmentRepositoryInterface
	owners         owners
	storage        filestorage.FileStorageInterface
	policy         *authz.Policy
	bus            eventbus.Publisher
	maxSizeMB      int64
	logger         *zap.Logger
	now            func() time.Time
}

func NewAttachmentService(
	attachmentRepo repositories.AttachmentRepositoryInterface,
	requestRepo repositories.RequestRepositoryInterface,
	clientRepo repositories.ClientRepositoryInterface,
	storage filestorage.FileStorageInterface,
	policy *authz.Policy,
	bus eventbus.Publisher,
	maxSizeMB int64,
	logger *zap.Logger,
) AttachmentServiceInterface {
	return &AttachmentService{
		attachmentRepo: attachmentRepo,
		owners:         owners{requests: requestRepo, clients: clientRepo},
		storage:        storage,
		policy:         policy,
		bus:            bus,
		maxSizeMB:      maxSizeMB,
		logger:         logger,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

func (s *AttachmentService) Upload(ctx context.Context, actor authz.Actor, kind entities.OwnerKind, ownerID string, file io.ReadSeeker, fileName string, size int64) (*entities.Attachment, error) {
	owner, err := s.owners.find(ctx, kind, ownerID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(actor, authz.ActionUpdate, owner); err != nil {
		return nil, err
	}

	mimeType, err := utils.DetectAndValidateFile(file, size, s.maxSizeMB, utils.AllowedAttachmentMimeTypes)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error(), map[string]string{"file": filepath.Base(fileName)})
	}

	prefix := constants.UploadContextClient
	if kind == entities.OwnerRequest {
		prefix = constants.UploadContextRequest
	}
	key, err := s.storage.Save(ctx, file, size, fileName, mimeType, prefix.String())
	if err != nil {
		s.logger.Error("failed to store attachment", zap.String("ownerID", ownerID), zap.Error(err))
		return nil, err
	}

	requestID, clientID := ownerRefs(kind, ownerID)
	attachment := &entities.Attachment{
		ID:           uuid.NewString(),
		RequestID:    requestID,
		ClientID:     clientID,
		FileName:     filepath.Base(fileName),
		StorageKey:   key,
		MimeType:     mimeType,
		SizeBytes:    size,
		UploadedByID: actor.ID,
		CreatedAt:    s.now(),
	}
	if err := s.attachmentRepo.Create(ctx, attachment); err != nil {
		if delErr := s.storage.Delete(ctx, key); delErr != nil {
			s.logger.Warn("orphaned attachment blob", zap.String("key", key), zap.Error(delErr))
		}
		return nil, err
	}

	publishAudit(ctx, s.bus, actor.ID, constants.AuditActionUpload, constants.AuditTargetAttachment, attachment.ID,
		map[string]interface{}{"owner": kind, "ownerId": ownerID, "fileName": attachment.FileName}, attachment.CreatedAt)
	return attachment, nil
}

func (s *AttachmentService) List(ctx context.Context, actor authz.Actor, kind entities.OwnerKind, ownerID string) ([]entities.Attachment, error) {
	owner, err := s.owners.find(ctx, kind, ownerID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(actor, authz.ActionView, owner); err != nil {
		return nil, err
	}
	return s.attachmentRepo.ListByOwner(ctx, kind, ownerID)
}

func (s *AttachmentService) URL(ctx context.Context, actor authz.Actor, id string) (string, error) {
	attachment, err := s.authorized(ctx, actor, authz.ActionView, id)
	if err != nil {
		return "", err
	}
	return s.storage.URL(ctx, attachment.StorageKey)
}

func (s *AttachmentService) Delete(ctx context.Context, actor authz.Actor, id string) error {
	attachment, err := s.authorized(ctx, actor, authz.ActionUpdate, id)
	if err != nil {
		return err
	}
	if err := s.attachmentRepo.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.storage.Delete(ctx, attachment.StorageKey); err != nil {
		s.logger.Warn("orphaned attachment blob", zap.String("key", attachment.StorageKey), zap.Error(err))
	}

	publishAudit(ctx, s.bus, actor.ID, constants.AuditActionDelete, constants.AuditTargetAttachment, id,
		map[string]interface{}{"fileName": attachment.FileName}, s.now())
	return nil
}

// authorized loads the attachment and checks action against its owner.
func (s *AttachmentService) authorized(ctx context.Context, actor authz.Actor, action authz.Action, id string) (*entities.Attachment, error) {
	attachment, err := s.attachmentRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	kind, ownerID := entities.OwnerClient, utils.StringOrEmpty(attachment.ClientID)
	if attachment.RequestID != nil {
		kind, ownerID = entities.OwnerRequest, *attachment.RequestID
	}
	owner, err := s.owners.find(ctx, kind, ownerID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(actor, action, owner); err != nil {
		return nil, err
	}
	return attachment, nil
}
