package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"crm-system/internal/authz"
	"crm-system/internal/dto"
	"crm-system/internal/entities"
	"crm-system/internal/repositories"
	"crm-system/pkg/constants"
	apperrors "crm-system/pkg/errors"
	"crm-system/pkg/eventbus"
	"crm-system/pkg/types"
	"crm-system/pkg/utils"
)

type UserServiceInterface interface {
	List(ctx context.Context, filter types.Filter) ([]entities.User, uint64, error)
	FindOne(ctx context.Context, id string) (*entities.User, error)
	Create(ctx context.Context, actor authz.Actor, payload dto.CreateUserDTO) (*entities.User, error)
	Update(ctx context.Context, actor authz.Actor, id string, payload dto.UpdateUserDTO) (*entities.User, error)
	ResolveActor(ctx context.Context, userID string) (authz.Actor, error)
}

type UserService struct {
	userRepo repositories.UserRepositoryInterface
	teams    TeamServiceInterface
	bus      eventbus.Publisher
	logger   *zap.Logger
	now      func() time.Time
}

func NewUserService(
	userRepo repositories.UserRepositoryInterface,
	teams TeamServiceInterface,
	bus eventbus.Publisher,
	logger *zap.Logger,
) UserServiceInterface {
	return &UserService{
		userRepo: userRepo,
		teams:    teams,
		bus:      bus,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *UserService) List(ctx context.Context, filter types.Filter) ([]entities.User, uint64, error) {
	return s.userRepo.List(ctx, filter)
}

func (s *UserService) FindOne(ctx context.Context, id string) (*entities.User, error) {
	return s.userRepo.FindByID(ctx, id)
}

func (s *UserService) Create(ctx context.Context, actor authz.Actor, payload dto.CreateUserDTO) (*entities.User, error) {
	role := constants.Role(payload.Role)
	if !role.IsValid() {
		return nil, apperrors.NewValidationError("unknown role", map[string]string{"role": payload.Role})
	}
	if err := s.ensureLead(ctx, "", payload.AssistantID); err != nil {
		return nil, err
	}

	hash, err := utils.HashPassword(payload.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := &entities.User{
		ID:           uuid.NewString(),
		FullName:     strings.TrimSpace(payload.FullName),
		Email:        strings.ToLower(strings.TrimSpace(payload.Email)),
		Phone:        normalizeOptionalPhone(payload.Phone),
		Role:         role,
		PasswordHash: hash,
		IsActive:     true,
		AssistantID:  payload.AssistantID,
		BaseEntity:   types.BaseEntity{CreatedAt: now, UpdatedAt: now},
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		logFailure(s.logger, "create user", err, zap.String("email", user.Email))
		return nil, err
	}

	if user.AssistantID != nil {
		s.teams.Invalidate(ctx, *user.AssistantID)
	}
	publishAudit(ctx, s.bus, actor.ID, constants.AuditActionCreate, constants.AuditTargetUser, user.ID,
		map[string]interface{}{"email": user.Email, "role": user.Role}, now)
	return user, nil
}

// Update changes profile, role, activity and team link. Moving a user between
// leads invalidates both cached rosters.
func (s *UserService) Update(ctx context.Context, actor authz.Actor, id string, payload dto.UpdateUserDTO) (*entities.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	previousLead := utils.StringOrEmpty(user.AssistantID)

	if payload.Has("fullName") {
		if !payload.FullName.Valid {
			return nil, apperrors.NewValidationError("fullName cannot be null", map[string]string{"fullName": "required"})
		}
		user.FullName = strings.TrimSpace(payload.FullName.String)
	}
	if payload.Has("email") {
		if !payload.Email.Valid {
			return nil, apperrors.NewValidationError("email cannot be null", map[string]string{"email": "required"})
		}
		user.Email = strings.ToLower(strings.TrimSpace(payload.Email.String))
	}
	if payload.Has("phone") {
		user.Phone = normalizeOptionalPhone(payload.Phone.Ptr())
	}
	if payload.Has("role") && payload.Role.Valid {
		role := constants.Role(payload.Role.String)
		if !role.IsValid() {
			return nil, apperrors.NewValidationError("unknown role", map[string]string{"role": payload.Role.String})
		}
		user.Role = role
	}
	if payload.Has("isActive") && payload.IsActive.Valid {
		user.IsActive = payload.IsActive.Bool
	}
	if payload.Has("password") && payload.Password.Valid {
		hash, err := utils.HashPassword(payload.Password.String)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}
	if payload.Has("assistantId") {
		lead := payload.AssistantID.Ptr()
		if err := s.ensureLead(ctx, id, lead); err != nil {
			return nil, err
		}
		user.AssistantID = lead
	}
	user.UpdatedAt = s.now()

	if err := s.userRepo.Update(ctx, user); err != nil {
		logFailure(s.logger, "update user", err, zap.String("userID", id))
		return nil, err
	}

	if newLead := utils.StringOrEmpty(user.AssistantID); newLead != previousLead {
		s.teams.Invalidate(ctx, previousLead, newLead)
	}
	publishAudit(ctx, s.bus, actor.ID, constants.AuditActionUpdate, constants.AuditTargetUser, id,
		map[string]interface{}{"fields": fieldNames(payload.Fields)}, user.UpdatedAt)
	return user, nil
}

// ResolveActor turns an authenticated user id into the Actor used by every
// service call. Unknown ids are unauthorized; inactive users are forbidden.
func (s *UserService) ResolveActor(ctx context.Context, userID string) (authz.Actor, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return authz.Actor{}, apperrors.ErrUnauthorized
	}
	if err != nil {
		return authz.Actor{}, err
	}
	if !user.IsActive {
		return authz.Actor{}, apperrors.ErrUserInactive
	}
	return authz.Actor{ID: user.ID, Role: user.Role, AssistantID: user.AssistantID}, nil
}

func (s *UserService) ensureLead(ctx context.Context, userID string, leadID *string) error {
	if leadID == nil {
		return nil
	}
	if *leadID == userID {
		return apperrors.NewValidationError("a user cannot be their own team lead", map[string]string{"assistantId": *leadID})
	}
	_, err := s.userRepo.FindByID(ctx, *leadID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return apperrors.NewValidationError("team lead does not exist", map[string]string{"assistantId": *leadID})
	}
	return err
}
