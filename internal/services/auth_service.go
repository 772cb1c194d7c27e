package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"crm-system/internal/dto"
	"crm-system/internal/entities"
	"crm-system/internal/repositories"
	"crm-system/pkg/config"
	"crm-system/pkg/constants"
	apperrors "crm-system/pkg/errors"
	"crm-system/pkg/eventbus"
	"crm-system/pkg/service"
	"crm-system/pkg/utils"
)

type AuthServiceInterface interface {
	Login(ctx context.Context, payload dto.LoginDTO) (*dto.AuthResponseDTO, error)
	Refresh(ctx context.Context, refreshToken string) (*dto.AuthResponseDTO, error)
}

type AuthService struct {
	userRepo   repositories.UserRepositoryInterface
	cache      repositories.CacheRepositoryInterface
	jwtService service.JWTService
	cfg        config.AuthConfig
	bus        eventbus.Publisher
	logger     *zap.Logger
}

func NewAuthService(
	userRepo repositories.UserRepositoryInterface,
	cache repositories.CacheRepositoryInterface,
	jwtService service.JWTService,
	cfg config.AuthConfig,
	bus eventbus.Publisher,
	logger *zap.Logger,
) AuthServiceInterface {
	return &AuthService{
		userRepo:   userRepo,
		cache:      cache,
		jwtService: jwtService,
		cfg:        cfg,
		bus:        bus,
		logger:     logger,
	}
}

// Login accepts an email or phone. Repeated failures lock the login out for
// cfg.LockoutDuration; cache outages never block a login.
func (s *AuthService) Login(ctx context.Context, payload dto.LoginDTO) (*dto.AuthResponseDTO, error) {
	login := strings.ToLower(strings.TrimSpace(payload.Login))
	if s.isLockedOut(ctx, login) {
		return nil, apperrors.NewHttpError(http.StatusTooManyRequests, apperrors.ErrTooManyAttempts.Error(), apperrors.ErrTooManyAttempts, nil)
	}

	user, err := s.userRepo.FindByLogin(ctx, login)
	if errors.Is(err, apperrors.ErrNotFound) {
		s.registerFailure(ctx, login)
		return nil, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := utils.ComparePasswords(user.PasswordHash, payload.Password); err != nil {
		s.registerFailure(ctx, login)
		return nil, apperrors.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, apperrors.ErrUserInactive
	}

	s.clearFailures(ctx, login)

	resp, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	publishAudit(ctx, s.bus, user.ID, constants.AuditActionLogin, constants.AuditTargetUser, user.ID, nil, time.Now().UTC())
	return resp, nil
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*dto.AuthResponseDTO, error) {
	claims, err := s.jwtService.ValidateToken(refreshToken)
	if err != nil {
		return nil, err
	}
	if !claims.IsRefreshToken {
		return nil, apperrors.ErrTokenIsNotRefresh
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, apperrors.ErrUserInactive
	}
	return s.issue(user)
}

func (s *AuthService) issue(user *entities.User) (*dto.AuthResponseDTO, error) {
	access, refresh, err := s.jwtService.GenerateTokens(user.ID, string(user.Role))
	if err != nil {
		s.logger.Error("failed to sign tokens", zap.String("userID", user.ID), zap.Error(err))
		return nil, err
	}
	return &dto.AuthResponseDTO{AccessToken: access, RefreshToken: refresh, User: user}, nil
}

func (s *AuthService) isLockedOut(ctx context.Context, login string) bool {
	if s.cache == nil {
		return false
	}
	_, err := s.cache.Get(ctx, fmt.Sprintf(constants.CacheKeyLockout, login))
	if err == nil {
		return true
	}
	if !errors.Is(err, repositories.ErrCacheMiss) {
		s.logger.Warn("lockout check failed", zap.Error(err))
	}
	return false
}

func (s *AuthService) registerFailure(ctx context.Context, login string) {
	if s.cache == nil || s.cfg.MaxLoginAttempts <= 0 {
		return
	}
	key := fmt.Sprintf(constants.CacheKeyLoginAttempts, login)
	attempts, err := s.cache.Incr(ctx, key)
	if err != nil {
		s.logger.Warn("failed to count login attempt", zap.Error(err))
		return
	}
	if attempts == 1 {
		if err := s.cache.Expire(ctx, key, s.cfg.LockoutDuration); err != nil {
			s.logger.Warn("failed to expire login attempts", zap.Error(err))
		}
	}
	if attempts >= int64(s.cfg.MaxLoginAttempts) {
		if err := s.cache.Set(ctx, fmt.Sprintf(constants.CacheKeyLockout, login), "locked", s.cfg.LockoutDuration); err != nil {
			s.logger.Warn("failed to lock out login", zap.Error(err))
			return
		}
		s.logger.Warn("login locked out", zap.String("login", login), zap.Int64("attempts", attempts))
	}
}

func (s *AuthService) clearFailures(ctx context.Context, login string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, fmt.Sprintf(constants.CacheKeyLoginAttempts, login)); err != nil {
		s.logger.Warn("failed to reset login attempts", zap.Error(err))
	}
}
