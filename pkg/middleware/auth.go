package middleware

import (
	"context"
	"slices"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"crm-system/internal/authz"
	"crm-system/pkg/constants"
	apperrors "crm-system/pkg/errors"
	"crm-system/pkg/service"
	"crm-system/pkg/utils"
)

// ActorResolver loads the acting user for a validated token subject.
type ActorResolver interface {
	ResolveActor(ctx context.Context, userID string) (authz.Actor, error)
}

type AuthMiddleware struct {
	jwtService service.JWTService
	resolver   ActorResolver
	logger     *zap.Logger
}

func NewAuthMiddleware(jwtSvc service.JWTService, resolver ActorResolver, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtSvc,
		resolver:   resolver,
		logger:     logger,
	}
}

// Auth validates the bearer token and stores the actor in the request context.
func (m *AuthMiddleware) Auth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			return utils.ErrorResponse(c, apperrors.ErrEmptyAuthHeader, m.logger)
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return utils.ErrorResponse(c, apperrors.ErrInvalidAuthHeader, m.logger)
		}

		return m.authenticate(c, next, parts[1])
	}
}

// AuthQueryToken reads the token from ?token=, for websocket upgrades.
func (m *AuthMiddleware) AuthQueryToken(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := c.QueryParam("token")
		if token == "" {
			return utils.ErrorResponse(c, apperrors.ErrEmptyAuthHeader, m.logger)
		}
		return m.authenticate(c, next, token)
	}
}

func (m *AuthMiddleware) authenticate(c echo.Context, next echo.HandlerFunc, token string) error {
	claims, err := m.jwtService.ValidateToken(token)
	if err != nil {
		m.logger.Warn("AuthMiddleware: token rejected", zap.Error(err))
		return utils.ErrorResponse(c, err, m.logger)
	}
	if claims.IsRefreshToken {
		return utils.ErrorResponse(c, apperrors.ErrTokenIsNotAccess, m.logger)
	}

	ctx := c.Request().Context()
	actor, err := m.resolver.ResolveActor(ctx, claims.UserID)
	if err != nil {
		m.logger.Warn("AuthMiddleware: actor not resolved", zap.String("userID", claims.UserID), zap.Error(err))
		return utils.ErrorResponse(c, err, m.logger)
	}

	c.SetRequest(c.Request().WithContext(utils.WithActor(ctx, actor)))
	return next(c)
}

// RequireRoles rejects actors whose role is not listed.
func RequireRoles(logger *zap.Logger, roles ...constants.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, err := utils.GetActorFromCtx(c.Request().Context())
			if err != nil {
				return utils.ErrorResponse(c, err, logger)
			}
			if !slices.Contains(roles, actor.Role) {
				return utils.ErrorResponse(c, apperrors.NewForbidden("role %s is not allowed here", actor.Role), logger)
			}
			return next(c)
		}
	}
}
