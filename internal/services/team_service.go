package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"crm-system/internal/repositories"
	"crm-system/pkg/constants"
)

type TeamServiceInterface interface {
	TeamOf(ctx context.Context, leadID string) ([]string, error)
	Invalidate(ctx context.Context, leadIDs ...string)
}

// TeamService resolves the roster of users whose assistantId points at a lead.
// Rosters are cached; a stale roster is acceptable for aggregated views.
type TeamService struct {
	userRepo repositories.UserRepositoryInterface
	cache    repositories.CacheRepositoryInterface
	ttl      time.Duration
	logger   *zap.Logger
}

func NewTeamService(
	userRepo repositories.UserRepositoryInterface,
	cache repositories.CacheRepositoryInterface,
	ttl time.Duration,
	logger *zap.Logger,
) TeamServiceInterface {
	return &TeamService{userRepo: userRepo, cache: cache, ttl: ttl, logger: logger}
}

func (s *TeamService) TeamOf(ctx context.Context, leadID string) ([]string, error) {
	key := fmt.Sprintf(constants.CacheKeyTeamMembers, leadID)

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, key)
		switch {
		case err == nil:
			var ids []string
			if jsonErr := json.Unmarshal([]byte(cached), &ids); jsonErr == nil {
				return ids, nil
			}
			s.logger.Warn("corrupt team cache entry", zap.String("key", key))
		case !errors.Is(err, repositories.ErrCacheMiss):
			s.logger.Warn("team cache unavailable", zap.String("key", key), zap.Error(err))
		}
	}

	ids, err := s.userRepo.FindTeamMemberIDs(ctx, leadID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		payload, _ := json.Marshal(ids)
		if err := s.cache.Set(ctx, key, string(payload), s.ttl); err != nil {
			s.logger.Warn("failed to cache team roster", zap.String("key", key), zap.Error(err))
		}
	}
	return ids, nil
}

func (s *TeamService) Invalidate(ctx context.Context, leadIDs ...string) {
	if s.cache == nil {
		return
	}
	keys := make([]string, 0, len(leadIDs))
	for _, id := range leadIDs {
		if id != "" {
			keys = append(keys, fmt.Sprintf(constants.CacheKeyTeamMembers, id))
		}
	}
	if len(keys) == 0 {
		return
	}
	if err := s.cache.Del(ctx, keys...); err != nil {
		s.logger.Warn("failed to invalidate team roster", zap.Strings("keys", keys), zap.Error(err))
	}
}
