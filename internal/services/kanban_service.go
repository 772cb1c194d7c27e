package services

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"crm-system/internal/authz"
	"crm-system/internal/entities"
	"crm-system/internal/repositories"
	"crm-system/pkg/constants"
)

type KanbanServiceInterface interface {
	Board(ctx context.Context, actor authz.Actor) ([]entities.KanbanColumn, error)
	Stats(ctx context.Context, actor authz.Actor) (*entities.RequestStats, error)
}

// KanbanService is read-only. Both views use the aggregated team scope.
type KanbanService struct {
	requestRepo repositories.RequestRepositoryInterface
	teams       TeamServiceInterface
	policy      *authz.Policy
	logger      *zap.Logger
}

func NewKanbanService(
	requestRepo repositories.RequestRepositoryInterface,
	teams TeamServiceInterface,
	policy *authz.Policy,
	logger *zap.Logger,
) KanbanServiceInterface {
	return &KanbanService{requestRepo: requestRepo, teams: teams, policy: policy, logger: logger}
}

// Board returns one column per status in fixed order, empty columns included.
func (s *KanbanService) Board(ctx context.Context, actor authz.Actor) ([]entities.KanbanColumn, error) {
	scope, err := s.scopeFor(ctx, actor)
	if err != nil {
		return nil, err
	}

	items, err := s.requestRepo.ListForBoard(ctx, scope)
	if err != nil {
		return nil, err
	}

	columns := make([]entities.KanbanColumn, len(constants.RequestStatuses))
	index := make(map[constants.RequestStatus]int, len(constants.RequestStatuses))
	for i, status := range constants.RequestStatuses {
		columns[i] = entities.KanbanColumn{
			Status: status,
			Title:  constants.StatusTitle(status),
			Items:  []entities.RequestView{},
		}
		index[status] = i
	}

	for _, item := range items {
		i, ok := index[item.CurrentStatus]
		if !ok {
			s.logger.Warn("request with unknown status left off the board",
				zap.String("requestID", item.ID), zap.String("status", string(item.CurrentStatus)))
			continue
		}
		columns[i].Items = append(columns[i].Items, item)
	}

	for i := range columns {
		col := &columns[i]
		sort.SliceStable(col.Items, func(a, b int) bool {
			return col.Items[a].UpdatedAt.After(col.Items[b].UpdatedAt)
		})
		col.Count = len(col.Items)
	}
	return columns, nil
}

func (s *KanbanService) Stats(ctx context.Context, actor authz.Actor) (*entities.RequestStats, error) {
	scope, err := s.scopeFor(ctx, actor)
	if err != nil {
		return nil, err
	}

	byStatus, err := s.requestRepo.CountByStatus(ctx, scope)
	if err != nil {
		return nil, err
	}
	byType, err := s.requestRepo.CountByType(ctx, scope)
	if err != nil {
		return nil, err
	}

	stats := &entities.RequestStats{
		PerStatus: make([]entities.StatusCount, 0, len(byStatus)),
		PerType:   make([]entities.TypeCount, 0, len(constants.RequestTypes)),
	}

	for _, status := range constants.RequestStatuses {
		count := byStatus[status]
		stats.TotalRequests += count
		stats.PerStatus = append(stats.PerStatus, entities.StatusCount{
			Status:     status,
			HumanTitle: constants.StatusTitle(status),
			Count:      count,
		})
	}

	// Legacy rows may carry statuses outside the fixed set; they still count.
	var unknown []constants.RequestStatus
	for status := range byStatus {
		if !status.IsValid() {
			unknown = append(unknown, status)
		}
	}
	sort.Slice(unknown, func(i, j int) bool { return unknown[i] < unknown[j] })
	for _, status := range unknown {
		stats.TotalRequests += byStatus[status]
		stats.PerStatus = append(stats.PerStatus, entities.StatusCount{
			Status:     status,
			HumanTitle: constants.StatusTitle(status),
			Count:      byStatus[status],
		})
	}

	for _, t := range constants.RequestTypes {
		stats.PerType = append(stats.PerType, entities.TypeCount{Type: t, Count: byType[t]})
	}
	return stats, nil
}

func (s *KanbanService) scopeFor(ctx context.Context, actor authz.Actor) (authz.Scope, error) {
	if actor.IsPrivileged() || s.teams == nil {
		return s.policy.AggregatedScope(actor, nil), nil
	}
	team, err := s.teams.TeamOf(ctx, actor.ID)
	if err != nil {
		return authz.Scope{}, err
	}
	return s.policy.AggregatedScope(actor, team), nil
}
