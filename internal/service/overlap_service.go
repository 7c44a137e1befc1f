package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/XronosSchedulingLtd/scheduler-sub003/internal/model"
	"github.com/XronosSchedulingLtd/scheduler-sub003/internal/repository"
)

// OverlapService 重叠查询引擎
// 整个系统中调用最频繁的操作：每天对每个 (事件, 资源) 对各调用一次。
// 群组展开的成本靠单日范围的 MembershipCache 摊销，缓存由调用方注入。
type OverlapService interface {
	// CommitmentsDuring 返回资源在窗口 [start, end) 内的重叠承诺
	//   - andByGroup=true 时包含经群组继承的承诺
	//   - excludeNonBusy=true 时剔除非占用类别的事件
	// 结果不保证顺序，也不去重（同一承诺可能同时经直接与群组路径命中）；
	// 去重与剔除自身由调用方负责
	CommitmentsDuring(ctx context.Context, resourceID string, start, end time.Time, andByGroup, excludeNonBusy bool, cache *MembershipCache) ([]model.Commitment, error)
}

type overlapService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewOverlapService 创建 OverlapService 实例
func NewOverlapService(repo *repository.Repository, logger *zap.Logger) OverlapService {
	return &overlapService{repo: repo, logger: logger}
}

func (s *overlapService) CommitmentsDuring(ctx context.Context, resourceID string, start, end time.Time, andByGroup, excludeNonBusy bool, cache *MembershipCache) ([]model.Commitment, error) {
	direct, err := s.repo.Commitment.ListForResourceDuring(ctx, resourceID, start, end, excludeNonBusy)
	if err != nil {
		s.logger.Error("查询资源直接承诺失败", zap.String("resource_id", resourceID), zap.Error(err))
		return nil, err
	}
	if !andByGroup {
		return direct, nil
	}

	groupIDs, err := cache.GroupsFor(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	if len(groupIDs) == 0 {
		return direct, nil
	}

	inherited, err := s.repo.Commitment.ListForGroupsDuring(ctx, groupIDs, start, end, excludeNonBusy)
	if err != nil {
		s.logger.Error("查询群组继承承诺失败", zap.String("resource_id", resourceID), zap.Error(err))
		return nil, err
	}

	return append(direct, inherited...), nil
}
