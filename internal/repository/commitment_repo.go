package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/XronosSchedulingLtd/scheduler-sub003/internal/model"
)

// CommitmentRepository 承诺数据访问接口
type CommitmentRepository interface {
	Create(ctx context.Context, commitment *model.Commitment) error
	ListByEvent(ctx context.Context, eventID string) ([]model.Commitment, error)
	// ListForResourceDuring 返回资源直接持有、事件区间与 [start, end) 重叠的承诺
	// excludeNonBusy=true 时剔除非占用类别的事件；停办事件一律剔除
	ListForResourceDuring(ctx context.Context, resourceID string, start, end time.Time, excludeNonBusy bool) ([]model.Commitment, error)
	// ListForGroupsDuring 返回挂接在指定群组上的重叠承诺（经群组继承的承诺）
	ListForGroupsDuring(ctx context.Context, groupIDs []string, start, end time.Time, excludeNonBusy bool) ([]model.Commitment, error)
}

// ── Commitment Repository 实现 ──

type commitmentRepo struct {
	db *gorm.DB
}

func NewCommitmentRepo(db *gorm.DB) CommitmentRepository {
	return &commitmentRepo{db: db}
}

func (r *commitmentRepo) Create(ctx context.Context, commitment *model.Commitment) error {
	return r.db.WithContext(ctx).Create(commitment).Error
}

func (r *commitmentRepo) ListByEvent(ctx context.Context, eventID string) ([]model.Commitment, error) {
	var commitments []model.Commitment
	err := r.db.WithContext(ctx).
		Preload("Resource").
		Preload("Covering").
		Preload("CoveredBy").
		Where("event_id = ?", eventID).
		Find(&commitments).Error
	return commitments, err
}

// overlapping 公共查询片段：join 事件表并按半开区间重叠过滤
func (r *commitmentRepo) overlapping(ctx context.Context, start, end time.Time, excludeNonBusy bool) *gorm.DB {
	db := r.db.WithContext(ctx).
		Preload("Event").
		Preload("Event.Category").
		Preload("CoveredBy").
		Joins("JOIN events ON events.event_id = commitments.event_id").
		Where("events.non_existent = false").
		Where("events.starts_at < ? AND events.ends_at > ?", end, start)
	if excludeNonBusy {
		db = db.
			Joins("JOIN event_categories ON event_categories.category_id = events.category_id").
			Where("event_categories.non_busy = false")
	}
	return db
}

func (r *commitmentRepo) ListForResourceDuring(ctx context.Context, resourceID string, start, end time.Time, excludeNonBusy bool) ([]model.Commitment, error) {
	var commitments []model.Commitment
	err := r.overlapping(ctx, start, end, excludeNonBusy).
		Where("commitments.resource_id = ?", resourceID).
		Find(&commitments).Error
	return commitments, err
}

func (r *commitmentRepo) ListForGroupsDuring(ctx context.Context, groupIDs []string, start, end time.Time, excludeNonBusy bool) ([]model.Commitment, error) {
	if len(groupIDs) == 0 {
		return nil, nil
	}
	var commitments []model.Commitment
	err := r.overlapping(ctx, start, end, excludeNonBusy).
		Where("commitments.group_id IN ?", groupIDs).
		Find(&commitments).Error
	return commitments, err
}
