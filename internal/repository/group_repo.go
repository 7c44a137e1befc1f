package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/XronosSchedulingLtd/scheduler-sub003/internal/model"
)

// GroupRepository 群组与成员关系数据访问接口
type GroupRepository interface {
	Create(ctx context.Context, group *model.Group) error
	GetByID(ctx context.Context, id string) (*model.Group, error)
	// ListMemberships 返回群组在指定日期有效的成员关系
	ListMemberships(ctx context.Context, groupID string, asOf time.Time) ([]model.Membership, error)
	// ListMembershipsForElement 返回元素（资源或群组）在指定日期归属的成员关系（向上查找）
	ListMembershipsForElement(ctx context.Context, elementType, elementID string, asOf time.Time) ([]model.Membership, error)
	AddMembership(ctx context.Context, m *model.Membership) error
}

// ── Group Repository 实现 ──

type groupRepo struct {
	db *gorm.DB
}

func NewGroupRepo(db *gorm.DB) GroupRepository {
	return &groupRepo{db: db}
}

func (r *groupRepo) Create(ctx context.Context, group *model.Group) error {
	return r.db.WithContext(ctx).Create(group).Error
}

func (r *groupRepo) GetByID(ctx context.Context, id string) (*model.Group, error) {
	var group model.Group
	err := r.db.WithContext(ctx).
		Where("group_id = ?", id).
		First(&group).Error
	if err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *groupRepo) ListMemberships(ctx context.Context, groupID string, asOf time.Time) ([]model.Membership, error) {
	var memberships []model.Membership
	err := r.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Where("starts_on <= ?", asOf).
		Where("ends_on IS NULL OR ends_on >= ?", asOf).
		Find(&memberships).Error
	return memberships, err
}

func (r *groupRepo) ListMembershipsForElement(ctx context.Context, elementType, elementID string, asOf time.Time) ([]model.Membership, error) {
	var memberships []model.Membership
	err := r.db.WithContext(ctx).
		Where("element_type = ? AND element_id = ?", elementType, elementID).
		Where("starts_on <= ?", asOf).
		Where("ends_on IS NULL OR ends_on >= ?", asOf).
		Find(&memberships).Error
	return memberships, err
}

func (r *groupRepo) AddMembership(ctx context.Context, m *model.Membership) error {
	return r.db.WithContext(ctx).Create(m).Error
}
