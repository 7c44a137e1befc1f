package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/XronosSchedulingLtd/scheduler-sub003/internal/model"
)

// ResourceRepository 原子资源数据访问接口
type ResourceRepository interface {
	Create(ctx context.Context, resource *model.Resource) error
	GetByID(ctx context.Context, id string) (*model.Resource, error)
	GetByNameAndKind(ctx context.Context, name string, kind model.ResourceKind) (*model.Resource, error)
	ListByKind(ctx context.Context, kind model.ResourceKind) ([]model.Resource, error)
}

// ── Resource Repository 实现 ──

type resourceRepo struct {
	db *gorm.DB
}

func NewResourceRepo(db *gorm.DB) ResourceRepository {
	return &resourceRepo{db: db}
}

func (r *resourceRepo) Create(ctx context.Context, resource *model.Resource) error {
	return r.db.WithContext(ctx).Create(resource).Error
}

func (r *resourceRepo) GetByID(ctx context.Context, id string) (*model.Resource, error) {
	var resource model.Resource
	err := r.db.WithContext(ctx).
		Where("resource_id = ?", id).
		First(&resource).Error
	if err != nil {
		return nil, err
	}
	return &resource, nil
}

func (r *resourceRepo) GetByNameAndKind(ctx context.Context, name string, kind model.ResourceKind) (*model.Resource, error) {
	var resource model.Resource
	err := r.db.WithContext(ctx).
		Where("name = ? AND kind = ?", name, kind).
		First(&resource).Error
	if err != nil {
		return nil, err
	}
	return &resource, nil
}

func (r *resourceRepo) ListByKind(ctx context.Context, kind model.ResourceKind) ([]model.Resource, error) {
	var resources []model.Resource
	err := r.db.WithContext(ctx).
		Where("kind = ? AND is_active = true", kind).
		Order("name ASC").
		Find(&resources).Error
	return resources, err
}
