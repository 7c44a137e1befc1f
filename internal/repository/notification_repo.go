package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/XronosSchedulingLtd/scheduler-sub003/internal/model"
)

// NotificationRepository 通知消息数据访问接口
type NotificationRepository interface {
	Create(ctx context.Context, notification *model.Notification) error
	BatchCreate(ctx context.Context, notifications []model.Notification) error
	ListByResource(ctx context.Context, resourceID string, unreadOnly bool) ([]model.Notification, error)
}

// NotificationPreferenceRepository 通知偏好数据访问接口
type NotificationPreferenceRepository interface {
	GetByResource(ctx context.Context, resourceID string) (*model.NotificationPreference, error)
	Upsert(ctx context.Context, pref *model.NotificationPreference) error
}

// ── Notification Repository 实现 ──

type notificationRepo struct {
	db *gorm.DB
}

func NewNotificationRepo(db *gorm.DB) NotificationRepository {
	return &notificationRepo{db: db}
}

func (r *notificationRepo) Create(ctx context.Context, notification *model.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *notificationRepo) BatchCreate(ctx context.Context, notifications []model.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&notifications).Error
}

func (r *notificationRepo) ListByResource(ctx context.Context, resourceID string, unreadOnly bool) ([]model.Notification, error) {
	db := r.db.WithContext(ctx).Where("resource_id = ?", resourceID)
	if unreadOnly {
		db = db.Where("is_read = false")
	}
	var notifications []model.Notification
	err := db.Order("created_at DESC").Find(&notifications).Error
	return notifications, err
}

// ── NotificationPreference Repository 实现 ──

type notificationPreferenceRepo struct {
	db *gorm.DB
}

func NewNotificationPreferenceRepo(db *gorm.DB) NotificationPreferenceRepository {
	return &notificationPreferenceRepo{db: db}
}

func (r *notificationPreferenceRepo) GetByResource(ctx context.Context, resourceID string) (*model.NotificationPreference, error) {
	var pref model.NotificationPreference
	err := r.db.WithContext(ctx).
		Where("resource_id = ?", resourceID).
		First(&pref).Error
	if err != nil {
		return nil, err
	}
	return &pref, nil
}

func (r *notificationPreferenceRepo) Upsert(ctx context.Context, pref *model.NotificationPreference) error {
	return r.db.WithContext(ctx).Save(pref).Error
}
