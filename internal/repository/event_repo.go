package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/XronosSchedulingLtd/scheduler-sub003/internal/model"
)

// EventCategoryRepository 事件类别数据访问接口
type EventCategoryRepository interface {
	Create(ctx context.Context, category *model.EventCategory) error
	GetByName(ctx context.Context, name string) (*model.EventCategory, error)
	// ListClashCheck 返回所有启用冲突检测且未弃用的类别
	ListClashCheck(ctx context.Context) ([]model.EventCategory, error)
}

// EventRepository 事件数据访问接口
type EventRepository interface {
	Create(ctx context.Context, event *model.Event) error
	GetByID(ctx context.Context, id string) (*model.Event, error)
	GetBySourceUID(ctx context.Context, source, uid string) (*model.Event, error)
	// EventsOn 返回与窗口 [start, end) 重叠、类别启用冲突检测、未停办的事件
	// 非占用类别的事件双向豁免：既不被报告，也不主动扫描
	// 预载类别与承诺（含承诺的资源、覆盖关系）
	EventsOn(ctx context.Context, start, end time.Time) ([]model.Event, error)
	// ListSuspendedWithNotes 返回窗口内已停办但仍挂有冲突笔记的事件（待修复的漂移状态）
	ListSuspendedWithNotes(ctx context.Context, start, end time.Time) ([]model.Event, error)
	// UpdateHasClashes 只改写派生字段 has_clashes
	UpdateHasClashes(ctx context.Context, eventID string, hasClashes bool) error
}

// ── EventCategory Repository 实现 ──

type eventCategoryRepo struct {
	db *gorm.DB
}

func NewEventCategoryRepo(db *gorm.DB) EventCategoryRepository {
	return &eventCategoryRepo{db: db}
}

func (r *eventCategoryRepo) Create(ctx context.Context, category *model.EventCategory) error {
	return r.db.WithContext(ctx).Create(category).Error
}

func (r *eventCategoryRepo) GetByName(ctx context.Context, name string) (*model.EventCategory, error) {
	var category model.EventCategory
	err := r.db.WithContext(ctx).
		Where("name = ?", name).
		First(&category).Error
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *eventCategoryRepo) ListClashCheck(ctx context.Context) ([]model.EventCategory, error) {
	var categories []model.EventCategory
	err := r.db.WithContext(ctx).
		Where("clash_check = true AND deprecated = false").
		Find(&categories).Error
	return categories, err
}

// ── Event Repository 实现 ──

type eventRepo struct {
	db *gorm.DB
}

func NewEventRepo(db *gorm.DB) EventRepository {
	return &eventRepo{db: db}
}

func (r *eventRepo) Create(ctx context.Context, event *model.Event) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *eventRepo) GetByID(ctx context.Context, id string) (*model.Event, error) {
	var event model.Event
	err := r.db.WithContext(ctx).
		Preload("Category").
		Where("event_id = ?", id).
		First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *eventRepo) GetBySourceUID(ctx context.Context, source, uid string) (*model.Event, error) {
	var event model.Event
	err := r.db.WithContext(ctx).
		Where("source = ? AND source_uid = ?", source, uid).
		First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *eventRepo) EventsOn(ctx context.Context, start, end time.Time) ([]model.Event, error) {
	var events []model.Event
	err := r.db.WithContext(ctx).
		Preload("Category").
		Preload("Commitments").
		Preload("Commitments.Resource").
		Preload("Commitments.CoveredBy").
		Joins("JOIN event_categories ON event_categories.category_id = events.category_id").
		Where("event_categories.clash_check = true AND event_categories.deprecated = false").
		Where("event_categories.non_busy = false").
		Where("events.non_existent = false").
		Where("events.starts_at < ? AND events.ends_at > ?", end, start).
		Order("events.starts_at ASC").
		Find(&events).Error
	return events, err
}

func (r *eventRepo) ListSuspendedWithNotes(ctx context.Context, start, end time.Time) ([]model.Event, error) {
	var events []model.Event
	err := r.db.WithContext(ctx).
		Where("events.non_existent = true").
		Where("events.starts_at < ? AND events.ends_at > ?", end, start).
		Where("EXISTS (SELECT 1 FROM clash_notes WHERE clash_notes.event_id = events.event_id)").
		Find(&events).Error
	return events, err
}

func (r *eventRepo) UpdateHasClashes(ctx context.Context, eventID string, hasClashes bool) error {
	return r.db.WithContext(ctx).
		Model(&model.Event{}).
		Where("event_id = ?", eventID).
		Update("has_clashes", hasClashes).Error
}
