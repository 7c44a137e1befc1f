package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/XronosSchedulingLtd/scheduler-sub003/internal/model"
)

// ClashNoteRepository 冲突笔记数据访问接口
// 只有冲突对账驱动器调用写方法
type ClashNoteRepository interface {
	Create(ctx context.Context, note *model.ClashNote) error
	Update(ctx context.Context, note *model.ClashNote) error
	Delete(ctx context.Context, noteID string) error
	ListByEvent(ctx context.Context, eventID string) ([]model.ClashNote, error)
	DeleteByEvent(ctx context.Context, eventID string) error
	// ListBetween 返回事件区间与窗口重叠的存活笔记（预载事件），供汇总与导出使用
	ListBetween(ctx context.Context, start, end time.Time) ([]model.ClashNote, error)
}

// ── ClashNote Repository 实现 ──

type clashNoteRepo struct {
	db *gorm.DB
}

func NewClashNoteRepo(db *gorm.DB) ClashNoteRepository {
	return &clashNoteRepo{db: db}
}

func (r *clashNoteRepo) Create(ctx context.Context, note *model.ClashNote) error {
	return r.db.WithContext(ctx).Create(note).Error
}

func (r *clashNoteRepo) Update(ctx context.Context, note *model.ClashNote) error {
	return r.db.WithContext(ctx).
		Model(note).
		Where("note_id = ?", note.NoteID).
		Updates(map[string]interface{}{
			"body":       note.Body,
			"updated_at": time.Now(),
		}).Error
}

func (r *clashNoteRepo) Delete(ctx context.Context, noteID string) error {
	return r.db.WithContext(ctx).
		Where("note_id = ?", noteID).
		Delete(&model.ClashNote{}).Error
}

func (r *clashNoteRepo) ListByEvent(ctx context.Context, eventID string) ([]model.ClashNote, error) {
	var notes []model.ClashNote
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("created_at ASC").
		Find(&notes).Error
	return notes, err
}

func (r *clashNoteRepo) DeleteByEvent(ctx context.Context, eventID string) error {
	return r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Delete(&model.ClashNote{}).Error
}

func (r *clashNoteRepo) ListBetween(ctx context.Context, start, end time.Time) ([]model.ClashNote, error) {
	var notes []model.ClashNote
	err := r.db.WithContext(ctx).
		Preload("Event").
		Preload("Event.Category").
		Joins("JOIN events ON events.event_id = clash_notes.event_id").
		Where("events.starts_at < ? AND events.ends_at > ?", end, start).
		Order("events.starts_at ASC").
		Find(&notes).Error
	return notes, err
}
