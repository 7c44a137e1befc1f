package dto

import "time"

// ScanOptions 冲突扫描参数
type ScanOptions struct {
	StartDate time.Time `json:"start_date"` // 含当日
	EndDate   time.Time `json:"end_date"`   // 含当日
}

// ScanResult 一次扫描运行的统计结果
type ScanResult struct {
	DaysProcessed     int `json:"days_processed"`
	EventsScanned     int `json:"events_scanned"`
	EventsWithClashes int `json:"events_with_clashes"`
	NotesCreated      int `json:"notes_created"`
	NotesUpdated      int `json:"notes_updated"`
	NotesDeleted      int `json:"notes_deleted"`
	EventsRepaired    int `json:"events_repaired"` // 停办事件的漂移状态修复数
	EventsFailed      int `json:"events_failed"`   // 单事件保存失败（跳过继续）
	BatchesDelivered  int `json:"batches_delivered"`
}

// ClashEntry 通知批次中的一条冲突记录
type ClashEntry struct {
	EventID   string    `json:"event_id"`
	EventBody string    `json:"event_body"`
	StartsAt  time.Time `json:"starts_at"`
	EndsAt    time.Time `json:"ends_at"`
	NoteBody  string    `json:"note_body"`
}

// SummaryResult 汇总投递结果
type SummaryResult struct {
	EventsWithClashes int `json:"events_with_clashes"`
	BatchesDelivered  int `json:"batches_delivered"`
}

// ImportResult ICS 日历源导入结果
type ImportResult struct {
	FeedName           string `json:"feed_name"`
	EventsCreated      int    `json:"events_created"`
	EventsSkipped      int    `json:"events_skipped"` // 已存在（source_uid 命中）
	CommitmentsCreated int    `json:"commitments_created"`
}
