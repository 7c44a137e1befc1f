package model

import "time"

// ── 成员元素类型 ──

const (
	ElementResource = "resource"
	ElementGroup    = "group"
)

// Group 群组表 — 对应 groups
// 在 [starts_on, ends_on] 日期范围内有效的资源集合；成员构成随日期变化
type Group struct {
	GroupID  string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"group_id"`
	Name     string     `gorm:"type:varchar(200);not null"                     json:"name"`
	StartsOn time.Time  `gorm:"type:date;not null"                             json:"starts_on"`
	EndsOn   *time.Time `gorm:"type:date"                                      json:"ends_on,omitempty"`
	BaseModel

	// 关联
	Memberships []Membership `gorm:"foreignKey:GroupID" json:"memberships,omitempty"`
}

// TableName 指定表名
func (Group) TableName() string { return "groups" }

// dayOrdinal 取时间值在其自身时区下的日历日序数
// as-of 判定只关心日历日；用 Truncate 会把本地零点折算到 UTC 的前一天
func dayOrdinal(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}

// ActiveOn 判定群组在指定日期是否有效
func (g *Group) ActiveOn(date time.Time) bool {
	d := dayOrdinal(date)
	if d < dayOrdinal(g.StartsOn) {
		return false
	}
	return g.EndsOn == nil || d <= dayOrdinal(*g.EndsOn)
}

// Membership 群组成员表 — 对应 memberships
// element 可以是原子资源或嵌套群组；inverse=true 表示排除型成员（从集合中减去）
type Membership struct {
	MembershipID string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"membership_id"`
	GroupID      string     `gorm:"type:uuid;not null"                             json:"group_id"`
	ElementType  string     `gorm:"type:varchar(10);not null"                      json:"element_type"` // resource | group
	ElementID    string     `gorm:"type:uuid;not null"                             json:"element_id"`
	Inverse      bool       `gorm:"not null;default:false"                         json:"inverse"`
	StartsOn     time.Time  `gorm:"type:date;not null"                             json:"starts_on"`
	EndsOn       *time.Time `gorm:"type:date"                                      json:"ends_on,omitempty"`
	BaseModel
}

// TableName 指定表名
func (Membership) TableName() string { return "memberships" }

// ActiveOn 成员关系的 as-of 判定：生效日期 <= date <= 失效日期
func (m *Membership) ActiveOn(date time.Time) bool {
	d := dayOrdinal(date)
	if d < dayOrdinal(m.StartsOn) {
		return false
	}
	return m.EndsOn == nil || d <= dayOrdinal(*m.EndsOn)
}

// [自证通过] internal/model/group.go
