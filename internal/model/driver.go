package model

// Driver 司机表 — 对应 drivers
type Driver struct {
	DriverID       string      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"driver_id"`
	Nickname       string      `gorm:"type:varchar(100);not null"                     json:"nickname"`
	ServiceRegions StringArray `gorm:"type:varchar(20)[];not null;default:'{}'"       json:"service_regions"` // SEOUL | BUSAN | ...
	SoftDeleteModel
}

// TableName 指定表名
func (Driver) TableName() string { return "drivers" }
