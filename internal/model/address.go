package model

// Address 地址表 — 对应 addresses（地理编码由上游完成，这里只保存结果）
type Address struct {
	AddressID   string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"address_id"`
	RoadAddress string `gorm:"type:varchar(255);not null"                     json:"road_address"`
	Region      string `gorm:"type:varchar(20);not null"                      json:"region"`   // 市/道，如 SEOUL
	District    string `gorm:"type:varchar(50);not null"                      json:"district"` // 区/郡
	BaseModel
}

// TableName 指定表名
func (Address) TableName() string { return "addresses" }
