package model

// Customer 客户表 — 对应 customers（资料维护不在本服务范围内）
type Customer struct {
	CustomerID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"customer_id"`
	Name       string `gorm:"type:varchar(100);not null"                     json:"name"`
	Phone      string `gorm:"type:varchar(20)"                               json:"phone,omitempty"`
	SoftDeleteModel
}

// TableName 指定表名
func (Customer) TableName() string { return "customers" }
