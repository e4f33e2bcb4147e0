package model

import "time"

// DesignatedDriver 指定司机表 — 对应 designated_drivers
// 存在任意一行即表示该申请为"指定模式"，只有被指定的司机可回应
type DesignatedDriver struct {
	DesignatedDriverID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"designated_driver_id"`
	EstimateRequestID  string    `gorm:"type:uuid;not null"                             json:"estimate_request_id"`
	DriverID           string    `gorm:"type:uuid;not null"                             json:"driver_id"`
	CreatedAt          time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (DesignatedDriver) TableName() string { return "designated_drivers" }
