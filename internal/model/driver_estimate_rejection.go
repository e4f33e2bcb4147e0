package model

import "time"

// DriverEstimateRejection 司机拒绝报价表 — 对应 driver_estimate_rejections
// 与 Estimate.status=REJECTED 不同：这里表示司机从未报价、直接谢绝；写入后不再修改
type DriverEstimateRejection struct {
	RejectionID       string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"rejection_id"`
	DriverID          string    `gorm:"type:uuid;not null"                             json:"driver_id"`
	EstimateRequestID string    `gorm:"type:uuid;not null"                             json:"estimate_request_id"`
	Reason            string    `gorm:"type:varchar(500);not null"                     json:"reason"`
	CreatedAt         time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (DriverEstimateRejection) TableName() string { return "driver_estimate_rejections" }
