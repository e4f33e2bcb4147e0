package model

// EstimateStatus 司机报价状态
type EstimateStatus string

const (
	EstimateStatusProposed     EstimateStatus = "PROPOSED"
	EstimateStatusAccepted     EstimateStatus = "ACCEPTED"
	EstimateStatusRejected     EstimateStatus = "REJECTED"      // 司机主动撤回
	EstimateStatusAutoRejected EstimateStatus = "AUTO_REJECTED" // 其他报价被接受后自动落选
)

// Estimate 司机报价表 — 对应 estimates
type Estimate struct {
	EstimateID        string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"estimate_id"`
	EstimateRequestID string         `gorm:"type:uuid;not null"                             json:"estimate_request_id"`
	DriverID          string         `gorm:"type:uuid;not null"                             json:"driver_id"`
	Price             int64          `gorm:"not null"                                       json:"price"`
	Comment           string         `gorm:"type:text;not null;default:''"                  json:"comment"`
	Status            EstimateStatus `gorm:"type:varchar(20);not null;default:'PROPOSED'"   json:"status"`
	IsDesignated      bool           `gorm:"not null;default:false"                         json:"is_designated"` // 提交时申请是否为指定模式
	SoftDeleteModel

	// 关联
	Driver *Driver `gorm:"foreignKey:DriverID;references:DriverID" json:"driver,omitempty"`
}

// TableName 指定表名
func (Estimate) TableName() string { return "estimates" }
