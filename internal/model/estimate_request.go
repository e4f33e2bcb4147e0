package model

import "time"

// MoveType 搬家类型
type MoveType string

const (
	MoveTypeSmall  MoveType = "SMALL"
	MoveTypeHome   MoveType = "HOME"
	MoveTypeOffice MoveType = "OFFICE"
)

// Valid 是否为已知搬家类型
func (t MoveType) Valid() bool {
	switch t {
	case MoveTypeSmall, MoveTypeHome, MoveTypeOffice:
		return true
	}
	return false
}

// RequestStatus 报价申请状态
//
//	PENDING ──(接受报价)──▶ APPROVED ──(搬家日已过，批处理)──▶ COMPLETED
//	   └──(指定司机全部拒绝)──▶ REJECTED
type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "PENDING"
	RequestStatusApproved  RequestStatus = "APPROVED"
	RequestStatusRejected  RequestStatus = "REJECTED"
	RequestStatusCompleted RequestStatus = "COMPLETED"
)

// EstimateRequest 报价申请表 — 对应 estimate_requests
type EstimateRequest struct {
	EstimateRequestID string        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"estimate_request_id"`
	CustomerID        string        `gorm:"type:uuid;not null"                             json:"customer_id"`
	MoveType          MoveType      `gorm:"type:varchar(20);not null"                      json:"move_type"`
	MoveDate          time.Time     `gorm:"not null"                                       json:"move_date"`
	FromAddressID     string        `gorm:"type:uuid;not null"                             json:"from_address_id"`
	ToAddressID       string        `gorm:"type:uuid;not null"                             json:"to_address_id"`
	Status            RequestStatus `gorm:"type:varchar(20);not null;default:'PENDING'"    json:"status"`
	SoftDeleteModel

	// 关联
	FromAddress *Address `gorm:"foreignKey:FromAddressID;references:AddressID" json:"from_address,omitempty"`
	ToAddress   *Address `gorm:"foreignKey:ToAddressID;references:AddressID"   json:"to_address,omitempty"`
}

// TableName 指定表名
func (EstimateRequest) TableName() string { return "estimate_requests" }

// IsActive 进行中：PENDING，或 APPROVED 且搬家日不早于 today（当天零点）
func (r *EstimateRequest) IsActive(today time.Time) bool {
	switch r.Status {
	case RequestStatusPending:
		return true
	case RequestStatusApproved:
		return !r.MoveDate.Before(today)
	}
	return false
}
