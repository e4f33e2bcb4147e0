package dto

// ── 报价申请 DTO ──

// CreateEstimateRequestRequest 创建报价申请请求
type CreateEstimateRequestRequest struct {
	MoveType      string `json:"move_type"       binding:"required,oneof=SMALL HOME OFFICE"`
	MoveDate      string `json:"move_date"       binding:"required"` // YYYY-MM-DD，按服务时区解释
	FromAddressID string `json:"from_address_id" binding:"required,uuid"`
	ToAddressID   string `json:"to_address_id"   binding:"required,uuid"`
}

// AddressResponse 地址信息
type AddressResponse struct {
	ID          string `json:"id"`
	RoadAddress string `json:"road_address"`
	Region      string `json:"region"`
	District    string `json:"district"`
}

// EstimateRequestResponse 报价申请响应
type EstimateRequestResponse struct {
	ID          string           `json:"id"`
	CustomerID  string           `json:"customer_id"`
	MoveType    string           `json:"move_type"`
	MoveDate    string           `json:"move_date"`
	Status      string           `json:"status"`
	FromAddress *AddressResponse `json:"from_address,omitempty"`
	ToAddress   *AddressResponse `json:"to_address,omitempty"`
	CreatedAt   string           `json:"created_at"`
}

// DesignateDriverRequest 指定司机请求
type DesignateDriverRequest struct {
	DriverID string `json:"driver_id" binding:"required,uuid"`
}

// DesignationResponse 指定司机响应
type DesignationResponse struct {
	EstimateRequestID string `json:"estimate_request_id"`
	DriverID          string `json:"driver_id"`
	DesignatedCount   int    `json:"designated_count"`
}

// ── 报价 DTO ──

// SubmitEstimateRequest 司机提交报价请求
// price 的正数校验在 Service 层完成，以保证先于名额检查
type SubmitEstimateRequest struct {
	Price   int64  `json:"price"`
	Comment string `json:"comment" binding:"omitempty,max=1000"`
}

// RejectRequestRequest 司机拒绝申请请求
type RejectRequestRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// QuotaResponse 回应名额（仅供参考，写入时以事务内复核为准）
type QuotaResponse struct {
	Allowed bool   `json:"allowed"`
	Limit   int    `json:"limit"`
	Used    int    `json:"used"`
	Reason  string `json:"reason,omitempty"`
}

// EstimateResponse 报价响应
type EstimateResponse struct {
	ID                string `json:"id"`
	EstimateRequestID string `json:"estimate_request_id"`
	DriverID          string `json:"driver_id"`
	DriverNickname    string `json:"driver_nickname,omitempty"`
	Price             int64  `json:"price"`
	Comment           string `json:"comment"`
	Status            string `json:"status"`
	IsDesignated      bool   `json:"is_designated"`
	CreatedAt         string `json:"created_at"`
}

// RejectionResponse 拒绝申请响应
type RejectionResponse struct {
	EstimateRequestID string `json:"estimate_request_id"`
	RequestStatus     string `json:"request_status"`
}

// AcceptEstimateResponse 接受报价响应
type AcceptEstimateResponse struct {
	EstimateID        string `json:"estimate_id"`
	EstimateRequestID string `json:"estimate_request_id"`
	AutoRejected      int    `json:"auto_rejected"`
}

// ── 批处理 DTO ──

// CompletionStatusResponse 完成批处理状态
type CompletionStatusResponse struct {
	Running     bool   `json:"running"`
	LastRunTime string `json:"last_run_time,omitempty"`
}

// CompletionRunResponse 手动执行结果
type CompletionRunResponse struct {
	Skipped   bool   `json:"skipped"`
	Reason    string `json:"reason,omitempty"`
	Batches   int    `json:"batches"`
	Completed int64  `json:"completed"`
}
