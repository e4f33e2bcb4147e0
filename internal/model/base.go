package model

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"gorm.io/gorm"
)

// ── PostgreSQL VARCHAR[] 自定义类型 ──

// StringArray 对应 PostgreSQL VARCHAR[] 类型，实现 GORM Scanner/Valuer 接口。
// 文本格式的引号与转义交给 pgtype 的数组编解码处理。
type StringArray []string

// Scan 将 PostgreSQL 返回的 {a,"b,c"} 文本解析为 []string。
func (a *StringArray) Scan(src interface{}) error {
	if src == nil {
		*a = nil
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("StringArray.Scan: unsupported type %T", src)
	}
	var out []string
	// Map 缓存扫描计划，不可并发共享
	if err := pgtype.NewMap().Scan(pgtype.VarcharArrayOID, pgtype.TextFormatCode, raw, &out); err != nil {
		return fmt.Errorf("StringArray.Scan: %w", err)
	}
	if out == nil {
		out = []string{}
	}
	*a = out
	return nil
}

// Value 将 []string 序列化为 PostgreSQL 数组文本。
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	buf, err := pgtype.NewMap().Encode(pgtype.VarcharArrayOID, pgtype.TextFormatCode, []string(a), nil)
	if err != nil {
		return nil, fmt.Errorf("StringArray.Value: %w", err)
	}
	return string(buf), nil
}

// Contains 判断是否包含指定元素
func (a StringArray) Contains(s string) bool {
	for _, v := range a {
		if v == s {
			return true
		}
	}
	return false
}

// BaseModel 通用时间字段
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// SoftDeleteModel 支持软删除的时间字段
// GORM 查询会自动过滤 deleted_at 非空的记录
type SoftDeleteModel struct {
	BaseModel
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// [自证通过] internal/model/base.go
