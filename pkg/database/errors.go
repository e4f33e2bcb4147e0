package database

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// PostgreSQL 唯一约束冲突错误码
const uniqueViolationCode = "23505"

// IsUniqueViolation 判断是否为唯一约束冲突
// 开启 TranslateError 时 GORM 会转换为 ErrDuplicatedKey，否则保留原始 pgconn 错误
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}
