package database

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// IsDuplicateKeyError 判断一个数据库错误是否由唯一约束冲突引起。
// 投票核心用它来区分“重复投票”和真正的基础设施故障。
func IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// SQLite驱动在部分索引上的冲突不会被GORM翻译，兜底匹配错误文本
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// IsRetryableError 判断一个数据库错误是否是可重试的瞬时错误。
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}
