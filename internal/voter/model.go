package voter

import (
	"gorm.io/gorm"
)

// Voter 定义了投票人在数据库中的持久化模型。
// 身份的建立（注册、验证、登录）由外部的身份系统负责，
// 投票核心只读取verified和active两个标志。
type Voter struct {
	gorm.Model

	StudentNumber string `json:"student_number" gorm:"uniqueIndex;type:varchar(32)"`

	// Verified 表示投票人是否已通过身份验证
	Verified bool `json:"verified"`

	// Active 为false的投票人被外部系统禁用
	Active bool `json:"active"`
}
