package audit

import (
	"time"
)

// Action 定义了审计动作的枚举类型
type Action string

const (
	// ActionVoteCast 表示一次成功提交的选票
	ActionVoteCast Action = "vote_cast"
	// ActionVoteAttemptFailed 表示一次被拒绝或失败的投票尝试
	ActionVoteAttemptFailed Action = "vote_attempt_failed"
	// ActionSecurityViolation 表示一次被频率限制拦截的滥用行为
	ActionSecurityViolation Action = "security_violation"
)

// Entry 定义了审计台账中的一条记录。
// 台账是只追加的：记录一旦写入，永远不会被更新或删除。
type Entry struct {
	ID uint `gorm:"primarykey" json:"id"`

	// VoterID 可以为空，例如身份解析失败的请求
	VoterID *uint `json:"voter_id" gorm:"index"`

	Action Action `json:"action" gorm:"type:varchar(32);index:idx_audit_action_time"`

	// Payload 是动作相关上下文的JSON序列化
	Payload string `json:"payload"`

	IP    string `json:"ip" gorm:"type:varchar(45)"`
	Agent string `json:"agent"`

	CreatedAt time.Time `json:"created_at" gorm:"index:idx_audit_action_time"`
}
