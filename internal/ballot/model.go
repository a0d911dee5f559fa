package ballot

import (
	"time"

	"gorm.io/gorm"
)

// SessionStatus 定义了投票会话状态的枚举类型
type SessionStatus string

const (
	// SessionActive 表示会话已创建但尚未提交成功
	SessionActive SessionStatus = "active"
	// SessionCompleted 表示会话已成功提交选票
	// 每个(投票人, 选举)组合最多只允许一个completed会话，这是核心不变量
	SessionCompleted SessionStatus = "completed"
	// SessionExpired 表示会话被标记为已过期
	SessionExpired SessionStatus = "expired"
)

// VotingSession 代表一个投票人在一场选举中的一次投票尝试。
// 失败的尝试会留下active/expired的会话，它们从不被删除，
// 也不阻止后续的有效尝试。
type VotingSession struct {
	gorm.Model

	VoterID    uint `json:"voter_id" gorm:"index:idx_session_voter_election"`
	ElectionID uint `json:"election_id" gorm:"index:idx_session_voter_election"`

	// SessionToken 是对外不透明的签名令牌
	SessionToken string `json:"session_token" gorm:"type:varchar(128)"`

	Status SessionStatus `json:"status" gorm:"type:varchar(16);index"`

	CompletedAt *time.Time `json:"completed_at"`

	// 审计所需的客户端元数据
	IP    string `json:"ip" gorm:"type:varchar(45)"`
	Agent string `json:"agent"`
}

// Vote 是一张已落账的选票。
// 它只在协调器事务成功时写入，之后永远不被更新或删除。
type Vote struct {
	ID uint `gorm:"primarykey" json:"id"`

	SessionID   uint `json:"session_id" gorm:"index"`
	PositionID  uint `json:"position_id" gorm:"index"`
	CandidateID uint `json:"candidate_id" gorm:"index"`

	CastAt time.Time `json:"cast_at"`

	// VerificationCode 供事后审计核对单张选票
	VerificationCode string `json:"verification_code" gorm:"type:varchar(36)"`
}

// AbstainVote 是一条显式的弃权记录，与Vote同样只追加。
type AbstainVote struct {
	ID uint `gorm:"primarykey" json:"id"`

	SessionID  uint `json:"session_id" gorm:"index"`
	PositionID uint `json:"position_id" gorm:"index"`
	ElectionID uint `json:"election_id" gorm:"index"`

	CastAt time.Time `json:"cast_at"`
}

// TallyCounter 是每个候选人的冗余计票值。
// 它是派生数据：必须始终等于该候选人的Vote行数，可以随时从Vote重算修复。
type TallyCounter struct {
	CandidateID uint  `gorm:"primaryKey" json:"candidate_id"`
	Count       int64 `json:"count"`
}
