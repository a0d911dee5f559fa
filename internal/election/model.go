package election

import (
	"time"

	"gorm.io/gorm"
)

// Status 定义了选举生命周期的枚举类型
type Status string

const (
	// StatusDraft 表示选举仍在编辑中
	StatusDraft Status = "draft"
	// StatusScheduled 表示选举已排期但尚未开始
	StatusScheduled Status = "scheduled"
	// StatusActive 表示选举正在进行，只有此状态接受投票
	StatusActive Status = "active"
	// StatusPaused 表示选举被管理员临时暂停
	StatusPaused Status = "paused"
	// StatusCompleted 表示选举已正常结束
	StatusCompleted Status = "completed"
	// StatusCancelled 表示选举被取消
	StatusCancelled Status = "cancelled"
)

// Election 定义了一场选举的配置。
// 这些行由外部的选举管理系统维护，投票核心只读取它们。
type Election struct {
	gorm.Model

	Title string `json:"title"`

	// StartTime 和 EndTime 共同构成投票时间窗口
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`

	Status Status `json:"status" gorm:"type:varchar(16);index"`

	// AllowAbstain 控制选票中是否接受弃权标记
	AllowAbstain bool `json:"allow_abstain"`

	// MaxVotesPerPosition 是每个职位默认允许的最大选择数，通常为1
	MaxVotesPerPosition int `json:"max_votes_per_position"`
}

// IsOpenAt 判断选举在给定时刻是否接受投票
func (e *Election) IsOpenAt(t time.Time) bool {
	return e.Status == StatusActive && !t.Before(e.StartTime) && !t.After(e.EndTime)
}

// Position 定义了选举中的一个职位。
// 每个职位从属于唯一一场选举。
type Position struct {
	gorm.Model

	ElectionID uint `json:"election_id" gorm:"index"`

	Title string `json:"title"`

	// Active 为false的职位不接受任何选票
	Active bool `json:"active"`

	// DisplayOrder 决定职位在选票上的呈现顺序
	DisplayOrder int `json:"display_order"`
}

// Candidate 定义了一个职位下的候选人。
// ElectionID 是冗余字段，与所属职位的ElectionID保持一致，用于快速校验。
type Candidate struct {
	gorm.Model

	PositionID uint `json:"position_id" gorm:"index"`
	ElectionID uint `json:"election_id" gorm:"index"`

	Name string `json:"name"`

	Status string `json:"status" gorm:"type:varchar(16)"`
}

// CandidateStatusActive 是允许获得选票的候选人状态
const CandidateStatusActive = "active"
