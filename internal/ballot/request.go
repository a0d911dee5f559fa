package ballot

import (
	"encoding/json"
	"errors"
	"fmt"
)

// AbstainMarker 是请求体中表示弃权的字面量
const AbstainMarker = "ABSTAIN"

// Selection 是选票中单个选择的带标签变体：
// 要么是一个候选人ID，要么是一个显式的弃权标记。
// 非法的形态在反序列化时就被拒绝，不会进入后续校验。
type Selection struct {
	CandidateID uint
	Abstain     bool
}

// UnmarshalJSON 接受两种形态：数字（候选人ID）或字符串"ABSTAIN"
func (s *Selection) UnmarshalJSON(data []byte) error {
	var id uint
	if err := json.Unmarshal(data, &id); err == nil {
		if id == 0 {
			return errors.New("候选人ID必须为正整数")
		}
		s.CandidateID = id
		s.Abstain = false
		return nil
	}

	var marker string
	if err := json.Unmarshal(data, &marker); err == nil {
		if marker != AbstainMarker {
			return fmt.Errorf("无法识别的选择标记: %q", marker)
		}
		s.CandidateID = 0
		s.Abstain = true
		return nil
	}

	return errors.New("选择必须是候选人ID或\"ABSTAIN\"")
}

// MarshalJSON 与UnmarshalJSON对称
func (s Selection) MarshalJSON() ([]byte, error) {
	if s.Abstain {
		return json.Marshal(AbstainMarker)
	}
	return json.Marshal(s.CandidateID)
}

// PositionBallot 是选票中针对单个职位的部分
type PositionBallot struct {
	PositionID uint        `json:"position_id" binding:"required"`
	Selections []Selection `json:"candidate_selections"`
}

// CastRequest 定义了提交选票时请求体的JSON结构
type CastRequest struct {
	ElectionID uint             `json:"election_id" binding:"required"`
	Ballot     []PositionBallot `json:"ballot" binding:"required"`
}

// CastResult 是一次成功提交的返回值
type CastResult struct {
	SessionID      uint   `json:"session_id"`
	SessionToken   string `json:"session_token"`
	VotesCastCount int    `json:"votes_cast_count"`
}
