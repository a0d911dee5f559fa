package ballot

import (
	"time"

	"github.com/UniVoteLab/campus-evoting-backend/internal/election"
	"github.com/UniVoteLab/campus-evoting-backend/internal/voter"
	"gorm.io/gorm"
)

// CheckEligibility 按顺序检查投票资格：
// 投票人存在且活跃且已验证 → 选举存在、处于active状态且当前时间在窗口内 →
// 该(投票人, 选举)尚无completed会话。
// 第一个违例即失败，失败路径上没有任何写入。
func CheckEligibility(db *gorm.DB, voterID, electionID uint, now time.Time) (*election.Election, error) {
	// 1. 投票人检查
	v, err := voter.GetVoterByID(db, voterID)
	if err != nil {
		return nil, storeFailure(err)
	}
	if v == nil {
		return nil, notEligible(ReasonNotFound, "投票人 %d 不存在", voterID)
	}
	if !v.Active || !v.Verified {
		// 被禁用的账号与未验证的账号对外呈现一致
		return nil, notEligible(ReasonUnverified, "投票人 %d 尚未通过身份验证", voterID)
	}

	// 2. 选举检查
	e, err := election.GetElectionByID(db, electionID)
	if err != nil {
		return nil, storeFailure(err)
	}
	if e == nil {
		return nil, notEligible(ReasonNotFound, "选举 %d 不存在", electionID)
	}
	if !e.IsOpenAt(now) {
		return nil, notEligible(ReasonElectionInactive, "选举 %d 当前不接受投票", electionID)
	}

	// 3. 重复投票预检
	// 提交时协调器还会在事务内复查一次，关闭并发窗口
	completed, err := hasCompletedSession(db, voterID, electionID)
	if err != nil {
		return nil, storeFailure(err)
	}
	if completed {
		return nil, newCastError(KindAlreadyVoted, "投票人 %d 已在选举 %d 中完成投票", voterID, electionID)
	}

	return e, nil
}

// hasCompletedSession 查询是否已存在completed状态的会话
func hasCompletedSession(db *gorm.DB, voterID, electionID uint) (bool, error) {
	var count int64
	err := db.Model(&VotingSession{}).
		Where("voter_id = ? AND election_id = ? AND status = ?", voterID, electionID, SessionCompleted).
		Count(&count).Error
	return count > 0, err
}
