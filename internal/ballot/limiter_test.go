package ballot_test

import (
	"testing"
	"time"

	"github.com/UniVoteLab/campus-evoting-backend/internal/audit"
	"github.com/UniVoteLab/campus-evoting-backend/internal/ballot"
	"github.com/UniVoteLab/campus-evoting-backend/internal/platform/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckAndRecordAttemptCountsFromLedger(t *testing.T) {
	db := setupCore(t)
	seedVoter(t, db, 7, true, true)

	now := time.Now()

	// 台账为空时，本次尝试是第一次
	count, err := ballot.CheckAndRecordAttempt(7, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// 窗口内的失败记录计入计数
	for i := 0; i < 3; i++ {
		require.NoError(t, audit.Record(db, ptr(uint(7)), audit.ActionVoteAttemptFailed,
			map[string]any{"n": i}, "10.0.0.1", "test-agent"))
	}
	count, err = ballot.CheckAndRecordAttempt(7, now.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)

	// 其他投票人的记录不影响计数
	require.NoError(t, audit.Record(db, ptr(uint(8)), audit.ActionVoteAttemptFailed,
		map[string]any{}, "10.0.0.1", "test-agent"))
	count, err = ballot.CheckAndRecordAttempt(7, now.Add(2*time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)
}

func TestIsRateLimitedThreshold(t *testing.T) {
	setupCore(t)
	setRateLimit(t, 2*time.Minute, 5)

	assert.False(t, ballot.IsRateLimited(5))
	assert.True(t, ballot.IsRateLimited(6))
}

// 窗口内第6次提交被拒绝，无论选票自身是否有效
func TestSubmitBallotSixthAttemptRateLimited(t *testing.T) {
	db := setupCore(t)
	seedBasicElection(t, db)
	seedVoter(t, db, 7, true, true)
	setRateLimit(t, 2*time.Minute, 5)

	// 前5次都提交无效选票，留下失败记录
	for i := 0; i < 5; i++ {
		_, err := ballot.SubmitBallot(db, 7, singleBallot(1, 999, pick(101)), "10.0.0.1", "test-agent")
		requireKind(t, err, ballot.KindInvalidPosition)
	}

	// 第6次是一张完全有效的选票，仍然被频率限制拒绝
	_, err := ballot.SubmitBallot(db, 7, singleBallot(1, 1, pick(101)), "10.0.0.1", "test-agent")
	requireKind(t, err, ballot.KindRateLimited)

	// 被拒绝的请求自身也落账为security_violation
	var violations int64
	require.NoError(t, db.Model(&audit.Entry{}).
		Where("voter_id = ? AND action = ?", 7, audit.ActionSecurityViolation).
		Count(&violations).Error)
	assert.Equal(t, int64(1), violations)

	// 没有任何选票数据产生
	var voteCount int64
	require.NoError(t, db.Model(&ballot.Vote{}).Count(&voteCount).Error)
	assert.Zero(t, voteCount)
}

func TestRateLimitWindowIsPerVoter(t *testing.T) {
	db := setupCore(t)
	seedBasicElection(t, db)
	seedVoter(t, db, 7, true, true)
	seedVoter(t, db, 8, true, true)
	setRateLimit(t, 2*time.Minute, 5)

	// 投票人7把自己的窗口打满
	for i := 0; i < 6; i++ {
		ballot.SubmitBallot(db, 7, singleBallot(1, 999, pick(101)), "10.0.0.1", "agent-a")
	}
	_, err := ballot.SubmitBallot(db, 7, singleBallot(1, 1, pick(101)), "10.0.0.1", "agent-a")
	requireKind(t, err, ballot.KindRateLimited)

	// 同一IP上的投票人8不受影响
	result, err := ballot.SubmitBallot(db, 8, singleBallot(1, 1, pick(102)), "10.0.0.1", "agent-b")
	require.NoError(t, err)
	assert.Equal(t, 1, result.VotesCastCount)
}

func TestRateLimitWindowSlides(t *testing.T) {
	db := setupCore(t)
	seedVoter(t, db, 7, true, true)
	setRateLimit(t, 2*time.Minute, 5)

	// 窗口之外的旧记录不计入
	old := audit.Entry{
		VoterID:   ptr(uint(7)),
		Action:    audit.ActionVoteAttemptFailed,
		Payload:   "{}",
		IP:        "10.0.0.1",
		Agent:     "test-agent",
		CreatedAt: time.Now().Add(-10 * time.Minute),
	}
	require.NoError(t, db.Create(&old).Error)

	count, err := ballot.CheckAndRecordAttempt(7, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestRebuildAttemptWindowsNoRedisIsNoop(t *testing.T) {
	setupCore(t)
	require.Nil(t, database.RDB)
	require.NoError(t, ballot.RebuildAttemptWindows())
}

func ptr[T any](v T) *T { return &v }
