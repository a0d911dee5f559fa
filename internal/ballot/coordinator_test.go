package ballot_test

import (
	"strings"
	"sync"
	"testing"

	"github.com/UniVoteLab/campus-evoting-backend/internal/audit"
	"github.com/UniVoteLab/campus-evoting-backend/internal/ballot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitBallotHappyPath(t *testing.T) {
	db := setupCore(t)
	seedBasicElection(t, db)
	seedVoter(t, db, 7, true, true)

	result, err := ballot.SubmitBallot(db, 7, singleBallot(1, 1, pick(101)), "10.0.0.1", "test-agent")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 1, result.VotesCastCount)
	assert.NotZero(t, result.SessionID)
	// 令牌形如 "<uuid>.<签名>"
	assert.Len(t, strings.Split(result.SessionToken, "."), 2)

	// 会话已完成
	var session ballot.VotingSession
	require.NoError(t, db.First(&session, result.SessionID).Error)
	assert.Equal(t, ballot.SessionCompleted, session.Status)
	require.NotNil(t, session.CompletedAt)

	// 选票与计票值一致
	var votes []ballot.Vote
	require.NoError(t, db.Find(&votes).Error)
	require.Len(t, votes, 1)
	assert.Equal(t, uint(101), votes[0].CandidateID)
	assert.NotEmpty(t, votes[0].VerificationCode)

	var counter ballot.TallyCounter
	require.NoError(t, db.First(&counter, "candidate_id = ?", 101).Error)
	assert.Equal(t, int64(1), counter.Count)

	// vote_cast审计记录已落账
	var auditCount int64
	require.NoError(t, db.Model(&audit.Entry{}).
		Where("action = ?", audit.ActionVoteCast).Count(&auditCount).Error)
	assert.Equal(t, int64(1), auditCount)
}

func TestSubmitBallotSecondAttemptRejectedAsAlreadyVoted(t *testing.T) {
	db := setupCore(t)
	seedBasicElection(t, db)
	seedVoter(t, db, 7, true, true)

	_, err := ballot.SubmitBallot(db, 7, singleBallot(1, 1, pick(101)), "10.0.0.1", "test-agent")
	require.NoError(t, err)

	_, err = ballot.SubmitBallot(db, 7, singleBallot(1, 1, pick(102)), "10.0.0.1", "test-agent")
	requireKind(t, err, ballot.KindAlreadyVoted)

	// 第二次尝试没有留下任何选票
	var voteCount int64
	require.NoError(t, db.Model(&ballot.Vote{}).Count(&voteCount).Error)
	assert.Equal(t, int64(1), voteCount)
}

func TestSubmitBallotRejectionLeavesNoBallotData(t *testing.T) {
	db := setupCore(t)
	seedBasicElection(t, db)
	seedVoter(t, db, 7, true, true)

	// 候选人999不存在，整张选票被废弃
	req := ballot.CastRequest{
		ElectionID: 1,
		Ballot: []ballot.PositionBallot{
			{PositionID: 1, Selections: pick(999)},
		},
	}
	_, err := ballot.SubmitBallot(db, 7, req, "10.0.0.1", "test-agent")
	requireKind(t, err, ballot.KindInvalidCandidate)

	var voteCount, abstainCount, sessionCount int64
	require.NoError(t, db.Model(&ballot.Vote{}).Count(&voteCount).Error)
	require.NoError(t, db.Model(&ballot.AbstainVote{}).Count(&abstainCount).Error)
	require.NoError(t, db.Model(&ballot.VotingSession{}).Count(&sessionCount).Error)
	assert.Zero(t, voteCount)
	assert.Zero(t, abstainCount)
	assert.Zero(t, sessionCount)

	// 但失败尝试留下了审计记录
	var failedCount int64
	require.NoError(t, db.Model(&audit.Entry{}).
		Where("action = ?", audit.ActionVoteAttemptFailed).Count(&failedCount).Error)
	assert.Equal(t, int64(1), failedCount)
}

func TestSubmitBallotMixedVoteAndAbstain(t *testing.T) {
	db := setupCore(t)
	seedElection(t, db, 7, true, 1)
	seedPosition(t, db, 1, 7, true)
	seedPosition(t, db, 2, 7, true)
	seedCandidate(t, db, 101, 1, 7)
	seedCandidate(t, db, 201, 2, 7)
	seedVoter(t, db, 9, true, true)

	req := ballot.CastRequest{
		ElectionID: 7,
		Ballot: []ballot.PositionBallot{
			{PositionID: 1, Selections: pick(101)},
			{PositionID: 2, Selections: abstain()},
		},
	}
	result, err := ballot.SubmitBallot(db, 9, req, "10.0.0.1", "test-agent")
	require.NoError(t, err)
	assert.Equal(t, 1, result.VotesCastCount)

	var votes []ballot.Vote
	require.NoError(t, db.Find(&votes).Error)
	require.Len(t, votes, 1)
	assert.Equal(t, uint(101), votes[0].CandidateID)

	var abstains []ballot.AbstainVote
	require.NoError(t, db.Find(&abstains).Error)
	require.Len(t, abstains, 1)
	assert.Equal(t, uint(2), abstains[0].PositionID)
	assert.Equal(t, uint(7), abstains[0].ElectionID)

	// 弃权不产生计票值
	var counter ballot.TallyCounter
	require.NoError(t, db.First(&counter, "candidate_id = ?", 101).Error)
	assert.Equal(t, int64(1), counter.Count)
	var counterCount int64
	require.NoError(t, db.Model(&ballot.TallyCounter{}).Count(&counterCount).Error)
	assert.Equal(t, int64(1), counterCount)
}

// 同一投票人的大量并发提交最多只能成功一次
func TestSubmitBallotConcurrentDuplicates(t *testing.T) {
	db := setupCore(t)
	seedBasicElection(t, db)
	seedVoter(t, db, 7, true, true)

	const goroutines = 50
	var wg sync.WaitGroup
	errs := make([]error, goroutines)

	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(idx int) {
			defer wg.Done()
			_, err := ballot.SubmitBallot(db, 7, singleBallot(1, 1, pick(101)), "10.0.0.1", "test-agent")
			errs[idx] = err
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		requireKind(t, err, ballot.KindAlreadyVoted)
	}
	assert.Equal(t, 1, succeeded, "并发提交必须恰好成功一次")

	// 核心不变量：恰好一个completed会话、一张选票、计票值为1
	var completedCount int64
	require.NoError(t, db.Model(&ballot.VotingSession{}).
		Where("voter_id = ? AND election_id = ? AND status = ?", 7, 1, ballot.SessionCompleted).
		Count(&completedCount).Error)
	assert.Equal(t, int64(1), completedCount)

	var voteCount int64
	require.NoError(t, db.Model(&ballot.Vote{}).Count(&voteCount).Error)
	assert.Equal(t, int64(1), voteCount)

	var counter ballot.TallyCounter
	require.NoError(t, db.First(&counter, "candidate_id = ?", 101).Error)
	assert.Equal(t, int64(1), counter.Count)
}

// 多个投票人并发投票后，计票值与选票行数严格一致
func TestSubmitBallotConcurrentVotersTallyConsistency(t *testing.T) {
	db := setupCore(t)
	seedBasicElection(t, db)

	const voters = 20
	for i := uint(1); i <= voters; i++ {
		seedVoter(t, db, i, true, true)
	}

	var wg sync.WaitGroup
	errs := make([]error, voters)

	wg.Add(voters)
	for i := uint(0); i < voters; i++ {
		go func(idx uint) {
			defer wg.Done()
			candidate := uint(101)
			if idx%2 == 1 {
				candidate = 102
			}
			_, err := ballot.SubmitBallot(db, idx+1, singleBallot(1, 1, pick(candidate)), "10.0.0.1", "test-agent")
			errs[idx] = err
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "投票人 %d 的提交失败", i+1)
	}

	tally, err := ballot.GetTally(db, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(voters/2), tally[101])
	assert.Equal(t, int64(voters/2), tally[102])

	// 计票值与真实选票行零偏差
	drifts, err := ballot.VerifyTally(db, 1)
	require.NoError(t, err)
	assert.Empty(t, drifts)
}
