package ballot_test

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/UniVoteLab/campus-evoting-backend/internal/ballot"
	"github.com/UniVoteLab/campus-evoting-backend/internal/election"
	"github.com/UniVoteLab/campus-evoting-backend/internal/platform/config"
	"github.com/UniVoteLab/campus-evoting-backend/internal/platform/database"
	"github.com/UniVoteLab/campus-evoting-backend/internal/platform/startup"
	"github.com/UniVoteLab/campus-evoting-backend/internal/voter"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// setupCore 初始化一个干净的SQLite测试数据库并完成全部迁移。
// Redis客户端保持为nil，所有路径都走SQLite回退。
func setupCore(t *testing.T) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "evoting_test.db")
	require.NoError(t, database.InitDB(path))
	database.RDB = nil

	// 测试默认放宽频率阈值，专门的限流测试会覆盖它
	config.Cfg = &config.Config{
		Voting: config.VotingConfig{
			RateLimitWindow:    2 * time.Minute,
			RateLimitThreshold: 1000,
		},
	}

	require.NoError(t, startup.InitializeApplication())
	return database.DB
}

// setRateLimit 覆盖频率限制配置，并在测试结束时恢复宽松默认值
func setRateLimit(t *testing.T, window time.Duration, threshold int64) {
	t.Helper()
	config.Cfg.Voting.RateLimitWindow = window
	config.Cfg.Voting.RateLimitThreshold = threshold
	t.Cleanup(func() {
		config.Cfg.Voting.RateLimitWindow = 2 * time.Minute
		config.Cfg.Voting.RateLimitThreshold = 1000
	})
}

func seedElection(t *testing.T, db *gorm.DB, id uint, allowAbstain bool, maxVotes int) *election.Election {
	t.Helper()
	e := &election.Election{
		Model:               gorm.Model{ID: id},
		Title:               "学生会换届选举",
		StartTime:           time.Now().Add(-time.Hour),
		EndTime:             time.Now().Add(time.Hour),
		Status:              election.StatusActive,
		AllowAbstain:        allowAbstain,
		MaxVotesPerPosition: maxVotes,
	}
	require.NoError(t, db.Create(e).Error)
	return e
}

func seedPosition(t *testing.T, db *gorm.DB, id, electionID uint, active bool) *election.Position {
	t.Helper()
	p := &election.Position{
		Model:      gorm.Model{ID: id},
		ElectionID: electionID,
		Title:      "职位",
		Active:     active,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

func seedCandidate(t *testing.T, db *gorm.DB, id, positionID, electionID uint) *election.Candidate {
	t.Helper()
	c := &election.Candidate{
		Model:      gorm.Model{ID: id},
		PositionID: positionID,
		ElectionID: electionID,
		Name:       "候选人",
		Status:     election.CandidateStatusActive,
	}
	require.NoError(t, db.Create(c).Error)
	return c
}

func seedVoter(t *testing.T, db *gorm.DB, id uint, verified, active bool) *voter.Voter {
	t.Helper()
	v := &voter.Voter{
		Model:         gorm.Model{ID: id},
		StudentNumber: fmt.Sprintf("S%06d", id),
		Verified:      verified,
		Active:        active,
	}
	require.NoError(t, db.Create(v).Error)
	return v
}

// seedBasicElection 建立一场单职位两候选人的标准选举：
// 选举1，职位1，候选人101和102
func seedBasicElection(t *testing.T, db *gorm.DB) {
	t.Helper()
	seedElection(t, db, 1, false, 1)
	seedPosition(t, db, 1, 1, true)
	seedCandidate(t, db, 101, 1, 1)
	seedCandidate(t, db, 102, 1, 1)
}

func pick(candidateIDs ...uint) []ballot.Selection {
	selections := make([]ballot.Selection, 0, len(candidateIDs))
	for _, id := range candidateIDs {
		selections = append(selections, ballot.Selection{CandidateID: id})
	}
	return selections
}

func abstain() []ballot.Selection {
	return []ballot.Selection{{Abstain: true}}
}

// singleBallot 构造只针对一个职位的提交请求
func singleBallot(electionID, positionID uint, selections []ballot.Selection) ballot.CastRequest {
	return ballot.CastRequest{
		ElectionID: electionID,
		Ballot: []ballot.PositionBallot{
			{PositionID: positionID, Selections: selections},
		},
	}
}
