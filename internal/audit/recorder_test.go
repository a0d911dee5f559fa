package audit_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/UniVoteLab/campus-evoting-backend/internal/audit"
	"github.com/UniVoteLab/campus-evoting-backend/internal/platform/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupLedger(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audit_test.db")
	require.NoError(t, database.InitDB(path))
	require.NoError(t, audit.PrimeDB())
	return database.DB
}

func voterRef(id uint) *uint { return &id }

func TestRecordSerializesPayload(t *testing.T) {
	db := setupLedger(t)

	payload := map[string]any{"election_id": 1, "error_kind": "InvalidCandidate"}
	require.NoError(t, audit.Record(db, voterRef(7), audit.ActionVoteAttemptFailed,
		payload, "10.0.0.1", "test-agent"))

	var entry audit.Entry
	require.NoError(t, db.First(&entry).Error)
	require.NotNil(t, entry.VoterID)
	assert.Equal(t, uint(7), *entry.VoterID)
	assert.Equal(t, audit.ActionVoteAttemptFailed, entry.Action)
	assert.JSONEq(t, `{"election_id":1,"error_kind":"InvalidCandidate"}`, entry.Payload)
	assert.Equal(t, "10.0.0.1", entry.IP)
	assert.False(t, entry.CreatedAt.IsZero())
}

func TestRecordAcceptsNilVoterAndPayload(t *testing.T) {
	db := setupLedger(t)

	require.NoError(t, audit.Record(db, nil, audit.ActionSecurityViolation, nil, "10.0.0.1", "test-agent"))

	var entry audit.Entry
	require.NoError(t, db.First(&entry).Error)
	assert.Nil(t, entry.VoterID)
	assert.Equal(t, "{}", entry.Payload)
}

func TestCountRecentAttemptsFiltersByVoterWindowAndAction(t *testing.T) {
	db := setupLedger(t)
	now := time.Now()
	attemptActions := []audit.Action{audit.ActionVoteCast, audit.ActionVoteAttemptFailed}

	seed := func(voterID uint, action audit.Action, at time.Time) {
		entry := audit.Entry{
			VoterID:   voterRef(voterID),
			Action:    action,
			Payload:   "{}",
			IP:        "10.0.0.1",
			Agent:     "test-agent",
			CreatedAt: at,
		}
		require.NoError(t, db.Create(&entry).Error)
	}

	seed(7, audit.ActionVoteAttemptFailed, now.Add(-time.Minute))
	seed(7, audit.ActionVoteCast, now.Add(-30*time.Second))
	seed(7, audit.ActionVoteAttemptFailed, now.Add(-10*time.Minute)) // 窗口外
	seed(8, audit.ActionVoteAttemptFailed, now.Add(-time.Minute))    // 其他投票人

	count, err := audit.CountRecentAttempts(db, 7, now.Add(-2*time.Minute), attemptActions)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestAllRecentAttemptsGroupsByVoter(t *testing.T) {
	db := setupLedger(t)
	now := time.Now()
	attemptActions := []audit.Action{audit.ActionVoteAttemptFailed}

	for i := 0; i < 3; i++ {
		entry := audit.Entry{
			VoterID:   voterRef(7),
			Action:    audit.ActionVoteAttemptFailed,
			Payload:   "{}",
			CreatedAt: now.Add(-time.Duration(i) * time.Second),
		}
		require.NoError(t, db.Create(&entry).Error)
	}
	entry := audit.Entry{
		VoterID:   voterRef(8),
		Action:    audit.ActionVoteAttemptFailed,
		Payload:   "{}",
		CreatedAt: now,
	}
	require.NoError(t, db.Create(&entry).Error)

	grouped, err := audit.AllRecentAttempts(db, now.Add(-time.Minute), attemptActions)
	require.NoError(t, err)
	assert.Len(t, grouped[7], 3)
	assert.Len(t, grouped[8], 1)
}
