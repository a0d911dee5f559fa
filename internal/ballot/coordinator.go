package ballot

import (
	"fmt"
	"time"

	"github.com/UniVoteLab/campus-evoting-backend/internal/audit"
	"github.com/UniVoteLab/campus-evoting-backend/internal/platform/database"
	"github.com/UniVoteLab/campus-evoting-backend/pkg/token"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// castAuditPayload 是vote_cast审计记录的内容摘要
type castAuditPayload struct {
	ElectionID   uint   `json:"election_id"`
	SessionID    uint   `json:"session_id"`
	PositionCnt  int    `json:"position_count"`
	VoteCnt      int    `json:"vote_count"`
	AbstainCnt   int    `json:"abstain_count"`
	CandidateIDs []uint `json:"candidate_ids"`
}

// CommitBallot 原子地落账一张已通过全部校验的选票。
// 所有步骤在同一个数据库事务内完成：创建会话、事务内复查重复投票、
// 写入Vote/AbstainVote行、自增计票值、标记会话完成、追加审计记录。
// 任何一步失败都会完整回滚，外界观察不到任何中间状态。
func CommitBallot(db *gorm.DB, voterID uint, plan *ValidatedBallot, clientIP, clientAgent string, now time.Time) (*CastResult, error) {
	var result CastResult
	deltas := make(map[uint]int64)

	err := db.Transaction(func(tx *gorm.DB) error {
		// 1. 生成全新的会话令牌并创建active会话
		sessionUUID, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("无法生成会话UUID: %w", err)
		}
		signature, err := token.SignSessionPayload(token.SessionPayload{
			SessionUUID: sessionUUID.String(),
			VoterID:     voterID,
			ElectionID:  plan.ElectionID,
		})
		if err != nil {
			return fmt.Errorf("无法签名会话令牌: %w", err)
		}

		session := VotingSession{
			VoterID:      voterID,
			ElectionID:   plan.ElectionID,
			SessionToken: sessionUUID.String() + "." + signature,
			Status:       SessionActive,
			IP:           clientIP,
			Agent:        clientAgent,
		}
		if err := tx.Create(&session).Error; err != nil {
			return fmt.Errorf("无法创建投票会话: %w", err)
		}

		// 2. 在事务内复查重复投票
		// 两个并发请求可能都通过了资格预检，这一步关闭竞争窗口；
		// completed会话上的部分唯一索引是最终的权威防线
		var conflicting int64
		err = tx.Model(&VotingSession{}).
			Where("voter_id = ? AND election_id = ? AND status = ? AND id <> ?",
				voterID, plan.ElectionID, SessionCompleted, session.ID).
			Count(&conflicting).Error
		if err != nil {
			return fmt.Errorf("无法复查投票状态: %w", err)
		}
		if conflicting > 0 {
			return newCastError(KindAlreadyVoted, "投票人 %d 已在选举 %d 中完成投票", voterID, plan.ElectionID)
		}

		// 3. 写入选票行并累计计票增量
		var candidateIDs []uint
		abstainCount := 0
		for _, entry := range plan.Entries {
			if entry.Abstain {
				abstain := AbstainVote{
					SessionID:  session.ID,
					PositionID: entry.PositionID,
					ElectionID: plan.ElectionID,
					CastAt:     now,
				}
				if err := tx.Create(&abstain).Error; err != nil {
					return fmt.Errorf("无法写入弃权记录: %w", err)
				}
				abstainCount++
				continue
			}
			for _, candidateID := range entry.CandidateIDs {
				vote := Vote{
					SessionID:        session.ID,
					PositionID:       entry.PositionID,
					CandidateID:      candidateID,
					CastAt:           now,
					VerificationCode: uuid.NewString(),
				}
				if err := tx.Create(&vote).Error; err != nil {
					return fmt.Errorf("无法写入选票: %w", err)
				}
				deltas[candidateID]++
				candidateIDs = append(candidateIDs, candidateID)
			}
		}

		if err := applyTallyDeltas(tx, deltas); err != nil {
			return err
		}

		// 4. 标记会话完成
		// completed上的唯一索引在这里最终裁决并发竞争
		err = tx.Model(&session).Updates(map[string]interface{}{
			"status":       SessionCompleted,
			"completed_at": now,
		}).Error
		if err != nil {
			return fmt.Errorf("无法完成投票会话: %w", err)
		}

		// 5. 在同一事务内追加vote_cast审计记录
		err = audit.Record(tx, &voterID, audit.ActionVoteCast, castAuditPayload{
			ElectionID:   plan.ElectionID,
			SessionID:    session.ID,
			PositionCnt:  len(plan.Entries),
			VoteCnt:      plan.VoteCount,
			AbstainCnt:   abstainCount,
			CandidateIDs: candidateIDs,
		}, clientIP, clientAgent)
		if err != nil {
			return fmt.Errorf("无法写入审计记录: %w", err)
		}

		result = CastResult{
			SessionID:      session.ID,
			SessionToken:   session.SessionToken,
			VotesCastCount: plan.VoteCount,
		}
		return nil
	})

	if err != nil {
		if ce, ok := AsCastError(err); ok {
			return nil, ce
		}
		if database.IsDuplicateKeyError(err) {
			// 唯一索引拦截了并发竞争，与预检发现的重复投票呈现一致
			return nil, newCastError(KindAlreadyVoted, "投票人 %d 已在选举 %d 中完成投票", voterID, plan.ElectionID)
		}
		return nil, storeFailure(err)
	}

	// 事务已提交，尽力同步计票镜像
	mirrorTallyDeltas(plan.ElectionID, deltas)

	return &result, nil
}
