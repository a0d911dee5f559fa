package ballot

import (
	"github.com/UniVoteLab/campus-evoting-backend/internal/election"
	"gorm.io/gorm"
)

// ValidatedEntry 是校验通过后、单个职位的落账计划
type ValidatedEntry struct {
	PositionID   uint
	CandidateIDs []uint
	Abstain      bool
}

// ValidatedBallot 是整张选票的落账计划，只有它能进入协调器
type ValidatedBallot struct {
	ElectionID uint
	Entries    []ValidatedEntry
	// VoteCount 是整张选票将产生的Vote行数（不含弃权）
	VoteCount int
}

// ValidateBallot 对提交的选票做纯结构性校验。
// 它只读取当前配置，不做任何写入；任何单点失败都废弃整张选票，
// 绝不接受部分内容。
func ValidateBallot(db *gorm.DB, e *election.Election, req CastRequest) (*ValidatedBallot, error) {
	// 1. 一次性加载这场选举的职位和候选人配置
	positions, err := election.GetPositionsByElection(db, e.ID)
	if err != nil {
		return nil, storeFailure(err)
	}
	positionByID := make(map[uint]election.Position, len(positions))
	for _, p := range positions {
		positionByID[p.ID] = p
	}

	candidates, err := election.GetCandidatesByElection(db, e.ID)
	if err != nil {
		return nil, storeFailure(err)
	}
	candidateByID := make(map[uint]election.Candidate, len(candidates))
	for _, c := range candidates {
		candidateByID[c.ID] = c
	}

	maxVotes := e.MaxVotesPerPosition
	if maxVotes <= 0 {
		maxVotes = 1
	}

	// 2. 逐职位校验
	validated := &ValidatedBallot{ElectionID: e.ID}
	seenPositions := make(map[uint]bool)
	seenCandidates := make(map[uint]bool)

	for _, entry := range req.Ballot {
		pos, ok := positionByID[entry.PositionID]
		if !ok {
			return nil, newCastError(KindInvalidPosition, "职位 %d 不属于选举 %d", entry.PositionID, e.ID)
		}
		if !pos.Active {
			return nil, newCastError(KindInvalidPosition, "职位 %d 已停用", entry.PositionID)
		}
		if seenPositions[entry.PositionID] {
			return nil, newCastError(KindInvalidPosition, "职位 %d 在选票中出现了多次", entry.PositionID)
		}
		seenPositions[entry.PositionID] = true

		// 选择数上限把弃权标记也计算在内
		if len(entry.Selections) > maxVotes {
			return nil, newCastError(KindTooManyVotes, "职位 %d 最多接受 %d 个选择，收到 %d 个", entry.PositionID, maxVotes, len(entry.Selections))
		}

		plan := ValidatedEntry{PositionID: entry.PositionID}
		for _, sel := range entry.Selections {
			if sel.Abstain {
				if !e.AllowAbstain {
					return nil, newCastError(KindAbstainNotAllowed, "选举 %d 不允许弃权", e.ID)
				}
				if plan.Abstain || len(plan.CandidateIDs) > 0 {
					// 弃权是显式的“不作选择”，不能与其他选择并存
					return nil, newCastError(KindTooManyVotes, "职位 %d 的弃权标记不能与其他选择并存", entry.PositionID)
				}
				plan.Abstain = true
				continue
			}

			if plan.Abstain {
				return nil, newCastError(KindTooManyVotes, "职位 %d 的弃权标记不能与其他选择并存", entry.PositionID)
			}

			cand, ok := candidateByID[sel.CandidateID]
			if !ok || cand.PositionID != entry.PositionID || cand.ElectionID != e.ID {
				return nil, newCastError(KindInvalidCandidate, "候选人 %d 不属于职位 %d", sel.CandidateID, entry.PositionID)
			}
			if cand.Status != election.CandidateStatusActive {
				return nil, newCastError(KindInvalidCandidate, "候选人 %d 已被停用", sel.CandidateID)
			}
			if seenCandidates[sel.CandidateID] {
				return nil, newCastError(KindDuplicateCandidate, "候选人 %d 在选票中出现了多次", sel.CandidateID)
			}
			seenCandidates[sel.CandidateID] = true

			plan.CandidateIDs = append(plan.CandidateIDs, sel.CandidateID)
			validated.VoteCount++
		}

		validated.Entries = append(validated.Entries, plan)
	}

	return validated, nil
}
