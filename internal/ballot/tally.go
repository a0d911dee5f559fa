package ballot

import (
	"fmt"
	"strconv"
	"time"

	"github.com/UniVoteLab/campus-evoting-backend/internal/election"
	"github.com/UniVoteLab/campus-evoting-backend/internal/platform/database"
	"github.com/UniVoteLab/campus-evoting-backend/internal/platform/metadata"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// tallyKeyPrefix 是Redis中每场选举计票镜像（哈希表）的键名前缀
// Field: 候选人ID, Value: 票数
const tallyKeyPrefix = "tally:"

func tallyKey(electionID uint) string {
	return fmt.Sprintf("%s%d", tallyKeyPrefix, electionID)
}

// applyTallyDeltas 在协调器事务内对每个候选人的权威计票值做原子自增。
// 使用数据库侧的 count = count + ? 而不是应用层的读改写，
// 避免高并发下的更新丢失。
func applyTallyDeltas(tx *gorm.DB, deltas map[uint]int64) error {
	for candidateID, delta := range deltas {
		counter := TallyCounter{CandidateID: candidateID, Count: delta}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "candidate_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"count": gorm.Expr("count + ?", delta)}),
		}).Create(&counter).Error
		if err != nil {
			return fmt.Errorf("无法更新候选人 %d 的计票值: %w", candidateID, err)
		}
	}
	return nil
}

// mirrorTallyDeltas 将已提交的增量尽力同步到Redis镜像。
// 镜像永远不是权威数据，失败只打印告警，由巡查员在下一轮修复。
func mirrorTallyDeltas(electionID uint, deltas map[uint]int64) {
	if !database.RedisAvailable() || len(deltas) == 0 {
		return
	}
	pipe := database.RDB.Pipeline()
	key := tallyKey(electionID)
	for candidateID, delta := range deltas {
		pipe.HIncrBy(database.Ctx, key, strconv.FormatUint(uint64(candidateID), 10), delta)
	}
	if _, err := pipe.Exec(database.Ctx); err != nil {
		fmt.Printf("警告: 计票镜像同步失败 (election=%d): %v\n", electionID, err)
	}
}

// GetTally 返回一场选举的全部候选人票数。
// 优先读取Redis镜像，镜像不可用时回退到SQLite中的权威计票表。
func GetTally(db *gorm.DB, electionID uint) (map[uint]int64, error) {
	if database.RedisAvailable() {
		raw, err := database.RDB.HGetAll(database.Ctx, tallyKey(electionID)).Result()
		if err == nil && len(raw) > 0 {
			result := make(map[uint]int64, len(raw))
			for field, value := range raw {
				id, err1 := strconv.ParseUint(field, 10, 32)
				count, err2 := strconv.ParseInt(value, 10, 64)
				if err1 != nil || err2 != nil {
					continue
				}
				result[uint(id)] = count
			}
			return result, nil
		}
	}
	return getTallyFromDB(db, electionID)
}

// getTallyFromDB 从权威计票表读取一场选举的票数
func getTallyFromDB(db *gorm.DB, electionID uint) (map[uint]int64, error) {
	candidates, err := election.GetCandidatesByElection(db, electionID)
	if err != nil {
		return nil, err
	}

	result := make(map[uint]int64, len(candidates))
	for _, c := range candidates {
		result[c.ID] = 0
	}

	var counters []TallyCounter
	ids := make([]uint, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.ID)
	}
	if len(ids) > 0 {
		if err := db.Where("candidate_id IN ?", ids).Find(&counters).Error; err != nil {
			return nil, err
		}
	}
	for _, counter := range counters {
		result[counter.CandidateID] = counter.Count
	}
	return result, nil
}

// TallyDrift 描述一处计票值与真实Vote行数的偏差。
// 因为Vote只追加、从不修改，偏差意味着bug而不是合法状态。
type TallyDrift struct {
	CandidateID uint  `json:"candidate_id"`
	Cached      int64 `json:"cached"`
	Actual      int64 `json:"actual"`
}

// VerifyTally 核对一场选举中每个候选人的计票值是否等于Vote行数
func VerifyTally(db *gorm.DB, electionID uint) ([]TallyDrift, error) {
	candidates, err := election.GetCandidatesByElection(db, electionID)
	if err != nil {
		return nil, err
	}

	var drifts []TallyDrift
	for _, c := range candidates {
		actual, err := countVotesForCandidate(db, c.ID)
		if err != nil {
			return nil, err
		}

		var counter TallyCounter
		cached := int64(0)
		if err := db.First(&counter, "candidate_id = ?", c.ID).Error; err == nil {
			cached = counter.Count
		}

		if cached != actual {
			drifts = append(drifts, TallyDrift{CandidateID: c.ID, Cached: cached, Actual: actual})
		}
	}
	return drifts, nil
}

// RebuildTally 从权威的Vote行重算一场选举的全部计票值并修复偏差。
// 修复操作可以在任何时刻安全执行。
func RebuildTally(db *gorm.DB, electionID uint) error {
	fmt.Printf("正在重建选举 %d 的计票数据...\n", electionID)

	candidates, err := election.GetCandidatesByElection(db, electionID)
	if err != nil {
		return fmt.Errorf("无法读取选举 %d 的候选人: %w", electionID, err)
	}

	// 1. 在一个事务内重算并写回权威计票表
	recomputed := make(map[uint]int64, len(candidates))
	err = db.Transaction(func(tx *gorm.DB) error {
		for _, c := range candidates {
			actual, err := countVotesForCandidate(tx, c.ID)
			if err != nil {
				return err
			}
			recomputed[c.ID] = actual

			counter := TallyCounter{CandidateID: c.ID, Count: actual}
			err = tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "candidate_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"count"}),
			}).Create(&counter).Error
			if err != nil {
				return err
			}
		}
		return metadata.MarkTallyRebuilt(tx, time.Now())
	})
	if err != nil {
		return fmt.Errorf("重建选举 %d 的计票表失败: %w", electionID, err)
	}

	// 2. 刷新Redis镜像
	refreshTallyMirror(electionID, recomputed)

	fmt.Printf("选举 %d 的计票数据重建完成，共 %d 个候选人。\n", electionID, len(candidates))
	return nil
}

// refreshTallyMirror 用重算结果整体替换一场选举的Redis镜像
func refreshTallyMirror(electionID uint, counts map[uint]int64) {
	if !database.RedisAvailable() {
		return
	}
	key := tallyKey(electionID)
	pipe := database.RDB.TxPipeline()
	pipe.Del(database.Ctx, key)
	if len(counts) > 0 {
		fields := make(map[string]interface{}, len(counts))
		for candidateID, count := range counts {
			fields[strconv.FormatUint(uint64(candidateID), 10)] = count
		}
		pipe.HSet(database.Ctx, key, fields)
	}
	if _, err := pipe.Exec(database.Ctx); err != nil {
		fmt.Printf("警告: 刷新计票镜像失败 (election=%d): %v\n", electionID, err)
	}
}

// WarmupTallyMirror 在启动或Redis恢复时，把所有选举的权威计票值预热到镜像
func WarmupTallyMirror() error {
	if database.RDB == nil {
		return nil
	}

	var elections []election.Election
	if err := database.DB.Find(&elections).Error; err != nil {
		return fmt.Errorf("无法读取选举列表: %w", err)
	}

	for _, e := range elections {
		counts, err := getTallyFromDB(database.DB, e.ID)
		if err != nil {
			return fmt.Errorf("无法读取选举 %d 的计票值: %w", e.ID, err)
		}
		refreshTallyMirror(e.ID, counts)
	}

	fmt.Printf("成功预热 %d 场选举的计票镜像。\n", len(elections))
	return nil
}

// countVotesForCandidate 统计一个候选人的真实Vote行数
func countVotesForCandidate(db *gorm.DB, candidateID uint) (int64, error) {
	var count int64
	err := db.Model(&Vote{}).Where("candidate_id = ?", candidateID).Count(&count).Error
	return count, err
}
