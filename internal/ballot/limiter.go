package ballot

import (
	"context"
	"fmt"
	"time"

	"github.com/UniVoteLab/campus-evoting-backend/internal/audit"
	"github.com/UniVoteLab/campus-evoting-backend/internal/platform/config"
	"github.com/UniVoteLab/campus-evoting-backend/internal/platform/database"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// attemptKeyPrefix 是Redis中投票人尝试窗口（有序集合）的键名前缀
	attemptKeyPrefix = "voter_attempts:"

	// defaultAttemptWindow 和 defaultAttemptThreshold 在未加载配置时生效
	defaultAttemptWindow    = 2 * time.Minute
	defaultAttemptThreshold = int64(5)
)

// attemptActions 是计入滑动窗口的审计动作。
// 被频率限制拒绝的请求自身也计入，因此security_violation也在其中。
var attemptActions = []audit.Action{
	audit.ActionVoteCast,
	audit.ActionVoteAttemptFailed,
	audit.ActionSecurityViolation,
}

// attemptWindow 返回当前配置的滑动窗口长度
func attemptWindow() time.Duration {
	if config.Cfg != nil && config.Cfg.Voting.RateLimitWindow > 0 {
		return config.Cfg.Voting.RateLimitWindow
	}
	return defaultAttemptWindow
}

// attemptThreshold 返回窗口内允许的最大尝试数
func attemptThreshold() int64 {
	if config.Cfg != nil && config.Cfg.Voting.RateLimitThreshold > 0 {
		return config.Cfg.Voting.RateLimitThreshold
	}
	return defaultAttemptThreshold
}

// attemptTTL 是窗口键的生存时间，比窗口稍长以作缓冲
func attemptTTL() time.Duration {
	return attemptWindow() + time.Minute
}

// CheckAndRecordAttempt 为一个投票人原子地记录一次新的尝试，
// 并返回其在滑动窗口内的总尝试数（包含本次）。
// 窗口是按投票人划分的，从不按IP划分：共用机房终端是预期场景。
// Redis不可用时回退到统计SQLite审计台账。
func CheckAndRecordAttempt(voterID uint, now time.Time) (int64, error) {
	if !database.RedisAvailable() {
		return countAttemptsFromLedger(voterID, now)
	}

	key := attemptKey(voterID)
	// 1. 计算窗口前沿的时间戳，作为清理的边界
	minTimestamp := float64(now.Add(-attemptWindow()).UnixMicro())

	// 2. 生成本次尝试的Score和Member
	scoreTime := float64(now.UnixMicro())
	member := uuid.NewString()

	// 3. 使用Redis事务(TxPipeline)保证所有操作的原子性
	pipe := database.RDB.TxPipeline()
	// a. 移除所有滑出窗口的旧记录
	pipe.ZRemRangeByScore(database.Ctx, key, "-inf", fmt.Sprintf("(%f", minTimestamp))
	// b. 添加本次尝试
	pipe.ZAdd(database.Ctx, key, redis.Z{Score: scoreTime, Member: member})
	// c. 刷新过期时间
	pipe.Expire(database.Ctx, key, attemptTTL())
	// d. 获取更新后的总数
	countCmd := pipe.ZCard(database.Ctx, key)

	if _, err := pipe.Exec(database.Ctx); err != nil {
		// 滥用防护是防御纵深而非正确性不变量，降级到台账统计
		fmt.Printf("警告: 尝试窗口写入Redis失败，回退到台账统计: %v\n", err)
		return countAttemptsFromLedger(voterID, now)
	}

	return countCmd.Result()
}

// countAttemptsFromLedger 从审计台账统计窗口内的尝试数。
// 本次尝试尚未落账，所以在结果上加一。
func countAttemptsFromLedger(voterID uint, now time.Time) (int64, error) {
	since := now.Add(-attemptWindow())
	count, err := audit.CountRecentAttempts(database.DB, voterID, since, attemptActions)
	if err != nil {
		return 0, fmt.Errorf("无法从审计台账统计尝试次数: %w", err)
	}
	return count + 1, nil
}

// IsRateLimited 判断一个窗口计数是否超过了阈值
func IsRateLimited(count int64) bool {
	return count > attemptThreshold()
}

// RebuildAttemptWindows 从审计台账重建所有投票人的Redis尝试窗口。
// 应用启动和Redis从故障中恢复时都会调用它。
func RebuildAttemptWindows() error {
	if database.RDB == nil {
		return nil
	}
	fmt.Println("正在从审计台账重建投票尝试窗口...")

	// 1. 读取窗口内的全部尝试记录
	since := time.Now().Add(-attemptWindow())
	grouped, err := audit.AllRecentAttempts(database.DB, since, attemptActions)
	if err != nil {
		return fmt.Errorf("无法从审计台账读取近期尝试: %w", err)
	}

	// 2. 安全地删除所有旧的窗口键
	if err := deleteKeysByPrefix(database.Ctx, database.RDB, attemptKeyPrefix); err != nil {
		return fmt.Errorf("删除旧的尝试窗口键失败: %w", err)
	}

	if len(grouped) == 0 {
		fmt.Println("频率限制：无近期尝试数据需要恢复。")
		return nil
	}

	// 3. 批量将记录写回Redis
	pipe := database.RDB.Pipeline()
	for voterID, times := range grouped {
		members := make([]redis.Z, 0, len(times))
		for _, t := range times {
			members = append(members, redis.Z{Score: float64(t.UnixMicro()), Member: uuid.NewString()})
		}
		key := attemptKey(voterID)
		pipe.ZAdd(database.Ctx, key, members...)
		pipe.Expire(database.Ctx, key, attemptTTL())
	}
	if _, err := pipe.Exec(database.Ctx); err != nil {
		return fmt.Errorf("批量写回尝试窗口到Redis失败: %w", err)
	}

	fmt.Printf("频率限制：成功恢复了 %d 个投票人的尝试窗口。\n", len(grouped))
	return nil
}

func attemptKey(voterID uint) string {
	return fmt.Sprintf("%s%d", attemptKeyPrefix, voterID)
}

// deleteKeysByPrefix 是一个辅助函数，用SCAN安全地删除一组key
func deleteKeysByPrefix(ctx context.Context, rdb *redis.Client, prefix string) error {
	var cursor uint64
	matchPattern := prefix + "*"
	const batchSize = 500 // 每次SCAN和DEL的数量

	for {
		keys, nextCursor, err := rdb.Scan(ctx, cursor, matchPattern, batchSize).Result()
		if err != nil {
			return err
		}

		if len(keys) > 0 {
			if err := rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	return nil
}
