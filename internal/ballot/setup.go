package ballot

import (
	"fmt"

	"github.com/UniVoteLab/campus-evoting-backend/internal/platform/database"
)

// PrimeDB 负责迁移ballot模块的全部表，并创建核心不变量所依赖的唯一索引
func PrimeDB() error {
	err := database.DB.AutoMigrate(&VotingSession{}, &Vote{}, &AbstainVote{}, &TallyCounter{})
	if err != nil {
		return fmt.Errorf("无法迁移ballot相关表: %w", err)
	}

	// completed会话上的部分唯一索引是“每人每选举只投一次”的权威防线
	// AutoMigrate不支持部分索引，手动创建
	err = database.DB.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS uniq_completed_session
		ON voting_sessions (voter_id, election_id) WHERE status = 'completed'`).Error
	if err != nil {
		return fmt.Errorf("无法创建completed会话唯一索引: %w", err)
	}

	fmt.Println("Ballot数据库表迁移成功。")
	return nil
}

// PrimeModule 是ballot模块的初始化总入口
func PrimeModule() error {
	if err := PrimeDB(); err != nil {
		return err
	}
	if err := WarmupTallyMirror(); err != nil {
		return err
	}
	if err := RebuildAttemptWindows(); err != nil {
		return err
	}
	return nil
}
