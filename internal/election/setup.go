package election

import (
	"fmt"

	"github.com/UniVoteLab/campus-evoting-backend/internal/platform/database"
)

// PrimeDB 负责迁移选举配置相关的表。
// 行数据由外部管理系统写入，投票核心从不修改它们。
func PrimeDB() error {
	if err := database.DB.AutoMigrate(&Election{}, &Position{}, &Candidate{}); err != nil {
		return fmt.Errorf("无法迁移选举配置表: %w", err)
	}
	fmt.Println("选举配置表迁移成功。")
	return nil
}
