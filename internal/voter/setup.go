package voter

import (
	"fmt"

	"github.com/UniVoteLab/campus-evoting-backend/internal/platform/database"
)

// PrimeDB 负责迁移voter表
func PrimeDB() error {
	if err := database.DB.AutoMigrate(&Voter{}); err != nil {
		return fmt.Errorf("无法迁移voter表: %w", err)
	}
	fmt.Println("Voter数据库表迁移成功。")
	return nil
}
