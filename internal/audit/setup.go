package audit

import (
	"fmt"

	"github.com/UniVoteLab/campus-evoting-backend/internal/platform/database"
)

// PrimeDB 负责迁移审计台账表
func PrimeDB() error {
	if err := database.DB.AutoMigrate(&Entry{}); err != nil {
		return fmt.Errorf("无法迁移audit表: %w", err)
	}
	fmt.Println("Audit数据库表迁移成功。")
	return nil
}
