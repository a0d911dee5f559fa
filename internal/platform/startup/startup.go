package startup

import (
	"fmt"

	"github.com/UniVoteLab/campus-evoting-backend/internal/audit"
	"github.com/UniVoteLab/campus-evoting-backend/internal/ballot"
	"github.com/UniVoteLab/campus-evoting-backend/internal/election"
	"github.com/UniVoteLab/campus-evoting-backend/internal/platform/metadata"
	"github.com/UniVoteLab/campus-evoting-backend/internal/voter"
)

// InitializeApplication 是应用首次启动时执行的总入口
func InitializeApplication() error {
	fmt.Println("开始应用首次初始化...")

	if err := metadata.PrimeDB(); err != nil {
		return err
	}
	if err := election.PrimeDB(); err != nil {
		return err
	}
	if err := voter.PrimeDB(); err != nil {
		return err
	}
	if err := audit.PrimeDB(); err != nil {
		return err
	}
	if err := ballot.PrimeModule(); err != nil {
		return err
	}

	fmt.Println("应用初始化完成！")
	return nil
}

// RebuildCache 在Redis从故障中恢复后，重建全部派生缓存：
// 计票镜像从权威计票表预热，尝试窗口从审计台账重放。
func RebuildCache() error {
	fmt.Println("开始缓存热重建...")

	if err := ballot.WarmupTallyMirror(); err != nil {
		return err
	}
	if err := ballot.RebuildAttemptWindows(); err != nil {
		return err
	}

	fmt.Println("缓存热重建完成。")
	return nil
}
