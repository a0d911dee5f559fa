package ballot

import (
	"fmt"
	"time"

	"github.com/UniVoteLab/campus-evoting-backend/internal/election"
	"github.com/UniVoteLab/campus-evoting-backend/internal/platform/database"
	"github.com/UniVoteLab/campus-evoting-backend/pkg/lifecycle"
)

// reconcileInterval 是计票巡查员两次核对之间的间隔
const reconcileInterval = 5 * time.Minute

// StartTallyReconciler 启动后台的计票巡查员。
// 它定期核对每个候选人的计票值与真实Vote行数，发现偏差时就地修复。
// 偏差意味着bug，巡查员的职责是让结果读取不被bug长期污染。
func StartTallyReconciler(handle *lifecycle.Handle) {
	go runTallyReconciler(handle)
}

func runTallyReconciler(handle *lifecycle.Handle) {
	defer handle.Close()
	fmt.Println("计票巡查员 (Tally Reconciler) 已启动。")

	for {
		if err := handle.Sleep(reconcileInterval); err != nil {
			fmt.Println("计票巡查员: 收到停机信号，退出。")
			return
		}
		reconcileOnce()
	}
}

// reconcileOnce 对所有选举执行一轮核对
func reconcileOnce() {
	var elections []election.Election
	if err := database.DB.Find(&elections).Error; err != nil {
		fmt.Printf("计票巡查员错误: 无法读取选举列表: %v\n", err)
		return
	}

	for _, e := range elections {
		drifts, err := VerifyTally(database.DB, e.ID)
		if err != nil {
			fmt.Printf("计票巡查员错误: 核对选举 %d 失败: %v\n", e.ID, err)
			continue
		}
		if len(drifts) == 0 {
			continue
		}

		// 偏差不是合法状态，打印详情后立即修复
		for _, d := range drifts {
			fmt.Printf("计票巡查员告警: 候选人 %d 计票偏差 (缓存=%d, 实际=%d)\n", d.CandidateID, d.Cached, d.Actual)
		}
		if err := RebuildTally(database.DB, e.ID); err != nil {
			fmt.Printf("计票巡查员错误: 修复选举 %d 失败: %v\n", e.ID, err)
		}
	}
}
