package ballot

import (
	"fmt"
	"time"

	"github.com/UniVoteLab/campus-evoting-backend/internal/audit"
	"gorm.io/gorm"
)

// failureAuditPayload 是vote_attempt_failed和security_violation记录的内容
type failureAuditPayload struct {
	ElectionID uint   `json:"election_id"`
	ErrorKind  string `json:"error_kind"`
	Message    string `json:"message"`
}

// SubmitBallot 是投票提交的总入口，串联核心的完整控制流：
// 记录尝试 → 频率检查 → 资格校验 → 结构校验 → 原子落账。
// 除成功提交外的所有路径都不会留下任何选票数据，
// 但每次尝试都会在审计台账中留下记录。
func SubmitBallot(db *gorm.DB, voterID uint, req CastRequest, clientIP, clientAgent string) (*CastResult, error) {
	now := time.Now()

	// 1. 记录本次尝试并读取滑动窗口计数
	// 被拒绝的请求自身也计入窗口，后续的尝试不会被重复计数
	attemptCount, err := CheckAndRecordAttempt(voterID, now)
	if err != nil {
		// 滥用防护是防御纵深而非正确性不变量，计数不可用时放行本次请求
		fmt.Printf("警告: 无法获取投票人 %d 的尝试计数: %v\n", voterID, err)
		attemptCount = 1
	}

	// 2. 频率检查先于一切业务校验：超限的请求无论自身是否有效都被拒绝
	if IsRateLimited(attemptCount) {
		castErr := newCastError(KindRateLimited, "投票人 %d 在窗口内的尝试次数过多", voterID)
		audit.RecordBestEffort(db, &voterID, audit.ActionSecurityViolation, failureAuditPayload{
			ElectionID: req.ElectionID,
			ErrorKind:  string(KindRateLimited),
			Message:    castErr.Message,
		}, clientIP, clientAgent)
		return nil, castErr
	}

	// 3. 资格校验
	e, err := CheckEligibility(db, voterID, req.ElectionID, now)
	if err != nil {
		recordFailedAttempt(db, voterID, req.ElectionID, err, clientIP, clientAgent)
		return nil, err
	}

	// 4. 选票结构校验，任何单点失败都废弃整张选票
	plan, err := ValidateBallot(db, e, req)
	if err != nil {
		recordFailedAttempt(db, voterID, req.ElectionID, err, clientIP, clientAgent)
		return nil, err
	}

	// 5. 协调器原子落账
	result, err := CommitBallot(db, voterID, plan, clientIP, clientAgent, now)
	if err != nil {
		// 事务已回滚，失败记录写在事务之外，其自身的失败不会掩盖原始错误
		recordFailedAttempt(db, voterID, req.ElectionID, err, clientIP, clientAgent)
		return nil, err
	}

	return result, nil
}

// recordFailedAttempt 尽力而为地落账一次失败的投票尝试
func recordFailedAttempt(db *gorm.DB, voterID, electionID uint, cause error, clientIP, clientAgent string) {
	payload := failureAuditPayload{ElectionID: electionID, Message: cause.Error()}
	if ce, ok := AsCastError(cause); ok {
		payload.ErrorKind = string(ce.Kind)
		payload.Message = ce.Message
	}
	audit.RecordBestEffort(db, &voterID, audit.ActionVoteAttemptFailed, payload, clientIP, clientAgent)
}
