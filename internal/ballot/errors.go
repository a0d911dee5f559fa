package ballot

import (
	"errors"
	"fmt"
)

// ErrorKind 定义了投票核心对外暴露的错误分类
type ErrorKind string

const (
	// KindNotEligible 表示投票人当前没有资格参与这场选举
	KindNotEligible ErrorKind = "NotEligible"
	// KindRateLimited 表示投票人近期尝试次数超过了滥用阈值
	KindRateLimited ErrorKind = "RateLimited"
	// KindInvalidPosition 表示选票引用了未知、不活跃或重复的职位
	KindInvalidPosition ErrorKind = "InvalidPosition"
	// KindTooManyVotes 表示某个职位的选择数超过了配置上限
	KindTooManyVotes ErrorKind = "TooManyVotes"
	// KindInvalidCandidate 表示选票引用了不属于该职位或选举的候选人
	KindInvalidCandidate ErrorKind = "InvalidCandidate"
	// KindDuplicateCandidate 表示同一候选人在整张选票中出现了多次
	KindDuplicateCandidate ErrorKind = "DuplicateCandidate"
	// KindAbstainNotAllowed 表示选举配置不允许弃权
	KindAbstainNotAllowed ErrorKind = "AbstainNotAllowed"
	// KindAlreadyVoted 表示该投票人已有completed会话
	// 预检发现和提交时竞争发现对调用方呈现完全一致
	KindAlreadyVoted ErrorKind = "AlreadyVoted"
	// KindStoreFailure 表示基础设施层故障
	KindStoreFailure ErrorKind = "StoreFailure"
)

// NotEligible 的具体原因
const (
	ReasonUnverified       = "unverified"
	ReasonElectionInactive = "election-inactive"
	ReasonNotFound         = "not-found"
)

// CastError 是投票核心的统一错误类型。
// 所有校验阶段的错误都在任何写入发生前产生。
type CastError struct {
	Kind    ErrorKind
	Reason  string // 仅NotEligible使用
	Message string
}

func (e *CastError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s(%s): %s", e.Kind, e.Reason, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// newCastError 构造一个携带格式化消息的CastError
func newCastError(kind ErrorKind, format string, args ...any) *CastError {
	return &CastError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// notEligible 构造一个携带原因的NotEligible错误
func notEligible(reason, format string, args ...any) *CastError {
	return &CastError{Kind: KindNotEligible, Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// storeFailure 将一个基础设施错误包装为StoreFailure
func storeFailure(err error) *CastError {
	return &CastError{Kind: KindStoreFailure, Message: err.Error()}
}

// AsCastError 提取错误链中的CastError，便于处理器映射HTTP响应
func AsCastError(err error) (*CastError, bool) {
	var ce *CastError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
