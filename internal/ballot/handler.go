package ballot

import (
	"net/http"
	"strconv"

	"github.com/UniVoteLab/campus-evoting-backend/internal/platform/database"
	"github.com/UniVoteLab/campus-evoting-backend/internal/voter"
	"github.com/gin-gonic/gin"
)

// httpStatusForKind 把错误分类映射到HTTP状态码
func httpStatusForKind(kind ErrorKind) int {
	switch kind {
	case KindNotEligible:
		return http.StatusForbidden
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindAlreadyVoted:
		return http.StatusConflict
	case KindStoreFailure:
		return http.StatusInternalServerError
	default:
		// 所有结构校验错误
		return http.StatusUnprocessableEntity
	}
}

// SubmitVote 处理投票提交请求
// POST /api/vote
func SubmitVote(c *gin.Context) {
	voterID, ok := voter.VoterIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "缺少投票人身份"})
		return
	}

	// 1. 绑定并验证请求体，非法形态在这里就被拒绝
	var req CastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误: " + err.Error()})
		return
	}

	// 2. 交给核心流程处理
	result, err := SubmitBallot(database.DB, voterID, req, c.GetString(voter.ClientIPKey), c.GetString(voter.ClientAgentKey))
	if err != nil {
		if ce, ok := AsCastError(err); ok {
			c.JSON(httpStatusForKind(ce.Kind), gin.H{
				"error_kind": string(ce.Kind),
				"message":    ce.Message,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error_kind": string(KindStoreFailure),
			"message":    "处理投票失败",
		})
		return
	}

	// 3. 成功返回，不附带任何部分数据
	c.JSON(http.StatusOK, gin.H{
		"session_id":       result.SessionID,
		"session_token":    result.SessionToken,
		"votes_cast_count": result.VotesCastCount,
	})
}

// GetResults 返回一场选举的计票结果
// GET /api/elections/:id/results
func GetResults(c *gin.Context) {
	electionID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的选举ID"})
		return
	}

	tally, err := GetTally(database.DB, uint(electionID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法读取计票结果"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"election_id": electionID,
		"tally":       tally,
	})
}

// RebuildTallyHandler 触发一次计票重建，修复任何偏差
// POST /api/elections/:id/tally/rebuild
func RebuildTallyHandler(c *gin.Context) {
	electionID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的选举ID"})
		return
	}

	if err := RebuildTally(database.DB, uint(electionID)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "计票重建失败: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "计票重建完成"})
}
