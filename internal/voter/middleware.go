package voter

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	// VoterIDHeader 是上游身份系统在网关处注入的请求头。
	// 投票核心信任这个身份，不做二次认证。
	VoterIDHeader = "X-Voter-ID"

	// VoterIDKey 是投票人ID在Gin上下文中的键
	VoterIDKey = "voterID"
	// ClientIPKey 和 ClientAgentKey 是审计所需的客户端元数据的键
	ClientIPKey    = "clientIP"
	ClientAgentKey = "clientAgent"
)

// RequireVoterMiddleware 从请求头中提取投票人身份并放入Gin上下文。
// 缺少或无法解析身份的请求直接被拒绝。
func RequireVoterMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(VoterIDHeader)
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || id == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "缺少有效的投票人身份"})
			return
		}

		c.Set(VoterIDKey, uint(id))
		c.Set(ClientIPKey, c.ClientIP())
		c.Set(ClientAgentKey, c.Request.UserAgent())
		c.Next()
	}
}

// VoterIDFromContext 读取中间件放入上下文的投票人ID
func VoterIDFromContext(c *gin.Context) (uint, bool) {
	v, exists := c.Get(VoterIDKey)
	if !exists {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}
