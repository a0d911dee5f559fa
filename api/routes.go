package api

import (
	"net/http"

	"github.com/UniVoteLab/campus-evoting-backend/internal/ballot"
	"github.com/UniVoteLab/campus-evoting-backend/internal/platform/database"
	"github.com/UniVoteLab/campus-evoting-backend/internal/voter"
	"github.com/gin-gonic/gin"
)

// SetupRoutes 注册项目的所有API路由
func SetupRoutes(router *gin.Engine) {
	api := router.Group("/api")
	{
		// 投票相关的路由，需要上游身份系统注入的投票人身份
		api.POST("/vote", voter.RequireVoterMiddleware(), ballot.SubmitVote)

		// 选举结果相关的路由组 /api/elections
		electionRoutes := api.Group("/elections")
		{
			electionRoutes.GET("/:id/results", ballot.GetResults)
			electionRoutes.POST("/:id/tally/rebuild", ballot.RebuildTallyHandler)
		}

		// 健康探针
		api.GET("/healthz", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"redis_healthy": database.RedisAvailable(),
			})
		})
	}
}
