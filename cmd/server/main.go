package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/UniVoteLab/campus-evoting-backend/api"
	"github.com/UniVoteLab/campus-evoting-backend/internal/ballot"
	"github.com/UniVoteLab/campus-evoting-backend/internal/platform/config"
	"github.com/UniVoteLab/campus-evoting-backend/internal/platform/database"
	"github.com/UniVoteLab/campus-evoting-backend/internal/platform/health"
	"github.com/UniVoteLab/campus-evoting-backend/internal/platform/shutdown"
	"github.com/UniVoteLab/campus-evoting-backend/internal/platform/startup"
	"github.com/UniVoteLab/campus-evoting-backend/pkg/lifecycle"
	"github.com/UniVoteLab/campus-evoting-backend/pkg/token"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	// 1. 加载配置并初始化基础设施
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(fmt.Sprintf("配置加载失败: %v", err))
	}

	token.GenerateSecretKey()

	if err := database.InitDB(cfg.Database.Sqlite.Path); err != nil {
		panic(fmt.Sprintf("数据库初始化失败: %v", err))
	}
	if err := database.InitRedis(cfg.Database.Redis); err != nil {
		panic(fmt.Sprintf("Redis初始化失败: %v", err))
	}

	// 2. 阻塞式获取初始Run ID
	if err := health.InitializeRunID(); err != nil {
		panic(fmt.Sprintf("无法获取Redis Run ID，请检查Redis服务: %v", err))
	}

	// 3. 执行应用首次启动初始化流程
	if err := startup.InitializeApplication(); err != nil {
		panic(fmt.Sprintf("应用初始化失败，无法启动: %v", err))
	}

	// 4. 阻塞式执行一次启动后健康检查
	fmt.Println("正在执行启动后健康检查...")
	health.PerformCheck()

	// 5. 异步启动后台的持续健康检查器
	go health.StartRedisHealthCheck()

	// 6. 创建生命周期管理器并启动后台服务
	gracefulMgr := lifecycle.NewManager()
	forcefulMgr := lifecycle.NewManager()

	reconcilerHandle, err := gracefulMgr.NewServiceHandle("tally-reconciler")
	if err != nil {
		panic(fmt.Sprintf("无法注册计票巡查员: %v", err))
	}
	ballot.StartTallyReconciler(reconcilerHandle)

	// 7. 配置Gin引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.Cors.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Voter-ID"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api.SetupRoutes(r)

	// 8. 启动HTTP服务器并等待停机信号
	server := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: r,
	}

	go func() {
		fmt.Printf("服务器已准备就绪，开始监听 %s\n", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			panic("Failed to start server: " + err.Error())
		}
	}()

	coordinator := shutdown.NewCoordinator(gracefulMgr, forcefulMgr)
	coordinator.ListenForSignalsAndShutdown(server)
}
