package database

import (
	"context"
	"fmt"

	"github.com/UniVoteLab/campus-evoting-backend/internal/platform/config"
	"github.com/redis/go-redis/v9"
)

// RDB 是一个全局的Redis客户端实例，承载计票镜像和频率限制窗口
// 它可能为nil（例如在纯SQLite的测试环境中），调用方必须先检查
var RDB *redis.Client

// Ctx 是一个全局的上下文，用于Redis操作
var Ctx = context.Background()

// InitRedis 初始化与Redis数据库的连接
func InitRedis(cfg config.RedisConfig) error {
	// 创建一个新的Redis客户端
	// 使用从配置文件加载的参数
	RDB = redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// 使用Ping命令来测试连接是否成功
	if _, err := RDB.Ping(Ctx).Result(); err != nil {
		return fmt.Errorf("无法连接到Redis: %w", err)
	}

	fmt.Println("Redis 连接成功！")
	return nil
}

// RedisAvailable 返回Redis当前是否可用于读写
// 客户端未初始化或健康检查失败时，各模块应回退到SQLite路径
func RedisAvailable() bool {
	return RDB != nil && IsRedisHealthy()
}
