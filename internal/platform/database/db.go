package database

import (
	"fmt"
	"log"
	"os"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB 是一个全局的GORM实例，作为唯一的权威事务存储
var DB *gorm.DB

// InitDB 初始化数据库连接
// path 是SQLite数据库文件的路径，测试中可以传入临时文件
func InitDB(path string) error {
	var err error

	// GORM日志配置
	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: 0,
			LogLevel:      logger.Silent, // 在生产环境中可以设为Silent
			Colorful:      true,
		},
	)

	// 连接到SQLite数据库
	// 开启WAL和busy_timeout，允许投票高峰期的并发事务排队而不是直接失败
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=10000&_foreign_keys=on", path)
	DB, err = gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         newLogger,
		TranslateError: true, // 让重复键等错误翻译为GORM的统一错误
	})
	if err != nil {
		return fmt.Errorf("连接数据库失败: %w", err)
	}

	// SQLite只支持单写入者，限制连接数避免事务间死锁
	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("获取底层数据库连接失败: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	fmt.Println("数据库连接成功！")
	return nil
}
