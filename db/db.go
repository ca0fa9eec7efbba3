// Package db 站点目录与用户账号的持久化 (PostgreSQL via gorm, 或内存实现)
package db

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"agropath/config"
	"agropath/model"
)

const (
	maxRetries    = 30
	retryInterval = 2 * time.Second
)

// Open 连接数据库 (带重试), 迁移表结构, 站点表为空时导入 seedPath
func Open(cfg config.DBConfig, seedPath string) (*gorm.DB, error) {
	// 带重试的数据库连接 (Docker 启动时数据库可能还没准备好)
	var (
		conn *gorm.DB
		err  error
	)
	for i := 0; i < maxRetries; i++ {
		conn, err = gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{TranslateError: true})
		if err == nil {
			break
		}
		log.Printf("等待数据库就绪... (%d/%d): %v", i+1, maxRetries, err)
		time.Sleep(retryInterval)
	}
	if err != nil {
		return nil, fmt.Errorf("无法连接数据库: %w", err)
	}

	if err := conn.AutoMigrate(&model.User{}, &model.Site{}); err != nil {
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}

	var count int64
	if err := conn.Model(&model.Site{}).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("统计站点失败: %w", err)
	}
	if count == 0 {
		log.Printf("站点表为空, 正在导入 %s...", seedPath)
		if err := importSites(conn, seedPath); err != nil {
			log.Printf("警告: 导入站点失败, 使用内置站点: %v", err)
			if err := conn.CreateInBatches(DefaultSites(), 100).Error; err != nil {
				return nil, fmt.Errorf("插入内置站点失败: %w", err)
			}
		}
	}

	log.Println("数据库连接并初始化成功")
	return conn, nil
}

// importSites 从 JSON 文件批量导入站点
func importSites(conn *gorm.DB, path string) error {
	sites, err := LoadSites(path)
	if err != nil {
		return err
	}
	if err := conn.CreateInBatches(sites, 100).Error; err != nil {
		return fmt.Errorf("插入站点失败: %w", err)
	}
	log.Printf("导入了 %d 个站点", len(sites))
	return nil
}
