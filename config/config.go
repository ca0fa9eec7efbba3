// Package config 从环境变量 (以及可选的 .env 文件) 读取运行配置
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"agropath/routing"
)

// ConfigError 配置项错误
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("配置错误: %s: %s", e.Field, e.Message)
}

// DBConfig 数据库连接参数; Host 为空表示不使用数据库
type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

// Enabled 是否配置了数据库
func (d DBConfig) Enabled() bool { return d.Host != "" }

// DSN postgres 连接串
func (d DBConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		d.Host, d.User, d.Password, d.Name, d.Port)
}

// Config 运行配置
type Config struct {
	Port               int
	OSRMBaseURL        string
	OSRMProfile        string
	ProviderTimeout    time.Duration
	PlannerConcurrency int
	RouteCacheTTL      time.Duration
	ArtifactDir        string
	JWTSecret          string
	DB                 DBConfig
}

// Load 读取 .env (不存在时忽略) 和环境变量, 并校验
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("读取 .env 失败: %v", err)
	}
	return FromEnv()
}

// FromEnv 只读取环境变量, 未设置的项使用默认值
func FromEnv() (*Config, error) {
	var errs []error

	cfg := &Config{
		OSRMBaseURL: getEnvOrDefault("OSRM_BASE_URL", routing.DefaultOSRMURL),
		OSRMProfile: getEnvOrDefault("OSRM_PROFILE", routing.DefaultProfile),
		ArtifactDir: getEnvOrDefault("ARTIFACT_DIR", "./artifacts"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		DB: DBConfig{
			Host:     os.Getenv("DB_HOST"),
			Port:     getEnvOrDefault("DB_PORT", "5432"),
			User:     getEnvOrDefault("DB_USER", "agropath"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     getEnvOrDefault("DB_NAME", "agropath"),
		},
	}

	var err error
	if cfg.Port, err = parseIntEnv("PORT", 8080); err != nil {
		errs = append(errs, err)
	}
	if cfg.PlannerConcurrency, err = parseIntEnv("PLANNER_CONCURRENCY", 4); err != nil {
		errs = append(errs, err)
	}
	if cfg.ProviderTimeout, err = parseDurationEnv("PROVIDER_TIMEOUT", routing.DefaultTimeout); err != nil {
		errs = append(errs, err)
	}
	if cfg.RouteCacheTTL, err = parseDurationEnv("ROUTE_CACHE_TTL", routing.DefaultCacheTTL); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 检查取值范围
func (c *Config) Validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, &ConfigError{Field: "PORT", Message: "必须在 1 到 65535 之间"})
	}
	if c.OSRMBaseURL == "" {
		errs = append(errs, &ConfigError{Field: "OSRM_BASE_URL", Message: "不能为空"})
	}
	if c.ProviderTimeout <= 0 {
		errs = append(errs, &ConfigError{Field: "PROVIDER_TIMEOUT", Message: "必须大于 0"})
	}
	if c.PlannerConcurrency < 1 {
		errs = append(errs, &ConfigError{Field: "PLANNER_CONCURRENCY", Message: "至少为 1"})
	}
	if c.RouteCacheTTL < 0 {
		errs = append(errs, &ConfigError{Field: "ROUTE_CACHE_TTL", Message: "不能为负"})
	}
	if c.ArtifactDir == "" {
		errs = append(errs, &ConfigError{Field: "ARTIFACT_DIR", Message: "不能为空"})
	}
	return errors.Join(errs...)
}

// getEnvOrDefault 获取环境变量, 如果不存在则返回默认值
func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func parseIntEnv(key string, defaultVal int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, &ConfigError{Field: key, Message: "必须是整数"}
	}
	return n, nil
}

func parseDurationEnv(key string, defaultVal time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, &ConfigError{Field: key, Message: "必须是时长, 如 20s"}
	}
	return d, nil
}
