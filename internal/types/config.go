// Package types 定义股票分析器的配置类型
package types

import "time"

// Config 主配置结构
type Config struct {
	App         AppConfig                   `yaml:"app"`         // 应用配置
	Database    DatabaseConfig              `yaml:"database"`    // 数据库配置
	Datasources map[string]DatasourceConfig `yaml:"datasources"` // 数据源配置（名称→配置）
	HTTP        HTTPConfig                  `yaml:"http"`        // HTTP客户端配置
	Scheduler   SchedulerConfig             `yaml:"scheduler"`   // 调度器配置
	Strategy    StrategyConfig              `yaml:"strategy"`    // 策略配置
}

// AppConfig 应用配置
type AppConfig struct {
	Name     string `yaml:"name"`      // 应用名称
	Version  string `yaml:"version"`   // 应用版本
	LogLevel string `yaml:"log_level"` // 日志级别
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Enabled bool   `yaml:"enabled"` // 是否启用持久化
	Driver  string `yaml:"driver"`  // 数据库驱动（sqlite）
	Path    string `yaml:"path"`    // 数据库文件路径
}

// DatasourceConfig 单个数据源配置
type DatasourceConfig struct {
	Enabled  bool `yaml:"enabled"`  // 是否启用
	Priority int  `yaml:"priority"` // 优先级（数字越小优先级越高）
}

// HTTPConfig HTTP客户端配置
type HTTPConfig struct {
	Timeout           time.Duration `yaml:"timeout"`             // 请求超时时间
	ConnectTimeout    time.Duration `yaml:"connect_timeout"`     // 连通性探测超时时间
	RequestsPerMinute int           `yaml:"requests_per_minute"` // 每分钟请求数限制
	RetryMaxAttempts  int           `yaml:"retry_max_attempts"`  // 最大重试次数
}

// SchedulerConfig 调度器配置
type SchedulerConfig struct {
	Enabled bool        `yaml:"enabled"` // 是否启用
	Jobs    []JobConfig `yaml:"jobs"`    // 任务列表
}

// JobConfig 任务配置
type JobConfig struct {
	Name string `yaml:"name"` // 任务名称
	Type string `yaml:"type"` // 任务类型 ("watchlist_analysis", "risk_scan")
	Cron string `yaml:"cron"` // Cron表达式
}

// StrategyConfig 策略配置
type StrategyConfig struct {
	TurtleWeight float64 `yaml:"turtle_weight"` // 海龟策略权重（默认0.6）
	TotalCapital float64 `yaml:"total_capital"` // 总资金（默认100000）
}
