// Package utils 提供配置加载等通用工具
package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mooyang-code/stock-analyzer/internal/types"
)

// LoadConfig 从YAML文件加载配置
func LoadConfig(configPath string) (*types.Config, error) {
	// 如果未指定配置文件路径，使用默认路径
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	// 检查文件是否存在
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("配置文件不存在: %s", configPath)
	}

	// 读取文件内容
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %v", err)
	}

	// 解析YAML
	var config types.Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %v", err)
	}

	// 验证配置
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("配置验证失败: %v", err)
	}

	return &config, nil
}

// validateConfig 验证配置的有效性
func validateConfig(config *types.Config) error {
	// 验证应用配置
	if config.App.Name == "" {
		return fmt.Errorf("应用名称不能为空")
	}

	// 验证数据库配置
	if config.Database.Enabled && config.Database.Path == "" {
		return fmt.Errorf("数据库文件路径不能为空")
	}

	// 验证数据源配置
	enabledSources := 0
	for name, ds := range config.Datasources {
		if !ds.Enabled {
			continue
		}
		enabledSources++
		if ds.Priority <= 0 {
			return fmt.Errorf("数据源%s的优先级必须大于0", name)
		}
	}
	if enabledSources == 0 {
		return fmt.Errorf("至少需要启用一个数据源")
	}

	// 验证调度器配置
	if config.Scheduler.Enabled {
		for i, job := range config.Scheduler.Jobs {
			if job.Name == "" {
				return fmt.Errorf("第%d个任务名称不能为空", i+1)
			}
			if job.Type == "" {
				return fmt.Errorf("第%d个任务的类型不能为空", i+1)
			}
			if job.Cron == "" {
				return fmt.Errorf("第%d个任务的Cron表达式不能为空", i+1)
			}
		}
	}
	return nil
}

// SaveConfig 保存配置到文件
func SaveConfig(config *types.Config, configPath string) error {
	// 确保目录存在
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("创建配置目录失败: %v", err)
	}

	// 序列化为YAML
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("序列化配置失败: %v", err)
	}

	// 写入文件
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("写入配置文件失败: %v", err)
	}
	return nil
}

// GetDefaultConfig 获取默认配置
func GetDefaultConfig() *types.Config {
	return &types.Config{
		App: types.AppConfig{
			Name:     "stock-analyzer",
			Version:  "1.0.0",
			LogLevel: "info",
		},
		Database: types.DatabaseConfig{
			Enabled: true,
			Driver:  "sqlite",
			Path:    "./data/stock.db",
		},
		Datasources: map[string]types.DatasourceConfig{
			"eastmoney": {Enabled: true, Priority: 1},
			"sina":      {Enabled: true, Priority: 4},
			"tencent":   {Enabled: true, Priority: 5},
			"netease":   {Enabled: false, Priority: 6},
		},
		HTTP: types.HTTPConfig{
			Timeout:           15 * time.Second,
			ConnectTimeout:    5 * time.Second,
			RequestsPerMinute: 120,
			RetryMaxAttempts:  3,
		},
		Scheduler: types.SchedulerConfig{
			Enabled: true,
			Jobs: []types.JobConfig{
				{Name: "watchlist_analysis", Type: "watchlist_analysis", Cron: "0 0 16 * * 1-5"},
				{Name: "risk_scan", Type: "risk_scan", Cron: "0 30 16 * * 1-5"},
			},
		},
		Strategy: types.StrategyConfig{
			TurtleWeight: 0.6,
			TotalCapital: 100000,
		},
	}
}
