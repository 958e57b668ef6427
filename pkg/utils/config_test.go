package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoadConfig 测试配置文件加载
func TestLoadConfig(t *testing.T) {
	content := `
app:
  name: stock-analyzer
  version: 1.0.0
  log_level: debug
database:
  enabled: true
  driver: sqlite
  path: ./data/stock.db
datasources:
  eastmoney:
    enabled: true
    priority: 1
  sina:
    enabled: true
    priority: 4
http:
  timeout: 15s
  connect_timeout: 5s
  requests_per_minute: 120
  retry_max_attempts: 3
scheduler:
  enabled: true
  jobs:
    - name: watchlist_analysis
      type: watchlist_analysis
      cron: "0 0 16 * * 1-5"
strategy:
  turtle_weight: 0.6
  total_capital: 100000
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "stock-analyzer", config.App.Name)
	assert.Equal(t, "debug", config.App.LogLevel)
	assert.True(t, config.Database.Enabled)
	assert.Equal(t, 1, config.Datasources["eastmoney"].Priority)
	assert.Equal(t, 4, config.Datasources["sina"].Priority)
	assert.Equal(t, 120, config.HTTP.RequestsPerMinute)
	require.Len(t, config.Scheduler.Jobs, 1)
	assert.Equal(t, "watchlist_analysis", config.Scheduler.Jobs[0].Type)
	assert.InDelta(t, 0.6, config.Strategy.TurtleWeight, 1e-9)
}

// TestLoadConfigMissingFile 测试配置文件不存在
func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig("/nonexistent/config.yaml")
	assert.Error(t, err)
}

// TestLoadConfigValidation 测试配置验证
func TestLoadConfigValidation(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{
			name: "缺少应用名称",
			content: `
app:
  version: 1.0.0
datasources:
  eastmoney:
    enabled: true
    priority: 1
`,
		},
		{
			name: "没有启用的数据源",
			content: `
app:
  name: stock-analyzer
datasources:
  eastmoney:
    enabled: false
    priority: 1
`,
		},
		{
			name: "数据源优先级非法",
			content: `
app:
  name: stock-analyzer
datasources:
  eastmoney:
    enabled: true
    priority: 0
`,
		},
		{
			name: "任务缺少Cron表达式",
			content: `
app:
  name: stock-analyzer
datasources:
  eastmoney:
    enabled: true
    priority: 1
scheduler:
  enabled: true
  jobs:
    - name: job1
      type: risk_scan
`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tc.content), 0644))

			_, err := LoadConfig(path)
			assert.Error(t, err)
		})
	}
}

// TestGetDefaultConfig 测试默认配置通过验证
func TestGetDefaultConfig(t *testing.T) {
	config := GetDefaultConfig()
	assert.NoError(t, validateConfig(config))
	assert.Equal(t, "stock-analyzer", config.App.Name)
	assert.Equal(t, 1, config.Datasources["eastmoney"].Priority)
}

// TestSaveConfig 测试配置保存后可重新加载
func TestSaveConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	require.NoError(t, SaveConfig(GetDefaultConfig(), path))

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "stock-analyzer", config.App.Name)
}
