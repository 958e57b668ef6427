// Package app 提供系统初始化功能
package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/mooyang-code/stock-analyzer/internal/analyzer"
	"github.com/mooyang-code/stock-analyzer/internal/datasource"
	"github.com/mooyang-code/stock-analyzer/internal/datasource/httpclient"
	"github.com/mooyang-code/stock-analyzer/internal/risk"
	"github.com/mooyang-code/stock-analyzer/internal/storage"
	"github.com/mooyang-code/stock-analyzer/internal/strategy"
	"github.com/mooyang-code/stock-analyzer/internal/types"
)

// 支持的数据源名称
const (
	SourceEastMoney = "eastmoney"
	SourceSina      = "sina"
	SourceTencent   = "tencent"
	SourceNetease   = "netease"
)

// SystemInitializer 系统初始化器
type SystemInitializer struct {
	logger *zap.Logger
	config *types.Config
}

// NewSystemInitializer 创建新的系统初始化器
func NewSystemInitializer(logger *zap.Logger, config *types.Config) *SystemInitializer {
	return &SystemInitializer{
		logger: logger,
		config: config,
	}
}

// ValidateConfiguration 验证配置
func (si *SystemInitializer) ValidateConfiguration() error {
	enabled := 0
	for name, ds := range si.config.Datasources {
		if !ds.Enabled {
			continue
		}
		switch name {
		case SourceEastMoney, SourceSina, SourceTencent, SourceNetease:
			enabled++
		default:
			return fmt.Errorf("未知的数据源: %s", name)
		}
	}
	if enabled == 0 {
		return fmt.Errorf("至少需要启用一个数据源")
	}
	return nil
}

// InitializeDatasources 初始化所有启用的数据源并探测连通性
func (si *SystemInitializer) InitializeDatasources(ctx context.Context) (*datasource.Registry, error) {
	registry := datasource.NewRegistry(si.logger)

	type sourceEntry struct {
		name     string
		priority int
	}
	var entries []sourceEntry
	for name, ds := range si.config.Datasources {
		if ds.Enabled {
			entries = append(entries, sourceEntry{name: name, priority: ds.Priority})
		}
	}
	// 按优先级顺序初始化，日志输出更直观
	sort.Slice(entries, func(i, j int) bool { return entries[i].priority < entries[j].priority })

	for _, entry := range entries {
		source, err := si.initDatasource(entry.name)
		if err != nil {
			return nil, fmt.Errorf("初始化数据源%s失败: %w", entry.name, err)
		}
		registry.Register(source, entry.priority)
	}

	// 连通性探测失败只降级不中断
	connectCtx := ctx
	if si.config.HTTP.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		connectCtx, cancel = context.WithTimeout(ctx, si.config.HTTP.ConnectTimeout*time.Duration(len(entries)))
		defer cancel()
	}
	results := registry.ConnectAll(connectCtx)

	connected := 0
	for _, ok := range results {
		if ok {
			connected++
		}
	}
	si.logger.Info("数据源初始化完成",
		zap.Int("total", len(results)),
		zap.Int("connected", connected),
		zap.String("primary", registry.Primary()))
	return registry, nil
}

// initDatasource 按名称创建数据源
func (si *SystemInitializer) initDatasource(name string) (types.DataSource, error) {
	client, err := si.newHTTPClient(name)
	if err != nil {
		return nil, err
	}

	switch name {
	case SourceEastMoney:
		return datasource.NewEastMoney(client, si.logger.Named(name)), nil
	case SourceSina:
		return datasource.NewSina(client, si.logger.Named(name)), nil
	case SourceTencent:
		return datasource.NewTencent(client, si.logger.Named(name)), nil
	case SourceNetease:
		return datasource.NewNetease(client, si.logger.Named(name)), nil
	default:
		return nil, fmt.Errorf("未知的数据源: %s", name)
	}
}

// newHTTPClient 按全局HTTP配置创建客户端
func (si *SystemInitializer) newHTTPClient(name string) (httpclient.Client, error) {
	config := httpclient.DefaultConfig(name)
	if si.config.HTTP.Timeout > 0 {
		config.Timeout = si.config.HTTP.Timeout
	}
	if si.config.HTTP.RequestsPerMinute > 0 {
		config.RateLimit.RequestsPerMinute = si.config.HTTP.RequestsPerMinute
	}
	if si.config.HTTP.RetryMaxAttempts > 0 {
		config.Retry.MaxAttempts = si.config.HTTP.RetryMaxAttempts
	}
	return httpclient.New(config, si.logger.Named("http-"+name))
}

// InitializeStorage 初始化持久化存储
func (si *SystemInitializer) InitializeStorage() (storage.Store, error) {
	if !si.config.Database.Enabled {
		si.logger.Info("数据库未启用，使用空存储")
		return storage.NewNoop(), nil
	}

	store, err := storage.NewSQLite(si.config.Database.Path, si.logger.Named("storage"))
	if err != nil {
		return nil, fmt.Errorf("初始化数据库失败: %w", err)
	}
	return store, nil
}

// InitializeSystem 初始化整个系统
func (si *SystemInitializer) InitializeSystem(ctx context.Context) (*SystemComponents, error) {
	si.logger.Info("开始系统初始化...")

	if err := si.ValidateConfiguration(); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}

	registry, err := si.InitializeDatasources(ctx)
	if err != nil {
		return nil, fmt.Errorf("数据源初始化失败: %w", err)
	}

	store, err := si.InitializeStorage()
	if err != nil {
		return nil, err
	}

	// 策略与风险评估组件
	turtle := strategy.NewTurtle(si.config.Strategy.TotalCapital, si.logger.Named("turtle"))
	retail := strategy.NewRetail(turtle, si.config.Strategy.TurtleWeight, si.logger.Named("retail"))
	assessor := risk.NewAssessor(si.logger.Named("risk"))

	engine := analyzer.NewEngine(registry, store, retail, assessor, si.logger.Named("analyzer"))

	components := &SystemComponents{
		Registry: registry,
		Store:    store,
		Engine:   engine,
		Logger:   si.logger,
		Config:   si.config,
	}

	si.logger.Info("系统初始化完成",
		zap.Int("datasources", len(registry.Descriptors())))
	return components, nil
}

// SystemComponents 系统组件
type SystemComponents struct {
	Registry *datasource.Registry
	Store    storage.Store
	Engine   *analyzer.Engine
	Logger   *zap.Logger
	Config   *types.Config
}

// Shutdown 关闭系统组件
func (sc *SystemComponents) Shutdown() error {
	sc.Logger.Info("正在关闭系统组件...")

	if err := sc.Registry.Close(); err != nil {
		sc.Logger.Error("关闭数据源失败", zap.Error(err))
	}
	if err := sc.Store.Close(); err != nil {
		sc.Logger.Error("关闭存储失败", zap.Error(err))
	}

	sc.Logger.Info("系统关闭完成")
	return nil
}

// GetSystemStatus 获取系统状态
func (sc *SystemComponents) GetSystemStatus() map[string]interface{} {
	status := make(map[string]interface{})

	// 数据源状态
	sourceStatus := make(map[string]interface{})
	for _, desc := range sc.Registry.Descriptors() {
		sourceStatus[desc.Name] = map[string]interface{}{
			"priority":     desc.Priority,
			"connected":    desc.Connected,
			"capabilities": desc.Capabilities,
		}
	}
	status["datasources"] = sourceStatus
	status["primary"] = sc.Registry.Primary()

	// A股市场状态
	status["market"] = datasource.GetMarketStatus(time.Now())

	status["system"] = map[string]interface{}{
		"initialized": true,
		"timestamp":   time.Now(),
	}
	return status
}
