package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mooyang-code/stock-analyzer/internal/scheduler"
	"github.com/mooyang-code/stock-analyzer/internal/types"
	"github.com/mooyang-code/stock-analyzer/pkg/utils"
)

// 优雅关闭的最长等待时间
const shutdownTimeout = 30 * time.Second

// Manager 应用管理器
type Manager struct {
	config     *types.Config
	logger     *zap.Logger
	components *SystemComponents
	scheduler  *scheduler.Scheduler
}

// New 创建新的应用管理器
func New() *Manager {
	return &Manager{}
}

// Initialize 初始化应用
func (m *Manager) Initialize(configPath string) error {
	// 加载配置
	config, err := utils.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("加载配置失败: %v", err)
	}
	m.config = config

	// 初始化日志
	logger, err := m.initLogger()
	if err != nil {
		return fmt.Errorf("初始化日志失败: %v", err)
	}
	m.logger = logger

	m.logger.Info("应用初始化",
		zap.String("name", config.App.Name),
		zap.String("version", config.App.Version))
	return nil
}

// initLogger 初始化日志器
func (m *Manager) initLogger() (*zap.Logger, error) {
	config := zap.NewProductionConfig()

	// 设置日志级别
	switch m.config.App.LogLevel {
	case "debug":
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case "info":
		config.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	case "warn":
		config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	case "error":
		config.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	default:
		config.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	config.OutputPaths = []string{"stdout"}
	config.Encoding = "console"
	config.EncoderConfig.TimeKey = "time"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return config.Build()
}

// Start 启动应用并阻塞等待退出信号
func (m *Manager) Start() error {
	ctx := context.Background()

	initializer := NewSystemInitializer(m.logger, m.config)
	components, err := initializer.InitializeSystem(ctx)
	if err != nil {
		return fmt.Errorf("系统初始化失败: %v", err)
	}
	m.components = components

	if err := m.setupScheduler(); err != nil {
		m.components.Shutdown()
		return fmt.Errorf("调度器初始化失败: %v", err)
	}

	m.logger.Info("应用已启动", zap.String("name", m.config.App.Name))
	m.waitForShutdown()
	return nil
}

// setupScheduler 根据配置装配调度任务
func (m *Manager) setupScheduler() error {
	if !m.config.Scheduler.Enabled {
		m.logger.Info("调度器未启用")
		return nil
	}

	m.scheduler = scheduler.New(m.logger.Named("scheduler"), m.components.Engine)
	for _, job := range m.config.Scheduler.Jobs {
		if err := m.scheduler.AddJob(job); err != nil {
			return fmt.Errorf("添加任务%s失败: %v", job.Name, err)
		}
	}
	return m.scheduler.Start()
}

// waitForShutdown 等待退出信号
func (m *Manager) waitForShutdown() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	m.logger.Info("收到退出信号", zap.String("signal", sig.String()))

	m.gracefulShutdown()
}

// gracefulShutdown 优雅关闭应用
func (m *Manager) gracefulShutdown() {
	m.logger.Info("开始优雅关闭...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if m.scheduler != nil {
		if err := m.scheduler.Stop(ctx); err != nil {
			m.logger.Error("停止调度器失败", zap.Error(err))
		}
	}

	if m.components != nil {
		if err := m.components.Shutdown(); err != nil {
			m.logger.Error("关闭系统组件失败", zap.Error(err))
		}
	}

	m.logger.Info("应用已退出")
}

// GetLogger 获取日志器
func (m *Manager) GetLogger() *zap.Logger {
	return m.logger
}

// Sync 刷新日志缓冲
func (m *Manager) Sync() {
	if m.logger != nil {
		m.logger.Sync()
	}
}
