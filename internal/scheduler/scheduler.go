// Package scheduler 提供定时分析任务调度功能
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mooyang-code/stock-analyzer/internal/analyzer"
	"github.com/mooyang-code/stock-analyzer/internal/types"
)

// 任务类型
const (
	JobTypeWatchlistAnalysis = "watchlist_analysis" // 自选股批量分析
	JobTypeRiskScan          = "risk_scan"          // 自选股风险扫描
)

// 单次任务执行的超时时间
const jobTimeout = 5 * time.Minute

// JobStatus 任务状态
type JobStatus string

const (
	JobStatusPending JobStatus = "pending" // 等待中
	JobStatusRunning JobStatus = "running" // 运行中
	JobStatusFailed  JobStatus = "failed"  // 失败
)

// JobInfo 任务信息
type JobInfo struct {
	Config     types.JobConfig
	EntryID    cron.EntryID
	Status     JobStatus
	LastRun    time.Time
	NextRun    time.Time
	RunCount   int64
	ErrorCount int64
	LastError  string
}

// Scheduler 调度器，驱动分析引擎定时执行任务
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
	engine *analyzer.Engine
	jobs   map[string]*JobInfo
	mutex  sync.RWMutex
}

// New 创建新的调度器
func New(logger *zap.Logger, engine *analyzer.Engine) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds()),
		logger: logger,
		engine: engine,
		jobs:   make(map[string]*JobInfo),
	}
}

// AddJob 添加任务
func (s *Scheduler) AddJob(jobConfig types.JobConfig) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	switch jobConfig.Type {
	case JobTypeWatchlistAnalysis, JobTypeRiskScan:
	default:
		return fmt.Errorf("unsupported job type: %s", jobConfig.Type)
	}

	jobFunc := s.createJobFunc(jobConfig)
	entryID, err := s.cron.AddFunc(jobConfig.Cron, jobFunc)
	if err != nil {
		return fmt.Errorf("failed to add cron job: %v", err)
	}

	s.jobs[jobConfig.Name] = &JobInfo{
		Config:  jobConfig,
		EntryID: entryID,
		Status:  JobStatusPending,
	}

	s.logger.Info("任务已添加",
		zap.String("name", jobConfig.Name),
		zap.String("type", jobConfig.Type),
		zap.String("cron", jobConfig.Cron))
	return nil
}

// createJobFunc 创建任务执行函数
func (s *Scheduler) createJobFunc(jobConfig types.JobConfig) func() {
	return func() {
		s.mutex.Lock()
		jobInfo := s.jobs[jobConfig.Name]
		jobInfo.Status = JobStatusRunning
		jobInfo.LastRun = time.Now()
		jobInfo.RunCount++
		s.mutex.Unlock()

		s.logger.Debug("开始执行任务",
			zap.String("job", jobConfig.Name),
			zap.String("type", jobConfig.Type))

		err := s.executeJob(jobConfig)

		s.mutex.Lock()
		if err != nil {
			jobInfo.Status = JobStatusFailed
			jobInfo.ErrorCount++
			jobInfo.LastError = err.Error()
			s.logger.Error("任务执行失败",
				zap.String("job", jobConfig.Name),
				zap.Error(err))
		} else {
			jobInfo.Status = JobStatusPending
			jobInfo.LastError = ""
			s.logger.Debug("任务执行成功",
				zap.String("job", jobConfig.Name))
		}
		s.mutex.Unlock()
	}
}

// executeJob 执行具体的任务
func (s *Scheduler) executeJob(jobConfig types.JobConfig) error {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	switch jobConfig.Type {
	case JobTypeWatchlistAnalysis:
		return s.executeWatchlistAnalysis(ctx)
	case JobTypeRiskScan:
		return s.executeRiskScan(ctx)
	default:
		return fmt.Errorf("unsupported job type: %s", jobConfig.Type)
	}
}

// executeWatchlistAnalysis 执行自选股批量分析任务
func (s *Scheduler) executeWatchlistAnalysis(ctx context.Context) error {
	report, err := s.engine.AnalyzeWatchlist(ctx)
	if err != nil {
		return fmt.Errorf("failed to analyze watchlist: %v", err)
	}

	failed := 0
	for _, analysis := range report.Results {
		if analysis.Status != analyzer.StatusSuccess {
			failed++
		}
	}
	s.logger.Info("自选股分析完成",
		zap.Int("total", report.Count),
		zap.Int("failed", failed))
	return nil
}

// executeRiskScan 执行自选股风险扫描任务
func (s *Scheduler) executeRiskScan(ctx context.Context) error {
	results, err := s.engine.RiskScanWatchlist(ctx)
	if err != nil {
		return fmt.Errorf("failed to scan watchlist risk: %v", err)
	}

	highRisk := 0
	for _, profile := range results {
		if profile.RiskLevel == types.RiskLevelHigh {
			highRisk++
		}
	}
	s.logger.Info("风险扫描完成",
		zap.Int("total", len(results)),
		zap.Int("high_risk", highRisk))
	return nil
}

// Start 启动调度器
func (s *Scheduler) Start() error {
	s.cron.Start()
	s.logger.Info("调度器已启动")
	return nil
}

// Stop 停止调度器
func (s *Scheduler) Stop(ctx context.Context) error {
	stopCtx := s.cron.Stop()

	select {
	case <-stopCtx.Done():
		s.logger.Info("调度器已停止")
		return nil
	case <-ctx.Done():
		s.logger.Warn("调度器停止超时")
		return ctx.Err()
	}
}

// GetJobStatus 获取任务状态
func (s *Scheduler) GetJobStatus() map[string]*JobInfo {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	result := make(map[string]*JobInfo)
	for name, job := range s.jobs {
		// 更新下次运行时间
		entry := s.cron.Entry(job.EntryID)
		job.NextRun = entry.Next

		result[name] = &JobInfo{
			Config:     job.Config,
			EntryID:    job.EntryID,
			Status:     job.Status,
			LastRun:    job.LastRun,
			NextRun:    job.NextRun,
			RunCount:   job.RunCount,
			ErrorCount: job.ErrorCount,
			LastError:  job.LastError,
		}
	}
	return result
}
