package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mooyang-code/stock-analyzer/internal/analyzer"
	"github.com/mooyang-code/stock-analyzer/internal/datasource"
	"github.com/mooyang-code/stock-analyzer/internal/risk"
	"github.com/mooyang-code/stock-analyzer/internal/strategy"
	"github.com/mooyang-code/stock-analyzer/internal/types"
)

func newTestScheduler() *Scheduler {
	registry := datasource.NewRegistry(zap.NewNop())
	turtle := strategy.NewTurtle(100000, zap.NewNop())
	retail := strategy.NewRetail(turtle, 0.6, zap.NewNop())
	assessor := risk.NewAssessor(zap.NewNop())
	engine := analyzer.NewEngine(registry, nil, retail, assessor, zap.NewNop())
	return New(zap.NewNop(), engine)
}

// TestAddJob 测试任务添加与状态查询
func TestAddJob(t *testing.T) {
	s := newTestScheduler()

	err := s.AddJob(types.JobConfig{
		Name: "daily_analysis",
		Type: JobTypeWatchlistAnalysis,
		Cron: "0 0 16 * * 1-5",
	})
	require.NoError(t, err)

	err = s.AddJob(types.JobConfig{
		Name: "risk_scan",
		Type: JobTypeRiskScan,
		Cron: "0 30 16 * * 1-5",
	})
	require.NoError(t, err)

	status := s.GetJobStatus()
	require.Len(t, status, 2)
	assert.Equal(t, JobStatusPending, status["daily_analysis"].Status)
	assert.Zero(t, status["daily_analysis"].RunCount)
}

// TestAddJobUnsupportedType 测试未知任务类型被拒绝
func TestAddJobUnsupportedType(t *testing.T) {
	s := newTestScheduler()

	err := s.AddJob(types.JobConfig{
		Name: "bad",
		Type: "unknown_type",
		Cron: "0 * * * * *",
	})
	assert.Error(t, err)
	assert.Empty(t, s.GetJobStatus())
}

// TestAddJobInvalidCron 测试非法Cron表达式被拒绝
func TestAddJobInvalidCron(t *testing.T) {
	s := newTestScheduler()

	err := s.AddJob(types.JobConfig{
		Name: "bad",
		Type: JobTypeRiskScan,
		Cron: "not a cron",
	})
	assert.Error(t, err)
}

// TestExecuteJobEmptyWatchlist 测试自选股为空时任务正常完成
func TestExecuteJobEmptyWatchlist(t *testing.T) {
	s := newTestScheduler()

	err := s.executeJob(types.JobConfig{
		Name: "daily_analysis",
		Type: JobTypeWatchlistAnalysis,
	})
	assert.NoError(t, err)

	err = s.executeJob(types.JobConfig{
		Name: "risk_scan",
		Type: JobTypeRiskScan,
	})
	assert.NoError(t, err)
}

// TestStartStop 测试调度器启停
func TestStartStop(t *testing.T) {
	s := newTestScheduler()
	require.NoError(t, s.Start())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}
