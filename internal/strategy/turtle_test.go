package strategy

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mooyang-code/stock-analyzer/internal/indicators"
	"github.com/mooyang-code/stock-analyzer/internal/types"
)

// flatBars 生成震荡区间内的行情序列
func flatBars(n int) []types.PriceBar {
	bars := make([]types.PriceBar, n)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		bars[i] = types.PriceBar{
			Symbol: "000001",
			Date:   base.AddDate(0, 0, i),
			Open:   10.0,
			High:   10.4,
			Low:    9.6,
			Close:  10.0,
			Volume: 100000,
		}
	}
	return bars
}

// TestTurtleInsufficientData 测试数据不足时不给出信号
func TestTurtleInsufficientData(t *testing.T) {
	turtle := NewTurtle(100000, zap.NewNop())

	analysis := turtle.Analyze("000001", flatBars(50))
	require.Error(t, analysis.Err)
	assert.Equal(t, types.ActionHold, analysis.CombinedSignal)

	rec := turtle.Recommend("000001", flatBars(50))
	assert.Equal(t, types.ActionNone, rec.Action)
	assert.Zero(t, rec.Confidence)
}

// TestTurtleHoldInRange 测试震荡区间内持有观望
func TestTurtleHoldInRange(t *testing.T) {
	turtle := NewTurtle(100000, zap.NewNop())

	analysis := turtle.Analyze("000001", flatBars(70))
	require.NoError(t, analysis.Err)
	assert.Equal(t, types.ActionHold, analysis.CombinedSignal)
	assert.Equal(t, types.ActionNone, analysis.System1.EntrySignal)
	assert.Equal(t, types.ActionNone, analysis.System2.EntrySignal)

	rec := turtle.Recommend("000001", flatBars(70))
	assert.Equal(t, types.ActionHold, rec.Action)
	assert.InDelta(t, 0.3, rec.Confidence, 1e-9)
}

// TestTurtleUpwardBreakout 测试放量突破区间高点触发买入
func TestTurtleUpwardBreakout(t *testing.T) {
	bars := flatBars(70)
	last := len(bars) - 1
	bars[last].High = 12.0
	bars[last].Close = 11.8
	bars[last].Volume = 300000

	turtle := NewTurtle(100000, zap.NewNop())
	analysis := turtle.Analyze("000001", bars)
	require.NoError(t, analysis.Err)

	// 两套系统均突破，长期系统优先
	assert.Equal(t, types.ActionBuy, analysis.System1.EntrySignal)
	assert.Equal(t, types.ActionBuy, analysis.System2.EntrySignal)
	assert.Equal(t, types.ActionBuy, analysis.CombinedSignal)

	// 突破窗口不含当日，突破价为区间高点
	assert.InDelta(t, 10.4, analysis.System2.EntryPrice, 1e-9)

	// 大幅放量突破，置信度触顶
	assert.InDelta(t, 0.9, analysis.System2.Confidence, 1e-9)

	// 止损为现价减2倍ATR，仓位不超过5%上限
	high := make([]float64, len(bars))
	low := make([]float64, len(bars))
	closes := make([]float64, len(bars))
	for i, bar := range bars {
		high[i], low[i], closes[i] = bar.High, bar.Low, bar.Close
	}
	atrSeries := indicators.ATREMA(high, low, closes, 20)
	atr := atrSeries[len(atrSeries)-1]

	assert.InDelta(t, 11.8-2*atr, analysis.StopLoss, 1e-9)
	assert.Greater(t, analysis.PositionSize, 0.0)
	assert.LessOrEqual(t, analysis.PositionSize, 0.05)
	assert.InDelta(t, math.Min(0.02/atr, 0.05), analysis.PositionSize, 1e-9)
}

// TestTurtleDownwardBreakout 测试跌破区间低点触发卖出
func TestTurtleDownwardBreakout(t *testing.T) {
	bars := flatBars(70)
	last := len(bars) - 1
	bars[last].Low = 8.0
	bars[last].Close = 8.2
	bars[last].Volume = 300000

	turtle := NewTurtle(100000, zap.NewNop())
	analysis := turtle.Analyze("000001", bars)
	require.NoError(t, analysis.Err)

	assert.Equal(t, types.ActionSell, analysis.CombinedSignal)
	assert.Greater(t, analysis.StopLoss, bars[last].Close) // 空头止损在现价之上
}

// TestTurtleExitSignal 测试跌破出场窗口但未破入场窗口时平仓
func TestTurtleExitSignal(t *testing.T) {
	bars := flatBars(70)

	// 前期低点更低，使55天入场低点远离当前价格
	for i := 0; i < 45; i++ {
		bars[i].Low = 9.0
	}
	last := len(bars) - 1
	bars[last].Low = 9.3
	bars[last].Close = 9.58
	bars[last].High = 9.7

	turtle := NewTurtle(100000, zap.NewNop())
	analysis := turtle.Analyze("000001", bars)
	require.NoError(t, analysis.Err)

	// 系统2入场低点9.0未被跌破，系统1入场信号置信度不足
	assert.Equal(t, types.ActionNone, analysis.System2.EntrySignal)
	assert.Less(t, analysis.System1.Confidence, 0.6)

	// 跌破20天出场低点，综合信号为平仓
	assert.Equal(t, exitLong, analysis.System2.ExitSignal)
	assert.Equal(t, types.ActionExit, analysis.CombinedSignal)

	rec := turtle.Recommend("000001", bars)
	assert.Equal(t, types.ActionExit, rec.Action)
	assert.InDelta(t, 0.8, rec.Confidence, 1e-9)
}

// TestTurtleBreakoutWindowExcludesToday 测试突破窗口不包含当日行情
func TestTurtleBreakoutWindowExcludesToday(t *testing.T) {
	bars := flatBars(70)

	// 当日创出新高但只等于历史高点时不算突破
	last := len(bars) - 1
	bars[last].High = 10.4
	bars[last].Close = 10.3

	turtle := NewTurtle(100000, zap.NewNop())
	analysis := turtle.Analyze("000001", bars)
	assert.Equal(t, types.ActionNone, analysis.System1.EntrySignal)
	assert.Equal(t, types.ActionHold, analysis.CombinedSignal)
}

// TestTurtleRiskMetrics 测试风险指标计算
func TestTurtleRiskMetrics(t *testing.T) {
	bars := flatBars(70)
	turtle := NewTurtle(100000, zap.NewNop())

	analysis := turtle.Analyze("000001", bars)
	require.NoError(t, analysis.Err)

	// 价格不变时波动率与回撤为0，均线格局为空头（ma20==ma60时取bearish）
	assert.Zero(t, analysis.RiskMetrics.Volatility)
	assert.Zero(t, analysis.RiskMetrics.MaxDrawdown)
	assert.Equal(t, "bearish", analysis.RiskMetrics.MATrend)
	assert.InDelta(t, 8.0, analysis.RiskMetrics.ATRPct, 1e-9) // ATR=0.8，现价10
}

// TestPositionSizeFallback 测试ATR无效时使用默认仓位
func TestPositionSizeFallback(t *testing.T) {
	turtle := NewTurtle(100000, zap.NewNop())
	assert.InDelta(t, 0.05, turtle.positionSize(0, 10), 1e-9)
	assert.InDelta(t, 0.05, turtle.positionSize(-1, 10), 1e-9)
}
