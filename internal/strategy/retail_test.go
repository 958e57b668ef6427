package strategy

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mooyang-code/stock-analyzer/internal/indicators"
	"github.com/mooyang-code/stock-analyzer/internal/types"
)

func newTestRetail() (*Retail, *Turtle) {
	turtle := NewTurtle(100000, zap.NewNop())
	return NewRetail(turtle, 0.6, zap.NewNop()), turtle
}

// bullishRow 多头指标行：短均线在上、MACD在信号线上方
func bullishRow() indicators.IndicatorRow {
	return indicators.IndicatorRow{
		MA5: 10.5, MA20: 10.0,
		RSI:  50,
		MACD: 0.2, MACDSignal: 0.1,
	}
}

// bearishRow 空头指标行
func bearishRow() indicators.IndicatorRow {
	return indicators.IndicatorRow{
		MA5: 9.5, MA20: 10.0,
		RSI:  50,
		MACD: -0.2, MACDSignal: -0.1,
	}
}

// TestRetailEmptyBars 测试无数据时观望
func TestRetailEmptyBars(t *testing.T) {
	retail, _ := newTestRetail()

	rec := retail.Recommend("000001", nil, nil)
	assert.Equal(t, types.ActionHold, rec.Action)
	assert.InDelta(t, 0.5, rec.Confidence, 1e-9)
	assert.InDelta(t, 0.1, rec.PositionSize, 1e-9)
	assert.Contains(t, rec.Reasons, "数据不足，无法生成信号")
}

// TestRetailBuyWithTurtleBreakout 测试海龟突破叠加多头指标时买入
func TestRetailBuyWithTurtleBreakout(t *testing.T) {
	bars := flatBars(70)
	last := len(bars) - 1
	bars[last].High = 12.0
	bars[last].Close = 11.8
	bars[last].Volume = 300000

	retail, turtle := newTestRetail()
	rows := []indicators.IndicatorRow{bullishRow()}

	rec := retail.Recommend("000001", bars, rows)
	require.Equal(t, types.ActionBuy, rec.Action)

	// 传统分0.7×0.4 + 海龟分0.9×0.6 = 0.82，置信度触顶
	assert.InDelta(t, 0.9, rec.Confidence, 1e-9)
	assert.Contains(t, rec.Reasons, "短期均线上穿长期均线")
	assert.Contains(t, rec.Reasons, "放量上涨")

	// 海龟给出止损时优先使用其风险管理参数
	turtleRec := turtle.Recommend("000001", bars)
	require.NotZero(t, turtleRec.StopLoss)
	assert.InDelta(t, turtleRec.StopLoss, rec.StopLoss, 1e-9)
	assert.InDelta(t, turtleRec.PositionSize, rec.PositionSize, 1e-9)

	// 止盈目标取2倍ATR幅度
	atrPct := turtleRec.RiskMetrics.ATRPct / 100
	assert.InDelta(t, 11.8*(1+atrPct*2), rec.TakeProfit, 1e-9)
	assert.InDelta(t, 11.8, rec.EntryPrice, 1e-9)
}

// TestRetailHoldOnWeakSignals 测试信号不足阈值时观望
func TestRetailHoldOnWeakSignals(t *testing.T) {
	bars := flatBars(70)
	retail, _ := newTestRetail()

	// 传统分-0.5×0.4=-0.2，海龟观望分0，未达±0.3阈值
	rec := retail.Recommend("000001", bars, []indicators.IndicatorRow{bearishRow()})
	assert.Equal(t, types.ActionHold, rec.Action)
	assert.InDelta(t, 0.5, rec.Confidence, 1e-9)
	assert.Zero(t, rec.StopLoss)
	assert.Zero(t, rec.TakeProfit)
	assert.InDelta(t, 10.0, rec.EntryPrice, 1e-9)
}

// TestRetailSellOnTurtleExit 测试海龟出场信号推动综合卖出
func TestRetailSellOnTurtleExit(t *testing.T) {
	bars := flatBars(70)
	for i := 0; i < 45; i++ {
		bars[i].Low = 9.0
	}
	last := len(bars) - 1
	bars[last].Low = 9.3
	bars[last].Close = 9.58
	bars[last].High = 9.7

	retail, _ := newTestRetail()
	rec := retail.Recommend("000001", bars, []indicators.IndicatorRow{bearishRow()})

	// 传统分-0.2，海龟出场分-0.8×0.6=-0.48，合计-0.68
	require.Equal(t, types.ActionSell, rec.Action)
	assert.InDelta(t, 0.9, rec.Confidence, 1e-9)
	assert.Contains(t, rec.Reasons, "海龟策略: 触发出场信号")

	// 出场信号无海龟止损，退回固定比例风险管理
	assert.InDelta(t, 9.58*(1+stopLossRatio), rec.StopLoss, 1e-9)
	assert.InDelta(t, 9.58*(1-takeProfitRatio), rec.TakeProfit, 1e-9)

	// 低波动取大仓位档
	assert.InDelta(t, 0.15, rec.PositionSize, 1e-9)
}

// TestRetailTurtleWeight 测试海龟权重可配置且影响综合决策
func TestRetailTurtleWeight(t *testing.T) {
	bars := flatBars(70)
	turtle := NewTurtle(100000, zap.NewNop())
	rows := []indicators.IndicatorRow{bullishRow()}

	// 海龟观望分0，传统分0.5。默认权重0.6下综合分0.5×0.4=0.2，未达阈值
	rec := NewRetail(turtle, 0.6, zap.NewNop()).Recommend("000001", bars, rows)
	assert.Equal(t, types.ActionHold, rec.Action)

	// 权重降到0.2时传统信号占主导，综合分0.5×0.8=0.4触发买入
	rec = NewRetail(turtle, 0.2, zap.NewNop()).Recommend("000001", bars, rows)
	assert.Equal(t, types.ActionBuy, rec.Action)
	assert.InDelta(t, 0.9, rec.Confidence, 1e-9)
}

// TestNewRetailWeightFallback 测试非法权重回退默认值
func TestNewRetailWeightFallback(t *testing.T) {
	turtle := NewTurtle(100000, zap.NewNop())

	assert.InDelta(t, defaultTurtleWeight, NewRetail(turtle, 0, zap.NewNop()).turtleWeight, 1e-9)
	assert.InDelta(t, defaultTurtleWeight, NewRetail(turtle, 1.5, zap.NewNop()).turtleWeight, 1e-9)
	assert.InDelta(t, 0.3, NewRetail(turtle, 0.3, zap.NewNop()).turtleWeight, 1e-9)
}

// TestAnalyzeTraditionalScores 测试传统信号分的各个分量
func TestAnalyzeTraditionalScores(t *testing.T) {
	bars := flatBars(30)

	// 多头：趋势+0.3 MACD+0.2，无放量
	signals := analyzeTraditional(bars, []indicators.IndicatorRow{bullishRow()})
	assert.InDelta(t, 0.3, signals.Trend, 1e-9)
	assert.InDelta(t, 0.2, signals.Technical, 1e-9)
	assert.Zero(t, signals.Volume)
	assert.InDelta(t, 0.5, signals.total(), 1e-9)

	// RSI超卖加分
	row := bearishRow()
	row.RSI = 25
	signals = analyzeTraditional(bars, []indicators.IndicatorRow{row})
	assert.InDelta(t, 0.4-0.2, signals.Technical, 1e-9)

	// RSI超买减分
	row.RSI = 75
	signals = analyzeTraditional(bars, []indicators.IndicatorRow{row})
	assert.InDelta(t, -0.4-0.2, signals.Technical, 1e-9)
}

// TestAnalyzeTraditionalVolumeSpike 测试放量异动信号
func TestAnalyzeTraditionalVolumeSpike(t *testing.T) {
	// 放量上涨+0.2
	bars := flatBars(30)
	last := len(bars) - 1
	bars[last].Volume = 500000
	bars[last].Close = 10.5
	signals := analyzeTraditional(bars, []indicators.IndicatorRow{bullishRow()})
	assert.InDelta(t, 0.2, signals.Volume, 1e-9)

	// 放量下跌-0.1
	bars[last].Close = 9.5
	signals = analyzeTraditional(bars, []indicators.IndicatorRow{bullishRow()})
	assert.InDelta(t, -0.1, signals.Volume, 1e-9)
}

// TestAnalyzeTraditionalNaNRows 测试指标无效时趋势分走空头分支
func TestAnalyzeTraditionalNaNRows(t *testing.T) {
	bars := flatBars(30)
	row := indicators.IndicatorRow{
		MA5: math.NaN(), MA20: math.NaN(),
		RSI:  math.NaN(),
		MACD: math.NaN(), MACDSignal: math.NaN(),
	}

	// NaN比较恒为false，趋势与MACD均落入减分分支
	signals := analyzeTraditional(bars, []indicators.IndicatorRow{row})
	assert.InDelta(t, -0.3, signals.Trend, 1e-9)
	assert.InDelta(t, -0.2, signals.Technical, 1e-9)
}
