// Package strategy 实现海龟交易法则与散户组合策略
package strategy

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/mooyang-code/stock-analyzer/internal/indicators"
	"github.com/mooyang-code/stock-analyzer/internal/types"
)

// 海龟交易法则参数
const (
	system1EntryPeriod = 20 // 系统1：20天突破入场
	system1ExitPeriod  = 10 // 系统1：10天突破出场
	system2EntryPeriod = 55 // 系统2：55天突破入场
	system2ExitPeriod  = 20 // 系统2：20天突破出场

	turtleATRPeriod     = 20  // ATR计算周期（EMA口径）
	stopLossATRMultiple = 2.0 // 止损为2倍ATR
	positionRiskPct     = 0.02
	unitLimitSingle     = 0.05 // 单个标的最大仓位5%

	// 最少需要55天入场窗口+ATR周期外加余量
	turtleMinBars = system2EntryPeriod + 5
)

// 出场信号种类
const (
	exitNone  = "NONE"
	exitLong  = "EXIT_LONG"
	exitShort = "EXIT_SHORT"
)

// SystemResult 单套海龟系统的分析结果
type SystemResult struct {
	EntrySignal  types.Action `json:"entry_signal"` // 入场信号（BUY/SELL/NONE）
	ExitSignal   string       `json:"exit_signal"`  // 出场信号（EXIT_LONG/EXIT_SHORT/NONE）
	EntryPrice   float64      `json:"entry_price"`  // 入场突破价
	ExitPrice    float64      `json:"exit_price"`   // 出场突破价
	BreakoutHigh float64      `json:"breakout_high"`
	BreakoutLow  float64      `json:"breakout_low"`
	ExitHigh     float64      `json:"exit_high"`
	ExitLow      float64      `json:"exit_low"`
	Confidence   float64      `json:"confidence"`
}

// RiskMetrics 策略风险指标
type RiskMetrics struct {
	Volatility    float64 `json:"volatility"`     // 年化波动率(%)
	ATRPct        float64 `json:"atr_pct"`        // ATR占现价比例(%)
	MaxDrawdown   float64 `json:"max_drawdown"`   // 区间最大回撤(%)
	TrendStrength float64 `json:"trend_strength"` // 现价相对MA20强度(%)
	MATrend       string  `json:"ma20_vs_ma60"`   // 均线多空格局
}

// TurtleAnalysis 海龟策略完整分析结果
type TurtleAnalysis struct {
	Symbol         string       `json:"symbol"`
	System1        SystemResult `json:"system1"`
	System2        SystemResult `json:"system2"`
	CombinedSignal types.Action `json:"combined_signal"`
	PositionSize   float64      `json:"position_size"`
	StopLoss       float64      `json:"stop_loss"`
	RiskMetrics    RiskMetrics  `json:"risk_metrics"`
	Err            error        `json:"-"`
}

// TurtleRecommendation 海龟策略建议
type TurtleRecommendation struct {
	Symbol       string       `json:"symbol"`
	Action       types.Action `json:"recommendation"`
	Confidence   float64      `json:"confidence"`
	Reason       string       `json:"reason"`
	PositionSize float64      `json:"position_size"`
	StopLoss     float64      `json:"stop_loss"`
	RiskMetrics  RiskMetrics  `json:"risk_metrics"`
}

// Turtle 海龟交易法则策略
type Turtle struct {
	totalCapital float64
	logger       *zap.Logger
}

// NewTurtle 创建海龟策略，totalCapital为仓位计算的资金基数
func NewTurtle(totalCapital float64, logger *zap.Logger) *Turtle {
	if totalCapital <= 0 {
		totalCapital = 100000
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Turtle{
		totalCapital: totalCapital,
		logger:       logger,
	}
}

// Analyze 分析海龟交易信号
func (t *Turtle) Analyze(symbol string, bars []types.PriceBar) *TurtleAnalysis {
	result := &TurtleAnalysis{
		Symbol:         symbol,
		CombinedSignal: types.ActionHold,
		System1:        SystemResult{EntrySignal: types.ActionNone, ExitSignal: exitNone},
		System2:        SystemResult{EntrySignal: types.ActionNone, ExitSignal: exitNone},
	}

	if len(bars) < turtleMinBars {
		result.Err = fmt.Errorf("数据不足，需要至少%d天历史数据", turtleMinBars)
		return result
	}

	high := make([]float64, len(bars))
	low := make([]float64, len(bars))
	closes := make([]float64, len(bars))
	volume := make([]float64, len(bars))
	for i, bar := range bars {
		high[i] = bar.High
		low[i] = bar.Low
		closes[i] = bar.Close
		volume[i] = bar.Volume
	}

	atrSeries := indicators.ATREMA(high, low, closes, turtleATRPeriod)
	currentATR := atrSeries[len(atrSeries)-1]
	if math.IsNaN(currentATR) {
		currentATR = 0
	}

	result.System1 = t.analyzeSystem(bars, system1EntryPeriod, system1ExitPeriod)
	result.System2 = t.analyzeSystem(bars, system2EntryPeriod, system2ExitPeriod)
	result.CombinedSignal = combineSignals(result.System1, result.System2)

	if result.CombinedSignal == types.ActionBuy || result.CombinedSignal == types.ActionSell {
		result.PositionSize = t.positionSize(currentATR, closes[len(closes)-1])
		result.StopLoss = stopLoss(closes[len(closes)-1], currentATR, result.CombinedSignal)
	}

	result.RiskMetrics = riskMetrics(closes, currentATR)

	t.logger.Debug("turtle analysis done",
		zap.String("symbol", symbol),
		zap.String("signal", string(result.CombinedSignal)))
	return result
}

// analyzeSystem 分析单套系统的突破信号，突破窗口不含当日
func (t *Turtle) analyzeSystem(bars []types.PriceBar, entryPeriod, exitPeriod int) SystemResult {
	result := SystemResult{EntrySignal: types.ActionNone, ExitSignal: exitNone}

	n := len(bars)
	if n < entryPeriod+1 {
		return result
	}

	latest := bars[n-1]

	entryHigh, entryLow := windowExtremes(bars, entryPeriod)
	exitHigh, exitLow := entryHigh, entryLow
	if n >= exitPeriod+1 {
		exitHigh, exitLow = windowExtremes(bars, exitPeriod)
	}

	result.BreakoutHigh = entryHigh
	result.BreakoutLow = entryLow
	result.ExitHigh = exitHigh
	result.ExitLow = exitLow

	// 入场信号
	if latest.High > entryHigh {
		result.EntrySignal = types.ActionBuy
		result.EntryPrice = entryHigh
		result.Confidence = breakoutStrength(bars, entryHigh, true)
	} else if latest.Low < entryLow {
		result.EntrySignal = types.ActionSell
		result.EntryPrice = entryLow
		result.Confidence = breakoutStrength(bars, entryLow, false)
	}

	// 出场信号
	if latest.Low < exitLow {
		result.ExitSignal = exitLong
		result.ExitPrice = exitLow
	} else if latest.High > exitHigh {
		result.ExitSignal = exitShort
		result.ExitPrice = exitHigh
	}
	return result
}

// windowExtremes 取不含当日的最近period天最高价和最低价
func windowExtremes(bars []types.PriceBar, period int) (high, low float64) {
	n := len(bars)
	window := bars[n-period-1 : n-1]

	high = window[0].High
	low = window[0].Low
	for _, bar := range window[1:] {
		if bar.High > high {
			high = bar.High
		}
		if bar.Low < low {
			low = bar.Low
		}
	}
	return high, low
}

// breakoutStrength 计算突破强度作为置信度，突破幅度和放量共同加成
func breakoutStrength(bars []types.PriceBar, breakoutLevel float64, upward bool) float64 {
	n := len(bars)
	currentPrice := bars[n-1].Close
	currentVolume := bars[n-1].Volume

	var breakoutPct float64
	if upward {
		breakoutPct = (currentPrice - breakoutLevel) / breakoutLevel
	} else {
		breakoutPct = (breakoutLevel - currentPrice) / breakoutLevel
	}

	tail := 20
	if n < tail {
		tail = n
	}
	var avgVolume float64
	for _, bar := range bars[n-tail:] {
		avgVolume += bar.Volume
	}
	avgVolume /= float64(tail)

	volumeRatio := 1.0
	if avgVolume > 0 {
		volumeRatio = currentVolume / avgVolume
	}

	baseConfidence := math.Min(breakoutPct*10, 0.5)
	volumeBoost := math.Min((volumeRatio-1)*0.1, 0.3)

	confidence := math.Min(baseConfidence+volumeBoost+0.3, 0.9)
	return math.Max(confidence, 0.1)
}

// combineSignals 合并两套系统的信号，长期系统优先
func combineSignals(system1, system2 SystemResult) types.Action {
	switch {
	case system2.EntrySignal != types.ActionNone:
		return system2.EntrySignal
	case system1.EntrySignal != types.ActionNone && system1.Confidence > 0.6:
		return system1.EntrySignal
	case system2.ExitSignal != exitNone:
		return types.ActionExit
	case system1.ExitSignal != exitNone:
		return types.ActionExit
	default:
		return types.ActionHold
	}
}

// positionSize 按海龟单位计算仓位：每笔交易风险资金除以波动，上限5%
func (t *Turtle) positionSize(atr, currentPrice float64) float64 {
	if atr <= 0 || currentPrice <= 0 {
		return unitLimitSingle
	}

	riskAmount := t.totalCapital * positionRiskPct
	positionValue := riskAmount / atr
	size := positionValue / t.totalCapital
	return math.Min(size, unitLimitSingle)
}

// stopLoss 按2倍ATR计算止损价
func stopLoss(currentPrice, atr float64, signal types.Action) float64 {
	distance := atr * stopLossATRMultiple
	switch signal {
	case types.ActionBuy:
		return currentPrice - distance
	case types.ActionSell:
		return currentPrice + distance
	default:
		return 0
	}
}

// riskMetrics 计算风险指标
func riskMetrics(closes []float64, atr float64) RiskMetrics {
	n := len(closes)
	currentPrice := closes[n-1]

	// 日收益序列
	returns := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		if closes[i-1] != 0 {
			returns = append(returns, closes[i]/closes[i-1]-1)
		}
	}

	volatility := stddev(returns) * math.Sqrt(252)

	atrPct := 0.0
	if currentPrice > 0 {
		atrPct = atr / currentPrice * 100
	}

	// 最大回撤
	maxDrawdown := 0.0
	cumulative := 1.0
	peak := 1.0
	for _, r := range returns {
		cumulative *= 1 + r
		if cumulative > peak {
			peak = cumulative
		}
		dd := (cumulative - peak) / peak
		if dd < maxDrawdown {
			maxDrawdown = dd
		}
	}

	ma20 := tailMean(closes, 20)
	ma60 := tailMean(closes, 60)
	trendStrength := 0.0
	if ma20 > 0 {
		trendStrength = (currentPrice - ma20) / ma20 * 100
	}

	maTrend := "bearish"
	if ma20 > ma60 {
		maTrend = "bullish"
	}

	return RiskMetrics{
		Volatility:    round2(volatility * 100),
		ATRPct:        round2(atrPct),
		MaxDrawdown:   round2(maxDrawdown * 100),
		TrendStrength: round2(trendStrength),
		MATrend:       maTrend,
	}
}

// Recommend 获取海龟策略建议
func (t *Turtle) Recommend(symbol string, bars []types.PriceBar) *TurtleRecommendation {
	analysis := t.Analyze(symbol, bars)

	if analysis.Err != nil {
		return &TurtleRecommendation{
			Symbol: symbol,
			Action: types.ActionNone,
			Reason: analysis.Err.Error(),
		}
	}

	rec := &TurtleRecommendation{
		Symbol:       symbol,
		Action:       analysis.CombinedSignal,
		PositionSize: analysis.PositionSize,
		StopLoss:     analysis.StopLoss,
		RiskMetrics:  analysis.RiskMetrics,
	}

	switch analysis.CombinedSignal {
	case types.ActionBuy:
		system, sysNum, period := activeSystem(analysis, types.ActionBuy)
		rec.Confidence = system.Confidence
		rec.Reason = fmt.Sprintf("价格突破%d天高点，海龟系统%d发出买入信号", period, sysNum)
	case types.ActionSell:
		system, sysNum, period := activeSystem(analysis, types.ActionSell)
		rec.Confidence = system.Confidence
		rec.Reason = fmt.Sprintf("价格跌破%d天低点，海龟系统%d发出卖出信号", period, sysNum)
	case types.ActionExit:
		rec.Confidence = 0.8
		rec.Reason = "价格触发出场信号，建议平仓"
	default:
		rec.Confidence = 0.3
		rec.Reason = "价格在震荡区间内，未触发海龟交易信号"
	}
	return rec
}

// activeSystem 返回触发信号的系统、系统编号及入场周期，长期系统优先
func activeSystem(analysis *TurtleAnalysis, action types.Action) (SystemResult, int, int) {
	if analysis.System2.EntrySignal == action {
		return analysis.System2, 2, system2EntryPeriod
	}
	return analysis.System1, 1, system1EntryPeriod
}

// stddev 样本标准差
func stddev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}

	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(n)

	var sumSq float64
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// tailMean 取末尾n个值的均值，数据不足时取全部
func tailMean(values []float64, n int) float64 {
	if len(values) < n {
		n = len(values)
	}
	if n == 0 {
		return 0
	}

	var sum float64
	for _, v := range values[len(values)-n:] {
		sum += v
	}
	return sum / float64(n)
}

// round2 保留两位小数
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
