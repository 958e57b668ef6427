package strategy

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/mooyang-code/stock-analyzer/internal/indicators"
	"github.com/mooyang-code/stock-analyzer/internal/types"
)

// 散户策略参数
const (
	stopLossRatio       = 0.08 // 8%止损
	takeProfitRatio     = 0.15 // 15%止盈
	oversoldThreshold   = 30
	overboughtThreshold = 70
	volumeSpikeRatio    = 2.0
	defaultTurtleWeight = 0.6 // 海龟策略默认权重

	decisionThreshold = 0.3 // 综合分数买卖阈值
	exitScore         = 0.8 // 出场信号的分数强度
)

// traditionalSignals 传统技术分析的三项信号分
type traditionalSignals struct {
	Trend     float64
	Technical float64
	Volume    float64
}

func (s traditionalSignals) total() float64 {
	return s.Trend + s.Technical + s.Volume
}

// Retail 散户组合策略，融合传统技术分析与海龟趋势跟踪
type Retail struct {
	turtle       *Turtle
	turtleWeight float64
	logger       *zap.Logger
}

// NewRetail 创建散户策略，turtleWeight为海龟信号在综合分中的权重，
// 超出(0,1]区间时回退到默认值0.6
func NewRetail(turtle *Turtle, turtleWeight float64, logger *zap.Logger) *Retail {
	if logger == nil {
		logger = zap.NewNop()
	}
	if turtleWeight <= 0 || turtleWeight > 1 {
		turtleWeight = defaultTurtleWeight
	}
	return &Retail{
		turtle:       turtle,
		turtleWeight: turtleWeight,
		logger:       logger,
	}
}

// Recommend 生成综合交易建议
func (r *Retail) Recommend(symbol string, bars []types.PriceBar, rows []indicators.IndicatorRow) *types.StrategyRecommendation {
	result := &types.StrategyRecommendation{
		Symbol:       symbol,
		Action:       types.ActionHold,
		Confidence:   0.5,
		PositionSize: 0.1,
		Timestamp:    time.Now(),
	}

	if len(bars) == 0 {
		result.Reasons = append(result.Reasons, "数据不足，无法生成信号")
		return result
	}

	// 传统技术分析信号
	traditional := analyzeTraditional(bars, rows)

	// 海龟策略信号
	turtleRec := r.turtle.Recommend(symbol, bars)

	// 综合决策
	r.combineDecision(result, traditional, turtleRec)

	// 风险管理参数
	r.applyRiskManagement(result, bars, turtleRec)

	r.logger.Debug("retail recommendation done",
		zap.String("symbol", symbol),
		zap.String("action", string(result.Action)),
		zap.Float64("confidence", result.Confidence))
	return result
}

// analyzeTraditional 根据最新指标行计算传统信号分
func analyzeTraditional(bars []types.PriceBar, rows []indicators.IndicatorRow) traditionalSignals {
	var signals traditionalSignals
	if len(rows) == 0 {
		return signals
	}

	latest := rows[len(rows)-1]

	// 趋势信号：短期均线相对长期均线
	if latest.MA5 > latest.MA20 {
		signals.Trend += 0.3
	} else {
		signals.Trend -= 0.3
	}

	// RSI超买超卖
	if latest.RSI < oversoldThreshold {
		signals.Technical += 0.4
	} else if latest.RSI > overboughtThreshold {
		signals.Technical -= 0.4
	}

	// MACD多空
	if latest.MACD > latest.MACDSignal {
		signals.Technical += 0.2
	} else {
		signals.Technical -= 0.2
	}

	// 成交量异动
	if len(bars) >= 20 {
		var avgVolume float64
		for _, bar := range bars[len(bars)-20:] {
			avgVolume += bar.Volume
		}
		avgVolume /= 20

		latestBar := bars[len(bars)-1]
		if latestBar.Volume > avgVolume*volumeSpikeRatio {
			priceChange := latestBar.Close - bars[len(bars)-2].Close
			if priceChange > 0 {
				signals.Volume += 0.2
			} else {
				signals.Volume -= 0.1
			}
		}
	}
	return signals
}

// combineDecision 按权重融合传统信号与海龟信号
func (r *Retail) combineDecision(result *types.StrategyRecommendation, traditional traditionalSignals, turtleRec *TurtleRecommendation) {
	traditionalScore := traditional.total()
	traditionalWeight := 1 - r.turtleWeight

	var turtleScore float64
	var turtleReasons []string
	if turtleRec != nil && turtleRec.Action != types.ActionNone {
		switch turtleRec.Action {
		case types.ActionBuy:
			turtleScore = turtleRec.Confidence
			turtleReasons = append(turtleReasons, "海龟策略: "+turtleRec.Reason)
		case types.ActionSell:
			turtleScore = -turtleRec.Confidence
			turtleReasons = append(turtleReasons, "海龟策略: "+turtleRec.Reason)
		case types.ActionExit:
			// 出场信号强度较高
			turtleScore = -exitScore
			turtleReasons = append(turtleReasons, "海龟策略: 触发出场信号")
		}
	}

	totalScore := traditionalScore*traditionalWeight + turtleScore*r.turtleWeight

	var reasons []string
	if traditional.Trend > 0 {
		reasons = append(reasons, "短期均线上穿长期均线")
	} else if traditional.Trend < 0 {
		reasons = append(reasons, "短期均线下穿长期均线")
	}
	if traditional.Technical > 0.2 {
		reasons = append(reasons, "技术指标显示超卖或多头信号")
	} else if traditional.Technical < -0.2 {
		reasons = append(reasons, "技术指标显示超买或空头信号")
	}
	if traditional.Volume > 0 {
		reasons = append(reasons, "放量上涨")
	} else if traditional.Volume < 0 {
		reasons = append(reasons, "放量下跌")
	}
	reasons = append(reasons, turtleReasons...)

	switch {
	case totalScore > decisionThreshold:
		result.Action = types.ActionBuy
		result.Confidence = math.Min(0.9, 0.5+math.Abs(totalScore))
	case totalScore < -decisionThreshold:
		result.Action = types.ActionSell
		result.Confidence = math.Min(0.9, 0.5+math.Abs(totalScore))
	default:
		result.Action = types.ActionHold
		result.Confidence = 0.5
		if len(reasons) == 0 {
			reasons = append(reasons, "信号不明确，建议观望")
		}
	}
	result.Reasons = reasons
}

// applyRiskManagement 计算入场价、止损止盈和仓位。
// 海龟策略给出止损时优先使用其风险管理，否则退回固定比例止损止盈
func (r *Retail) applyRiskManagement(result *types.StrategyRecommendation, bars []types.PriceBar, turtleRec *TurtleRecommendation) {
	currentPrice := bars[len(bars)-1].Close
	result.EntryPrice = currentPrice

	if result.Action != types.ActionBuy && result.Action != types.ActionSell {
		return
	}

	if turtleRec != nil && turtleRec.StopLoss != 0 {
		result.StopLoss = turtleRec.StopLoss
		if turtleRec.PositionSize > 0 {
			result.PositionSize = turtleRec.PositionSize
		}

		// 止盈目标取2倍ATR幅度
		if turtleRec.RiskMetrics.ATRPct > 0 {
			atrPct := turtleRec.RiskMetrics.ATRPct / 100
			if result.Action == types.ActionBuy {
				result.TakeProfit = currentPrice * (1 + atrPct*2)
			} else {
				result.TakeProfit = currentPrice * (1 - atrPct*2)
			}
		}
		return
	}

	// 传统固定比例风险管理
	if result.Action == types.ActionBuy {
		result.StopLoss = currentPrice * (1 - stopLossRatio)
		result.TakeProfit = currentPrice * (1 + takeProfitRatio)
	} else {
		result.StopLoss = currentPrice * (1 + stopLossRatio)
		result.TakeProfit = currentPrice * (1 - takeProfitRatio)
	}

	// 按波动率分档调整仓位
	closes := make([]float64, len(bars))
	for i, bar := range bars {
		closes[i] = bar.Close
	}
	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] != 0 {
			returns = append(returns, closes[i]/closes[i-1]-1)
		}
	}

	volatility := stddev(returns)
	switch {
	case volatility > 0.05:
		result.PositionSize = 0.05 // 高波动小仓位
	case volatility > 0.03:
		result.PositionSize = 0.1
	default:
		result.PositionSize = 0.15 // 低波动大仓位
	}
}
