// Package risk 实现面向散户的多因子风险评估
package risk

import (
	"fmt"
	"math"
	"time"

	"github.com/gofrs/uuid"
	"go.uber.org/zap"

	"github.com/mooyang-code/stock-analyzer/internal/indicators"
	"github.com/mooyang-code/stock-analyzer/internal/types"
)

// 风险评估参数
const (
	minAssessBars = 10 // 最少需要的行情条数

	volatilityLowThreshold    = 0.02 // 2%以下为低波动
	volatilityMediumThreshold = 0.05 // 5%以下为中等波动

	volumeSpikeThreshold    = 2.0 // 成交量放大2倍以上为异常
	consecutiveDeclineLimit = 5   // 连续下跌5天为警示
)

// 风险因子名称
const (
	factorVolatility = "价格波动性"
	factorVolume     = "成交量"
	factorTechnical  = "技术指标"
	factorTrend      = "趋势"
	factorLiquidity  = "流动性"
)

// Assessor 风险评估器
type Assessor struct {
	logger *zap.Logger
}

// NewAssessor 创建风险评估器
func NewAssessor(logger *zap.Logger) *Assessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assessor{logger: logger}
}

// Assess 评估单只股票的风险，rows为对应行情的技术指标（可为空）
func (a *Assessor) Assess(symbol string, bars []types.PriceBar, rows []indicators.IndicatorRow) *types.RiskProfile {
	profile := &types.RiskProfile{
		Symbol:     symbol,
		AssessedAt: time.Now(),
	}

	if len(bars) < minAssessBars {
		profile.RiskLevel = types.RiskLevelInsufficient
		profile.Warnings = append(profile.Warnings, "数据不足，无法进行风险评估")
		return profile
	}

	profile.Factors = []types.RiskFactor{
		volatilityRisk(bars),
		volumeRisk(bars),
		technicalRisk(rows),
		trendRisk(bars),
		liquidityRisk(bars),
	}

	var total float64
	for _, factor := range profile.Factors {
		total += factor.Score
	}
	profile.RiskScore = total / float64(len(profile.Factors))
	profile.RiskLevel = determineRiskLevel(profile.RiskScore)
	profile.Warnings = generateWarnings(profile.Factors)
	profile.Recommendations = generateRecommendations(profile.RiskLevel, profile.Factors)

	a.logger.Info("风险评估完成",
		zap.String("symbol", symbol),
		zap.Float64("score", profile.RiskScore),
		zap.String("level", string(profile.RiskLevel)))
	return profile
}

// BuildAlert 根据风险评估结果构造高风险预警，非高风险返回nil
func (a *Assessor) BuildAlert(profile *types.RiskProfile) *types.Alert {
	if profile == nil || profile.RiskLevel != types.RiskLevelHigh {
		return nil
	}

	id, err := uuid.NewV4()
	if err != nil {
		a.logger.Error("生成预警ID失败", zap.Error(err))
		return nil
	}

	return &types.Alert{
		ID:        id.String(),
		Symbol:    profile.Symbol,
		Type:      "high_risk",
		Title:     "风险预警 - " + profile.Symbol,
		Message:   fmt.Sprintf("股票%s风险评级为高风险，风险分数%.1f", profile.Symbol, profile.RiskScore),
		Severity:  "CRITICAL",
		CreatedAt: time.Now(),
	}
}

// volatilityRisk 评估价格波动性风险
func volatilityRisk(bars []types.PriceBar) types.RiskFactor {
	returns := dailyReturns(bars)
	volatility := stddev(returns)

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

	var score float64
	var level string
	switch {
	case volatility < volatilityLowThreshold:
		score, level = 20, "低"
	case volatility < volatilityMediumThreshold:
		score, level = 50, "中"
	default:
		score, level = 80, "高"
	}

	// 深度回撤加分
	if math.Abs(maxDrawdown) > 0.2 {
		score += 15
	} else if math.Abs(maxDrawdown) > 0.1 {
		score += 10
	}

	return types.RiskFactor{
		Factor: factorVolatility,
		Score:  math.Min(score, 100),
		Level:  level,
		Description: fmt.Sprintf("价格波动率%.2f%%，最大回撤%.2f%%",
			volatility*100, math.Abs(maxDrawdown)*100),
	}
}

// volumeRisk 评估成交量异常风险
func volumeRisk(bars []types.PriceBar) types.RiskFactor {
	volumes := make([]float64, len(bars))
	hasVolume := false
	for i, bar := range bars {
		volumes[i] = bar.Volume
		if bar.Volume > 0 {
			hasVolume = true
		}
	}
	if !hasVolume {
		return types.RiskFactor{
			Factor:      factorVolume,
			Score:       30,
			Level:       "无数据",
			Description: "缺少成交量数据",
		}
	}

	// 成交量相对20日均量的异常放大天数
	spikeDays := 0
	for i := 19; i < len(volumes); i++ {
		var sum float64
		for _, v := range volumes[i-19 : i+1] {
			sum += v
		}
		ma := sum / 20
		if ma > 0 && volumes[i]/ma > volumeSpikeThreshold {
			spikeDays++
		}
	}

	// 成交量变异系数
	volumeCV := 0.0
	if m := mean(volumes); m > 0 {
		volumeCV = stddev(volumes) / m
	}

	score := 20.0
	n := float64(len(bars))
	if float64(spikeDays) > n*0.1 {
		score += 30
	} else if float64(spikeDays) > n*0.05 {
		score += 20
	}
	if volumeCV > 1.5 {
		score += 20
	} else if volumeCV > 1.0 {
		score += 10
	}

	return types.RiskFactor{
		Factor:      factorVolume,
		Score:       math.Min(score, 100),
		Level:       threeTierLevel(score, 40, 70),
		Description: fmt.Sprintf("成交量异常天数%d天，变异系数%.2f", spikeDays, volumeCV),
	}
}

// technicalRisk 根据最新指标行评估技术指标风险
func technicalRisk(rows []indicators.IndicatorRow) types.RiskFactor {
	if len(rows) == 0 {
		return types.RiskFactor{
			Factor:      factorTechnical,
			Score:       40,
			Level:       "无数据",
			Description: "缺少技术指标数据",
		}
	}

	latest := rows[len(rows)-1]
	score := 20.0

	// RSI极端区域，超买超卖都是风险
	if !math.IsNaN(latest.RSI) {
		switch {
		case latest.RSI > 80:
			score += 25
		case latest.RSI > 70:
			score += 15
		case latest.RSI < 20:
			score += 20
		case latest.RSI < 30:
			score += 10
		}
	}

	// MACD差值过大
	if !math.IsNaN(latest.MACD) && !math.IsNaN(latest.MACDSignal) {
		if math.Abs(latest.MACD-latest.MACDSignal) > 0.5 {
			score += 15
		}
	}

	// 短期均线偏离长期均线
	if !math.IsNaN(latest.MA5) && !math.IsNaN(latest.MA20) && latest.MA20 != 0 {
		deviation := math.Abs(latest.MA5-latest.MA20) / latest.MA20
		if deviation > 0.1 {
			score += 20
		} else if deviation > 0.05 {
			score += 10
		}
	}

	rsiText := "N/A"
	if !math.IsNaN(latest.RSI) {
		rsiText = fmt.Sprintf("%.1f", latest.RSI)
	}
	macdText := "空头"
	if latest.MACD > latest.MACDSignal {
		macdText = "多头"
	}

	return types.RiskFactor{
		Factor:      factorTechnical,
		Score:       math.Min(score, 100),
		Level:       threeTierLevel(score, 40, 70),
		Description: fmt.Sprintf("RSI: %s, MACD: %s", rsiText, macdText),
	}
}

// trendRisk 评估趋势风险
func trendRisk(bars []types.PriceBar) types.RiskFactor {
	// 最大连续下跌天数
	consecutive := 0
	maxConsecutive := 0
	for i := 1; i < len(bars); i++ {
		if bars[i].Close < bars[i-1].Close {
			consecutive++
			if consecutive > maxConsecutive {
				maxConsecutive = consecutive
			}
		} else {
			consecutive = 0
		}
	}

	// 趋势斜率（最小二乘）
	slope := regressionSlope(bars)

	// 现价在近20日高低区间内的相对位置
	tail := bars
	if len(bars) > 20 {
		tail = bars[len(bars)-20:]
	}
	recentHigh := tail[0].High
	recentLow := tail[0].Low
	for _, bar := range tail[1:] {
		if bar.High > recentHigh {
			recentHigh = bar.High
		}
		if bar.Low < recentLow {
			recentLow = bar.Low
		}
	}
	currentPrice := bars[len(bars)-1].Close
	pricePosition := 0.5
	if recentHigh != recentLow {
		pricePosition = (currentPrice - recentLow) / (recentHigh - recentLow)
	}

	score := 20.0
	if maxConsecutive >= consecutiveDeclineLimit {
		score += 30
	} else if maxConsecutive >= 3 {
		score += 15
	}
	if slope < -0.1 {
		score += 25
	} else if slope < 0 {
		score += 10
	}
	if pricePosition < 0.2 {
		score += 20
	} else if pricePosition > 0.8 {
		score += 15
	}

	return types.RiskFactor{
		Factor: factorTrend,
		Score:  math.Min(score, 100),
		Level:  threeTierLevel(score, 40, 70),
		Description: fmt.Sprintf("最大连续下跌%d天，价格位置%.1f%%",
			maxConsecutive, pricePosition*100),
	}
}

// liquidityRisk 评估流动性风险
func liquidityRisk(bars []types.PriceBar) types.RiskFactor {
	volumes := make([]float64, len(bars))
	hasVolume := false
	for i, bar := range bars {
		volumes[i] = bar.Volume
		if bar.Volume > 0 {
			hasVolume = true
		}
	}
	if !hasVolume {
		return types.RiskFactor{
			Factor:      factorLiquidity,
			Score:       50,
			Level:       "无数据",
			Description: "缺少成交量数据",
		}
	}

	avgVolume := mean(volumes)
	zeroVolumeDays := 0
	lowVolumeDays := 0
	for _, v := range volumes {
		if v == 0 {
			zeroVolumeDays++
		}
		if v < avgVolume*0.5 {
			lowVolumeDays++
		}
	}

	score := 10.0
	if zeroVolumeDays > 0 {
		score += 40 // 停牌或无人交易
	}

	lowVolumeRatio := float64(lowVolumeDays) / float64(len(bars))
	switch {
	case lowVolumeRatio > 0.3:
		score += 30
	case lowVolumeRatio > 0.2:
		score += 20
	case lowVolumeRatio > 0.1:
		score += 10
	}

	return types.RiskFactor{
		Factor: factorLiquidity,
		Score:  math.Min(score, 100),
		Level:  threeTierLevel(score, 30, 60),
		Description: fmt.Sprintf("平均成交量%.1f万，低量天数占比%.1f%%",
			avgVolume/10000, lowVolumeRatio*100),
	}
}

// determineRiskLevel 根据综合分数确定风险等级
func determineRiskLevel(score float64) types.RiskLevel {
	switch {
	case score < 30:
		return types.RiskLevelLow
	case score < 60:
		return types.RiskLevelMedium
	default:
		return types.RiskLevelHigh
	}
}

// generateWarnings 根据因子分数生成风险预警文案
func generateWarnings(factors []types.RiskFactor) []string {
	var warnings []string
	for _, factor := range factors {
		if factor.Score > 70 {
			warnings = append(warnings, fmt.Sprintf("%s风险较高: %s", factor.Factor, factor.Description))
		} else if factor.Score > 50 {
			warnings = append(warnings, fmt.Sprintf("%s存在风险: %s", factor.Factor, factor.Description))
		}
	}
	return warnings
}

// generateRecommendations 生成风险管理建议
func generateRecommendations(level types.RiskLevel, factors []types.RiskFactor) []string {
	var recommendations []string

	switch level {
	case types.RiskLevelHigh:
		recommendations = append(recommendations,
			"建议减少仓位或考虑止损",
			"密切关注市场动态和基本面变化",
			"避免追涨杀跌，等待更好的入场时机")
	case types.RiskLevelMedium:
		recommendations = append(recommendations,
			"建议控制仓位，不宜重仓",
			"可以考虑分批建仓或减仓",
			"加强对技术指标和基本面的监控")
	default:
		recommendations = append(recommendations,
			"风险相对较低，可适度参与",
			"仍需关注市场变化，保持谨慎",
			"可考虑作为投资组合的一部分")
	}

	for _, factor := range factors {
		if factor.Score <= 60 {
			continue
		}
		switch factor.Factor {
		case factorVolatility:
			recommendations = append(recommendations, "价格波动较大，建议设置止损点")
		case factorVolume:
			recommendations = append(recommendations, "成交量异常，注意市场情绪变化")
		case factorTechnical:
			recommendations = append(recommendations, "技术指标显示风险，建议等待确认信号")
		case factorTrend:
			recommendations = append(recommendations, "趋势不明朗，建议观望或轻仓操作")
		}
	}
	return recommendations
}

// threeTierLevel 按两档阈值划分低/中/高
func threeTierLevel(score, mediumFrom, highFrom float64) string {
	switch {
	case score < mediumFrom:
		return "低"
	case score < highFrom:
		return "中"
	default:
		return "高"
	}
}

// regressionSlope 对收盘价做一元线性回归，返回斜率
func regressionSlope(bars []types.PriceBar) float64 {
	n := float64(len(bars))
	if n < 2 {
		return 0
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, bar := range bars {
		x := float64(i)
		sumX += x
		sumY += bar.Close
		sumXY += x * bar.Close
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

// dailyReturns 计算日收益率序列
func dailyReturns(bars []types.PriceBar) []float64 {
	returns := make([]float64, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		if bars[i-1].Close != 0 {
			returns = append(returns, bars[i].Close/bars[i-1].Close-1)
		}
	}
	return returns
}

// stddev 样本标准差
func stddev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}

	m := mean(values)
	var sumSq float64
	for _, v := range values {
		diff := v - m
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// mean 算术平均
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
