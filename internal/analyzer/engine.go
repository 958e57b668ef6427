// Package analyzer 组织数据获取、指标计算、策略与风险评估的完整分析流程
package analyzer

import (
	"context"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mooyang-code/stock-analyzer/internal/datasource"
	"github.com/mooyang-code/stock-analyzer/internal/indicators"
	"github.com/mooyang-code/stock-analyzer/internal/risk"
	"github.com/mooyang-code/stock-analyzer/internal/storage"
	"github.com/mooyang-code/stock-analyzer/internal/strategy"
	"github.com/mooyang-code/stock-analyzer/internal/types"
)

// 分析参数默认值
const (
	DefaultAnalysisDays = 250 // 默认分析天数
	DefaultRiskDays     = 60  // 风险评估默认天数

	// 数据库数据覆盖率达到80%时不再访问数据源
	storageCoverageRatio = 0.8

	// 结果中保留的最近行情条数
	recentBarsLimit = 30
)

// 分析状态
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// BasicInfo 最新行情概要
type BasicInfo struct {
	LatestPrice    float64 `json:"latest_price"`
	PriceChange    float64 `json:"price_change"`
	PriceChangePct float64 `json:"price_change_pct"`
	Volume         int64   `json:"volume"`
}

// TechnicalStatus 技术面状态
type TechnicalStatus struct {
	Trend      string `json:"trend,omitempty"`       // 上升趋势/下降趋势
	RSIStatus  string `json:"rsi_status,omitempty"`  // 超买/超卖/正常
	MACDStatus string `json:"macd_status,omitempty"` // 多头/空头
}

// Summary 分析摘要
type Summary struct {
	BasicInfo       BasicInfo       `json:"basic_info"`
	TechnicalStatus TechnicalStatus `json:"technical_status"`
	SignalsCount    int             `json:"signals_count"`
	ActiveSignals   []string        `json:"active_signals"`
	RiskLevel       string          `json:"risk_level"`
	Recommendation  string          `json:"recommendation"`
}

// Analysis 单只股票的完整分析结果
type Analysis struct {
	Symbol        string                        `json:"symbol"`
	Status        string                        `json:"status"`
	Message       string                        `json:"message,omitempty"`
	RecentBars    []types.PriceBar              `json:"recent_bars,omitempty"`
	Indicators    map[string]float64            `json:"indicators,omitempty"`
	Signals       []types.Signal                `json:"signals,omitempty"`
	Summary       *Summary                      `json:"summary,omitempty"`
	Strategy      *types.StrategyRecommendation `json:"strategy,omitempty"`
	RiskProfile   *types.RiskProfile            `json:"risk_profile,omitempty"`
	WatchlistInfo *types.WatchlistItem          `json:"watchlist_info,omitempty"`
	Timestamp     time.Time                     `json:"timestamp"`
}

// WatchlistReport 自选股批量分析结果
type WatchlistReport struct {
	Count     int                  `json:"count"`
	Results   map[string]*Analysis `json:"results"`
	Timestamp time.Time            `json:"timestamp"`
}

// Engine 分析引擎
type Engine struct {
	registry *datasource.Registry
	store    storage.Store
	retail   *strategy.Retail
	assessor *risk.Assessor
	logger   *zap.Logger
}

// NewEngine 创建分析引擎
func NewEngine(registry *datasource.Registry, store storage.Store,
	retail *strategy.Retail, assessor *risk.Assessor, logger *zap.Logger) *Engine {
	if store == nil {
		store = storage.NewNoop()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		registry: registry,
		store:    store,
		retail:   retail,
		assessor: assessor,
		logger:   logger,
	}
}

// Analyze 分析单只股票
func (e *Engine) Analyze(ctx context.Context, symbol string, days int, forceUpdate bool) *Analysis {
	if days <= 0 {
		days = DefaultAnalysisDays
	}
	result := &Analysis{
		Symbol:    symbol,
		Status:    StatusSuccess,
		Timestamp: time.Now(),
	}

	bars := e.fetchBars(ctx, symbol, days, forceUpdate)
	if len(bars) == 0 {
		result.Status = StatusError
		result.Message = "无法获取股票数据"
		return result
	}

	rows := indicators.ComputeAll(bars)
	signals := indicators.DetectSignals(rows)

	result.RecentBars = tailBars(bars, recentBarsLimit)
	result.Indicators = latestIndicators(rows)
	result.Signals = signals
	result.Summary = buildSummary(bars, rows, signals)
	result.Strategy = e.retail.Recommend(symbol, bars, rows)
	result.RiskProfile = e.assessRisk(symbol, bars, rows)

	// 指标持久化失败不影响分析结果
	if err := e.store.SaveIndicators(symbol, rows); err != nil {
		e.logger.Warn("保存技术指标失败", zap.String("symbol", symbol), zap.Error(err))
	}

	e.logger.Info("股票分析完成",
		zap.String("symbol", symbol),
		zap.Int("bars", len(bars)),
		zap.Int("signals", len(signals)))
	return result
}

// BatchAnalyze 批量分析股票
func (e *Engine) BatchAnalyze(ctx context.Context, symbols []string, days int) map[string]*Analysis {
	results := make(map[string]*Analysis, len(symbols))
	for _, symbol := range symbols {
		select {
		case <-ctx.Done():
			e.logger.Warn("批量分析被中断", zap.Error(ctx.Err()))
			return results
		default:
		}
		results[symbol] = e.Analyze(ctx, symbol, days, false)
	}
	return results
}

// AnalyzeWatchlist 分析全部自选股
func (e *Engine) AnalyzeWatchlist(ctx context.Context) (*WatchlistReport, error) {
	watchlist, err := e.store.GetWatchlist()
	if err != nil {
		return nil, err
	}

	report := &WatchlistReport{
		Results:   make(map[string]*Analysis),
		Timestamp: time.Now(),
	}
	if len(watchlist) == 0 {
		return report, nil
	}

	symbols := make([]string, 0, len(watchlist))
	for _, item := range watchlist {
		symbols = append(symbols, item.Symbol)
	}
	report.Results = e.BatchAnalyze(ctx, symbols, DefaultAnalysisDays)
	report.Count = len(report.Results)

	for i := range watchlist {
		if analysis, ok := report.Results[watchlist[i].Symbol]; ok {
			analysis.WatchlistInfo = &watchlist[i]
		}
	}
	return report, nil
}

// AssessRisk 评估单只股票风险，高风险时写入预警。
// 完全取不到数据时无法进入评估，返回评估失败
func (e *Engine) AssessRisk(ctx context.Context, symbol string, days int) *types.RiskProfile {
	if days <= 0 {
		days = DefaultRiskDays
	}

	bars := e.fetchBars(ctx, symbol, days, false)
	if len(bars) == 0 {
		e.logger.Warn("风险评估无数据", zap.String("symbol", symbol))
		return &types.RiskProfile{
			Symbol:     symbol,
			RiskLevel:  types.RiskLevelError,
			Warnings:   []string{"无法获取股票数据，风险评估失败"},
			AssessedAt: time.Now(),
		}
	}

	rows := indicators.ComputeAll(bars)
	return e.assessRisk(symbol, bars, rows)
}

// RiskScanWatchlist 对自选股做批量风险扫描
func (e *Engine) RiskScanWatchlist(ctx context.Context) (map[string]*types.RiskProfile, error) {
	watchlist, err := e.store.GetWatchlist()
	if err != nil {
		return nil, err
	}

	results := make(map[string]*types.RiskProfile, len(watchlist))
	for _, item := range watchlist {
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		default:
		}
		results[item.Symbol] = e.AssessRisk(ctx, item.Symbol, DefaultRiskDays)
	}
	return results, nil
}

// assessRisk 执行风险评估并持久化高风险预警
func (e *Engine) assessRisk(symbol string, bars []types.PriceBar, rows []indicators.IndicatorRow) *types.RiskProfile {
	profile := e.assessor.Assess(symbol, bars, rows)

	if alert := e.assessor.BuildAlert(profile); alert != nil {
		if err := e.store.AddAlert(alert); err != nil {
			e.logger.Warn("保存风险预警失败", zap.String("symbol", symbol), zap.Error(err))
		} else {
			e.logger.Info("已创建高风险预警",
				zap.String("symbol", symbol),
				zap.Float64("score", profile.RiskScore))
		}
	}
	return profile
}

// fetchBars 获取行情数据：数据库覆盖率足够时直接使用，否则走数据源并回写
func (e *Engine) fetchBars(ctx context.Context, symbol string, days int, forceUpdate bool) []types.PriceBar {
	end := time.Now()
	start := end.AddDate(0, 0, -days)

	if !forceUpdate {
		cached, err := e.store.GetBars(symbol, start, end)
		if err != nil {
			e.logger.Warn("读取本地行情失败", zap.String("symbol", symbol), zap.Error(err))
		} else if float64(len(cached)) >= float64(days)*storageCoverageRatio {
			e.logger.Debug("使用本地行情数据",
				zap.String("symbol", symbol), zap.Int("bars", len(cached)))
			return cached
		}
	}

	bars, err := e.registry.GetHistory(ctx, symbol, start, end)
	if err != nil {
		e.logger.Error("获取行情数据失败", zap.String("symbol", symbol), zap.Error(err))
		return nil
	}

	if len(bars) > 0 {
		// 回写数据库失败不影响分析
		if err := e.store.SaveBars(symbol, bars); err != nil {
			e.logger.Warn("保存行情数据失败", zap.String("symbol", symbol), zap.Error(err))
		}
	}
	return bars
}

// buildSummary 生成分析摘要
func buildSummary(bars []types.PriceBar, rows []indicators.IndicatorRow, signals []types.Signal) *Summary {
	latest := bars[len(bars)-1]
	prev := latest
	if len(bars) > 1 {
		prev = bars[len(bars)-2]
	}

	priceChangePct := 0.0
	if prev.Close != 0 {
		priceChangePct = (latest.Close - prev.Close) / prev.Close * 100
	}

	active := make([]string, 0, len(signals))
	for _, signal := range signals {
		active = append(active, signal.Name)
	}

	return &Summary{
		BasicInfo: BasicInfo{
			LatestPrice:    round2(latest.Close),
			PriceChange:    round2(latest.Close - prev.Close),
			PriceChangePct: round2(priceChangePct),
			Volume:         int64(latest.Volume),
		},
		TechnicalStatus: technicalStatus(rows),
		SignalsCount:    len(signals),
		ActiveSignals:   active,
		RiskLevel:       volatilityRiskLevel(bars),
		Recommendation:  recommendationText(signals),
	}
}

// technicalStatus 根据最新指标行给出技术面定性描述
func technicalStatus(rows []indicators.IndicatorRow) TechnicalStatus {
	var status TechnicalStatus
	if len(rows) == 0 {
		return status
	}

	latest := rows[len(rows)-1]
	if !math.IsNaN(latest.MA5) && !math.IsNaN(latest.MA20) {
		if latest.MA5 > latest.MA20 {
			status.Trend = "上升趋势"
		} else {
			status.Trend = "下降趋势"
		}
	}
	if !math.IsNaN(latest.RSI) {
		switch {
		case latest.RSI > 70:
			status.RSIStatus = "超买"
		case latest.RSI < 30:
			status.RSIStatus = "超卖"
		default:
			status.RSIStatus = "正常"
		}
	}
	if !math.IsNaN(latest.MACD) && !math.IsNaN(latest.MACDSignal) {
		if latest.MACD > latest.MACDSignal {
			status.MACDStatus = "多头"
		} else {
			status.MACDStatus = "空头"
		}
	}
	return status
}

// volatilityRiskLevel 基于收盘价波动率的粗略风险分级
func volatilityRiskLevel(bars []types.PriceBar) string {
	if len(bars) < 20 {
		return "数据不足"
	}

	returns := make([]float64, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		if bars[i-1].Close != 0 {
			returns = append(returns, bars[i].Close/bars[i-1].Close-1)
		}
	}

	volatility := stddev(returns) * 100
	switch {
	case volatility > 5:
		return "高风险"
	case volatility > 3:
		return "中风险"
	default:
		return "低风险"
	}
}

// recommendationText 按多空信号数量给出提示文案
func recommendationText(signals []types.Signal) string {
	positive := 0
	negative := 0
	for _, signal := range signals {
		switch {
		case containsAny(signal.Name, "golden_cross", "oversold", "breakthrough_lower"):
			positive++
		case containsAny(signal.Name, "death_cross", "overbought", "breakthrough_upper"):
			negative++
		}
	}

	switch {
	case positive > negative:
		return "建议关注，可能存在买入机会"
	case negative > positive:
		return "建议谨慎，可能存在风险"
	default:
		return "建议观望，保持关注"
	}
}

// latestIndicators 提取最新一行的有效指标值
func latestIndicators(rows []indicators.IndicatorRow) map[string]float64 {
	if len(rows) == 0 {
		return nil
	}

	latest := rows[len(rows)-1]
	result := make(map[string]float64)
	put := func(name string, v float64, decimals int) {
		if !math.IsNaN(v) {
			scale := math.Pow(10, float64(decimals))
			result[name] = math.Round(v*scale) / scale
		}
	}

	put("ma5", latest.MA5, 2)
	put("ma10", latest.MA10, 2)
	put("ma20", latest.MA20, 2)
	put("ma60", latest.MA60, 2)
	put("macd", latest.MACD, 4)
	put("macd_signal", latest.MACDSignal, 4)
	put("macd_histogram", latest.MACDHistogram, 4)
	put("rsi", latest.RSI, 2)
	put("kdj_k", latest.KDJK, 2)
	put("kdj_d", latest.KDJD, 2)
	put("kdj_j", latest.KDJJ, 2)
	put("boll_upper", latest.BollUpper, 2)
	put("boll_middle", latest.BollMiddle, 2)
	put("boll_lower", latest.BollLower, 2)
	return result
}

func tailBars(bars []types.PriceBar, n int) []types.PriceBar {
	if len(bars) <= n {
		return bars
	}
	return bars[len(bars)-n:]
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

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

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
