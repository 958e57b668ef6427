package indicators

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mooyang-code/stock-analyzer/internal/types"
)

// testBars 生成确定性的测试行情序列
func testBars(n int) []types.PriceBar {
	bars := make([]types.PriceBar, n)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		close := 10.0 + math.Sin(float64(i)*0.5)*2 + float64(i)*0.05
		bars[i] = types.PriceBar{
			Symbol: "000001",
			Date:   base.AddDate(0, 0, i),
			Open:   close - 0.1,
			High:   close + 0.4,
			Low:    close - 0.4,
			Close:  close,
			Volume: float64(100000 + (i%7)*15000),
		}
	}
	return bars
}

// TestComputeAllRowAlignment 测试指标行与输入行对齐且NaN占位正确
func TestComputeAllRowAlignment(t *testing.T) {
	bars := testBars(30)
	rows := ComputeAll(bars)
	require.Len(t, rows, 30)

	// 前4行MA5无效，第5行起有效
	assert.True(t, math.IsNaN(rows[3].MA5))
	assert.InDelta(t, 11.391076, rows[4].MA5, 1e-6)
	assert.InDelta(t, 12.583253, rows[29].MA5, 1e-6)

	// MA20从第20行起有效
	assert.True(t, math.IsNaN(rows[18].MA20))
	assert.InDelta(t, 10.86232, rows[19].MA20, 1e-6)

	// 数据不足60条时MA60整列为NaN
	for _, row := range rows {
		assert.True(t, math.IsNaN(row.MA60))
	}

	// EMA对所有行有定义
	assert.InDelta(t, 10.0, rows[0].EMA12, 1e-9)
	assert.InDelta(t, 11.705498, rows[29].EMA12, 1e-6)
}

// TestMACD 测试MACD计算
func TestMACD(t *testing.T) {
	bars := testBars(30)
	rows := ComputeAll(bars)

	assert.InDelta(t, 0.44547, rows[29].MACD, 1e-5)
	assert.InDelta(t, 0.149376, rows[29].MACDSignal, 1e-5)
	assert.InDelta(t, 0.296094, rows[29].MACDHistogram, 1e-5)
}

// TestMACDInsufficientData 测试数据不足慢线周期时整列为NaN
func TestMACDInsufficientData(t *testing.T) {
	rows := ComputeAll(testBars(20))
	for _, row := range rows {
		assert.True(t, math.IsNaN(row.MACD))
		assert.True(t, math.IsNaN(row.MACDSignal))
	}
}

// TestRSI 测试RSI计算，有效值从第period行开始
func TestRSI(t *testing.T) {
	bars := testBars(30)
	rows := ComputeAll(bars)

	assert.True(t, math.IsNaN(rows[13].RSI))
	assert.InDelta(t, 60.811452, rows[14].RSI, 1e-5)
	assert.InDelta(t, 54.243867, rows[29].RSI, 1e-5)
}

// TestRSIAllGains 测试持续上涨时RSI为100
func TestRSIAllGains(t *testing.T) {
	prices := make([]float64, 20)
	for i := range prices {
		prices[i] = 10.0 + float64(i)
	}
	rsi := RSI(prices, 14)
	assert.InDelta(t, 100.0, rsi[19], 1e-9)
}

// TestRSIFlatPrices 测试价格不变时RSI无定义
func TestRSIFlatPrices(t *testing.T) {
	prices := make([]float64, 20)
	for i := range prices {
		prices[i] = 10.0
	}
	rsi := RSI(prices, 14)
	assert.True(t, math.IsNaN(rsi[19]))
}

// TestKDJ 测试KDJ递归平滑，初值50，NaN行不推进状态
func TestKDJ(t *testing.T) {
	bars := testBars(30)
	rows := ComputeAll(bars)

	assert.True(t, math.IsNaN(rows[7].KDJK))
	assert.InDelta(t, 36.618542, rows[8].KDJK, 1e-5)
	assert.InDelta(t, 45.539514, rows[8].KDJD, 1e-5)
	assert.InDelta(t, 18.776599, rows[8].KDJJ, 1e-5)

	assert.InDelta(t, 80.417009, rows[29].KDJK, 1e-5)
	assert.InDelta(t, 65.584235, rows[29].KDJD, 1e-5)
	assert.InDelta(t, 110.082558, rows[29].KDJJ, 1e-5)
}

// TestBollingerBands 测试布林带（样本标准差口径）
func TestBollingerBands(t *testing.T) {
	bars := testBars(30)
	rows := ComputeAll(bars)

	assert.True(t, math.IsNaN(rows[18].BollUpper))
	assert.InDelta(t, 13.625073, rows[19].BollUpper, 1e-5)
	assert.InDelta(t, 8.099568, rows[19].BollLower, 1e-5)
	assert.InDelta(t, 14.236832, rows[29].BollUpper, 1e-5)
	assert.InDelta(t, 7.960856, rows[29].BollLower, 1e-5)
}

// TestATR 测试ATR，首行TR为最高最低价差
func TestATR(t *testing.T) {
	bars := testBars(30)
	rows := ComputeAll(bars)

	assert.True(t, math.IsNaN(rows[12].ATR))
	assert.InDelta(t, 1.072374, rows[13].ATR, 1e-5)
	assert.InDelta(t, 1.052749, rows[29].ATR, 1e-5)
}

// TestOBV 测试OBV累计，首行为NaN且累计从0起步
func TestOBV(t *testing.T) {
	bars := testBars(30)
	rows := ComputeAll(bars)

	assert.True(t, math.IsNaN(rows[0].OBV))
	assert.InDelta(t, 115000.0, rows[1].OBV, 1e-9)
	assert.InDelta(t, 435000.0, rows[29].OBV, 1e-9)
}

// TestComputeAllEmpty 测试空输入
func TestComputeAllEmpty(t *testing.T) {
	assert.Nil(t, ComputeAll(nil))
}

// TestDetectSignalsCrossover 测试均线金叉检测
func TestDetectSignalsCrossover(t *testing.T) {
	rows := []IndicatorRow{
		{MA5: 9.9, MA20: 10.0, MACD: math.NaN(), MACDSignal: math.NaN(),
			RSI: math.NaN(), KDJK: math.NaN(), KDJD: math.NaN(),
			Close: 10, BollUpper: math.NaN(), BollLower: math.NaN()},
		{MA5: 10.1, MA20: 10.0, MACD: math.NaN(), MACDSignal: math.NaN(),
			RSI: math.NaN(), KDJK: math.NaN(), KDJD: math.NaN(),
			Close: 10, BollUpper: math.NaN(), BollLower: math.NaN()},
	}

	signals := DetectSignals(rows)
	assert.True(t, HasSignal(signals, SignalMAGoldenCross))
	assert.False(t, HasSignal(signals, SignalMADeathCross))
}

// TestDetectSignalsLevels 测试RSI水平信号和布林带突破
func TestDetectSignalsLevels(t *testing.T) {
	prev := IndicatorRow{MA5: 10, MA20: 10, MACD: 0.1, MACDSignal: 0.1,
		RSI: 60, KDJK: 50, KDJD: 50, Close: 10, BollUpper: 11, BollLower: 9}
	latest := IndicatorRow{MA5: 10, MA20: 10, MACD: 0.1, MACDSignal: 0.1,
		RSI: 75, KDJK: 50, KDJD: 50, Close: 11.5, BollUpper: 11, BollLower: 9}

	signals := DetectSignals([]IndicatorRow{prev, latest})
	assert.True(t, HasSignal(signals, SignalRSIOverbought))
	assert.True(t, HasSignal(signals, SignalBollBreakUpper))
	assert.False(t, HasSignal(signals, SignalRSIOversold))
}

// TestDetectSignalsNaNSuppressed 测试指标无效时不触发信号
func TestDetectSignalsNaNSuppressed(t *testing.T) {
	rows := []IndicatorRow{
		{MA5: math.NaN(), MA20: 10, RSI: math.NaN(),
			MACD: math.NaN(), MACDSignal: math.NaN(),
			KDJK: math.NaN(), KDJD: math.NaN(),
			Close: 10, BollUpper: math.NaN(), BollLower: math.NaN()},
		{MA5: 10.1, MA20: 10, RSI: math.NaN(),
			MACD: math.NaN(), MACDSignal: math.NaN(),
			KDJK: math.NaN(), KDJD: math.NaN(),
			Close: 10, BollUpper: math.NaN(), BollLower: math.NaN()},
	}

	assert.Empty(t, DetectSignals(rows))
}

// TestDetectSignalsTooFewRows 测试不足两行时返回空
func TestDetectSignalsTooFewRows(t *testing.T) {
	assert.Nil(t, DetectSignals([]IndicatorRow{{Close: 10}}))
}
