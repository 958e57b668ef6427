// Package indicators 实现常用技术分析指标的计算。
// 所有序列计算都保持与输入等长，数据不足的行用NaN占位，
// 调用方通过math.IsNaN判断某行指标是否有效。
package indicators

import (
	"math"

	"github.com/mooyang-code/stock-analyzer/internal/types"
)

// 默认计算周期
const (
	macdFast   = 12
	macdSlow   = 26
	macdSignal = 9

	rsiPeriod = 14

	kdjPeriod = 9

	bollPeriod = 20
	bollStdDev = 2.0

	atrPeriod = 14
)

// IndicatorRow 单个交易日的全部指标值
type IndicatorRow struct {
	Date  string  `json:"date"`  // 交易日期
	Close float64 `json:"close"` // 收盘价

	MA5  float64 `json:"ma5"`
	MA10 float64 `json:"ma10"`
	MA20 float64 `json:"ma20"`
	MA60 float64 `json:"ma60"`

	EMA12 float64 `json:"ema12"`
	EMA26 float64 `json:"ema26"`

	MACD          float64 `json:"macd"`
	MACDSignal    float64 `json:"macd_signal"`
	MACDHistogram float64 `json:"macd_histogram"`

	RSI float64 `json:"rsi"`

	KDJK float64 `json:"kdj_k"`
	KDJD float64 `json:"kdj_d"`
	KDJJ float64 `json:"kdj_j"`

	BollUpper  float64 `json:"boll_upper"`
	BollMiddle float64 `json:"boll_middle"`
	BollLower  float64 `json:"boll_lower"`

	VolMA5  float64 `json:"vol_ma5"`
	VolMA10 float64 `json:"vol_ma10"`
	VolMA20 float64 `json:"vol_ma20"`

	OBV float64 `json:"obv"`
	ATR float64 `json:"atr"`
}

// nanSeries 返回与输入等长的NaN序列
func nanSeries(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}

// MA 计算简单移动平均线。前period-1行为NaN，数据不足时整列为NaN
func MA(prices []float64, period int) []float64 {
	n := len(prices)
	if n < period || period <= 0 {
		return nanSeries(n)
	}

	result := nanSeries(n)
	var sum float64
	for i := 0; i < n; i++ {
		sum += prices[i]
		if i >= period {
			sum -= prices[i-period]
		}
		if i >= period-1 {
			result[i] = sum / float64(period)
		}
	}
	return result
}

// EMA 计算指数移动平均线（衰减加权全历史求和口径）。
// 每行是到该行为止所有价格按(1-α)衰减的加权平均，α=2/(span+1)
func EMA(prices []float64, span int) []float64 {
	n := len(prices)
	if n < span || span <= 0 {
		return nanSeries(n)
	}
	return emaAdjusted(prices, span)
}

// emaAdjusted 不校验长度的EMA计算，内部供MACD复用
func emaAdjusted(prices []float64, span int) []float64 {
	n := len(prices)
	result := make([]float64, n)

	alpha := 2.0 / (float64(span) + 1.0)
	decay := 1.0 - alpha

	var num, den float64
	for i := 0; i < n; i++ {
		num = num*decay + prices[i]
		den = den*decay + 1.0
		result[i] = num / den
	}
	return result
}

// MACD 计算MACD指标，返回 (macd线, 信号线, 柱状图)。
// 数据长度不足慢线周期时三列均为NaN
func MACD(prices []float64, fast, slow, signal int) (macd, signalLine, histogram []float64) {
	n := len(prices)
	if n < slow {
		return nanSeries(n), nanSeries(n), nanSeries(n)
	}

	emaFast := emaAdjusted(prices, fast)
	emaSlow := emaAdjusted(prices, slow)

	macd = make([]float64, n)
	for i := 0; i < n; i++ {
		macd[i] = emaFast[i] - emaSlow[i]
	}

	signalLine = emaAdjusted(macd, signal)

	histogram = make([]float64, n)
	for i := 0; i < n; i++ {
		histogram[i] = macd[i] - signalLine[i]
	}
	return macd, signalLine, histogram
}

// RSI 计算相对强弱指数。需要period+1条数据，有效值从第period行开始
func RSI(prices []float64, period int) []float64 {
	n := len(prices)
	if n < period+1 {
		return nanSeries(n)
	}

	// 首行差分无定义，从第1行开始分离涨跌
	gains := nanSeries(n)
	losses := nanSeries(n)
	for i := 1; i < n; i++ {
		delta := prices[i] - prices[i-1]
		if delta > 0 {
			gains[i] = delta
			losses[i] = 0
		} else {
			gains[i] = 0
			losses[i] = -delta
		}
	}

	avgGain := rollingMean(gains, period)
	avgLoss := rollingMean(losses, period)

	result := nanSeries(n)
	for i := 0; i < n; i++ {
		if math.IsNaN(avgGain[i]) || math.IsNaN(avgLoss[i]) {
			continue
		}
		if avgLoss[i] == 0 {
			// 无下跌时RSI为100，涨跌均为0时无定义
			if avgGain[i] == 0 {
				continue
			}
			result[i] = 100
			continue
		}
		rs := avgGain[i] / avgLoss[i]
		result[i] = 100 - 100/(1+rs)
	}
	return result
}

// rollingMean 滚动均值，窗口内含NaN时结果为NaN
func rollingMean(values []float64, period int) []float64 {
	n := len(values)
	result := nanSeries(n)
	for i := period - 1; i < n; i++ {
		sum := 0.0
		valid := true
		for j := i - period + 1; j <= i; j++ {
			if math.IsNaN(values[j]) {
				valid = false
				break
			}
			sum += values[j]
		}
		if valid {
			result[i] = sum / float64(period)
		}
	}
	return result
}

// KDJ 计算随机指标，返回 (K, D, J)。
// K、D由RSV递归平滑得到，初值均为50，NaN行不推进递归状态
func KDJ(high, low, closes []float64, kPeriod int) (k, d, j []float64) {
	n := len(closes)
	if n < kPeriod {
		return nanSeries(n), nanSeries(n), nanSeries(n)
	}

	// RSV（未成熟随机值）
	rsv := nanSeries(n)
	for i := kPeriod - 1; i < n; i++ {
		lowest := low[i]
		highest := high[i]
		for m := i - kPeriod + 1; m <= i; m++ {
			if low[m] < lowest {
				lowest = low[m]
			}
			if high[m] > highest {
				highest = high[m]
			}
		}
		if highest == lowest {
			continue
		}
		rsv[i] = (closes[i] - lowest) / (highest - lowest) * 100
	}

	k = nanSeries(n)
	kPrev := 50.0
	for i := 0; i < n; i++ {
		if math.IsNaN(rsv[i]) {
			continue
		}
		kPrev = (2.0/3.0)*kPrev + (1.0/3.0)*rsv[i]
		k[i] = kPrev
	}

	d = nanSeries(n)
	dPrev := 50.0
	for i := 0; i < n; i++ {
		if math.IsNaN(k[i]) {
			continue
		}
		dPrev = (2.0/3.0)*dPrev + (1.0/3.0)*k[i]
		d[i] = dPrev
	}

	j = nanSeries(n)
	for i := 0; i < n; i++ {
		j[i] = 3*k[i] - 2*d[i]
	}
	return k, d, j
}

// BollingerBands 计算布林带，返回 (上轨, 中轨, 下轨)。标准差使用样本方差
func BollingerBands(prices []float64, period int, stdDev float64) (upper, middle, lower []float64) {
	n := len(prices)
	if n < period {
		return nanSeries(n), nanSeries(n), nanSeries(n)
	}

	middle = MA(prices, period)
	upper = nanSeries(n)
	lower = nanSeries(n)

	for i := period - 1; i < n; i++ {
		mean := middle[i]
		var sumSq float64
		for j := i - period + 1; j <= i; j++ {
			diff := prices[j] - mean
			sumSq += diff * diff
		}
		std := math.Sqrt(sumSq / float64(period-1))
		upper[i] = mean + std*stdDev
		lower[i] = mean - std*stdDev
	}
	return upper, middle, lower
}

// ATR 计算平均真实范围。首行TR取最高最低价差，之后取三种价差的最大值
func ATR(high, low, closes []float64, period int) []float64 {
	n := len(closes)
	if n < 2 {
		return nanSeries(n)
	}

	tr := make([]float64, n)
	tr[0] = high[0] - low[0]
	for i := 1; i < n; i++ {
		hl := high[i] - low[i]
		hc := math.Abs(high[i] - closes[i-1])
		lc := math.Abs(low[i] - closes[i-1])
		tr[i] = math.Max(hl, math.Max(hc, lc))
	}
	return rollingMean(tr, period)
}

// ATREMA 按衰减加权EMA口径计算ATR，海龟策略用该口径衡量波动
func ATREMA(high, low, closes []float64, span int) []float64 {
	n := len(closes)
	if n < 2 {
		return nanSeries(n)
	}

	tr := make([]float64, n)
	tr[0] = high[0] - low[0]
	for i := 1; i < n; i++ {
		hl := high[i] - low[i]
		hc := math.Abs(high[i] - closes[i-1])
		lc := math.Abs(low[i] - closes[i-1])
		tr[i] = math.Max(hl, math.Max(hc, lc))
	}
	return emaAdjusted(tr, span)
}

// OBV 计算能量潮指标。首行为NaN，累计值从0起步且不重置
func OBV(closes, volume []float64) []float64 {
	n := len(closes)
	if n < 2 {
		return nanSeries(n)
	}

	result := nanSeries(n)
	var obv float64
	for i := 1; i < n; i++ {
		diff := closes[i] - closes[i-1]
		if diff > 0 {
			obv += volume[i]
		} else if diff < 0 {
			obv -= volume[i]
		}
		result[i] = obv
	}
	return result
}

// ComputeAll 基于日线数据计算全部技术指标，每行对应一个交易日
func ComputeAll(bars []types.PriceBar) []IndicatorRow {
	n := len(bars)
	if n == 0 {
		return nil
	}

	closes := make([]float64, n)
	high := make([]float64, n)
	low := make([]float64, n)
	volume := make([]float64, n)
	for i, bar := range bars {
		closes[i] = bar.Close
		high[i] = bar.High
		low[i] = bar.Low
		volume[i] = bar.Volume
	}

	ma5 := MA(closes, 5)
	ma10 := MA(closes, 10)
	ma20 := MA(closes, 20)
	ma60 := MA(closes, 60)

	ema12 := EMA(closes, 12)
	ema26 := EMA(closes, 26)

	macd, signalLine, histogram := MACD(closes, macdFast, macdSlow, macdSignal)
	rsi := RSI(closes, rsiPeriod)
	k, d, j := KDJ(high, low, closes, kdjPeriod)
	upper, middle, lower := BollingerBands(closes, bollPeriod, bollStdDev)

	volMA5 := MA(volume, 5)
	volMA10 := MA(volume, 10)
	volMA20 := MA(volume, 20)

	obv := OBV(closes, volume)
	atr := ATR(high, low, closes, atrPeriod)

	rows := make([]IndicatorRow, n)
	for i := 0; i < n; i++ {
		rows[i] = IndicatorRow{
			Date:          bars[i].Date.Format("2006-01-02"),
			Close:         closes[i],
			MA5:           ma5[i],
			MA10:          ma10[i],
			MA20:          ma20[i],
			MA60:          ma60[i],
			EMA12:         ema12[i],
			EMA26:         ema26[i],
			MACD:          macd[i],
			MACDSignal:    signalLine[i],
			MACDHistogram: histogram[i],
			RSI:           rsi[i],
			KDJK:          k[i],
			KDJD:          d[i],
			KDJJ:          j[i],
			BollUpper:     upper[i],
			BollMiddle:    middle[i],
			BollLower:     lower[i],
			VolMA5:        volMA5[i],
			VolMA10:       volMA10[i],
			VolMA20:       volMA20[i],
			OBV:           obv[i],
			ATR:           atr[i],
		}
	}
	return rows
}
