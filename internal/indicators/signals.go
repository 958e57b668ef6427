package indicators

import (
	"math"

	"github.com/mooyang-code/stock-analyzer/internal/types"
)

// 技术信号名称
const (
	SignalMAGoldenCross        = "ma_golden_cross"
	SignalMADeathCross         = "ma_death_cross"
	SignalMACDGoldenCross      = "macd_golden_cross"
	SignalMACDDeathCross       = "macd_death_cross"
	SignalRSIOverbought        = "rsi_overbought"
	SignalRSIOversold          = "rsi_oversold"
	SignalKDJGoldenCross       = "kdj_golden_cross"
	SignalKDJDeathCross        = "kdj_death_cross"
	SignalBollBreakUpper       = "boll_breakthrough_upper"
	SignalBollBreakLower       = "boll_breakthrough_lower"
)

// DetectSignals 根据最近两行指标检测技术信号，只返回触发的信号。
// 数据不足两行时返回空
func DetectSignals(rows []IndicatorRow) []types.Signal {
	if len(rows) < 2 {
		return nil
	}

	latest := rows[len(rows)-1]
	prev := rows[len(rows)-2]

	var signals []types.Signal
	add := func(name string) {
		signals = append(signals, types.Signal{Name: name, Active: true})
	}

	// 均线交叉
	if valid(latest.MA5, latest.MA20) && valid(prev.MA5, prev.MA20) {
		if latest.MA5 > latest.MA20 && prev.MA5 <= prev.MA20 {
			add(SignalMAGoldenCross)
		} else if latest.MA5 < latest.MA20 && prev.MA5 >= prev.MA20 {
			add(SignalMADeathCross)
		}
	}

	// MACD交叉
	if valid(latest.MACD, latest.MACDSignal) && valid(prev.MACD, prev.MACDSignal) {
		if latest.MACD > latest.MACDSignal && prev.MACD <= prev.MACDSignal {
			add(SignalMACDGoldenCross)
		} else if latest.MACD < latest.MACDSignal && prev.MACD >= prev.MACDSignal {
			add(SignalMACDDeathCross)
		}
	}

	// RSI超买超卖
	if valid(latest.RSI) {
		if latest.RSI > 70 {
			add(SignalRSIOverbought)
		} else if latest.RSI < 30 {
			add(SignalRSIOversold)
		}
	}

	// KDJ交叉
	if valid(latest.KDJK, latest.KDJD) && valid(prev.KDJK, prev.KDJD) {
		if latest.KDJK > latest.KDJD && prev.KDJK <= prev.KDJD {
			add(SignalKDJGoldenCross)
		} else if latest.KDJK < latest.KDJD && prev.KDJK >= prev.KDJD {
			add(SignalKDJDeathCross)
		}
	}

	// 布林带突破
	if valid(latest.Close, latest.BollUpper, latest.BollLower) {
		if latest.Close > latest.BollUpper {
			add(SignalBollBreakUpper)
		} else if latest.Close < latest.BollLower {
			add(SignalBollBreakLower)
		}
	}
	return signals
}

// HasSignal 判断信号集合中是否包含指定信号
func HasSignal(signals []types.Signal, name string) bool {
	for _, s := range signals {
		if s.Name == name && s.Active {
			return true
		}
	}
	return false
}

// valid 判断所有值均非NaN
func valid(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) {
			return false
		}
	}
	return true
}
