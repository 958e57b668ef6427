package datasource

import (
	"time"

	"github.com/mooyang-code/stock-analyzer/internal/types"
)

// A股交易时段
const (
	morningOpen    = "09:30"
	morningClose   = "11:30"
	afternoonOpen  = "13:00"
	afternoonClose = "15:00"
)

// GetMarketStatus 根据给定时间计算A股市场状态，不依赖任何数据源
func GetMarketStatus(now time.Time) types.MarketStatus {
	currentTime := now.Format("15:04")
	isTradingDay := now.Weekday() >= time.Monday && now.Weekday() <= time.Friday

	var state types.MarketState
	switch {
	case !isTradingDay:
		state = types.MarketStateRestDay
	case currentTime >= morningOpen && currentTime <= morningClose:
		state = types.MarketStateOpen
	case currentTime >= afternoonOpen && currentTime <= afternoonClose:
		state = types.MarketStateOpen
	case currentTime < morningOpen:
		state = types.MarketStatePreOpen
	case currentTime > morningClose && currentTime < afternoonOpen:
		state = types.MarketStateLunch
	default:
		state = types.MarketStateClosed
	}

	return types.MarketStatus{
		State:       state,
		IsTrading:   state == types.MarketStateOpen,
		CurrentTime: currentTime,
		NextOpen:    nextOpenTime(now),
	}
}

// nextOpenTime 计算下次开市时间
func nextOpenTime(now time.Time) string {
	weekday := now.Weekday()
	isWeekday := weekday >= time.Monday && weekday <= time.Friday

	// 工作日开盘前
	if isWeekday && now.Hour() < 9 {
		return now.Format("2006-01-02") + " " + morningOpen
	}

	// 工作日午休时段
	if isWeekday && now.Hour() >= 11 && now.Hour() < 13 {
		return now.Format("2006-01-02") + " " + afternoonOpen
	}

	// 其他情况，下个工作日早盘
	daysAhead := 1
	if weekday >= time.Friday {
		daysAhead = 8 - int(weekday)
	}

	next := now.AddDate(0, 0, daysAhead)
	return next.Format("2006-01-02") + " " + morningOpen
}
