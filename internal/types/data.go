// Package types 定义股票分析器的数据类型
package types

import (
	"time"
)

// Market 市场枚举
type Market string

const (
	MarketShanghai Market = "SH" // 上海证券交易所
	MarketShenzhen Market = "SZ" // 深圳证券交易所
)

// MarketOf 根据股票代码判断所属市场（6开头为沪市，其余为深市）
func MarketOf(symbol string) Market {
	if len(symbol) > 0 && symbol[0] == '6' {
		return MarketShanghai
	}
	return MarketShenzhen
}

// PriceBar 单日OHLCV行情数据
type PriceBar struct {
	Symbol    string    `json:"symbol"`     // 股票代码
	Date      time.Time `json:"date"`       // 交易日期
	Open      float64   `json:"open"`       // 开盘价
	High      float64   `json:"high"`       // 最高价
	Low       float64   `json:"low"`        // 最低价
	Close     float64   `json:"close"`      // 收盘价
	Volume    float64   `json:"volume"`     // 成交量
	Turnover  float64   `json:"turnover"`   // 成交额
	PctChange float64   `json:"pct_change"` // 涨跌幅(%)
}

// Quote 实时行情数据
type Quote struct {
	Symbol    string    `json:"symbol"`     // 股票代码
	Name      string    `json:"name"`       // 股票名称
	Price     float64   `json:"price"`      // 当前价格
	PrevClose float64   `json:"prev_close"` // 昨日收盘价
	Open      float64   `json:"open"`       // 开盘价
	High      float64   `json:"high"`       // 最高价
	Low       float64   `json:"low"`        // 最低价
	Volume    float64   `json:"volume"`     // 成交量
	Turnover  float64   `json:"turnover"`   // 成交额
	PctChange float64   `json:"pct_change"` // 涨跌幅(%)
	Timestamp time.Time `json:"timestamp"`  // 行情时间
}

// StockInfo 股票基本信息
type StockInfo struct {
	Symbol string `json:"symbol"` // 股票代码
	Name   string `json:"name"`   // 股票名称
	Market Market `json:"market"` // 所属市场
}

// MarketState 市场交易状态枚举
type MarketState string

const (
	MarketStateOpen      MarketState = "开市" // 交易时段内
	MarketStateLunch     MarketState = "午休" // 午间休市
	MarketStatePreOpen   MarketState = "未开市" // 开盘前
	MarketStateClosed    MarketState = "收市" // 当日收盘后
	MarketStateRestDay   MarketState = "休市" // 非交易日
)

// MarketStatus 市场状态
type MarketStatus struct {
	State       MarketState `json:"state"`        // 市场状态
	IsTrading   bool        `json:"is_trading"`   // 是否处于交易时段
	CurrentTime string      `json:"current_time"` // 当前时间 HH:MM
	NextOpen    string      `json:"next_open"`    // 下次开市时间
}

// Alert 风险预警消息
type Alert struct {
	ID        string    `json:"id"`         // 预警ID
	Symbol    string    `json:"symbol"`     // 股票代码
	Type      string    `json:"type"`       // 预警类型
	Title     string    `json:"title"`      // 标题
	Message   string    `json:"message"`    // 内容
	Severity  string    `json:"severity"`   // 严重程度 ("INFO", "WARNING", "CRITICAL")
	CreatedAt time.Time `json:"created_at"` // 创建时间
}

// WatchlistItem 自选股条目
type WatchlistItem struct {
	Symbol    string    `json:"symbol"`     // 股票代码
	Name      string    `json:"name"`       // 股票名称
	Priority  int       `json:"priority"`   // 关注优先级
	Notes     string    `json:"notes"`      // 备注
	AddedDate time.Time `json:"added_date"` // 加入日期
}
