// Package storage 提供行情与分析结果的本地持久化
package storage

import (
	"time"

	"github.com/mooyang-code/stock-analyzer/internal/indicators"
	"github.com/mooyang-code/stock-analyzer/internal/types"
)

// Store 持久化接口
type Store interface {
	// 股票基本信息
	SaveStocks(stocks []types.StockInfo) error
	GetStocks() ([]types.StockInfo, error)

	// 日线行情
	SaveBars(symbol string, bars []types.PriceBar) error
	GetBars(symbol string, start, end time.Time) ([]types.PriceBar, error)

	// 技术指标
	SaveIndicators(symbol string, rows []indicators.IndicatorRow) error
	GetIndicators(symbol string, start, end time.Time) ([]indicators.IndicatorRow, error)

	// 自选股
	AddToWatchlist(item types.WatchlistItem) error
	RemoveFromWatchlist(symbol string) error
	GetWatchlist() ([]types.WatchlistItem, error)

	// 风险预警
	AddAlert(alert *types.Alert) error
	GetAlerts(symbol string, unreadOnly bool, limit int) ([]types.Alert, error)
	MarkAlertRead(id string) error

	Close() error
}

// Noop 空实现，未配置数据库时使用
type Noop struct{}

var _ Store = (*Noop)(nil)

// NewNoop 创建空存储
func NewNoop() *Noop { return &Noop{} }

func (n *Noop) SaveStocks([]types.StockInfo) error { return nil }
func (n *Noop) GetStocks() ([]types.StockInfo, error) {
	return nil, nil
}

func (n *Noop) SaveBars(string, []types.PriceBar) error { return nil }
func (n *Noop) GetBars(string, time.Time, time.Time) ([]types.PriceBar, error) {
	return nil, nil
}

func (n *Noop) SaveIndicators(string, []indicators.IndicatorRow) error { return nil }
func (n *Noop) GetIndicators(string, time.Time, time.Time) ([]indicators.IndicatorRow, error) {
	return nil, nil
}

func (n *Noop) AddToWatchlist(types.WatchlistItem) error { return nil }
func (n *Noop) RemoveFromWatchlist(string) error         { return nil }
func (n *Noop) GetWatchlist() ([]types.WatchlistItem, error) {
	return nil, nil
}

func (n *Noop) AddAlert(*types.Alert) error { return nil }
func (n *Noop) GetAlerts(string, bool, int) ([]types.Alert, error) {
	return nil, nil
}
func (n *Noop) MarkAlertRead(string) error { return nil }

func (n *Noop) Close() error { return nil }
