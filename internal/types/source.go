// Package types 定义数据源接口类型
package types

import (
	"context"
	"errors"
	"time"
)

// Capability 数据源能力标签
type Capability string

const (
	CapabilityHistory  Capability = "history"  // 历史K线数据
	CapabilityRealtime Capability = "realtime" // 实时行情
	CapabilityList     Capability = "list"     // 股票列表
)

// DataSource 数据源接口定义，各行情提供商实现各自的变体。
// 提供商内部的代码格式转换（如交易所前缀）不得泄漏到规范数据模型中。
type DataSource interface {
	// Name 获取数据源名称
	Name() string
	// Capabilities 获取数据源能力集合
	Capabilities() []Capability

	// Connect 探测数据源连通性（带超时的网络往返）
	Connect(ctx context.Context) error
	// IsConnected 返回最近一次探测的连接状态
	IsConnected() bool

	// GetStockList 获取股票列表
	GetStockList(ctx context.Context) ([]StockInfo, error)
	// GetDailyBars 获取日线历史数据，按日期升序返回
	GetDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]PriceBar, error)
	// GetQuote 获取实时行情
	GetQuote(ctx context.Context, symbol string) (*Quote, error)

	// Close 关闭数据源连接
	Close() error
}

// SourceDescriptor 数据源描述，仅由注册中心在探测时更新
type SourceDescriptor struct {
	Name         string       `json:"name"`         // 数据源名称
	Priority     int          `json:"priority"`     // 优先级（数字越小优先级越高）
	Connected    bool         `json:"connected"`    // 连接状态
	Capabilities []Capability `json:"capabilities"` // 能力集合
}

// HasCapability 判断描述中是否包含指定能力
func (d *SourceDescriptor) HasCapability(c Capability) bool {
	for _, cap := range d.Capabilities {
		if cap == c {
			return true
		}
	}
	return false
}

// 数据源层的错误种类，调用方可据此区分"健康但无数据"与"数据源失败"
var (
	// ErrCapabilityUnsupported 数据源不具备所请求的能力
	ErrCapabilityUnsupported = errors.New("capability not supported by data source")
	// ErrAllSourcesExhausted 所有数据源及缩短窗口重试均失败
	ErrAllSourcesExhausted = errors.New("all data sources exhausted")
	// ErrNoDataSource 没有配置任何可用的数据源
	ErrNoDataSource = errors.New("no data source configured")
)
