package datasource

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mooyang-code/stock-analyzer/internal/types"
)

// 历史数据缩短重试窗口天数
const fallbackWindowDays = 30

// registeredSource 注册中心内部的数据源条目
type registeredSource struct {
	source    types.DataSource
	priority  int
	connected bool
}

// Registry 数据源注册中心，按优先级管理多个数据源并提供故障转移
type Registry struct {
	mu      sync.RWMutex
	sources []*registeredSource
	primary string
	logger  *zap.Logger
}

// NewRegistry 创建数据源注册中心
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		logger: logger.With(zap.String("component", "registry")),
	}
}

// Register 注册数据源，优先级数字越小越先被使用
func (r *Registry) Register(source types.DataSource, priority int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sources = append(r.sources, &registeredSource{
		source:   source,
		priority: priority,
	})
	sort.SliceStable(r.sources, func(i, j int) bool {
		return r.sources[i].priority < r.sources[j].priority
	})
	r.logger.Info("data source registered",
		zap.String("name", source.Name()), zap.Int("priority", priority))
}

// ConnectAll 探测所有数据源的连通性。单个数据源失败只记录日志，
// 不中断其他数据源的探测，返回各数据源的连接结果
func (r *Registry) ConnectAll(ctx context.Context) map[string]bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	results := make(map[string]bool, len(r.sources))
	for _, entry := range r.sources {
		err := entry.source.Connect(ctx)
		entry.connected = err == nil
		results[entry.source.Name()] = entry.connected

		if err != nil {
			r.logger.Warn("data source connect failed",
				zap.String("name", entry.source.Name()), zap.Error(err))
		} else {
			r.logger.Info("data source connected", zap.String("name", entry.source.Name()))
		}
	}

	r.selectPrimaryLocked()
	return results
}

// selectPrimaryLocked 选择主数据源：连接成功中优先级最高者。
// 全部失败时降级使用优先级最高的已配置数据源
func (r *Registry) selectPrimaryLocked() {
	r.primary = ""
	for _, entry := range r.sources {
		if entry.connected {
			r.primary = entry.source.Name()
			r.logger.Info("primary data source selected", zap.String("name", r.primary))
			return
		}
	}
	if len(r.sources) > 0 {
		r.primary = r.sources[0].source.Name()
		r.logger.Warn("all data sources disconnected, degrading to first configured",
			zap.String("name", r.primary))
	}
}

// Primary 返回当前主数据源名称
func (r *Registry) Primary() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.primary
}

// Descriptors 返回所有数据源的描述，按优先级排序
func (r *Registry) Descriptors() []types.SourceDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	descs := make([]types.SourceDescriptor, 0, len(r.sources))
	for _, entry := range r.sources {
		descs = append(descs, types.SourceDescriptor{
			Name:         entry.source.Name(),
			Priority:     entry.priority,
			Connected:    entry.connected,
			Capabilities: entry.source.Capabilities(),
		})
	}
	return descs
}

// candidates 返回具备指定能力的数据源，按优先级排序。
// 存在已连接的候选时跳过未连接的数据源，全部未连接时降级为全量尝试
func (r *Registry) candidates(capability types.Capability) []types.DataSource {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var connected, all []types.DataSource
	for _, entry := range r.sources {
		for _, c := range entry.source.Capabilities() {
			if c == capability {
				all = append(all, entry.source)
				if entry.connected {
					connected = append(connected, entry.source)
				}
				break
			}
		}
	}
	if len(connected) > 0 {
		return connected
	}
	return all
}

// GetHistory 获取历史日线数据，沿优先级依次尝试，返回第一个非空结果。
// 所有数据源均无数据且请求窗口超过30天时，用30天窗口重试一轮。
// 彻底无数据时返回空切片而非错误，由上层决定如何降级
func (r *Registry) GetHistory(ctx context.Context, symbol string, start, end time.Time) ([]types.PriceBar, error) {
	sources := r.candidates(types.CapabilityHistory)
	if len(sources) == 0 {
		return nil, types.ErrNoDataSource
	}

	bars := r.tryHistory(ctx, sources, symbol, start, end)
	if len(bars) > 0 {
		return bars, nil
	}

	// 部分接口对长窗口返回空数据，缩短到30天再试一轮
	if end.Sub(start) > fallbackWindowDays*24*time.Hour {
		shortStart := end.AddDate(0, 0, -fallbackWindowDays)
		r.logger.Warn("no history in full window, retrying with shortened window",
			zap.String("symbol", symbol), zap.Time("start", shortStart))
		bars = r.tryHistory(ctx, sources, symbol, shortStart, end)
		if len(bars) > 0 {
			return bars, nil
		}
	}

	r.logger.Warn("no history data from any source", zap.String("symbol", symbol))
	return []types.PriceBar{}, nil
}

// tryHistory 沿优先级逐个尝试获取历史数据
func (r *Registry) tryHistory(ctx context.Context, sources []types.DataSource, symbol string, start, end time.Time) []types.PriceBar {
	for _, source := range sources {
		bars, err := source.GetDailyBars(ctx, symbol, start, end)
		if err != nil {
			r.logger.Warn("history fetch failed, trying next source",
				zap.String("source", source.Name()),
				zap.String("symbol", symbol), zap.Error(err))
			continue
		}
		if len(bars) == 0 {
			r.logger.Debug("source returned no history",
				zap.String("source", source.Name()), zap.String("symbol", symbol))
			continue
		}
		return bars
	}
	return nil
}

// GetQuote 获取实时行情，沿优先级依次尝试
func (r *Registry) GetQuote(ctx context.Context, symbol string) (*types.Quote, error) {
	sources := r.candidates(types.CapabilityRealtime)
	if len(sources) == 0 {
		return nil, types.ErrNoDataSource
	}

	for _, source := range sources {
		quote, err := source.GetQuote(ctx, symbol)
		if err != nil {
			r.logger.Warn("quote fetch failed, trying next source",
				zap.String("source", source.Name()),
				zap.String("symbol", symbol), zap.Error(err))
			continue
		}
		if quote != nil && quote.Price > 0 {
			return quote, nil
		}
	}
	return nil, types.ErrAllSourcesExhausted
}

// GetStockList 获取股票列表，沿优先级依次尝试
func (r *Registry) GetStockList(ctx context.Context) ([]types.StockInfo, error) {
	sources := r.candidates(types.CapabilityList)
	if len(sources) == 0 {
		return nil, types.ErrNoDataSource
	}

	for _, source := range sources {
		stocks, err := source.GetStockList(ctx)
		if err != nil {
			r.logger.Warn("stock list fetch failed, trying next source",
				zap.String("source", source.Name()), zap.Error(err))
			continue
		}
		if len(stocks) > 0 {
			return stocks, nil
		}
	}
	return nil, types.ErrAllSourcesExhausted
}

// Close 关闭所有数据源
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, entry := range r.sources {
		if err := entry.source.Close(); err != nil {
			r.logger.Warn("data source close failed",
				zap.String("name", entry.source.Name()), zap.Error(err))
		}
		entry.connected = false
	}
	return nil
}
