package datasource

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/buger/jsonparser"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mooyang-code/stock-analyzer/internal/datasource/httpclient"
	"github.com/mooyang-code/stock-analyzer/internal/types"
)

const neteaseBaseURL = "http://api.money.126.net"

// Netease 网易财经数据源适配器
type Netease struct {
	httpClient httpclient.Client
	logger     *zap.Logger

	mu        sync.RWMutex
	connected bool
}

// NewNetease 创建网易财经数据源
func NewNetease(client httpclient.Client, logger *zap.Logger) *Netease {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Netease{
		httpClient: client,
		logger:     logger.With(zap.String("source", "netease")),
	}
}

// Name 获取数据源名称
func (n *Netease) Name() string {
	return "netease"
}

// Capabilities 获取数据源能力集合
func (n *Netease) Capabilities() []types.Capability {
	return []types.Capability{
		types.CapabilityHistory,
		types.CapabilityRealtime,
	}
}

// Connect 探测数据源连通性
func (n *Netease) Connect(ctx context.Context) error {
	_, err := n.httpClient.GetRaw(ctx, neteaseBaseURL+"/data/feed/0000001,money.api")
	if err != nil {
		n.setConnected(false)
		return errors.Wrap(err, "netease connect probe failed")
	}

	n.setConnected(true)
	n.logger.Info("netease data source connected")
	return nil
}

// IsConnected 返回最近一次探测的连接状态
func (n *Netease) IsConnected() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.connected
}

func (n *Netease) setConnected(v bool) {
	n.mu.Lock()
	n.connected = v
	n.mu.Unlock()
}

// GetStockList 获取股票列表
func (n *Netease) GetStockList(ctx context.Context) ([]types.StockInfo, error) {
	return nil, types.ErrCapabilityUnsupported
}

// GetDailyBars 获取日线历史数据。响应为日期为键的JSON对象，
// 每个值是 [收盘,最高,最低,开盘,成交量,成交额] 数组
func (n *Netease) GetDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]types.PriceBar, error) {
	url := neteaseBaseURL + "/data/feed/" + neteaseSymbol(symbol) + "/day/times/" +
		start.Format("20060102") + "/" + end.Format("20060102") + ".json"

	body, err := n.httpClient.GetRaw(ctx, url)
	if err != nil {
		return nil, errors.Wrapf(err, "netease get daily bars for %s", symbol)
	}

	data, _, _, err := jsonparser.Get(body, "data")
	if err != nil {
		return nil, errors.Wrapf(err, "netease kline missing data for %s", symbol)
	}

	var bars []types.PriceBar
	err = jsonparser.ObjectEach(data, func(key []byte, value []byte, dataType jsonparser.ValueType, _ int) error {
		date, err := time.Parse("2006-01-02", string(key))
		if err != nil {
			return nil // 跳过非日期键
		}

		var fields []string
		jsonparser.ArrayEach(value, func(item []byte, _ jsonparser.ValueType, _ int, _ error) {
			fields = append(fields, string(item))
		})
		if len(fields) < 4 {
			return nil
		}

		bar := types.PriceBar{
			Symbol: symbol,
			Date:   date,
			Close:  decimalField(fields[0]),
			High:   decimalField(fields[1]),
			Low:    decimalField(fields[2]),
			Open:   decimalField(fields[3]),
		}
		if len(fields) > 4 {
			bar.Volume = decimalField(fields[4])
		}
		if len(fields) > 5 {
			bar.Turnover = decimalField(fields[5])
		}
		bars = append(bars, bar)
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "netease parse klines for %s", symbol)
	}

	// 日期键无序，按日期升序排列
	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Date.Before(bars[j].Date)
	})

	// 涨跌幅由前后收盘价推算
	for i := range bars {
		if i == 0 {
			continue
		}
		prev := bars[i-1].Close
		if prev != 0 {
			bars[i].PctChange = (bars[i].Close - prev) / prev * 100
		}
	}

	n.logger.Debug("fetched daily bars",
		zap.String("symbol", symbol), zap.Int("count", len(bars)))
	return bars, nil
}

// GetQuote 获取实时行情（JSONP包装的JSON，以网易代码为键）
func (n *Netease) GetQuote(ctx context.Context, symbol string) (*types.Quote, error) {
	raw, err := n.httpClient.GetRaw(ctx, neteaseBaseURL+"/data/feed/"+neteaseSymbol(symbol)+",money.api")
	if err != nil {
		return nil, errors.Wrapf(err, "netease get quote for %s", symbol)
	}

	body, err := stripJSONP(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "netease quote payload for %s", symbol)
	}

	data, _, _, err := jsonparser.Get(body, neteaseSymbol(symbol))
	if err != nil {
		return nil, errors.Wrapf(err, "netease quote missing entry for %s", symbol)
	}

	name, _ := jsonparser.GetString(data, "name")
	quote := &types.Quote{
		Symbol:    symbol,
		Name:      name,
		Timestamp: time.Now(),
	}
	quote.Price, _ = jsonparser.GetFloat(data, "price")
	quote.PctChange, _ = jsonparser.GetFloat(data, "percent")
	quote.Open, _ = jsonparser.GetFloat(data, "open")
	quote.High, _ = jsonparser.GetFloat(data, "high")
	quote.Low, _ = jsonparser.GetFloat(data, "low")
	quote.Volume, _ = jsonparser.GetFloat(data, "volume")
	quote.Turnover, _ = jsonparser.GetFloat(data, "turnover")
	quote.PrevClose, _ = jsonparser.GetFloat(data, "yestclose")

	// percent字段为小数形式涨跌幅
	quote.PctChange *= 100
	return quote, nil
}

// Close 关闭数据源连接
func (n *Netease) Close() error {
	n.setConnected(false)
	return nil
}

// neteaseSymbol 转换股票代码为网易格式（沪市前缀1，深市前缀0）
func neteaseSymbol(symbol string) string {
	if types.MarketOf(symbol) == types.MarketShanghai {
		return "1" + symbol
	}
	return "0" + symbol
}
