// Package datasource 实现各行情提供商的数据源适配器
package datasource

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/buger/jsonparser"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mooyang-code/stock-analyzer/internal/datasource/httpclient"
	"github.com/mooyang-code/stock-analyzer/internal/types"
)

// 东方财富API路径常量
const (
	eastmoneyBaseURL    = "http://push2.eastmoney.com"
	eastmoneyHisBaseURL = "http://push2his.eastmoney.com"

	eastmoneyStockGet = "/api/qt/stock/get"
	eastmoneyKlineGet = "/api/qt/stock/kline/get"
	eastmoneyClistGet = "/api/qt/clist/get"

	eastmoneyListToken  = "bd1d9ddb04089700cf9c27f6f7426281"
	eastmoneyQuoteToken = "fa5fd1943c7b386f172d6893dbfba10b"
)

// EastMoney 东方财富数据源适配器
type EastMoney struct {
	httpClient httpclient.Client
	logger     *zap.Logger

	mu        sync.RWMutex
	connected bool
}

// NewEastMoney 创建东方财富数据源
func NewEastMoney(client httpclient.Client, logger *zap.Logger) *EastMoney {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EastMoney{
		httpClient: client,
		logger:     logger.With(zap.String("source", "eastmoney")),
	}
}

// Name 获取数据源名称
func (e *EastMoney) Name() string {
	return "eastmoney"
}

// Capabilities 获取数据源能力集合
func (e *EastMoney) Capabilities() []types.Capability {
	return []types.Capability{
		types.CapabilityHistory,
		types.CapabilityRealtime,
		types.CapabilityList,
	}
}

// Connect 探测数据源连通性
func (e *EastMoney) Connect(ctx context.Context) error {
	params := url.Values{}
	params.Set("secid", "0.000001")
	params.Set("fields", "f58,f57,f43,f169,f170")

	body, err := e.httpClient.GetRaw(ctx, eastmoneyBaseURL+eastmoneyStockGet+"?"+params.Encode())
	if err != nil {
		e.setConnected(false)
		return errors.Wrap(err, "eastmoney connect probe failed")
	}

	rc, err := jsonparser.GetInt(body, "rc")
	if err != nil || rc != 0 {
		e.setConnected(false)
		return errors.Errorf("eastmoney connect probe returned rc=%d", rc)
	}

	e.setConnected(true)
	e.logger.Info("eastmoney data source connected")
	return nil
}

// IsConnected 返回最近一次探测的连接状态
func (e *EastMoney) IsConnected() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.connected
}

func (e *EastMoney) setConnected(v bool) {
	e.mu.Lock()
	e.connected = v
	e.mu.Unlock()
}

// GetStockList 获取A股股票列表
func (e *EastMoney) GetStockList(ctx context.Context) ([]types.StockInfo, error) {
	params := url.Values{}
	params.Set("pn", "1")
	params.Set("pz", "5000")
	params.Set("po", "1")
	params.Set("np", "1")
	params.Set("ut", eastmoneyListToken)
	params.Set("fltt", "2")
	params.Set("invt", "2")
	params.Set("fid", "f3")
	params.Set("fs", "m:0+t:6,m:0+t:80,m:1+t:2,m:1+t:23") // A股
	params.Set("fields", "f12,f14")

	body, err := e.httpClient.GetRaw(ctx, eastmoneyBaseURL+eastmoneyClistGet+"?"+params.Encode())
	if err != nil {
		return nil, errors.Wrap(err, "eastmoney get stock list")
	}

	if rc, err := jsonparser.GetInt(body, "rc"); err != nil || rc != 0 {
		return nil, errors.Errorf("eastmoney stock list returned rc=%d", rc)
	}

	var stocks []types.StockInfo
	_, err = jsonparser.ArrayEach(body, func(value []byte, dataType jsonparser.ValueType, offset int, _ error) {
		symbol, _ := jsonparser.GetString(value, "f12")
		name, _ := jsonparser.GetString(value, "f14")
		if symbol == "" || name == "" {
			return
		}
		stocks = append(stocks, types.StockInfo{
			Symbol: symbol,
			Name:   name,
			Market: types.MarketOf(symbol),
		})
	}, "data", "diff")
	if err != nil {
		return nil, errors.Wrap(err, "eastmoney parse stock list")
	}

	e.logger.Info("fetched stock list", zap.Int("count", len(stocks)))
	return stocks, nil
}

// GetDailyBars 获取日线历史数据（前复权，主接口失败时回退到备用接口）
func (e *EastMoney) GetDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]types.PriceBar, error) {
	params := url.Values{}
	params.Set("secid", eastmoneySecID(symbol))
	params.Set("ut", eastmoneyQuoteToken)
	params.Set("fields1", "f1,f2,f3,f4,f5,f6")
	params.Set("fields2", "f51,f52,f53,f54,f55,f56,f57,f58,f59,f60,f61")
	params.Set("klt", "101") // 日K线
	params.Set("fqt", "1")   // 前复权
	params.Set("beg", start.Format("20060102"))
	params.Set("end", end.Format("20060102"))
	params.Set("smplmt", "240")

	body, err := e.httpClient.GetRaw(ctx, eastmoneyBaseURL+eastmoneyKlineGet+"?"+params.Encode())
	if err != nil {
		e.logger.Warn("primary kline api failed, trying fallback",
			zap.String("symbol", symbol), zap.Error(err))
		return e.getDailyBarsFallback(ctx, symbol, start, end)
	}

	bars, err := parseEastmoneyKlines(body, symbol, true)
	if err != nil || len(bars) == 0 {
		e.logger.Warn("primary kline api returned no data, trying fallback",
			zap.String("symbol", symbol))
		return e.getDailyBarsFallback(ctx, symbol, start, end)
	}

	e.logger.Debug("fetched daily bars",
		zap.String("symbol", symbol), zap.Int("count", len(bars)))
	return bars, nil
}

// getDailyBarsFallback 备用历史数据接口（全量不复权K线，本地过滤日期）
func (e *EastMoney) getDailyBarsFallback(ctx context.Context, symbol string, start, end time.Time) ([]types.PriceBar, error) {
	params := url.Values{}
	params.Set("secid", eastmoneySecID(symbol))
	params.Set("ut", eastmoneyQuoteToken)
	params.Set("fields1", "f1,f2,f3,f4,f5")
	params.Set("fields2", "f51,f52,f53,f54,f55,f56,f57,f58")
	params.Set("klt", "101")
	params.Set("fqt", "0")
	params.Set("beg", "0")
	params.Set("end", "20500101")
	params.Set("smplmt", "460")

	body, err := e.httpClient.GetRaw(ctx, eastmoneyHisBaseURL+eastmoneyKlineGet+"?"+params.Encode())
	if err != nil {
		return nil, errors.Wrapf(err, "eastmoney fallback kline for %s", symbol)
	}

	all, err := parseEastmoneyKlines(body, symbol, false)
	if err != nil {
		return nil, errors.Wrapf(err, "eastmoney fallback parse for %s", symbol)
	}

	// 本地过滤日期范围
	bars := make([]types.PriceBar, 0, len(all))
	for _, bar := range all {
		if bar.Date.Before(start) || bar.Date.After(end) {
			continue
		}
		bars = append(bars, bar)
	}

	// 备用接口不返回涨跌幅，由前后收盘价推算
	for i := range bars {
		if i == 0 {
			bars[i].PctChange = 0
			continue
		}
		prev := bars[i-1].Close
		if prev != 0 {
			bars[i].PctChange = (bars[i].Close - prev) / prev * 100
		}
	}
	return bars, nil
}

// GetQuote 获取实时行情
func (e *EastMoney) GetQuote(ctx context.Context, symbol string) (*types.Quote, error) {
	params := url.Values{}
	params.Set("secid", eastmoneySecID(symbol))
	params.Set("ut", eastmoneyQuoteToken)
	params.Set("fields", "f58,f57,f43,f169,f170,f46,f44,f45,f47,f48,f60")

	body, err := e.httpClient.GetRaw(ctx, eastmoneyBaseURL+eastmoneyStockGet+"?"+params.Encode())
	if err != nil {
		return nil, errors.Wrapf(err, "eastmoney get quote for %s", symbol)
	}

	if rc, err := jsonparser.GetInt(body, "rc"); err != nil || rc != 0 {
		return nil, errors.Errorf("eastmoney quote returned rc=%d for %s", rc, symbol)
	}

	data, _, _, err := jsonparser.Get(body, "data")
	if err != nil {
		return nil, errors.Wrapf(err, "eastmoney quote missing data for %s", symbol)
	}

	name, _ := jsonparser.GetString(data, "f58")

	// f系列价格字段为放大100倍的整数
	quote := &types.Quote{
		Symbol:    symbol,
		Name:      name,
		Price:     eastmoneyPrice(data, "f43"),
		PrevClose: eastmoneyPrice(data, "f60"),
		Open:      eastmoneyPrice(data, "f46"),
		High:      eastmoneyPrice(data, "f44"),
		Low:       eastmoneyPrice(data, "f45"),
		PctChange: eastmoneyPrice(data, "f170"),
		Timestamp: time.Now(),
	}
	quote.Volume, _ = jsonparser.GetFloat(data, "f47")
	quote.Turnover, _ = jsonparser.GetFloat(data, "f48")
	return quote, nil
}

// Close 关闭数据源连接
func (e *EastMoney) Close() error {
	e.setConnected(false)
	return nil
}

// eastmoneySecID 转换股票代码为东方财富secid格式（沪市前缀1.，深市前缀0.）
func eastmoneySecID(symbol string) string {
	if types.MarketOf(symbol) == types.MarketShanghai {
		return "1." + symbol
	}
	return "0." + symbol
}

// eastmoneyPrice 读取放大100倍的价格字段
func eastmoneyPrice(data []byte, key string) float64 {
	v, err := jsonparser.GetFloat(data, key)
	if err != nil {
		return 0
	}
	return v / 100.0
}

// parseEastmoneyKlines 解析K线响应。每条K线为逗号分隔字符串：
// 日期,开盘,收盘,最高,最低,成交量,成交额[,振幅,涨跌幅,...]
func parseEastmoneyKlines(body []byte, symbol string, withPctChange bool) ([]types.PriceBar, error) {
	if rc, err := jsonparser.GetInt(body, "rc"); err != nil || rc != 0 {
		return nil, fmt.Errorf("kline response rc=%d", rc)
	}

	var bars []types.PriceBar
	_, err := jsonparser.ArrayEach(body, func(value []byte, dataType jsonparser.ValueType, offset int, _ error) {
		parts := strings.Split(string(value), ",")
		minFields := 8
		if withPctChange {
			minFields = 11
		}
		if len(parts) < minFields {
			return
		}

		date, err := time.Parse("2006-01-02", parts[0])
		if err != nil {
			return
		}

		bar := types.PriceBar{
			Symbol:   symbol,
			Date:     date,
			Open:     decimalField(parts[1]),
			Close:    decimalField(parts[2]),
			High:     decimalField(parts[3]),
			Low:      decimalField(parts[4]),
			Volume:   decimalField(parts[5]),
			Turnover: decimalField(parts[6]),
		}
		if withPctChange {
			bar.PctChange = decimalField(parts[8])
		}
		bars = append(bars, bar)
	}, "data", "klines")
	if err != nil {
		return nil, err
	}
	return bars, nil
}

// decimalField 解析十进制字符串字段，非法值返回0
func decimalField(s string) float64 {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	f, _ := d.Float64()
	return f
}
