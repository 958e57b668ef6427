package datasource

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/buger/jsonparser"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/mooyang-code/stock-analyzer/internal/datasource/httpclient"
	"github.com/mooyang-code/stock-analyzer/internal/types"
)

// 腾讯行情API路径常量
const (
	tencentQuoteBaseURL = "http://qt.gtimg.cn"
	tencentKlineURL     = "http://web.ifzq.gtimg.cn/appstock/app/fqkline/get"
)

// Tencent 腾讯股票数据源适配器
type Tencent struct {
	httpClient httpclient.Client
	logger     *zap.Logger

	mu        sync.RWMutex
	connected bool
}

// NewTencent 创建腾讯股票数据源
func NewTencent(client httpclient.Client, logger *zap.Logger) *Tencent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tencent{
		httpClient: client,
		logger:     logger.With(zap.String("source", "tencent")),
	}
}

// Name 获取数据源名称
func (t *Tencent) Name() string {
	return "tencent"
}

// Capabilities 获取数据源能力集合
func (t *Tencent) Capabilities() []types.Capability {
	return []types.Capability{
		types.CapabilityHistory,
		types.CapabilityRealtime,
	}
}

// Connect 探测数据源连通性
func (t *Tencent) Connect(ctx context.Context) error {
	body, err := t.getText(ctx, tencentQuoteBaseURL+"/q=sz000001")
	if err != nil {
		t.setConnected(false)
		return errors.Wrap(err, "tencent connect probe failed")
	}
	if !strings.Contains(body, "v_sz000001") {
		t.setConnected(false)
		return errors.New("tencent connect probe returned unexpected payload")
	}

	t.setConnected(true)
	t.logger.Info("tencent data source connected")
	return nil
}

// IsConnected 返回最近一次探测的连接状态
func (t *Tencent) IsConnected() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.connected
}

func (t *Tencent) setConnected(v bool) {
	t.mu.Lock()
	t.connected = v
	t.mu.Unlock()
}

// GetStockList 获取股票列表
func (t *Tencent) GetStockList(ctx context.Context) ([]types.StockInfo, error) {
	return nil, types.ErrCapabilityUnsupported
}

// GetDailyBars 获取日线历史数据（前复权K线，JSONP包装的JSON响应）
func (t *Tencent) GetDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]types.PriceBar, error) {
	tsym := tencentSymbol(symbol)
	param := tsym + ",day," + start.Format("2006-01-02") + "," + end.Format("2006-01-02") + ",320,qfq"

	raw, err := t.httpClient.GetRaw(ctx, tencentKlineURL+"?_var=kline_dayqfq&param="+param)
	if err != nil {
		return nil, errors.Wrapf(err, "tencent get daily bars for %s", symbol)
	}

	body, err := stripJSONP(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "tencent kline payload for %s", symbol)
	}

	// 前复权数据在 data.<symbol>.qfqday，部分股票在 data.<symbol>.day
	var bars []types.PriceBar
	parse := func(value []byte, dataType jsonparser.ValueType, offset int, _ error) {
		var fields []string
		jsonparser.ArrayEach(value, func(item []byte, _ jsonparser.ValueType, _ int, _ error) {
			fields = append(fields, string(item))
		})
		if len(fields) < 6 {
			return
		}

		date, err := time.Parse("2006-01-02", fields[0])
		if err != nil {
			return
		}
		bars = append(bars, types.PriceBar{
			Symbol: symbol,
			Date:   date,
			Open:   decimalField(fields[1]),
			Close:  decimalField(fields[2]),
			High:   decimalField(fields[3]),
			Low:    decimalField(fields[4]),
			Volume: decimalField(fields[5]),
		})
	}

	if _, err := jsonparser.ArrayEach(body, parse, "data", tsym, "qfqday"); err != nil {
		bars = bars[:0]
		if _, err := jsonparser.ArrayEach(body, parse, "data", tsym, "day"); err != nil {
			return nil, errors.Wrapf(err, "tencent parse klines for %s", symbol)
		}
	}

	// 接口不返回涨跌幅，由前后收盘价推算
	for i := range bars {
		if i == 0 {
			continue
		}
		prev := bars[i-1].Close
		if prev != 0 {
			bars[i].PctChange = (bars[i].Close - prev) / prev * 100
		}
	}

	t.logger.Debug("fetched daily bars",
		zap.String("symbol", symbol), zap.Int("count", len(bars)))
	return bars, nil
}

// GetQuote 获取实时行情
func (t *Tencent) GetQuote(ctx context.Context, symbol string) (*types.Quote, error) {
	body, err := t.getText(ctx, tencentQuoteBaseURL+"/q="+tencentSymbol(symbol))
	if err != nil {
		return nil, errors.Wrapf(err, "tencent get quote for %s", symbol)
	}

	return parseTencentQuote(body, symbol)
}

// parseTencentQuote 解析腾讯行情文本。
// 格式: v_sz000001="51~平安银行~000001~13.46~13.38~13.50~..."
func parseTencentQuote(body, symbol string) (*types.Quote, error) {
	start := strings.Index(body, `"`)
	end := strings.LastIndex(body, `"`)
	if start < 0 || end <= start {
		return nil, errors.Errorf("tencent quote payload not found for %s", symbol)
	}

	parts := strings.Split(body[start+1:end], "~")
	if len(parts) < 50 {
		return nil, errors.Errorf("tencent quote has %d fields for %s, want >= 50", len(parts), symbol)
	}

	quote := &types.Quote{
		Symbol:    symbol,
		Name:      parts[1],
		Price:     parseFloatField(parts[3]),
		PrevClose: parseFloatField(parts[4]),
		Open:      parseFloatField(parts[5]),
		Volume:    parseFloatField(parts[6]),
		High:      parseFloatField(parts[33]),
		Low:       parseFloatField(parts[34]),
		Turnover:  parseFloatField(parts[37]),
		Timestamp: time.Now(),
	}
	if quote.PrevClose > 0 {
		quote.PctChange = (quote.Price - quote.PrevClose) / quote.PrevClose * 100
	}
	return quote, nil
}

// Close 关闭数据源连接
func (t *Tencent) Close() error {
	t.setConnected(false)
	return nil
}

// getText 获取GBK编码的文本响应并转换为UTF-8
func (t *Tencent) getText(ctx context.Context, url string) (string, error) {
	raw, err := t.httpClient.GetRaw(ctx, url)
	if err != nil {
		return "", err
	}
	decoded, err := simplifiedchinese.GBK.NewDecoder().Bytes(raw)
	if err != nil {
		return "", errors.Wrap(err, "decode GBK payload")
	}
	return string(decoded), nil
}

// tencentSymbol 转换股票代码为腾讯格式（sh600000 / sz000001）
func tencentSymbol(symbol string) string {
	if types.MarketOf(symbol) == types.MarketShanghai {
		return "sh" + symbol
	}
	return "sz" + symbol
}

// stripJSONP 去掉 `var xxx=` 前缀，返回JSON部分
func stripJSONP(raw []byte) ([]byte, error) {
	idx := strings.IndexByte(string(raw), '{')
	if idx < 0 {
		return nil, errors.New("no JSON object in JSONP payload")
	}
	return raw[idx:], nil
}
