package datasource

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/mooyang-code/stock-analyzer/internal/datasource/httpclient"
	"github.com/mooyang-code/stock-analyzer/internal/types"
)

const sinaBaseURL = "http://hq.sinajs.cn"

// 新浪行情返回 `var hq_str_sz000001="平安银行,..."` 格式的GBK文本
var sinaQuotePattern = regexp.MustCompile(`var hq_str_\w+="([^"]*)"`)

// Sina 新浪财经数据源适配器，仅提供实时行情
type Sina struct {
	httpClient httpclient.Client
	logger     *zap.Logger

	mu        sync.RWMutex
	connected bool
}

// NewSina 创建新浪财经数据源
func NewSina(client httpclient.Client, logger *zap.Logger) *Sina {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sina{
		httpClient: client,
		logger:     logger.With(zap.String("source", "sina")),
	}
}

// Name 获取数据源名称
func (s *Sina) Name() string {
	return "sina"
}

// Capabilities 获取数据源能力集合（无历史数据接口）
func (s *Sina) Capabilities() []types.Capability {
	return []types.Capability{types.CapabilityRealtime}
}

// Connect 探测数据源连通性
func (s *Sina) Connect(ctx context.Context) error {
	body, err := s.getText(ctx, sinaBaseURL+"/list=sz000001")
	if err != nil {
		s.setConnected(false)
		return errors.Wrap(err, "sina connect probe failed")
	}
	if !strings.Contains(body, "var hq_str_sz000001") {
		s.setConnected(false)
		return errors.New("sina connect probe returned unexpected payload")
	}

	s.setConnected(true)
	s.logger.Info("sina data source connected")
	return nil
}

// IsConnected 返回最近一次探测的连接状态
func (s *Sina) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

func (s *Sina) setConnected(v bool) {
	s.mu.Lock()
	s.connected = v
	s.mu.Unlock()
}

// GetStockList 获取股票列表
func (s *Sina) GetStockList(ctx context.Context) ([]types.StockInfo, error) {
	return nil, types.ErrCapabilityUnsupported
}

// GetDailyBars 获取日线历史数据（新浪不提供历史数据接口）
func (s *Sina) GetDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]types.PriceBar, error) {
	return nil, types.ErrCapabilityUnsupported
}

// GetQuote 获取实时行情
func (s *Sina) GetQuote(ctx context.Context, symbol string) (*types.Quote, error) {
	body, err := s.getText(ctx, sinaBaseURL+"/list="+sinaSymbol(symbol))
	if err != nil {
		return nil, errors.Wrapf(err, "sina get quote for %s", symbol)
	}

	return parseSinaQuote(body, symbol)
}

// parseSinaQuote 解析新浪行情文本。
// 字段顺序：名称,开盘,昨收,现价,最高,最低,买一价,卖一价,成交量,成交额,...,日期(30),时间(31)
func parseSinaQuote(body, symbol string) (*types.Quote, error) {
	match := sinaQuotePattern.FindStringSubmatch(body)
	if match == nil {
		return nil, errors.Errorf("sina quote payload not found for %s", symbol)
	}

	parts := strings.Split(match[1], ",")
	if len(parts) < 32 {
		return nil, errors.Errorf("sina quote has %d fields for %s, want >= 32", len(parts), symbol)
	}

	quote := &types.Quote{
		Symbol:    symbol,
		Name:      parts[0],
		Open:      parseFloatField(parts[1]),
		PrevClose: parseFloatField(parts[2]),
		Price:     parseFloatField(parts[3]),
		High:      parseFloatField(parts[4]),
		Low:       parseFloatField(parts[5]),
		Volume:    parseFloatField(parts[8]),
		Turnover:  parseFloatField(parts[9]),
	}

	// 涨跌幅由昨收推算
	if quote.PrevClose > 0 {
		quote.PctChange = (quote.Price - quote.PrevClose) / quote.PrevClose * 100
	}

	ts, err := time.ParseInLocation("2006-01-02 15:04:05", parts[30]+" "+parts[31], time.Local)
	if err != nil {
		ts = time.Now()
	}
	quote.Timestamp = ts
	return quote, nil
}

// Close 关闭数据源连接
func (s *Sina) Close() error {
	s.setConnected(false)
	return nil
}

// getText 获取GBK编码的文本响应并转换为UTF-8
func (s *Sina) getText(ctx context.Context, url string) (string, error) {
	raw, err := s.httpClient.GetRaw(ctx, url)
	if err != nil {
		return "", err
	}
	decoded, err := simplifiedchinese.GBK.NewDecoder().Bytes(raw)
	if err != nil {
		return "", errors.Wrap(err, "decode GBK payload")
	}
	return string(decoded), nil
}

// sinaSymbol 转换股票代码为新浪格式（sh600000 / sz000001）
func sinaSymbol(symbol string) string {
	if types.MarketOf(symbol) == types.MarketShanghai {
		return "sh" + symbol
	}
	return "sz" + symbol
}

// parseFloatField 解析浮点字段，空串或非法值返回0
func parseFloatField(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}
