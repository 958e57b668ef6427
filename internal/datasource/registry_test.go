package datasource

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mooyang-code/stock-analyzer/internal/types"
)

// fakeSource 测试用数据源
type fakeSource struct {
	name       string
	caps       []types.Capability
	connectErr error
	connected  bool

	bars    []types.PriceBar
	barsErr error
	quote   *types.Quote
	quoteErr error

	historyCalls int
}

func (f *fakeSource) Name() string                     { return f.name }
func (f *fakeSource) Capabilities() []types.Capability { return f.caps }

func (f *fakeSource) Connect(ctx context.Context) error {
	if f.connectErr != nil {
		f.connected = false
		return f.connectErr
	}
	f.connected = true
	return nil
}

func (f *fakeSource) IsConnected() bool { return f.connected }

func (f *fakeSource) GetStockList(ctx context.Context) ([]types.StockInfo, error) {
	return nil, types.ErrCapabilityUnsupported
}

func (f *fakeSource) GetDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]types.PriceBar, error) {
	f.historyCalls++
	return f.bars, f.barsErr
}

func (f *fakeSource) GetQuote(ctx context.Context, symbol string) (*types.Quote, error) {
	return f.quote, f.quoteErr
}

func (f *fakeSource) Close() error { return nil }

func allCaps() []types.Capability {
	return []types.Capability{
		types.CapabilityHistory,
		types.CapabilityRealtime,
		types.CapabilityList,
	}
}

func testBars(n int) []types.PriceBar {
	bars := make([]types.PriceBar, n)
	for i := range bars {
		bars[i] = types.PriceBar{
			Symbol: "000001",
			Date:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i),
			Close:  10.0 + float64(i)*0.1,
		}
	}
	return bars
}

// TestConnectAllToleratesFailures 测试探测失败不中断其他数据源
func TestConnectAllToleratesFailures(t *testing.T) {
	broken := &fakeSource{name: "broken", caps: allCaps(), connectErr: errors.New("refused")}
	healthy := &fakeSource{name: "healthy", caps: allCaps()}

	registry := NewRegistry(zap.NewNop())
	registry.Register(broken, 1)
	registry.Register(healthy, 2)

	results := registry.ConnectAll(context.Background())
	if results["broken"] {
		t.Error("期望broken数据源连接失败")
	}
	if !results["healthy"] {
		t.Error("期望healthy数据源连接成功")
	}

	// 主数据源应为连接成功的优先级最高者
	if registry.Primary() != "healthy" {
		t.Errorf("期望主数据源为healthy，实际为%s", registry.Primary())
	}
}

// TestPrimaryDegradesWhenAllFail 测试全部连接失败时降级到首个配置的数据源
func TestPrimaryDegradesWhenAllFail(t *testing.T) {
	first := &fakeSource{name: "first", caps: allCaps(), connectErr: errors.New("down")}
	second := &fakeSource{name: "second", caps: allCaps(), connectErr: errors.New("down")}

	registry := NewRegistry(zap.NewNop())
	registry.Register(second, 2)
	registry.Register(first, 1)

	registry.ConnectAll(context.Background())
	if registry.Primary() != "first" {
		t.Errorf("期望降级主数据源为first，实际为%s", registry.Primary())
	}
}

// TestGetHistoryFailover 测试历史数据沿优先级故障转移
func TestGetHistoryFailover(t *testing.T) {
	failing := &fakeSource{name: "failing", caps: allCaps(), barsErr: errors.New("http 500")}
	empty := &fakeSource{name: "empty", caps: allCaps()}
	good := &fakeSource{name: "good", caps: allCaps(), bars: testBars(5)}

	registry := NewRegistry(zap.NewNop())
	registry.Register(failing, 1)
	registry.Register(empty, 2)
	registry.Register(good, 3)

	end := time.Now()
	bars, err := registry.GetHistory(context.Background(), "000001", end.AddDate(0, 0, -10), end)
	if err != nil {
		t.Fatalf("获取历史数据失败: %v", err)
	}
	if len(bars) != 5 {
		t.Errorf("期望5条数据，实际为%d", len(bars))
	}
	if failing.historyCalls != 1 || empty.historyCalls != 1 {
		t.Error("期望失败和空数据源各被尝试一次")
	}
}

// TestGetHistoryShortWindowRetry 测试长窗口无数据时的30天窗口重试
func TestGetHistoryShortWindowRetry(t *testing.T) {
	empty := &fakeSource{name: "empty", caps: allCaps()}

	registry := NewRegistry(zap.NewNop())
	registry.Register(empty, 1)

	end := time.Now()
	bars, err := registry.GetHistory(context.Background(), "000001", end.AddDate(0, 0, -120), end)
	if err != nil {
		t.Fatalf("期望无数据时不返回错误: %v", err)
	}
	if len(bars) != 0 {
		t.Errorf("期望空结果，实际为%d条", len(bars))
	}

	// 完整窗口 + 缩短窗口各尝试一次
	if empty.historyCalls != 2 {
		t.Errorf("期望2次尝试（含缩短窗口重试），实际为%d", empty.historyCalls)
	}
}

// TestGetHistoryNoRetryForShortWindow 测试窗口不足30天时不重试
func TestGetHistoryNoRetryForShortWindow(t *testing.T) {
	empty := &fakeSource{name: "empty", caps: allCaps()}

	registry := NewRegistry(zap.NewNop())
	registry.Register(empty, 1)

	end := time.Now()
	_, err := registry.GetHistory(context.Background(), "000001", end.AddDate(0, 0, -10), end)
	if err != nil {
		t.Fatalf("期望无数据时不返回错误: %v", err)
	}
	if empty.historyCalls != 1 {
		t.Errorf("期望1次尝试，实际为%d", empty.historyCalls)
	}
}

// TestGetQuoteFailover 测试实时行情故障转移
func TestGetQuoteFailover(t *testing.T) {
	failing := &fakeSource{name: "failing", caps: allCaps(), quoteErr: errors.New("timeout")}
	good := &fakeSource{
		name:  "good",
		caps:  allCaps(),
		quote: &types.Quote{Symbol: "000001", Price: 12.5},
	}

	registry := NewRegistry(zap.NewNop())
	registry.Register(failing, 1)
	registry.Register(good, 2)

	quote, err := registry.GetQuote(context.Background(), "000001")
	if err != nil {
		t.Fatalf("获取行情失败: %v", err)
	}
	if quote.Price != 12.5 {
		t.Errorf("期望价格12.5，实际为%f", quote.Price)
	}
}

// TestGetQuoteAllExhausted 测试所有数据源失败时返回耗尽错误
func TestGetQuoteAllExhausted(t *testing.T) {
	failing := &fakeSource{name: "failing", caps: allCaps(), quoteErr: errors.New("timeout")}

	registry := NewRegistry(zap.NewNop())
	registry.Register(failing, 1)

	_, err := registry.GetQuote(context.Background(), "000001")
	if !errors.Is(err, types.ErrAllSourcesExhausted) {
		t.Errorf("期望ErrAllSourcesExhausted，实际为%v", err)
	}
}

// TestCapabilityFiltering 测试按能力过滤数据源
func TestCapabilityFiltering(t *testing.T) {
	realtimeOnly := &fakeSource{
		name:    "realtime-only",
		caps:    []types.Capability{types.CapabilityRealtime},
		barsErr: errors.New("should never be called"),
	}
	historySource := &fakeSource{name: "history", caps: allCaps(), bars: testBars(3)}

	registry := NewRegistry(zap.NewNop())
	registry.Register(realtimeOnly, 1)
	registry.Register(historySource, 2)

	end := time.Now()
	bars, err := registry.GetHistory(context.Background(), "000001", end.AddDate(0, 0, -10), end)
	if err != nil {
		t.Fatalf("获取历史数据失败: %v", err)
	}
	if len(bars) != 3 {
		t.Errorf("期望3条数据，实际为%d", len(bars))
	}
	if realtimeOnly.historyCalls != 0 {
		t.Error("无历史能力的数据源不应被调用")
	}
}

// TestFailoverSkipsDisconnected 测试存在已连接数据源时跳过未连接者
func TestFailoverSkipsDisconnected(t *testing.T) {
	broken := &fakeSource{name: "broken", caps: allCaps(), connectErr: errors.New("refused"), bars: testBars(5)}
	healthy := &fakeSource{name: "healthy", caps: allCaps(), bars: testBars(3)}

	registry := NewRegistry(zap.NewNop())
	registry.Register(broken, 1)
	registry.Register(healthy, 2)
	registry.ConnectAll(context.Background())

	end := time.Now()
	bars, err := registry.GetHistory(context.Background(), "000001", end.AddDate(0, 0, -10), end)
	if err != nil {
		t.Fatalf("获取历史数据失败: %v", err)
	}
	if len(bars) != 3 {
		t.Errorf("期望取自healthy的3条数据，实际为%d", len(bars))
	}
	if broken.historyCalls != 0 {
		t.Error("未连接的数据源不应被调用")
	}
}

// TestFailoverDegradesWhenAllDisconnected 测试全部未连接时仍全量尝试
func TestFailoverDegradesWhenAllDisconnected(t *testing.T) {
	offline := &fakeSource{name: "offline", caps: allCaps(), connectErr: errors.New("refused"), bars: testBars(5)}

	registry := NewRegistry(zap.NewNop())
	registry.Register(offline, 1)
	registry.ConnectAll(context.Background())

	end := time.Now()
	bars, err := registry.GetHistory(context.Background(), "000001", end.AddDate(0, 0, -10), end)
	if err != nil {
		t.Fatalf("获取历史数据失败: %v", err)
	}
	if len(bars) != 5 {
		t.Errorf("期望降级后仍取回5条数据，实际为%d", len(bars))
	}
}

// TestDescriptors 测试数据源描述按优先级排序
func TestDescriptors(t *testing.T) {
	registry := NewRegistry(zap.NewNop())
	registry.Register(&fakeSource{name: "b", caps: allCaps()}, 2)
	registry.Register(&fakeSource{name: "a", caps: allCaps()}, 1)

	descs := registry.Descriptors()
	if len(descs) != 2 {
		t.Fatalf("期望2个描述，实际为%d", len(descs))
	}
	if descs[0].Name != "a" || descs[1].Name != "b" {
		t.Errorf("期望按优先级排序 [a b]，实际为 [%s %s]", descs[0].Name, descs[1].Name)
	}
	if !descs[0].HasCapability(types.CapabilityHistory) {
		t.Error("期望描述包含history能力")
	}
}
