package datasource

import (
	"fmt"
	"math"
	"strings"
	"testing"
)

// TestEastmoneySecID 测试东方财富代码转换
func TestEastmoneySecID(t *testing.T) {
	if got := eastmoneySecID("600000"); got != "1.600000" {
		t.Errorf("期望沪市代码1.600000，实际为%s", got)
	}
	if got := eastmoneySecID("000001"); got != "0.000001" {
		t.Errorf("期望深市代码0.000001，实际为%s", got)
	}
}

// TestParseEastmoneyKlines 测试东方财富K线解析
func TestParseEastmoneyKlines(t *testing.T) {
	body := []byte(`{
		"rc": 0,
		"data": {
			"code": "000001",
			"klines": [
				"2024-01-02,9.30,9.41,9.45,9.28,1250000,1172500000.00,1.82,1.29,0.12,0.91",
				"2024-01-03,9.41,9.35,9.46,9.30,980000,918400000.00,1.70,-0.64,-0.06,0.71"
			]
		}
	}`)

	bars, err := parseEastmoneyKlines(body, "000001", true)
	if err != nil {
		t.Fatalf("解析K线失败: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("期望2条K线，实际为%d", len(bars))
	}

	first := bars[0]
	if first.Date.Format("2006-01-02") != "2024-01-02" {
		t.Errorf("期望日期2024-01-02，实际为%s", first.Date.Format("2006-01-02"))
	}
	if first.Open != 9.30 || first.Close != 9.41 || first.High != 9.45 || first.Low != 9.28 {
		t.Errorf("OHLC解析错误: %+v", first)
	}
	if first.Volume != 1250000 {
		t.Errorf("期望成交量1250000，实际为%f", first.Volume)
	}
	if math.Abs(first.PctChange-1.29) > 1e-9 {
		t.Errorf("期望涨跌幅1.29，实际为%f", first.PctChange)
	}
}

// TestParseEastmoneyKlinesBadRC 测试错误返回码
func TestParseEastmoneyKlinesBadRC(t *testing.T) {
	_, err := parseEastmoneyKlines([]byte(`{"rc": 100, "data": null}`), "000001", true)
	if err == nil {
		t.Error("期望rc非0时返回错误")
	}
}

// TestParseEastmoneyKlinesSkipsMalformed 测试跳过格式错误的K线
func TestParseEastmoneyKlinesSkipsMalformed(t *testing.T) {
	body := []byte(`{
		"rc": 0,
		"data": {
			"klines": [
				"bad-line",
				"2024-01-02,9.30,9.41,9.45,9.28,1250000,1172500000.00,1.82,1.29,0.12,0.91"
			]
		}
	}`)

	bars, err := parseEastmoneyKlines(body, "000001", true)
	if err != nil {
		t.Fatalf("解析K线失败: %v", err)
	}
	if len(bars) != 1 {
		t.Errorf("期望跳过错误行后剩1条，实际为%d", len(bars))
	}
}

// TestParseSinaQuote 测试新浪行情解析
func TestParseSinaQuote(t *testing.T) {
	fields := make([]string, 33)
	fields[0] = "平安银行"
	fields[1] = "9.40"     // 开盘
	fields[2] = "9.35"     // 昨收
	fields[3] = "9.54"     // 现价
	fields[4] = "9.60"     // 最高
	fields[5] = "9.38"     // 最低
	fields[8] = "125000000"   // 成交量
	fields[9] = "1186000000"  // 成交额
	fields[30] = "2024-01-02" // 日期
	fields[31] = "15:00:03"   // 时间
	body := fmt.Sprintf(`var hq_str_sz000001="%s";`, strings.Join(fields, ","))

	quote, err := parseSinaQuote(body, "000001")
	if err != nil {
		t.Fatalf("解析新浪行情失败: %v", err)
	}

	if quote.Name != "平安银行" {
		t.Errorf("期望名称平安银行，实际为%s", quote.Name)
	}
	if quote.Price != 9.54 || quote.PrevClose != 9.35 {
		t.Errorf("价格解析错误: %+v", quote)
	}

	wantPct := (9.54 - 9.35) / 9.35 * 100
	if math.Abs(quote.PctChange-wantPct) > 1e-9 {
		t.Errorf("期望涨跌幅%f，实际为%f", wantPct, quote.PctChange)
	}
	if quote.Timestamp.Format("2006-01-02 15:04:05") != "2024-01-02 15:00:03" {
		t.Errorf("时间戳解析错误: %v", quote.Timestamp)
	}
}

// TestParseSinaQuoteTooFewFields 测试字段不足时报错
func TestParseSinaQuoteTooFewFields(t *testing.T) {
	_, err := parseSinaQuote(`var hq_str_sz000001="平安银行,9.40";`, "000001")
	if err == nil {
		t.Error("期望字段不足时返回错误")
	}
}

// TestParseTencentQuote 测试腾讯行情解析
func TestParseTencentQuote(t *testing.T) {
	fields := make([]string, 50)
	fields[1] = "平安银行"
	fields[2] = "000001"
	fields[3] = "13.46" // 现价
	fields[4] = "13.38" // 昨收
	fields[5] = "13.50" // 开盘
	fields[6] = "880000" // 成交量
	fields[33] = "13.60" // 最高
	fields[34] = "13.30" // 最低
	fields[37] = "118600" // 成交额
	body := fmt.Sprintf(`v_sz000001="%s";`, strings.Join(fields, "~"))

	quote, err := parseTencentQuote(body, "000001")
	if err != nil {
		t.Fatalf("解析腾讯行情失败: %v", err)
	}

	if quote.Name != "平安银行" {
		t.Errorf("期望名称平安银行，实际为%s", quote.Name)
	}
	if quote.Price != 13.46 || quote.PrevClose != 13.38 {
		t.Errorf("价格解析错误: %+v", quote)
	}
	if quote.High != 13.60 || quote.Low != 13.30 {
		t.Errorf("高低价解析错误: %+v", quote)
	}
}

// TestStripJSONP 测试JSONP前缀剥离
func TestStripJSONP(t *testing.T) {
	body, err := stripJSONP([]byte(`kline_dayqfq={"code":0,"data":{}}`))
	if err != nil {
		t.Fatalf("剥离JSONP失败: %v", err)
	}
	if string(body) != `{"code":0,"data":{}}` {
		t.Errorf("剥离结果错误: %s", body)
	}

	if _, err := stripJSONP([]byte("no json here")); err == nil {
		t.Error("期望无JSON内容时返回错误")
	}
}

// TestSymbolConversions 测试各提供商的代码格式转换
func TestSymbolConversions(t *testing.T) {
	if got := sinaSymbol("600000"); got != "sh600000" {
		t.Errorf("期望sh600000，实际为%s", got)
	}
	if got := tencentSymbol("000001"); got != "sz000001" {
		t.Errorf("期望sz000001，实际为%s", got)
	}
	if got := neteaseSymbol("600000"); got != "1600000" {
		t.Errorf("期望1600000，实际为%s", got)
	}
	if got := neteaseSymbol("000001"); got != "0000001" {
		t.Errorf("期望0000001，实际为%s", got)
	}
}
