package storage

import (
	"database/sql"
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/mooyang-code/stock-analyzer/internal/indicators"
	"github.com/mooyang-code/stock-analyzer/internal/types"
)

const dateLayout = "2006-01-02"

var _ Store = (*SQLite)(nil)

// SQLite 基于SQLite的本地存储
type SQLite struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *zap.Logger
}

// NewSQLite 打开（或创建）SQLite数据库并执行建表
func NewSQLite(dbPath string, logger *zap.Logger) (*SQLite, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}

	// WAL模式提升读写并发
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "set WAL mode")
	}

	s := &SQLite{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "migrate")
	}

	logger.Info("sqlite store opened", zap.String("path", dbPath))
	return s, nil
}

func (s *SQLite) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS stocks (
			symbol TEXT PRIMARY KEY,
			name   TEXT,
			market TEXT
		)`,

		`CREATE TABLE IF NOT EXISTS daily_prices (
			symbol     TEXT NOT NULL,
			date       TEXT NOT NULL,
			open       REAL,
			high       REAL,
			low        REAL,
			close      REAL,
			volume     REAL,
			turnover   REAL,
			pct_change REAL,
			PRIMARY KEY (symbol, date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_prices_symbol_date ON daily_prices(symbol, date)`,

		`CREATE TABLE IF NOT EXISTS technical_indicators (
			symbol         TEXT NOT NULL,
			date           TEXT NOT NULL,
			close          REAL,
			ma5            REAL,
			ma10           REAL,
			ma20           REAL,
			ma60           REAL,
			ema12          REAL,
			ema26          REAL,
			macd           REAL,
			macd_signal    REAL,
			macd_histogram REAL,
			rsi            REAL,
			kdj_k          REAL,
			kdj_d          REAL,
			kdj_j          REAL,
			boll_upper     REAL,
			boll_middle    REAL,
			boll_lower     REAL,
			vol_ma5        REAL,
			vol_ma10       REAL,
			vol_ma20       REAL,
			obv            REAL,
			atr            REAL,
			PRIMARY KEY (symbol, date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_indicators_symbol_date ON technical_indicators(symbol, date)`,

		`CREATE TABLE IF NOT EXISTS watchlist (
			symbol     TEXT PRIMARY KEY,
			name       TEXT,
			priority   INTEGER DEFAULT 1,
			notes      TEXT,
			added_date INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS alerts (
			id         TEXT PRIMARY KEY,
			symbol     TEXT NOT NULL,
			alert_type TEXT,
			title      TEXT,
			message    TEXT,
			severity   TEXT,
			is_read    INTEGER DEFAULT 0,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_symbol ON alerts(symbol)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return errors.Wrapf(err, "exec %q", stmt[:30])
		}
	}
	return nil
}

// SaveStocks 批量保存股票基本信息
func (s *SQLite) SaveStocks(stocks []types.StockInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO stocks (symbol, name, market) VALUES (?,?,?)`)
	if err != nil {
		return errors.Wrap(err, "prepare")
	}
	defer stmt.Close()

	for _, stock := range stocks {
		if _, err := stmt.Exec(stock.Symbol, stock.Name, string(stock.Market)); err != nil {
			return errors.Wrapf(err, "save stock %s", stock.Symbol)
		}
	}
	return tx.Commit()
}

// GetStocks 获取全部股票基本信息
func (s *SQLite) GetStocks() ([]types.StockInfo, error) {
	rows, err := s.db.Query(`SELECT symbol, name, market FROM stocks ORDER BY symbol`)
	if err != nil {
		return nil, errors.Wrap(err, "query stocks")
	}
	defer rows.Close()

	var stocks []types.StockInfo
	for rows.Next() {
		var stock types.StockInfo
		var market string
		if err := rows.Scan(&stock.Symbol, &stock.Name, &market); err != nil {
			return nil, errors.Wrap(err, "scan stock")
		}
		stock.Market = types.Market(market)
		stocks = append(stocks, stock)
	}
	return stocks, rows.Err()
}

// SaveBars 批量保存日线行情，同日数据覆盖
func (s *SQLite) SaveBars(symbol string, bars []types.PriceBar) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO daily_prices
		(symbol, date, open, high, low, close, volume, turnover, pct_change)
		VALUES (?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return errors.Wrap(err, "prepare")
	}
	defer stmt.Close()

	for _, bar := range bars {
		_, err := stmt.Exec(symbol, bar.Date.Format(dateLayout),
			bar.Open, bar.High, bar.Low, bar.Close,
			bar.Volume, bar.Turnover, bar.PctChange)
		if err != nil {
			return errors.Wrapf(err, "save bar %s", bar.Date.Format(dateLayout))
		}
	}
	return tx.Commit()
}

// GetBars 查询指定日期范围的日线行情，按日期升序
func (s *SQLite) GetBars(symbol string, start, end time.Time) ([]types.PriceBar, error) {
	rows, err := s.db.Query(`SELECT date, open, high, low, close, volume, turnover, pct_change
		FROM daily_prices WHERE symbol = ? AND date >= ? AND date <= ? ORDER BY date`,
		symbol, start.Format(dateLayout), end.Format(dateLayout))
	if err != nil {
		return nil, errors.Wrap(err, "query bars")
	}
	defer rows.Close()

	var bars []types.PriceBar
	for rows.Next() {
		var bar types.PriceBar
		var date string
		if err := rows.Scan(&date, &bar.Open, &bar.High, &bar.Low, &bar.Close,
			&bar.Volume, &bar.Turnover, &bar.PctChange); err != nil {
			return nil, errors.Wrap(err, "scan bar")
		}
		bar.Symbol = symbol
		bar.Date, _ = time.Parse(dateLayout, date)
		bars = append(bars, bar)
	}
	return bars, rows.Err()
}

// SaveIndicators 批量保存技术指标，NaN存为NULL
func (s *SQLite) SaveIndicators(symbol string, indicatorRows []indicators.IndicatorRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO technical_indicators
		(symbol, date, close, ma5, ma10, ma20, ma60, ema12, ema26,
		 macd, macd_signal, macd_histogram, rsi, kdj_k, kdj_d, kdj_j,
		 boll_upper, boll_middle, boll_lower, vol_ma5, vol_ma10, vol_ma20, obv, atr)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return errors.Wrap(err, "prepare")
	}
	defer stmt.Close()

	for _, row := range indicatorRows {
		_, err := stmt.Exec(symbol, row.Date, row.Close,
			nullable(row.MA5), nullable(row.MA10), nullable(row.MA20), nullable(row.MA60),
			nullable(row.EMA12), nullable(row.EMA26),
			nullable(row.MACD), nullable(row.MACDSignal), nullable(row.MACDHistogram),
			nullable(row.RSI), nullable(row.KDJK), nullable(row.KDJD), nullable(row.KDJJ),
			nullable(row.BollUpper), nullable(row.BollMiddle), nullable(row.BollLower),
			nullable(row.VolMA5), nullable(row.VolMA10), nullable(row.VolMA20),
			nullable(row.OBV), nullable(row.ATR))
		if err != nil {
			return errors.Wrapf(err, "save indicators %s", row.Date)
		}
	}
	return tx.Commit()
}

// GetIndicators 查询指定日期范围的技术指标，NULL读回为NaN
func (s *SQLite) GetIndicators(symbol string, start, end time.Time) ([]indicators.IndicatorRow, error) {
	rows, err := s.db.Query(`SELECT date, close, ma5, ma10, ma20, ma60, ema12, ema26,
		macd, macd_signal, macd_histogram, rsi, kdj_k, kdj_d, kdj_j,
		boll_upper, boll_middle, boll_lower, vol_ma5, vol_ma10, vol_ma20, obv, atr
		FROM technical_indicators WHERE symbol = ? AND date >= ? AND date <= ? ORDER BY date`,
		symbol, start.Format(dateLayout), end.Format(dateLayout))
	if err != nil {
		return nil, errors.Wrap(err, "query indicators")
	}
	defer rows.Close()

	var result []indicators.IndicatorRow
	for rows.Next() {
		var row indicators.IndicatorRow
		var date string
		var ma5, ma10, ma20, ma60, ema12, ema26 sql.NullFloat64
		var macd, macdSignal, macdHist, rsi, k, d, j sql.NullFloat64
		var bollUpper, bollMiddle, bollLower sql.NullFloat64
		var volMA5, volMA10, volMA20, obv, atr sql.NullFloat64

		if err := rows.Scan(&date, &row.Close, &ma5, &ma10, &ma20, &ma60, &ema12, &ema26,
			&macd, &macdSignal, &macdHist, &rsi, &k, &d, &j,
			&bollUpper, &bollMiddle, &bollLower, &volMA5, &volMA10, &volMA20, &obv, &atr); err != nil {
			return nil, errors.Wrap(err, "scan indicators")
		}

		row.Date = date
		row.MA5, row.MA10, row.MA20, row.MA60 = floatOrNaN(ma5), floatOrNaN(ma10), floatOrNaN(ma20), floatOrNaN(ma60)
		row.EMA12, row.EMA26 = floatOrNaN(ema12), floatOrNaN(ema26)
		row.MACD, row.MACDSignal, row.MACDHistogram = floatOrNaN(macd), floatOrNaN(macdSignal), floatOrNaN(macdHist)
		row.RSI = floatOrNaN(rsi)
		row.KDJK, row.KDJD, row.KDJJ = floatOrNaN(k), floatOrNaN(d), floatOrNaN(j)
		row.BollUpper, row.BollMiddle, row.BollLower = floatOrNaN(bollUpper), floatOrNaN(bollMiddle), floatOrNaN(bollLower)
		row.VolMA5, row.VolMA10, row.VolMA20 = floatOrNaN(volMA5), floatOrNaN(volMA10), floatOrNaN(volMA20)
		row.OBV, row.ATR = floatOrNaN(obv), floatOrNaN(atr)
		result = append(result, row)
	}
	return result, rows.Err()
}

// AddToWatchlist 加入自选股，重复加入时覆盖
func (s *SQLite) AddToWatchlist(item types.WatchlistItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := item.AddedDate
	if added.IsZero() {
		added = time.Now()
	}
	_, err := s.db.Exec(`INSERT OR REPLACE INTO watchlist (symbol, name, priority, notes, added_date)
		VALUES (?,?,?,?,?)`,
		item.Symbol, item.Name, item.Priority, item.Notes, added.Unix())
	return errors.Wrap(err, "add to watchlist")
}

// RemoveFromWatchlist 移出自选股
func (s *SQLite) RemoveFromWatchlist(symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`DELETE FROM watchlist WHERE symbol = ?`, symbol)
	return errors.Wrap(err, "remove from watchlist")
}

// GetWatchlist 获取自选股列表，按优先级降序
func (s *SQLite) GetWatchlist() ([]types.WatchlistItem, error) {
	rows, err := s.db.Query(`SELECT symbol, name, priority, notes, added_date
		FROM watchlist ORDER BY priority DESC, symbol`)
	if err != nil {
		return nil, errors.Wrap(err, "query watchlist")
	}
	defer rows.Close()

	var items []types.WatchlistItem
	for rows.Next() {
		var item types.WatchlistItem
		var added int64
		if err := rows.Scan(&item.Symbol, &item.Name, &item.Priority, &item.Notes, &added); err != nil {
			return nil, errors.Wrap(err, "scan watchlist item")
		}
		item.AddedDate = time.Unix(added, 0)
		items = append(items, item)
	}
	return items, rows.Err()
}

// AddAlert 保存风险预警
func (s *SQLite) AddAlert(alert *types.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := alert.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.db.Exec(`INSERT OR REPLACE INTO alerts
		(id, symbol, alert_type, title, message, severity, created_at)
		VALUES (?,?,?,?,?,?,?)`,
		alert.ID, alert.Symbol, alert.Type, alert.Title, alert.Message,
		alert.Severity, created.Unix())
	return errors.Wrap(err, "add alert")
}

// GetAlerts 查询预警，symbol为空时不过滤，limit<=0时不限制条数
func (s *SQLite) GetAlerts(symbol string, unreadOnly bool, limit int) ([]types.Alert, error) {
	query := `SELECT id, symbol, alert_type, title, message, severity, created_at FROM alerts`
	var conditions []string
	var args []interface{}

	if symbol != "" {
		conditions = append(conditions, "symbol = ?")
		args = append(args, symbol)
	}
	if unreadOnly {
		conditions = append(conditions, "is_read = 0")
	}
	for i, cond := range conditions {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY created_at DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query alerts")
	}
	defer rows.Close()

	var alerts []types.Alert
	for rows.Next() {
		var alert types.Alert
		var created int64
		if err := rows.Scan(&alert.ID, &alert.Symbol, &alert.Type, &alert.Title,
			&alert.Message, &alert.Severity, &created); err != nil {
			return nil, errors.Wrap(err, "scan alert")
		}
		alert.CreatedAt = time.Unix(created, 0)
		alerts = append(alerts, alert)
	}
	return alerts, rows.Err()
}

// MarkAlertRead 标记预警为已读
func (s *SQLite) MarkAlertRead(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`UPDATE alerts SET is_read = 1 WHERE id = ?`, id)
	return errors.Wrap(err, "mark alert read")
}

// Close 关闭数据库
func (s *SQLite) Close() error {
	s.logger.Info("closing sqlite store")
	return s.db.Close()
}

// nullable NaN转为NULL存储
func nullable(v float64) interface{} {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

// floatOrNaN NULL读回为NaN
func floatOrNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
