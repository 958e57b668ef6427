// Package types 定义策略与风险评估的结果类型
package types

import "time"

// Action 策略动作枚举
type Action string

const (
	ActionBuy  Action = "BUY"  // 买入
	ActionSell Action = "SELL" // 卖出
	ActionHold Action = "HOLD" // 观望
	ActionExit Action = "EXIT" // 平仓
	ActionNone Action = "NONE" // 无信号
)

// Signal 技术指标信号，仅由最近两行指标推导，不持久化
type Signal struct {
	Name   string `json:"name"`   // 信号名称
	Active bool   `json:"active"` // 是否触发
}

// StrategyRecommendation 策略建议，每次分析产生一次，产生后不再修改
type StrategyRecommendation struct {
	Symbol       string    `json:"symbol"`        // 股票代码
	Action       Action    `json:"action"`        // 建议动作
	Confidence   float64   `json:"confidence"`    // 置信度 [0,1]
	Reasons      []string  `json:"reasons"`       // 决策原因（有序）
	EntryPrice   float64   `json:"entry_price"`   // 入场价格
	StopLoss     float64   `json:"stop_loss"`     // 止损价格（0表示无）
	TakeProfit   float64   `json:"take_profit"`   // 止盈价格（0表示无）
	PositionSize float64   `json:"position_size"` // 建议仓位 [0,1]
	Timestamp    time.Time `json:"timestamp"`     // 生成时间
}

// RiskLevel 风险等级枚举
type RiskLevel string

const (
	RiskLevelLow          RiskLevel = "低风险"  // 风险分数 < 30
	RiskLevelMedium       RiskLevel = "中风险"  // 风险分数 < 60
	RiskLevelHigh         RiskLevel = "高风险"  // 风险分数 >= 60
	RiskLevelInsufficient RiskLevel = "数据不足" // 历史数据过短，无法评估
	RiskLevelError        RiskLevel = "评估失败" // 评估过程异常
)

// RiskFactor 单项风险因子评分
type RiskFactor struct {
	Factor      string  `json:"factor"`      // 因子名称
	Score       float64 `json:"score"`       // 0-100分，分数越高风险越大
	Level       string  `json:"level"`       // 定性等级（低/中/高/无数据）
	Description string  `json:"description"` // 描述
}

// RiskProfile 综合风险评估结果
type RiskProfile struct {
	Symbol          string       `json:"symbol"`          // 股票代码
	RiskScore       float64      `json:"risk_score"`      // 综合风险分数 [0,100]
	RiskLevel       RiskLevel    `json:"risk_level"`      // 风险等级
	Factors         []RiskFactor `json:"factors"`         // 各因子评分（有序）
	Warnings        []string     `json:"warnings"`        // 风险预警
	Recommendations []string     `json:"recommendations"` // 风险管理建议
	AssessedAt      time.Time    `json:"assessed_at"`     // 评估时间
}
