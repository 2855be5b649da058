// Package market 提供行情快照获取与市场状态研判：
// 由 24 小时与 7 日涨跌幅推导趋势、波动性标签和固定建议文案。
package market

import "math"

// Trend 是由涨跌幅阈值推导出的趋势标签。
type Trend string

const (
	TrendBullMarket Trend = "bull_market"
	TrendUptrend    Trend = "uptrend"
	TrendBearMarket Trend = "bear_market"
	TrendDowntrend  Trend = "downtrend"
	TrendSideways   Trend = "sideways"
)

// Volatility 是由 24 小时涨跌幅绝对值推导出的波动性标签。
type Volatility string

const (
	VolatilityHigh   Volatility = "high"
	VolatilityMedium Volatility = "medium"
	VolatilityLow    Volatility = "low"
)

// State 是一次行情研判的结果，每次请求重新计算，不做持久化。
type State struct {
	Trend            Trend      `json:"trend"`
	TrendDescription string     `json:"trend_description"`
	Volatility       Volatility `json:"volatility"`
	Advice           string     `json:"advice"`
}

// trendDescriptions 是趋势标签对应的中文描述。
var trendDescriptions = map[Trend]string{
	TrendBullMarket: "强劲牛市",
	TrendUptrend:    "上升趋势",
	TrendBearMarket: "熊市",
	TrendDowntrend:  "下降趋势",
	TrendSideways:   "横盘整理",
}

// Analyze 依据两个涨跌幅输入推导市场状态。趋势分支按固定顺序求值，
// 各分支条件并不互斥，顺序即为裁决规则，不可调整。
// NaN 输入的所有比较均为假，落入 sideways/low；无穷输入按普通数值参与比较。
func Analyze(change24h, change7d float64) State {
	var trend Trend
	switch {
	case change24h > 5 && change7d > 10:
		trend = TrendBullMarket
	case change24h > 0 && change7d > 0:
		trend = TrendUptrend
	case change24h < -5 && change7d < -10:
		trend = TrendBearMarket
	case change24h < 0 && change7d < 0:
		trend = TrendDowntrend
	default:
		trend = TrendSideways
	}

	var volatility Volatility
	switch abs := math.Abs(change24h); {
	case abs > 3:
		volatility = VolatilityHigh
	case abs > 1:
		volatility = VolatilityMedium
	default:
		volatility = VolatilityLow
	}

	return State{
		Trend:            trend,
		TrendDescription: trendDescriptions[trend],
		Volatility:       volatility,
		Advice:           adviceFor(trend, volatility),
	}
}

// fallbackAdvice 在建议矩阵缺格时兜底，对已定义的趋势集合不会触发。
const fallbackAdvice = "市场状况不明，建议保持谨慎。"

// adviceMatrix 是 (趋势, 波动性) 到建议文案的固定映射，全部格子均已填充。
var adviceMatrix = map[Trend]map[Volatility]string{
	TrendBullMarket: {
		VolatilityHigh:   "牛市高波动，建议谨慎追高，考虑分批获利。",
		VolatilityMedium: "牛市中等波动，可适度跟进但保持风险控制。",
		VolatilityLow:    "牛市低波动，可能预示更大上涨，关注成交量变化。",
	},
	TrendUptrend: {
		VolatilityHigh:   "上升趋势高波动，适合设置止损的逢低买入策略。",
		VolatilityMedium: "稳定上升趋势，适合定投策略。",
		VolatilityLow:    "低波动上升，突破阻力位可能加速上涨。",
	},
	TrendBearMarket: {
		VolatilityHigh:   "熊市高波动，建议观望或小仓位试探，严格止损。",
		VolatilityMedium: "熊市中等波动，耐心等待抄底机会，关注基本面。",
		VolatilityLow:    "熊市低波动，可能即将出现方向性突破。",
	},
	TrendDowntrend: {
		VolatilityHigh:   "下降趋势高波动，避免抄底，等待趋势反转信号。",
		VolatilityMedium: "稳定下降趋势，保持观望或考虑对冲策略。",
		VolatilityLow:    "低波动下降，可能是下跌中继，谨慎操作。",
	},
	TrendSideways: {
		VolatilityHigh:   "横盘高波动，适合区间交易策略，关注突破方向。",
		VolatilityMedium: "横盘整理，等待明确方向，可少量布局。",
		VolatilityLow:    "低波动横盘，即将选择方向，密切关注成交量变化。",
	},
}

func adviceFor(trend Trend, volatility Volatility) string {
	if row, ok := adviceMatrix[trend]; ok {
		if advice, ok := row[volatility]; ok {
			return advice
		}
	}
	return fallbackAdvice
}

// SupportState 将研判结果折算为心理支持场景使用的市场状态标识，
// 对应鼓励内容库的建议分组；无明确方向且波动不高时为 neutral。
func (s State) SupportState() string {
	switch s.Trend {
	case TrendBullMarket, TrendUptrend:
		return "bull_market"
	case TrendBearMarket, TrendDowntrend:
		return "bear_market"
	}
	if s.Volatility == VolatilityHigh {
		return "volatile_market"
	}
	return "neutral"
}
