package emotion

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"strings"
)

// Library 持有心理支持场景使用的静态内容：通用语录、
// 按市场状态分组的建议以及按情绪追加的鼓励语。
// 内容在初始化后只读，可被多个请求并发使用。
type Library struct {
	quotes       []string
	marketAdvice map[string][]string
	pick         func(n int) int
}

// libraryFile 是可选的外部内容文件结构。
type libraryFile struct {
	Quotes       []string            `json:"quotes"`
	MarketAdvice map[string][]string `json:"market_advice"`
}

// NewLibrary 以内置内容创建 Library。
func NewLibrary() *Library {
	return &Library{
		quotes:       defaultQuotes,
		marketAdvice: defaultMarketAdvice,
		pick:         rand.Intn,
	}
}

// LoadLibrary 从 JSON 文件加载内容条目，缺失的部分回落到内置内容。
func LoadLibrary(path string) (*Library, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("内容文件路径不能为空")
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取内容文件失败: %w", err)
	}

	var parsed libraryFile
	if err := json.Unmarshal(content, &parsed); err != nil {
		return nil, fmt.Errorf("解析内容文件失败: %w", err)
	}

	lib := NewLibrary()
	if len(parsed.Quotes) > 0 {
		lib.quotes = parsed.Quotes
	}
	if len(parsed.MarketAdvice) > 0 {
		lib.marketAdvice = parsed.MarketAdvice
	}
	return lib, nil
}

// Motivate 依据情绪与市场状态组合一段鼓励内容：
// 随机语录 + 市场建议（如有）+ 情绪针对性鼓励（如有）。
func (l *Library) Motivate(label Label, marketState string) string {
	if l == nil || len(l.quotes) == 0 {
		return ""
	}

	var builder strings.Builder
	builder.WriteString(l.quotes[l.pick(len(l.quotes))])

	if advice, ok := l.marketAdvice[strings.TrimSpace(marketState)]; ok && len(advice) > 0 {
		builder.WriteString("\n\n市场建议：\n")
		builder.WriteString(advice[l.pick(len(advice))])
	}

	if line, ok := encouragements[label]; ok {
		builder.WriteString("\n\n")
		builder.WriteString(line)
	}
	return builder.String()
}

// encouragements 按情绪追加的单句鼓励，neutral 不追加。
var encouragements = map[Label]string{
	LabelFearful:    "记住，长期来看，坚持投资纪律比短期市场波动更重要。",
	LabelExcited:    "保持冷静，理性评估市场，不要被短期收益冲昏头脑。",
	LabelFrustrated: "市场调整是正常的，这往往是为下一次上涨做准备。",
}

var defaultQuotes = []string{
	"市场波动是暂时的，价值积累是永恒的。",
	"不要让恐惧或贪婪控制你的投资决策。",
	"在别人恐惧时贪婪，在别人贪婪时恐惧。",
	"投资是一场马拉松，不是短跑。",
	"熊市为长期投资者创造最佳入场机会。",
	"耐心是投资者最宝贵的品质之一。",
	"不要试图预测市场底部或顶部，关注长期价值。",
	"波动性是加密市场的常态，保持冷静是成功的关键。",
	"持续定投策略能帮助你平滑市场波动风险。",
	"坚持你的投资计划，不要被短期价格波动干扰。",
}

var defaultMarketAdvice = map[string][]string{
	"bull_market": {
		"牛市中保持谨慎，不要过度杠杆或FOMO追高。",
		"考虑在价格大幅上涨时分批获利，设置止盈点。",
		"牛市往往伴随着泡沫，保持理性评估资产价值。",
		"记住历史规律：牛市之后通常会有调整。",
		"利用牛市积累的利润为熊市做准备。",
	},
	"bear_market": {
		"熊市是积累优质资产的最佳时机。",
		"坚持定投计划，降低平均成本。",
		"关注项目基本面，而非短期价格走势。",
		"熊市不会永远持续，历史上每次熊市后都会迎来复苏。",
		"利用这段时间学习和提升你的投资知识。",
	},
	"volatile_market": {
		"市场剧烈波动时，保持冷静尤为重要。",
		"避免在高波动期间做出冲动决策。",
		"考虑增加稳定币储备，等待更好的入场机会。",
		"回顾你的长期投资目标，重新聚焦。",
		"波动性增加意味着风险上升，确保你的风险暴露在可控范围内。",
	},
}
