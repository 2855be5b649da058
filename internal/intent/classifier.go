package intent

import (
	"regexp"
	"strings"
)

// Category 是消息被路由到的领域类别。
type Category string

const (
	CategoryDCA           Category = "dca"
	CategorySwap          Category = "swap"
	CategoryMentalSupport Category = "mental_support"
	CategoryMarketData    Category = "market_data"
	CategoryGeneral       Category = "general"
)

// rule 表示一条按序求值的关键词规则。
type rule struct {
	category Category
	keywords []string
}

// classifyRules 按优先级排列的分类规则。各类关键词并不互斥，
// 顺序即为裁决顺序：定投意图优先于交换意图，不可随意调整。
var classifyRules = []rule{
	{CategoryDCA, []string{"定投", "dca", "invest", "auto buy"}},
	{CategorySwap, []string{"换", "交换", "swap", "buy", "sell", "买", "卖"}},
	{CategoryMentalSupport, []string{"心情", "焦虑", "担心", "恐惧", "支持", "鼓励"}},
	{CategoryMarketData, []string{"价格", "市场", "行情", "price", "market", "trend"}},
}

// symbolPattern 从行情类消息中提取 2-5 位字母的代币符号。
var symbolPattern = regexp.MustCompile(`[a-zA-Z]{2,5}`)

// Classify 判定消息所属的领域类别，首个命中的规则获胜，
// 无任何命中时回落到 general。
func Classify(message string) Category {
	lowered := strings.ToLower(message)
	for _, r := range classifyRules {
		for _, keyword := range r.keywords {
			if strings.Contains(lowered, keyword) {
				return r.category
			}
		}
	}
	return CategoryGeneral
}

// ExtractSymbol 在行情类消息中寻找代币符号。
// 未找到时返回空串，由调用方转为澄清请求。
func ExtractSymbol(message string) string {
	return symbolPattern.FindString(strings.ToLower(message))
}
