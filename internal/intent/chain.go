package intent

import "strings"

// DefaultChain 是未指定链时使用的占位名称，由下游执行层解析为实际网络。
const DefaultChain = "default"

// chainAliases 将常见链名的小写写法映射为规范显示名。
var chainAliases = map[string]string{
	"eth":     "Ethereum",
	"btc":     "Bitcoin",
	"bsc":     "BSC",
	"polygon": "Polygon",
	"matic":   "Polygon",
	"avax":    "Avalanche",
	"sol":     "Solana",
}

// NormalizeChain 将任意写法的链名归一化为规范显示名。
// 空输入返回 DefaultChain，未知链名首字母大写后透传。
func NormalizeChain(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	if lowered == "" {
		return DefaultChain
	}
	if canonical, ok := chainAliases[lowered]; ok {
		return canonical
	}
	return capitalize(lowered)
}

// capitalize 仅将首字符转为大写，其余保持小写。
func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
