package intent

import (
	"regexp"
	"strings"
)

// tokenAliases 将常见代币的小写写法映射为规范符号。
var tokenAliases = map[string]string{
	"btc":  "BTC",
	"eth":  "ETH",
	"usdt": "USDT",
	"usdc": "USDC",
	"bnb":  "BNB",
	"sol":  "SOL",
	"ada":  "ADA",
	"dot":  "DOT",
	"link": "LINK",
	"uni":  "UNI",
	"aave": "AAVE",
	"mkr":  "MKR",
	"doge": "DOGE",
	"shib": "SHIB",
	"avax": "AVAX",
	"xrp":  "XRP",
	"u":    "USDT",
}

// amountShorthandPattern 匹配 "100u" 这类带数量的 USDT 简写。
// 数字部分由调用方单独提取，这里只负责识别币种。
var amountShorthandPattern = regexp.MustCompile(`^\d+(?:\.\d+)?\s*u$`)

// NormalizeToken 将任意写法的代币名归一化为规范符号。
// 未知代币不会被拒绝，而是原样转为大写返回。
func NormalizeToken(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	if canonical, ok := tokenAliases[lowered]; ok {
		return canonical
	}
	if amountShorthandPattern.MatchString(lowered) {
		return "USDT"
	}
	return strings.ToUpper(lowered)
}
