package intent

import "testing"

func TestClassify(t *testing.T) {
	cases := []struct {
		message string
		want    Category
	}{
		{"帮我把 100 USDT 换成 BTC", CategorySwap},
		{"I want to swap ETH for USDT", CategorySwap},
		{"请帮我设置每周定投 BTC", CategoryDCA},
		{"set up auto buy for eth", CategoryDCA},
		{"市场大跌我很焦虑", CategoryMentalSupport},
		{"btc price today?", CategoryMarketData},
		{"现在行情怎么样", CategoryMarketData},
		{"你好", CategoryGeneral},
		{"", CategoryGeneral},
	}
	for _, tc := range cases {
		if got := Classify(tc.message); got != tc.want {
			t.Errorf("Classify(%q) = %q, want %q", tc.message, got, tc.want)
		}
	}
}

// 关键词集合并不互斥，优先级顺序是裁决依据：定投优先于交换。
func TestClassifyPriority(t *testing.T) {
	if got := Classify("我想定投BTC，但也想swap一下"); got != CategoryDCA {
		t.Fatalf("期望 dca 优先于 swap，实际为 %q", got)
	}
	if got := Classify("担心价格下跌"); got != CategoryMentalSupport {
		t.Fatalf("期望 mental_support 优先于 market_data，实际为 %q", got)
	}
}

func TestExtractSymbol(t *testing.T) {
	if got := ExtractSymbol("BTC 的价格"); got != "btc" {
		t.Errorf("ExtractSymbol = %q, want %q", got, "btc")
	}
	if got := ExtractSymbol("价格怎么样"); got != "" {
		t.Errorf("没有符号时应返回空串，实际为 %q", got)
	}
}
