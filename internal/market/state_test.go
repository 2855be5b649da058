package market

import (
	"math"
	"testing"
)

func TestAnalyzeTrend(t *testing.T) {
	cases := []struct {
		change24h, change7d float64
		trend               Trend
		volatility          Volatility
	}{
		{6, 12, TrendBullMarket, VolatilityHigh},
		{0.2, 0.1, TrendUptrend, VolatilityLow},
		{2, 3, TrendUptrend, VolatilityMedium},
		{-6, -12, TrendBearMarket, VolatilityHigh},
		{-0.5, -2, TrendDowntrend, VolatilityLow},
		{0, 0, TrendSideways, VolatilityLow},
		{3, -1, TrendSideways, VolatilityMedium},
	}
	for _, tc := range cases {
		got := Analyze(tc.change24h, tc.change7d)
		if got.Trend != tc.trend {
			t.Errorf("Analyze(%v, %v).Trend = %q, want %q", tc.change24h, tc.change7d, got.Trend, tc.trend)
		}
		if got.Volatility != tc.volatility {
			t.Errorf("Analyze(%v, %v).Volatility = %q, want %q", tc.change24h, tc.change7d, got.Volatility, tc.volatility)
		}
	}
}

// 趋势分支不互斥，顺序即裁决规则：6/12 同时满足牛市与上升趋势，牛市在先。
func TestAnalyzeBranchOrder(t *testing.T) {
	got := Analyze(6, 12)
	if got.Trend != TrendBullMarket {
		t.Fatalf("期望 bull_market，实际为 %q", got.Trend)
	}
	if got.TrendDescription != "强劲牛市" {
		t.Fatalf("unexpected description: %q", got.TrendDescription)
	}
}

func TestAnalyzeAdvicePopulated(t *testing.T) {
	trends := []struct{ c24, c7 float64 }{
		{6, 12}, {2, 3}, {-6, -12}, {-2, -3}, {0, 0},
		{6, 1}, {-6, -1}, {1.5, -1}, {0.5, 0.5},
	}
	for _, tc := range trends {
		got := Analyze(tc.c24, tc.c7)
		if got.Advice == "" || got.Advice == fallbackAdvice {
			t.Errorf("Analyze(%v, %v) 缺少建议文案: %+v", tc.c24, tc.c7, got)
		}
	}
}

// NaN 输入的全部比较为假，落入 sideways/low。
func TestAnalyzeNaN(t *testing.T) {
	inputs := [][2]float64{
		{math.NaN(), math.NaN()},
		{math.NaN(), 12},
	}
	for _, in := range inputs {
		got := Analyze(in[0], in[1])
		if got.Trend != TrendSideways || got.Volatility != VolatilityLow {
			t.Errorf("Analyze(%v, %v) = %q/%q, want sideways/low", in[0], in[1], got.Trend, got.Volatility)
		}
	}
}

// 无穷输入按普通数值参与比较：单侧 +Inf 不构成趋势，但波动性为 high。
func TestAnalyzeInf(t *testing.T) {
	got := Analyze(math.Inf(1), math.NaN())
	if got.Trend != TrendSideways || got.Volatility != VolatilityHigh {
		t.Fatalf("Analyze(+Inf, NaN) = %q/%q, want sideways/high", got.Trend, got.Volatility)
	}
}

func TestSupportState(t *testing.T) {
	cases := []struct {
		c24, c7 float64
		want    string
	}{
		{6, 12, "bull_market"},
		{-6, -12, "bear_market"},
		{4, -1, "volatile_market"},
		{0.2, -0.1, "neutral"},
	}
	for _, tc := range cases {
		if got := Analyze(tc.c24, tc.c7).SupportState(); got != tc.want {
			t.Errorf("SupportState(%v, %v) = %q, want %q", tc.c24, tc.c7, got, tc.want)
		}
	}
}
