package intent

import "testing"

func TestNormalizeTokenAliases(t *testing.T) {
	cases := map[string]string{
		"btc":    "BTC",
		"BTC":    "BTC",
		" eth ":  "ETH",
		"u":      "USDT",
		"U":      "USDT",
		"matic":  "MATIC",
		"pepe":   "PEPE",
		"100u":   "USDT",
		"0.5u":   "USDT",
		"12.5 u": "USDT",
	}
	for raw, want := range cases {
		if got := NormalizeToken(raw); got != want {
			t.Errorf("NormalizeToken(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestNormalizeTokenIdempotent(t *testing.T) {
	inputs := []string{"btc", "100u", "u", "unknown", "Shib", ""}
	for _, raw := range inputs {
		once := NormalizeToken(raw)
		twice := NormalizeToken(once)
		if once != twice {
			t.Errorf("NormalizeToken 不是幂等的: %q -> %q -> %q", raw, once, twice)
		}
	}
}

func TestNormalizeChain(t *testing.T) {
	cases := map[string]string{
		"":            "default",
		"   ":         "default",
		"eth":         "Ethereum",
		"ETH":         "Ethereum",
		"bsc":         "BSC",
		"matic":       "Polygon",
		"polygon":     "Polygon",
		"sol":         "Solana",
		"randomchain": "Randomchain",
	}
	for raw, want := range cases {
		if got := NormalizeChain(raw); got != want {
			t.Errorf("NormalizeChain(%q) = %q, want %q", raw, got, want)
		}
	}
}
