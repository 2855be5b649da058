package market

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCoinGeckoSourceFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/coins/markets" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("ids"); got != "bitcoin" {
			t.Errorf("符号应映射为 coin ID: %s", got)
		}
		if got := r.URL.Query().Get("price_change_percentage"); got != "24h,7d" {
			t.Errorf("unexpected price_change_percentage: %s", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"symbol":"btc","current_price":42000,` +
			`"price_change_percentage_24h_in_currency":1.5,` +
			`"price_change_percentage_7d_in_currency":4.2}]`))
	}))
	defer server.Close()

	source := NewCoinGeckoSource(Config{BaseURL: server.URL})
	snapshot, err := source.Fetch(context.Background(), "BTC", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snapshot.Symbol != "BTC" || snapshot.Price != 42000 {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}
	if snapshot.Change24h != 1.5 || snapshot.Change7d != 4.2 {
		t.Fatalf("unexpected changes: %+v", snapshot)
	}
	if snapshot.VsCurrency != "USD" {
		t.Fatalf("vs_currency 默认应为 USD: %+v", snapshot)
	}
}

func TestCoinGeckoSourceUnmappedSymbolPassesThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("ids"); got != "dogecoin" {
			t.Errorf("表外符号应原样透传: %s", got)
		}
		_, _ = w.Write([]byte(`[{"symbol":"doge","current_price":0.1}]`))
	}))
	defer server.Close()

	source := NewCoinGeckoSource(Config{BaseURL: server.URL})
	snapshot, err := source.Fetch(context.Background(), "DOGECOIN", "usd")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snapshot.Price != 0.1 {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}
}

func TestCoinGeckoSourceUnknownSymbol(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	source := NewCoinGeckoSource(Config{BaseURL: server.URL})
	if _, err := source.Fetch(context.Background(), "nosuch", "usd"); err == nil {
		t.Fatalf("expected error for unknown symbol")
	}
}

func TestMockSourceDeterministic(t *testing.T) {
	source := NewMockSource()
	first, err := source.Fetch(context.Background(), "btc", "usd")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, _ := source.Fetch(context.Background(), "btc", "usd")
	if first.Change24h != second.Change24h || first.Change7d != second.Change7d {
		t.Fatalf("同一符号的模拟行情应当可复现: %+v vs %+v", first, second)
	}
	if first.Price != 42000.0 {
		t.Fatalf("unexpected mock price: %+v", first)
	}
}

type failingSource struct{}

func (failingSource) Fetch(context.Context, string, string) (Snapshot, error) {
	return Snapshot{}, errors.New("connection refused")
}

func TestFallbackSource(t *testing.T) {
	source := NewFallbackSource(failingSource{}, NewMockSource())
	snapshot, err := source.Fetch(context.Background(), "eth", "usd")
	if err != nil {
		t.Fatalf("降级路径不应报错: %v", err)
	}
	if snapshot.Source != "Mock Data" {
		t.Fatalf("expected mock fallback, got %+v", snapshot)
	}
}
