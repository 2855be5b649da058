package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"HODL-Box/pkg/logger"
)

const (
	defaultBaseURL = "https://api.coingecko.com/api/v3"
	defaultTimeout = 10 * time.Second
)

// Snapshot 是一次行情查询的结果。
type Snapshot struct {
	Symbol     string  `json:"symbol"`
	Price      float64 `json:"price"`
	Change24h  float64 `json:"price_change_percentage_24h"`
	Change7d   float64 `json:"price_change_percentage_7d"`
	VsCurrency string  `json:"vs_currency"`
	Timestamp  string  `json:"timestamp"`
	Source     string  `json:"source"`
}

// Source 定义行情数据源的统一接口。
type Source interface {
	Fetch(ctx context.Context, symbol, vsCurrency string) (Snapshot, error)
}

// Config 描述调用行情 API 所需的信息。
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// CoinGeckoSource 通过 CoinGecko simple/price 接口获取行情。
type CoinGeckoSource struct {
	baseURL    string
	httpClient *http.Client
}

// NewCoinGeckoSource 根据配置创建行情客户端。
func NewCoinGeckoSource(cfg Config) *CoinGeckoSource {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &CoinGeckoSource{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// coinGeckoIDs 把常见代币符号映射到 CoinGecko 的 coin ID，
// 接口按 ID 而非符号检索。表外符号原样小写透传，由调用方自行保证是合法 ID。
var coinGeckoIDs = map[string]string{
	"btc":  "bitcoin",
	"eth":  "ethereum",
	"usdt": "tether",
	"usdc": "usd-coin",
	"bnb":  "binancecoin",
	"sol":  "solana",
	"ada":  "cardano",
	"dot":  "polkadot",
	"link": "chainlink",
	"uni":  "uniswap",
}

// Fetch 查询指定代币的价格与涨跌幅。
func (s *CoinGeckoSource) Fetch(ctx context.Context, symbol, vsCurrency string) (Snapshot, error) {
	symbol = strings.ToLower(strings.TrimSpace(symbol))
	if symbol == "" {
		return Snapshot{}, fmt.Errorf("行情查询缺少代币符号")
	}
	vsCurrency = normalizeVsCurrency(vsCurrency)

	coinID, ok := coinGeckoIDs[symbol]
	if !ok {
		coinID = symbol
	}

	query := url.Values{}
	query.Set("vs_currency", vsCurrency)
	query.Set("ids", coinID)
	query.Set("price_change_percentage", "24h,7d")
	endpoint := s.baseURL + "/coins/markets?" + query.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Snapshot{}, fmt.Errorf("构建行情请求失败: %w", err)
	}

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return Snapshot{}, fmt.Errorf("请求行情数据失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return Snapshot{}, fmt.Errorf("行情接口返回错误状态 %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded []struct {
		Symbol    string  `json:"symbol"`
		Price     float64 `json:"current_price"`
		Change24h float64 `json:"price_change_percentage_24h_in_currency"`
		Change7d  float64 `json:"price_change_percentage_7d_in_currency"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Snapshot{}, fmt.Errorf("解析行情响应失败: %w", err)
	}
	if len(decoded) == 0 {
		return Snapshot{}, fmt.Errorf("行情接口未返回 %s 的数据", symbol)
	}

	return Snapshot{
		Symbol:     strings.ToUpper(symbol),
		Price:      decoded[0].Price,
		Change24h:  decoded[0].Change24h,
		Change7d:   decoded[0].Change7d,
		VsCurrency: strings.ToUpper(vsCurrency),
		Timestamp:  time.Now().Format(time.RFC3339),
		Source:     "CoinGecko API",
	}, nil
}

// mockPrices 是演示与降级场景使用的静态价格表。
var mockPrices = map[string]float64{
	"btc":  42000.0,
	"eth":  2800.0,
	"usdt": 1.0,
	"usdc": 1.0,
	"bnb":  350.0,
	"sol":  120.0,
	"ada":  0.5,
	"dot":  8.0,
	"link": 15.0,
	"uni":  7.5,
}

// MockSource 返回确定性的模拟行情，用于测试和外部数据源不可用时的降级。
type MockSource struct{}

// NewMockSource 创建模拟行情数据源。
func NewMockSource() *MockSource {
	return &MockSource{}
}

// Fetch 按符号生成稳定的伪随机涨跌幅，保证同一符号结果可复现。
func (s *MockSource) Fetch(_ context.Context, symbol, vsCurrency string) (Snapshot, error) {
	symbol = strings.ToLower(strings.TrimSpace(symbol))
	if symbol == "" {
		return Snapshot{}, fmt.Errorf("行情查询缺少代币符号")
	}
	vsCurrency = normalizeVsCurrency(vsCurrency)

	price, ok := mockPrices[symbol]
	if !ok {
		price = 100.0
	}

	seed := 0
	for _, r := range symbol {
		seed += int(r)
	}
	change24h := float64(seed%100)/10.0 - 5.0
	change7d := float64(seed%200)/10.0 - 10.0

	return Snapshot{
		Symbol:     strings.ToUpper(symbol),
		Price:      price,
		Change24h:  change24h,
		Change7d:   change7d,
		VsCurrency: strings.ToUpper(vsCurrency),
		Timestamp:  time.Now().Format(time.RFC3339),
		Source:     "Mock Data",
	}, nil
}

// FallbackSource 先尝试主数据源，失败时回落到备用数据源，
// 保证行情查询不会因外部接口故障而失败。
type FallbackSource struct {
	primary  Source
	fallback Source
}

// NewFallbackSource 组合主备行情数据源。
func NewFallbackSource(primary, fallback Source) *FallbackSource {
	return &FallbackSource{primary: primary, fallback: fallback}
}

// Fetch 实现 Source 接口。
func (s *FallbackSource) Fetch(ctx context.Context, symbol, vsCurrency string) (Snapshot, error) {
	if s.primary != nil {
		snapshot, err := s.primary.Fetch(ctx, symbol, vsCurrency)
		if err == nil {
			return snapshot, nil
		}
		logger.L().Warn("主行情数据源失败，切换到备用数据源",
			slog.String("symbol", symbol), slog.Any("error", err))
	}
	if s.fallback == nil {
		return Snapshot{}, fmt.Errorf("行情数据源未配置")
	}
	return s.fallback.Fetch(ctx, symbol, vsCurrency)
}

func normalizeVsCurrency(vsCurrency string) string {
	vsCurrency = strings.ToLower(strings.TrimSpace(vsCurrency))
	if vsCurrency == "" {
		return "usd"
	}
	return vsCurrency
}
