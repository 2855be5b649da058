package hodlbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"
)

// DefaultHTTPTimeout defines the timeout used by clients created without a
// custom http.Client. It is intentionally short to avoid hanging network calls.
const DefaultHTTPTimeout = 15 * time.Second

// Client wraps the HTTP interactions with the HODL Box REST API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// Health mirrors the health check payload.
type Health struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

// ChatRequest is a single conversational turn.
type ChatRequest struct {
	UserID  string `json:"user_id,omitempty"`
	Message string `json:"message"`
}

// SwapIntent is the normalized result of parsing a swap instruction.
type SwapIntent struct {
	Chain     string `json:"chain"`
	TkBuy     string `json:"tkBuy"`
	TkSell    string `json:"tkSell"`
	Count     string `json:"count"`
	TokenIn   string `json:"tokenIn"`
	TokenOut  string `json:"tokenOut"`
	Amount    string `json:"amount"`
	AmountIn  string `json:"amountIn"`
	Timestamp string `json:"timestamp"`
	Valid     bool   `json:"valid"`
}

// SwapTicket carries on-chain preparation details for a swap.
type SwapTicket struct {
	Chain       string `json:"chain"`
	TokenIn     string `json:"token_in"`
	TokenOut    string `json:"token_out"`
	AmountIn    string `json:"amount_in"`
	GasPriceWei string `json:"gas_price_wei"`
	Reference   string `json:"reference"`
}

// SwapOutcome is the response of the swap endpoint.
type SwapOutcome struct {
	OriginalMessage string      `json:"original_message,omitempty"`
	Intent          *SwapIntent `json:"swap_intent"`
	Ticket          *SwapTicket `json:"ticket,omitempty"`
	Observations    string      `json:"observations,omitempty"`
}

// Plan describes a dollar-cost-averaging plan.
type Plan struct {
	ID                string `json:"id"`
	UserID            string `json:"user_id"`
	Chain             string `json:"chain"`
	SourceToken       string `json:"source_token"`
	TargetToken       string `json:"target_token"`
	AmountPerInterval string `json:"amount_per_interval"`
	Frequency         string `json:"frequency"`
	DurationIntervals int    `json:"duration_intervals"`
	ExecutedCount     int    `json:"executed_count"`
	Status            string `json:"status"`
	LastError         string `json:"last_error,omitempty"`
	LastReference     string `json:"last_reference,omitempty"`
	NextRunAt         int64  `json:"next_run_at"`
	CreatedAt         int64  `json:"created_at"`
	UpdatedAt         int64  `json:"updated_at"`
}

// DCAOutcome is the response of the plan creation endpoint.
type DCAOutcome struct {
	Plan *Plan `json:"plan"`
}

// SupportOutcome is the response of the mental support endpoint.
type SupportOutcome struct {
	DetectedEmotion string `json:"detected_emotion"`
	MarketState     string `json:"market_state"`
	Reply           string `json:"response"`
	Motivation      string `json:"motivational_content"`
}

// MarketRequest selects the asset and quote currency for a market data call.
type MarketRequest struct {
	Symbol             string `json:"symbol"`
	VsCurrency         string `json:"vs_currency,omitempty"`
	IncludeMarketState *bool  `json:"include_market_state,omitempty"`
}

// Snapshot is a point-in-time market quote.
type Snapshot struct {
	Symbol     string  `json:"symbol"`
	Price      float64 `json:"price"`
	Change24h  float64 `json:"price_change_percentage_24h"`
	Change7d   float64 `json:"price_change_percentage_7d"`
	VsCurrency string  `json:"vs_currency"`
	Timestamp  string  `json:"timestamp"`
	Source     string  `json:"source"`
}

// MarketState is the derived trend and volatility assessment.
type MarketState struct {
	Trend            string `json:"trend"`
	TrendDescription string `json:"trend_description"`
	Volatility       string `json:"volatility"`
	Advice           string `json:"advice"`
}

// MarketReport is the response of the market data endpoint.
type MarketReport struct {
	Snapshot Snapshot     `json:"snapshot"`
	State    *MarketState `json:"market_state,omitempty"`
}

// ChatResult is the routed response of the chat endpoint.
type ChatResult struct {
	Type    string          `json:"type"`
	Swap    *SwapOutcome    `json:"swap,omitempty"`
	DCA     *DCAOutcome     `json:"dca,omitempty"`
	Support *SupportOutcome `json:"support,omitempty"`
	Market  *MarketReport   `json:"market,omitempty"`
	Message string          `json:"message,omitempty"`
}

// APIError represents server side validation or internal errors.
type APIError struct {
	StatusCode int
	Message    string   `json:"error"`
	Required   []string `json:"required,omitempty"`
	Provided   []string `json:"provided,omitempty"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("hodlbox api error (%d): %s", e.StatusCode, e.Message)
}

// NewClient instantiates a client for the HODL Box API. When httpClient is
// nil, a default client with a sensible timeout is used.
func NewClient(rawURL string, httpClient *http.Client) *Client {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		panic(fmt.Sprintf("invalid base url: %v", err))
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &Client{baseURL: parsed, httpClient: httpClient}
}

// Health reports whether the service is reachable.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var health Health
	if err := c.get(ctx, "/healthz", &health); err != nil {
		return Health{}, err
	}
	return health, nil
}

// Chat sends a free-form message and returns the routed result.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (ChatResult, error) {
	var result ChatResult
	if err := c.post(ctx, "/api/v1/chat", req, &result); err != nil {
		return ChatResult{}, err
	}
	return result, nil
}

// ParseSwap extracts a swap intent from a natural language instruction.
func (c *Client) ParseSwap(ctx context.Context, message, chain string) (SwapOutcome, error) {
	var outcome SwapOutcome
	payload := struct {
		Message string `json:"message"`
		Chain   string `json:"chain,omitempty"`
	}{Message: message, Chain: chain}
	if err := c.post(ctx, "/api/v1/swap", payload, &outcome); err != nil {
		return SwapOutcome{}, err
	}
	return outcome, nil
}

// CreateDCAPlan parses a natural language instruction into a recurring plan.
func (c *Client) CreateDCAPlan(ctx context.Context, userID, message string) (DCAOutcome, error) {
	var outcome DCAOutcome
	payload := struct {
		UserID  string `json:"user_id"`
		Message string `json:"message"`
	}{UserID: userID, Message: message}
	if err := c.post(ctx, "/api/v1/dca", payload, &outcome); err != nil {
		return DCAOutcome{}, err
	}
	return outcome, nil
}

// ListDCAPlans returns the plans of a user, or all plans when userID is empty.
func (c *Client) ListDCAPlans(ctx context.Context, userID string) ([]Plan, error) {
	endpoint := "/api/v1/dca/plans"
	if userID != "" {
		endpoint += "?user_id=" + url.QueryEscape(userID)
	}
	var wrapper struct {
		Plans []Plan `json:"plans"`
	}
	if err := c.get(ctx, endpoint, &wrapper); err != nil {
		return nil, err
	}
	return wrapper.Plans, nil
}

// MentalSupport requests an empathetic reply for an investor message.
func (c *Client) MentalSupport(ctx context.Context, userID, message, marketState string) (SupportOutcome, error) {
	var outcome SupportOutcome
	payload := struct {
		UserID      string `json:"user_id,omitempty"`
		Message     string `json:"message"`
		MarketState string `json:"market_state,omitempty"`
	}{UserID: userID, Message: message, MarketState: marketState}
	if err := c.post(ctx, "/api/v1/mental-support", payload, &outcome); err != nil {
		return SupportOutcome{}, err
	}
	return outcome, nil
}

// MarketData fetches a quote and the derived market state.
func (c *Client) MarketData(ctx context.Context, req MarketRequest) (MarketReport, error) {
	var report MarketReport
	if err := c.post(ctx, "/api/v1/market-data", req, &report); err != nil {
		return MarketReport{}, err
	}
	return report, nil
}

func (c *Client) post(ctx context.Context, endpoint string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}
	rel := &url.URL{Path: path.Join(c.baseURL.Path, parsed.Path), RawQuery: parsed.RawQuery}
	u := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if len(data) > 0 {
			_ = json.Unmarshal(data, apiErr)
		}
		if apiErr.Message == "" {
			apiErr.Message = string(bytes.TrimSpace(data))
		}
		return apiErr
	}

	if out == nil {
		return nil
	}

	// Health is returned flat; every other endpoint wraps its payload in a
	// status/data envelope.
	var envelope struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if envelope.Status == "success" && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("decode response data: %w", err)
		}
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
