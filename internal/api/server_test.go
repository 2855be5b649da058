package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"HODL-Box/internal/agent"
	"HODL-Box/internal/dca"
	"HODL-Box/internal/llm"
	"HODL-Box/internal/market"
)

type stubLLM struct {
	reply string
	err   error
}

func (s *stubLLM) Generate(context.Context, llm.Request) (*llm.Response, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &llm.Response{Reply: s.reply}, nil
}

func newTestServer(swapReply, dcaReply string) *Server {
	plans := dca.NewService(dca.NewMemoryStore(), nil, 3)
	swapAgent := agent.NewSwapAgent(&stubLLM{reply: swapReply}, nil, 0)
	dcaAgent := agent.NewDCAAgent(&stubLLM{reply: dcaReply}, plans, 0)
	mentalAgent := agent.NewMentalAgent(&stubLLM{reply: "别担心，保持纪律。"}, nil, nil, 0)
	marketAgent := agent.NewMarketAgent(market.NewMockSource())
	router := agent.NewRouter(swapAgent, dcaAgent, mentalAgent, marketAgent)
	return NewServer(":0", router, swapAgent, dcaAgent, mentalAgent, marketAgent, plans)
}

func doRequest(t *testing.T, handler http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	var decoded map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid json response %q: %v", recorder.Body.String(), err)
	}
	return recorder, decoded
}

func TestHealthz(t *testing.T) {
	server := newTestServer("{}", "{}")

	recorder, decoded := doRequest(t, server.Handler(), http.MethodGet, "/healthz", "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
	if decoded["status"] != "healthy" || decoded["service"] != "HODL Box API" {
		t.Fatalf("unexpected body: %+v", decoded)
	}
}

func TestChatGeneral(t *testing.T) {
	server := newTestServer("{}", "{}")

	recorder, decoded := doRequest(t, server.Handler(), http.MethodPost, "/api/v1/chat", `{"message":"你好"}`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d, body %+v", recorder.Code, decoded)
	}
	if decoded["status"] != "success" {
		t.Fatalf("unexpected envelope: %+v", decoded)
	}
	data, ok := decoded["data"].(map[string]any)
	if !ok || data["type"] != "general" {
		t.Fatalf("unexpected data: %+v", decoded)
	}
}

func TestSwapMissingFields(t *testing.T) {
	server := newTestServer(`{"chain":"eth","tkBuy":"btc","tkSell":"","count":""}`, "{}")

	recorder, decoded := doRequest(t, server.Handler(), http.MethodPost, "/api/v1/swap", `{"message":"我想买点"}`)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d, body %+v", recorder.Code, decoded)
	}
	if decoded["error"] != "Missing required parameters" {
		t.Fatalf("unexpected error payload: %+v", decoded)
	}
	required, ok := decoded["required"].([]any)
	if !ok || len(required) != 3 {
		t.Fatalf("unexpected required list: %+v", decoded)
	}
}

func TestSwapSuccess(t *testing.T) {
	server := newTestServer(`{"chain":"eth","tkBuy":"btc","tkSell":"u","count":"100"}`, "{}")

	recorder, decoded := doRequest(t, server.Handler(), http.MethodPost, "/api/v1/swap", `{"message":"用100u换btc"}`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d, body %+v", recorder.Code, decoded)
	}
	data := decoded["data"].(map[string]any)
	swapIntent, ok := data["swap_intent"].(map[string]any)
	if !ok {
		t.Fatalf("missing swap intent: %+v", decoded)
	}
	if swapIntent["tkBuy"] != "BTC" || swapIntent["tokenOut"] != "BTC" || swapIntent["amountIn"] != "100" {
		t.Fatalf("unexpected swap intent: %+v", swapIntent)
	}
}

func TestSwapDirectFields(t *testing.T) {
	server := newTestServer("{}", "{}")

	recorder, decoded := doRequest(t, server.Handler(), http.MethodPost, "/api/v1/swap",
		`{"chain":"bsc","tkBuy":"eth","tkSell":"usdt","count":"50"}`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d, body %+v", recorder.Code, decoded)
	}
	data := decoded["data"].(map[string]any)
	swapIntent, ok := data["swap_intent"].(map[string]any)
	if !ok || swapIntent["tkBuy"] != "ETH" || swapIntent["chain"] != "BSC" {
		t.Fatalf("unexpected swap intent: %+v", decoded)
	}
}

func TestSwapDirectFieldsLongNames(t *testing.T) {
	server := newTestServer("{}", "{}")

	recorder, decoded := doRequest(t, server.Handler(), http.MethodPost, "/api/v1/swap",
		`{"tokenBuy":"BTC","tokenSell":"USDT","amount":"100"}`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d, body %+v", recorder.Code, decoded)
	}
	data := decoded["data"].(map[string]any)
	swapIntent, ok := data["swap_intent"].(map[string]any)
	if !ok {
		t.Fatalf("missing swap intent: %+v", decoded)
	}
	if swapIntent["tkBuy"] != "BTC" || swapIntent["tkSell"] != "USDT" || swapIntent["count"] != "100" {
		t.Fatalf("unexpected swap intent: %+v", swapIntent)
	}
}

func TestSwapFallsBackToFieldsOnTimeout(t *testing.T) {
	plans := dca.NewService(dca.NewMemoryStore(), nil, 3)
	swapAgent := agent.NewSwapAgent(&stubLLM{err: context.DeadlineExceeded}, nil, 0)
	dcaAgent := agent.NewDCAAgent(&stubLLM{reply: "{}"}, plans, 0)
	mentalAgent := agent.NewMentalAgent(&stubLLM{reply: "ok"}, nil, nil, 0)
	marketAgent := agent.NewMarketAgent(market.NewMockSource())
	router := agent.NewRouter(swapAgent, dcaAgent, mentalAgent, marketAgent)
	server := NewServer(":0", router, swapAgent, dcaAgent, mentalAgent, marketAgent, plans)

	recorder, decoded := doRequest(t, server.Handler(), http.MethodPost, "/api/v1/swap",
		`{"message":"用100u换btc","tokenBuy":"btc","tokenSell":"u","amount":"100"}`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d, body %+v", recorder.Code, decoded)
	}
	data := decoded["data"].(map[string]any)
	swapIntent, ok := data["swap_intent"].(map[string]any)
	if !ok || swapIntent["tkBuy"] != "BTC" || swapIntent["tkSell"] != "USDT" {
		t.Fatalf("unexpected swap intent: %+v", decoded)
	}
}

func TestSwapFallsBackToFieldsOnLLMFailure(t *testing.T) {
	plans := dca.NewService(dca.NewMemoryStore(), nil, 3)
	swapAgent := agent.NewSwapAgent(&stubLLM{err: errors.New("model offline")}, nil, 0)
	dcaAgent := agent.NewDCAAgent(&stubLLM{reply: "{}"}, plans, 0)
	mentalAgent := agent.NewMentalAgent(&stubLLM{reply: "ok"}, nil, nil, 0)
	marketAgent := agent.NewMarketAgent(market.NewMockSource())
	router := agent.NewRouter(swapAgent, dcaAgent, mentalAgent, marketAgent)
	server := NewServer(":0", router, swapAgent, dcaAgent, mentalAgent, marketAgent, plans)

	recorder, decoded := doRequest(t, server.Handler(), http.MethodPost, "/api/v1/swap",
		`{"message":"用100u换btc","tkBuy":"btc","tkSell":"u","count":"100"}`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d, body %+v", recorder.Code, decoded)
	}
	data := decoded["data"].(map[string]any)
	swapIntent, ok := data["swap_intent"].(map[string]any)
	if !ok || swapIntent["tkSell"] != "USDT" {
		t.Fatalf("unexpected swap intent: %+v", decoded)
	}
}

func TestDCACreateAndList(t *testing.T) {
	server := newTestServer("{}", `{"sourceToken":"USDT","targetToken":"BTC","amountPerInterval":100,"frequency":"daily","duration":30}`)
	handler := server.Handler()

	recorder, decoded := doRequest(t, handler, http.MethodPost, "/api/v1/dca", `{"user_id":"u-1","message":"每天定投100u买btc"}`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d, body %+v", recorder.Code, decoded)
	}

	recorder, decoded = doRequest(t, handler, http.MethodGet, "/api/v1/dca/plans?user_id=u-1", "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d, body %+v", recorder.Code, decoded)
	}
	data := decoded["data"].(map[string]any)
	plans, ok := data["plans"].([]any)
	if !ok || len(plans) != 1 {
		t.Fatalf("unexpected plans: %+v", decoded)
	}
}

func TestMentalSupport(t *testing.T) {
	server := newTestServer("{}", "{}")

	recorder, decoded := doRequest(t, server.Handler(), http.MethodPost, "/api/v1/mental-support",
		`{"message":"我很担心大跌","market_state":"bear_market"}`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d, body %+v", recorder.Code, decoded)
	}
	data := decoded["data"].(map[string]any)
	if data["detected_emotion"] != "fearful" || data["market_state"] != "bear_market" {
		t.Fatalf("unexpected data: %+v", data)
	}
}

func TestMarketData(t *testing.T) {
	server := newTestServer("{}", "{}")

	recorder, decoded := doRequest(t, server.Handler(), http.MethodPost, "/api/v1/market-data",
		`{"symbol":"btc"}`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d, body %+v", recorder.Code, decoded)
	}
	data := decoded["data"].(map[string]any)
	if _, ok := data["snapshot"].(map[string]any); !ok {
		t.Fatalf("missing snapshot: %+v", data)
	}
	if _, ok := data["market_state"].(map[string]any); !ok {
		t.Fatalf("missing market state: %+v", data)
	}
}

func TestMarketDataMissingSymbol(t *testing.T) {
	server := newTestServer("{}", "{}")

	recorder, decoded := doRequest(t, server.Handler(), http.MethodPost, "/api/v1/market-data", `{}`)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d, body %+v", recorder.Code, decoded)
	}
	if decoded["status"] != "error" {
		t.Fatalf("unexpected envelope: %+v", decoded)
	}
}
