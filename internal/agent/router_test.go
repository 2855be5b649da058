package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"HODL-Box/internal/dca"
	xerrors "HODL-Box/internal/errors"
	"HODL-Box/internal/intent"
	"HODL-Box/internal/llm"
	"HODL-Box/internal/market"
)

type stubLLM struct {
	reply string
	err   error
	wait  time.Duration
}

func (s *stubLLM) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	if s.wait > 0 {
		select {
		case <-time.After(s.wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return &llm.Response{Reply: s.reply}, nil
}

func newTestRouter(swapLLM, dcaLLM, mentalLLM llm.Client) *Router {
	service := dca.NewService(dca.NewMemoryStore(), nil, 3)
	return NewRouter(
		NewSwapAgent(swapLLM, nil, 0),
		NewDCAAgent(dcaLLM, service, 0),
		NewMentalAgent(mentalLLM, nil, nil, 0),
		NewMarketAgent(market.NewMockSource()),
	)
}

func TestRouterSwap(t *testing.T) {
	swapLLM := &stubLLM{reply: `{"chain":"eth","tkBuy":"btc","tkSell":"u","count":"100"}`}
	router := newTestRouter(swapLLM, nil, nil)

	result, err := router.Handle(context.Background(), ChatRequest{Message: "帮我买100u的btc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Type != "swap" || result.Swap == nil {
		t.Fatalf("unexpected result: %+v", result)
	}
	swapIntent := result.Swap.Intent
	if swapIntent.Chain != "Ethereum" || swapIntent.TkBuy != "BTC" || swapIntent.TkSell != "USDT" {
		t.Fatalf("intent not normalized: %+v", swapIntent)
	}
	if swapIntent.TokenIn != "USDT" || swapIntent.TokenOut != "BTC" || swapIntent.AmountIn != "100" {
		t.Fatalf("alias fields mismatch: %+v", swapIntent)
	}
}

func TestRouterSwapMissingFields(t *testing.T) {
	swapLLM := &stubLLM{reply: `{"chain":"eth","tkBuy":"btc","tkSell":"","count":""}`}
	router := newTestRouter(swapLLM, nil, nil)

	_, err := router.Handle(context.Background(), ChatRequest{Message: "我想买点"})
	var missing *intent.MissingFieldError
	if !errors.As(err, &missing) {
		t.Fatalf("expected missing field error, got %v", err)
	}
	if len(missing.Provided) != 2 {
		t.Fatalf("unexpected provided list: %+v", missing.Provided)
	}
}

func TestRouterDCA(t *testing.T) {
	dcaLLM := &stubLLM{reply: `{"sourceToken":"USDT","targetToken":"BTC","amountPerInterval":100,"frequency":"weekly","duration":12}`}
	router := newTestRouter(nil, dcaLLM, nil)

	result, err := router.Handle(context.Background(), ChatRequest{UserID: "u-1", Message: "每周定投100u买btc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Type != "dca" || result.DCA == nil || result.DCA.Plan == nil {
		t.Fatalf("unexpected result: %+v", result)
	}
	plan := result.DCA.Plan
	if plan.SourceToken != "USDT" || plan.TargetToken != "BTC" || plan.Frequency != dca.FrequencyWeekly {
		t.Fatalf("unexpected plan: %+v", plan)
	}
	if plan.DurationIntervals != 12 || plan.UserID != "u-1" {
		t.Fatalf("unexpected plan: %+v", plan)
	}
}

func TestRouterMentalSupportFallback(t *testing.T) {
	mentalLLM := &stubLLM{err: errors.New("llm unavailable")}
	router := newTestRouter(nil, nil, mentalLLM)

	result, err := router.Handle(context.Background(), ChatRequest{Message: "我很焦虑，btc又跌了"})
	if err != nil {
		t.Fatalf("mental support must not fail: %v", err)
	}
	if result.Type != "mental_support" || result.Support == nil {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Support.DetectedEmotion != "fearful" {
		t.Fatalf("unexpected emotion: %+v", result.Support)
	}
	if result.Support.Reply != fallbackSupportReply {
		t.Fatalf("expected fallback reply, got %q", result.Support.Reply)
	}
	if result.Support.Motivation == "" {
		t.Fatalf("motivation missing: %+v", result.Support)
	}
}

func TestRouterMarketData(t *testing.T) {
	router := newTestRouter(nil, nil, nil)

	result, err := router.Handle(context.Background(), ChatRequest{Message: "市场行情 btc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Type != "market_data" || result.Market == nil {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Market.Snapshot.Symbol == "" || result.Market.State == nil {
		t.Fatalf("unexpected report: %+v", result.Market)
	}
}

func TestRouterMarketDataClarification(t *testing.T) {
	router := newTestRouter(nil, nil, nil)

	result, err := router.Handle(context.Background(), ChatRequest{Message: "行情怎么样"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Type != "clarification" || result.Message != clarificationReply {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestRouterGeneralFallback(t *testing.T) {
	router := newTestRouter(nil, nil, nil)

	result, err := router.Handle(context.Background(), ChatRequest{Message: "你好"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Type != "general" || result.Message != generalReply {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestRouterEmptyMessage(t *testing.T) {
	router := newTestRouter(nil, nil, nil)

	_, err := router.Handle(context.Background(), ChatRequest{Message: "   "})
	if xerrors.CodeOf(err) != xerrors.CodeMissingField {
		t.Fatalf("expected missing field code, got %v", err)
	}
}

func TestRouterDCAPrecedesSwap(t *testing.T) {
	dcaLLM := &stubLLM{reply: `{"sourceToken":"USDT","targetToken":"ETH","amountPerInterval":50,"frequency":"daily","duration":0}`}
	router := newTestRouter(&stubLLM{reply: "{}"}, dcaLLM, nil)

	// 消息同时包含定投与买入关键词，定投规则先判。
	result, err := router.Handle(context.Background(), ChatRequest{Message: "帮我定投买eth"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Type != "dca" {
		t.Fatalf("expected dca route, got %+v", result)
	}
}
