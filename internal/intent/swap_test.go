package intent

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestExtractSwapSuccess(t *testing.T) {
	got, err := ExtractSwap(SwapFields{TokenBuy: "BTC", TokenSell: "USDT", Amount: "100"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Valid {
		t.Fatalf("期望 valid=true，实际为 %+v", got)
	}
	if got.TkBuy != "BTC" || got.TkSell != "USDT" {
		t.Fatalf("unexpected tokens: %+v", got)
	}
	if got.TokenIn != "USDT" || got.TokenOut != "BTC" {
		t.Fatalf("别名字段未镜像: %+v", got)
	}
	if got.Count != "100" || got.Amount != "100" || got.AmountIn != "100" {
		t.Fatalf("数量字段应保留原文: %+v", got)
	}
	if got.Chain != DefaultChain {
		t.Fatalf("未指定链时应为 default，实际为 %q", got.Chain)
	}
	if got.Timestamp == "" {
		t.Fatalf("缺少时间戳")
	}
}

func TestExtractSwapNormalizesFields(t *testing.T) {
	got, err := ExtractSwap(SwapFields{Chain: "matic", TokenBuy: "eth", TokenSell: "100u", Amount: "100"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Chain != "Polygon" {
		t.Errorf("chain = %q, want Polygon", got.Chain)
	}
	if got.TkBuy != "ETH" || got.TkSell != "USDT" {
		t.Errorf("unexpected tokens: %+v", got)
	}
}

func TestExtractSwapMissingFields(t *testing.T) {
	_, err := ExtractSwap(SwapFields{TokenBuy: "BTC"})
	if err == nil {
		t.Fatalf("expected validation error")
	}
	var missing *MissingFieldError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingFieldError, got %T", err)
	}
	if len(missing.Required) != 3 {
		t.Fatalf("required 应列出全部必填字段: %+v", missing.Required)
	}
	if len(missing.Provided) != 1 || missing.Provided[0] != "tkBuy" {
		t.Fatalf("provided 应只包含 tkBuy: %+v", missing.Provided)
	}
}

func TestSwapFieldsUnmarshalAcceptsBothNamings(t *testing.T) {
	cases := []string{
		`{"tkBuy":"BTC","tkSell":"USDT","count":"100"}`,
		`{"tokenBuy":"BTC","tokenSell":"USDT","amount":"100"}`,
	}
	for _, payload := range cases {
		var fields SwapFields
		if err := json.Unmarshal([]byte(payload), &fields); err != nil {
			t.Fatalf("decode %s: %v", payload, err)
		}
		if fields.TokenBuy != "BTC" || fields.TokenSell != "USDT" || fields.Amount != "100" {
			t.Fatalf("unexpected fields from %s: %+v", payload, fields)
		}
	}
}
