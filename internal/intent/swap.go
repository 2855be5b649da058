package intent

import (
	"encoding/json"
	"strings"
	"time"

	xerrors "HODL-Box/internal/errors"
)

// SwapFields 是交换意图提取的输入。chain 可选，其余字段必填。
type SwapFields struct {
	Chain     string
	TokenBuy  string
	TokenSell string
	Amount    string
}

// UnmarshalJSON 同时接受 tkBuy/tokenBuy、tkSell/tokenSell、count/amount
// 两套命名，歧义在反序列化阶段消除，核心逻辑只面对单一结构。
func (f *SwapFields) UnmarshalJSON(data []byte) error {
	var raw struct {
		Chain     string `json:"chain"`
		TkBuy     string `json:"tkBuy"`
		TokenBuy  string `json:"tokenBuy"`
		TkSell    string `json:"tkSell"`
		TokenSell string `json:"tokenSell"`
		Count     string `json:"count"`
		Amount    string `json:"amount"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	f.Chain = raw.Chain
	f.TokenBuy = firstNonEmpty(raw.TkBuy, raw.TokenBuy)
	f.TokenSell = firstNonEmpty(raw.TkSell, raw.TokenSell)
	f.Amount = firstNonEmpty(raw.Count, raw.Amount)
	return nil
}

// SwapIntent 是归一化后的交换意图。tokenIn/tokenOut/amount/amountIn
// 是为兼容不同下游命名约定而镜像的别名字段，并非独立取值。
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

// MissingFieldError 描述交换意图缺失必填字段的校验失败。
type MissingFieldError struct {
	Required []string `json:"required"`
	Provided []string `json:"provided"`
}

// Error 实现 error 接口，文案与对外错误负载保持一致。
func (e *MissingFieldError) Error() string {
	return "Missing required parameters"
}

// Code 返回统一错误码，供边界层映射 HTTP 状态。
func (e *MissingFieldError) Code() xerrors.Code {
	return xerrors.CodeMissingField
}

// swapRequiredFields 按对外负载中的命名列出必填字段。
var swapRequiredFields = []string{"tkBuy", "tkSell", "count"}

// ExtractSwap 校验必填字段并产出归一化的交换意图。
// 数量始终以文本保留，避免二进制浮点带来的精度损失。
func ExtractSwap(fields SwapFields) (*SwapIntent, error) {
	if err := validateSwapFields(fields); err != nil {
		return nil, err
	}

	tkBuy := NormalizeToken(fields.TokenBuy)
	tkSell := NormalizeToken(fields.TokenSell)
	count := strings.TrimSpace(fields.Amount)

	return &SwapIntent{
		Chain:     NormalizeChain(fields.Chain),
		TkBuy:     tkBuy,
		TkSell:    tkSell,
		Count:     count,
		TokenIn:   tkSell,
		TokenOut:  tkBuy,
		Amount:    count,
		AmountIn:  count,
		Timestamp: time.Now().Format(time.RFC3339),
		Valid:     true,
	}, nil
}

func validateSwapFields(fields SwapFields) error {
	provided := make([]string, 0, 4)
	if strings.TrimSpace(fields.Chain) != "" {
		provided = append(provided, "chain")
	}
	missing := false
	if strings.TrimSpace(fields.TokenBuy) != "" {
		provided = append(provided, "tkBuy")
	} else {
		missing = true
	}
	if strings.TrimSpace(fields.TokenSell) != "" {
		provided = append(provided, "tkSell")
	} else {
		missing = true
	}
	if strings.TrimSpace(fields.Amount) != "" {
		provided = append(provided, "count")
	} else {
		missing = true
	}
	if missing {
		return &MissingFieldError{Required: swapRequiredFields, Provided: provided}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
