package agent

import (
	"context"
	"log/slog"
	"strings"

	xerrors "HODL-Box/internal/errors"
	"HODL-Box/internal/intent"
	"HODL-Box/pkg/logger"
)

const (
	// clarificationReply 在行情查询缺少符号时提示用户补充。
	clarificationReply = "请提供您想查询的加密货币符号，例如BTC、ETH等"
	// generalReply 是无法识别意图时的兜底回复。
	generalReply = "我是HODL Box助手，我可以帮您处理代币交换、提供投资心理支持或查询市场数据。请告诉我您需要什么帮助？"
)

// ChatRequest 是 /api/v1/chat 的入参。
type ChatRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// ChatResult 描述路由后的处理结果，Type 与命中的智能体对应。
type ChatResult struct {
	Type    string          `json:"type"`
	Swap    *SwapOutcome    `json:"swap,omitempty"`
	DCA     *DCAOutcome     `json:"dca,omitempty"`
	Support *SupportOutcome `json:"support,omitempty"`
	Market  *MarketReport   `json:"market,omitempty"`
	Message string          `json:"message,omitempty"`
}

// Router 把自由文本按意图类别分发到对应的智能体。
type Router struct {
	swap   *SwapAgent
	dca    *DCAAgent
	mental *MentalAgent
	market *MarketAgent
}

// NewRouter 创建路由器。各智能体允许为 nil，未配置的类别返回初始化错误。
func NewRouter(swap *SwapAgent, dca *DCAAgent, mental *MentalAgent, market *MarketAgent) *Router {
	return &Router{swap: swap, dca: dca, mental: mental, market: market}
}

// Handle 对消息分类并调用对应智能体。
func (r *Router) Handle(ctx context.Context, req ChatRequest) (*ChatResult, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, xerrors.New(xerrors.CodeMissingField, "Missing required parameters",
			xerrors.WithMetadata("field", "message"))
	}

	category := intent.Classify(message)
	result, err := r.dispatch(ctx, category, req.UserID, message)

	attrs := []any{
		slog.String("user_id", req.UserID),
		slog.String("category", string(category)),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		logger.Interaction().Warn("对话处理失败", attrs...)
		return nil, err
	}
	attrs = append(attrs, slog.String("type", result.Type))
	logger.Interaction().Info("对话处理完成", attrs...)
	return result, nil
}

func (r *Router) dispatch(ctx context.Context, category intent.Category, userID, message string) (*ChatResult, error) {
	switch category {
	case intent.CategoryDCA:
		if r.dca == nil {
			return nil, xerrors.New(xerrors.CodeInitializationFailure, "未配置定投智能体")
		}
		outcome, err := r.dca.Handle(ctx, userID, message)
		if err != nil {
			return nil, err
		}
		return &ChatResult{Type: string(intent.CategoryDCA), DCA: outcome}, nil

	case intent.CategorySwap:
		if r.swap == nil {
			return nil, xerrors.New(xerrors.CodeInitializationFailure, "未配置交换智能体")
		}
		outcome, err := r.swap.Handle(ctx, message, "")
		if err != nil {
			return nil, err
		}
		return &ChatResult{Type: string(intent.CategorySwap), Swap: outcome}, nil

	case intent.CategoryMentalSupport:
		if r.mental == nil {
			return nil, xerrors.New(xerrors.CodeInitializationFailure, "未配置心理支持智能体")
		}
		outcome, err := r.mental.Handle(ctx, userID, message, "")
		if err != nil {
			return nil, err
		}
		return &ChatResult{Type: string(intent.CategoryMentalSupport), Support: outcome}, nil

	case intent.CategoryMarketData:
		symbol := intent.ExtractSymbol(message)
		if symbol == "" {
			return &ChatResult{Type: "clarification", Message: clarificationReply}, nil
		}
		if r.market == nil {
			return nil, xerrors.New(xerrors.CodeInitializationFailure, "未配置行情智能体")
		}
		report, err := r.market.Handle(ctx, symbol, "", true)
		if err != nil {
			return nil, err
		}
		return &ChatResult{Type: string(intent.CategoryMarketData), Market: report}, nil

	default:
		return &ChatResult{Type: string(intent.CategoryGeneral), Message: generalReply}, nil
	}
}
