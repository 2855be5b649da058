package agent

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"strings"
	"time"

	xerrors "HODL-Box/internal/errors"
	"HODL-Box/internal/intent"
	"HODL-Box/internal/llm"
	"HODL-Box/internal/web3"
)

// swapSystemPrompt 要求大模型把交换请求解析为固定结构的 JSON。
const swapSystemPrompt = "你是一个区块链交易Agent，专门帮助用户解析和执行Token交换操作。" +
	"当用户提出交换请求时，请从消息中提取交易所需的关键信息：区块链、买入Token、卖出Token和数量。" +
	"只输出一个 JSON 对象，包含 chain、tkBuy、tkSell、count 四个字段，" +
	"所有字段取值均为字符串，无法确定的字段填空字符串，不要输出任何其他内容。"

// ChainGateway 抽象按链名路由链上客户端的能力。
type ChainGateway interface {
	ClientFor(name string) (web3.Client, error)
}

// SwapOutcome 汇总一次交换请求的解析与准备结果。
type SwapOutcome struct {
	OriginalMessage string             `json:"original_message,omitempty"`
	Intent          *intent.SwapIntent `json:"swap_intent"`
	Ticket          *web3.SwapTicket   `json:"ticket,omitempty"`
	Observations    string             `json:"observations,omitempty"`
}

// SwapAgent 解析交换意图并准备链上提交。
type SwapAgent struct {
	llmClient  llm.Client
	chains     ChainGateway
	llmTimeout time.Duration
}

// NewSwapAgent 创建交换智能体。chains 可以为 nil，此时只解析不上链。
func NewSwapAgent(llmClient llm.Client, chains ChainGateway, llmTimeout time.Duration) *SwapAgent {
	return &SwapAgent{llmClient: llmClient, chains: chains, llmTimeout: llmTimeout}
}

// Handle 解析用户消息中的交换意图。chainHint 来自请求体的可选链参数。
func (a *SwapAgent) Handle(ctx context.Context, message, chainHint string) (*SwapOutcome, error) {
	if a.llmClient == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "未配置大模型客户端")
	}
	if strings.TrimSpace(message) == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "消息不能为空")
	}

	fullMessage := message
	if strings.TrimSpace(chainHint) != "" {
		fullMessage += fmt.Sprintf(" (在%s链上)", chainHint)
	}

	llmCtx := ctx
	if a.llmTimeout > 0 {
		var cancel context.CancelFunc
		llmCtx, cancel = context.WithTimeout(ctx, a.llmTimeout)
		defer cancel()
	}

	resp, err := a.llmClient.Generate(llmCtx, llm.Request{
		SystemPrompt: swapSystemPrompt,
		UserMessage:  fullMessage,
	})
	if err != nil {
		if stdErrors.Is(err, context.DeadlineExceeded) {
			return nil, xerrors.Wrap(xerrors.CodeTimeout, err, "大模型推理超时")
		}
		return nil, xerrors.Wrap(xerrors.CodeLLMFailure, err, "大模型推理失败")
	}

	var fields intent.SwapFields
	payload := extractJSON(resp.Reply)
	if payload == "" {
		return nil, xerrors.New(xerrors.CodeLLMFailure, "大模型输出中没有 JSON 结构")
	}
	if err := json.Unmarshal([]byte(payload), &fields); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeLLMFailure, err, "解析大模型输出失败")
	}

	swapIntent, err := intent.ExtractSwap(fields)
	if err != nil {
		return nil, err
	}
	outcome := a.prepare(ctx, swapIntent)
	outcome.OriginalMessage = message
	return outcome, nil
}

// HandleFields 跳过大模型，直接校验并归一化调用方给出的字段。
func (a *SwapAgent) HandleFields(ctx context.Context, fields intent.SwapFields) (*SwapOutcome, error) {
	swapIntent, err := intent.ExtractSwap(fields)
	if err != nil {
		return nil, err
	}
	return a.prepare(ctx, swapIntent), nil
}

// prepare 在配置了链网关时准备链上交换，链侧失败只记入观察信息。
func (a *SwapAgent) prepare(ctx context.Context, swapIntent *intent.SwapIntent) *SwapOutcome {
	outcome := &SwapOutcome{Intent: swapIntent}
	if a.chains == nil {
		return outcome
	}
	client, err := a.chains.ClientFor(swapIntent.Chain)
	if err != nil {
		outcome.Observations = fmt.Sprintf("链客户端不可用: %v", err)
		return outcome
	}
	ticket, err := client.PrepareSwap(ctx, web3.SwapRequest{
		TokenIn:  swapIntent.TokenIn,
		TokenOut: swapIntent.TokenOut,
		AmountIn: swapIntent.AmountIn,
	})
	if err != nil {
		outcome.Observations = fmt.Sprintf("准备链上交换失败: %v", err)
		return outcome
	}
	outcome.Ticket = &ticket
	return outcome
}

// extractJSON 截取回复中第一个 { 到最后一个 } 之间的内容，容忍代码块围栏。
func extractJSON(reply string) string {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return ""
	}
	return reply[start : end+1]
}
