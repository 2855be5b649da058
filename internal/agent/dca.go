package agent

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"strings"
	"time"

	"HODL-Box/internal/dca"
	xerrors "HODL-Box/internal/errors"
	"HODL-Box/internal/llm"
)

// dcaSystemPrompt 要求大模型把定投请求解析为固定结构的 JSON。
const dcaSystemPrompt = "You are a DCA (Dollar-Cost Averaging) Investment Assistant. " +
	"Help users set up their auto-investment plans. " +
	"Parse the user's intent and output exactly one JSON object with the fields " +
	"sourceToken (the token to sell/spend, default USDT if a stablecoin is implied), " +
	"targetToken (the token to buy), amountPerInterval (number), " +
	"frequency (daily, weekly, monthly or every_hour) and " +
	"duration (number of executions, 0 if indefinite). Output nothing else."

// dcaFields 是大模型输出的定投参数。
type dcaFields struct {
	SourceToken       string      `json:"sourceToken"`
	TargetToken       string      `json:"targetToken"`
	AmountPerInterval json.Number `json:"amountPerInterval"`
	Frequency         string      `json:"frequency"`
	Duration          int         `json:"duration"`
}

// DCAOutcome 汇总一次定投请求的解析结果与创建的计划。
type DCAOutcome struct {
	Plan *dca.Plan `json:"plan"`
}

// DCAAgent 解析定投意图并创建计划。
type DCAAgent struct {
	llmClient  llm.Client
	service    *dca.Service
	llmTimeout time.Duration
}

// NewDCAAgent 创建定投智能体。
func NewDCAAgent(llmClient llm.Client, service *dca.Service, llmTimeout time.Duration) *DCAAgent {
	return &DCAAgent{llmClient: llmClient, service: service, llmTimeout: llmTimeout}
}

// Handle 解析用户消息中的定投意图并创建计划。
func (a *DCAAgent) Handle(ctx context.Context, userID, message string) (*DCAOutcome, error) {
	if a.llmClient == nil || a.service == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "定投智能体未初始化")
	}
	if strings.TrimSpace(message) == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "消息不能为空")
	}

	llmCtx := ctx
	if a.llmTimeout > 0 {
		var cancel context.CancelFunc
		llmCtx, cancel = context.WithTimeout(ctx, a.llmTimeout)
		defer cancel()
	}

	resp, err := a.llmClient.Generate(llmCtx, llm.Request{
		SystemPrompt: dcaSystemPrompt,
		UserMessage:  "Parse this DCA intent: " + message,
	})
	if err != nil {
		if stdErrors.Is(err, context.DeadlineExceeded) {
			return nil, xerrors.Wrap(xerrors.CodeTimeout, err, "大模型推理超时")
		}
		return nil, xerrors.Wrap(xerrors.CodeLLMFailure, err, "大模型推理失败")
	}

	payload := extractJSON(resp.Reply)
	if payload == "" {
		return nil, xerrors.New(xerrors.CodeLLMFailure, "大模型输出中没有 JSON 结构")
	}
	var fields dcaFields
	if err := json.Unmarshal([]byte(payload), &fields); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeLLMFailure, err, "解析大模型输出失败")
	}

	sourceToken := fields.SourceToken
	if strings.TrimSpace(sourceToken) == "" {
		sourceToken = "USDT"
	}
	plan, err := a.service.Create(ctx, dca.CreateRequest{
		UserID:            userID,
		SourceToken:       sourceToken,
		TargetToken:       fields.TargetToken,
		AmountPerInterval: fields.AmountPerInterval.String(),
		Frequency:         fields.Frequency,
		DurationIntervals: fields.Duration,
	})
	if err != nil {
		return nil, err
	}
	return &DCAOutcome{Plan: plan}, nil
}
