package agent

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"HODL-Box/internal/emotion"
	xerrors "HODL-Box/internal/errors"
	"HODL-Box/internal/llm"
	"HODL-Box/internal/profile"
	"HODL-Box/pkg/logger"
)

// mentalSystemPrompt 指导大模型进行共情式回复。
const mentalSystemPrompt = "你是一个加密货币投资心理顾问，专注于为投资者提供情绪支持和鼓励。" +
	"在市场波动期间，帮助用户保持理性和纪律，坚持长期投资策略。" +
	"根据用户的情绪状态和当前市场状况，提供适当的心理按摩和投资建议。"

// fallbackSupportReply 在大模型不可用时保证心理支持仍有回复。
const fallbackSupportReply = "我理解你现在的感受。投资路上有起伏很正常，保持冷静，坚持你的长期计划。"

// SupportOutcome 汇总一次心理支持请求的结果。
type SupportOutcome struct {
	DetectedEmotion emotion.Label `json:"detected_emotion"`
	MarketState     string        `json:"market_state"`
	Reply           string        `json:"response"`
	Motivation      string        `json:"motivational_content"`
}

// MentalAgent 提供投资心理支持。
type MentalAgent struct {
	llmClient  llm.Client
	library    *emotion.Library
	profiles   profile.Repository
	llmTimeout time.Duration
}

// NewMentalAgent 创建心理支持智能体。profiles 可以为 nil。
func NewMentalAgent(llmClient llm.Client, library *emotion.Library, profiles profile.Repository, llmTimeout time.Duration) *MentalAgent {
	if library == nil {
		library = emotion.NewLibrary()
	}
	return &MentalAgent{llmClient: llmClient, library: library, profiles: profiles, llmTimeout: llmTimeout}
}

// Handle 分类情绪并生成支持回复。大模型失败时降级为固定回复，不向上返回错误。
func (a *MentalAgent) Handle(ctx context.Context, userID, message, marketState string) (*SupportOutcome, error) {
	if strings.TrimSpace(message) == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "消息不能为空")
	}
	if strings.TrimSpace(marketState) == "" {
		marketState = "neutral"
	}

	label := emotion.Classify(message)

	reply := fallbackSupportReply
	if a.llmClient != nil {
		llmCtx := ctx
		if a.llmTimeout > 0 {
			var cancel context.CancelFunc
			llmCtx, cancel = context.WithTimeout(ctx, a.llmTimeout)
			defer cancel()
		}
		resp, err := a.llmClient.Generate(llmCtx, llm.Request{
			SystemPrompt: mentalSystemPrompt,
			UserMessage:  message,
		})
		if err != nil {
			logger.L().Warn("心理支持推理失败，使用降级回复",
				slog.Any("error", err),
				slog.String("user_id", userID),
			)
		} else {
			reply = resp.Reply
		}
	}

	outcome := &SupportOutcome{
		DetectedEmotion: label,
		MarketState:     marketState,
		Reply:           reply,
		Motivation:      a.library.Motivate(label, marketState),
	}

	a.updateProfile(ctx, userID, label)
	return outcome, nil
}

// updateProfile 记录情绪历史与激励次数。画像失败只记日志，不影响回复。
func (a *MentalAgent) updateProfile(ctx context.Context, userID string, label emotion.Label) {
	if a.profiles == nil || strings.TrimSpace(userID) == "" {
		return
	}

	now := time.Now()
	p, err := a.profiles.Get(ctx, userID)
	if err != nil {
		if xerrors.CodeOf(err) != xerrors.CodeNotFound {
			logger.L().Warn("读取用户画像失败", slog.Any("error", err), slog.String("user_id", userID))
			return
		}
		p = &profile.Profile{UserID: userID}
	}
	p.Touch(now)
	p.RecordMood(string(label), now)
	p.MotivationalBoosts++
	if err := a.profiles.Save(ctx, p); err != nil {
		logger.L().Warn("保存用户画像失败", slog.Any("error", err), slog.String("user_id", userID))
	}
}
