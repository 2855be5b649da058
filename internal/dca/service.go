package dca

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	xerrors "HODL-Box/internal/errors"
	"HODL-Box/internal/intent"
	"HODL-Box/pkg/logger"
)

// CreateRequest 描述创建定投计划所需的字段。
type CreateRequest struct {
	UserID            string `json:"user_id"`
	Chain             string `json:"chain"`
	SourceToken       string `json:"sourceToken"`
	TargetToken       string `json:"targetToken"`
	AmountPerInterval string `json:"amountPerInterval"`
	Frequency         string `json:"frequency"`
	DurationIntervals int    `json:"duration"`
}

// Service 负责定投计划的创建与查询。
type Service struct {
	store      Store
	producer   Producer
	maxRetries int
}

// NewService 构造定投服务。
func NewService(store Store, producer Producer, maxRetries int) *Service {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Service{store: store, producer: producer, maxRetries: maxRetries}
}

// Create 校验并落库一个新的定投计划，首期立即到期。
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Plan, error) {
	if s.store == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "定投服务未初始化")
	}

	sourceToken := intent.NormalizeToken(req.SourceToken)
	targetToken := intent.NormalizeToken(req.TargetToken)
	if sourceToken == "" || targetToken == "" {
		return nil, xerrors.New(CodePlanValidation, "定投计划缺少代币信息")
	}
	if sourceToken == targetToken {
		return nil, xerrors.New(CodePlanValidation, "源代币与目标代币不能相同")
	}

	amount := strings.TrimSpace(req.AmountPerInterval)
	if amount == "" {
		return nil, xerrors.New(CodePlanValidation, "每期定投金额不能为空")
	}
	if value, err := strconv.ParseFloat(amount, 64); err != nil || value <= 0 {
		return nil, xerrors.New(CodePlanValidation, "每期定投金额必须为正数: "+amount)
	}

	frequency, err := ParseFrequency(strings.TrimSpace(req.Frequency))
	if err != nil {
		return nil, err
	}
	if req.DurationIntervals < 0 {
		return nil, xerrors.New(CodePlanValidation, "定投期数不能为负数")
	}

	now := time.Now()
	plan := &Plan{
		ID:                uuid.NewString(),
		UserID:            strings.TrimSpace(req.UserID),
		Chain:             intent.NormalizeChain(req.Chain),
		SourceToken:       sourceToken,
		TargetToken:       targetToken,
		AmountPerInterval: amount,
		Frequency:         frequency,
		DurationIntervals: req.DurationIntervals,
		Status:            StatusActive,
		MaxRetries:        s.maxRetries,
		NextRunAt:         now.Unix(),
		CreatedAt:         now.Unix(),
	}
	if err := s.store.Create(ctx, plan); err != nil {
		return nil, err
	}

	if s.producer != nil {
		if err := s.producer.Publish(ctx, plan.ID); err != nil {
			logger.L().Error("定投计划入队失败", slog.Any("error", err), slog.String("plan_id", plan.ID))
			wrapped := xerrors.Wrap(CodePlanPublish, err, "发布定投计划到队列失败")
			if _, markErr := s.store.MarkFailure(ctx, plan.ID, wrapped.Error(), now); markErr != nil {
				logger.L().Error("回写失败状态出错", slog.Any("error", markErr), slog.String("plan_id", plan.ID))
			}
			return nil, wrapped
		}
	}

	logger.Interaction().Info("定投计划已创建",
		slog.String("plan_id", plan.ID),
		slog.String("user_id", plan.UserID),
		slog.String("source_token", plan.SourceToken),
		slog.String("target_token", plan.TargetToken),
		slog.String("amount", plan.AmountPerInterval),
		slog.String("frequency", string(plan.Frequency)),
	)
	return plan, nil
}

// Get 返回指定计划的状态。
func (s *Service) Get(ctx context.Context, id string) (*Plan, error) {
	if s.store == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "定投存储未初始化")
	}
	return s.store.Get(ctx, id)
}

// List 返回指定用户的计划列表。
func (s *Service) List(ctx context.Context, userID string) ([]*Plan, error) {
	if s.store == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "定投存储未初始化")
	}
	return s.store.List(ctx, userID)
}

// Pause 暂停计划。
func (s *Service) Pause(ctx context.Context, id string) error {
	return s.setStatus(ctx, id, StatusPaused)
}

// Resume 恢复计划。
func (s *Service) Resume(ctx context.Context, id string) error {
	return s.setStatus(ctx, id, StatusActive)
}

func (s *Service) setStatus(ctx context.Context, id string, status Status) error {
	if s.store == nil {
		return xerrors.New(xerrors.CodeInitializationFailure, "定投存储未初始化")
	}
	return s.store.SetStatus(ctx, id, status)
}

// Close 释放资源。
func (s *Service) Close() error {
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			return err
		}
	}
	if s.producer != nil {
		return s.producer.Close()
	}
	return nil
}
