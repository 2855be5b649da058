package dca

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"time"

	xerrors "HODL-Box/internal/errors"
	"HODL-Box/internal/web3"
	"HODL-Box/pkg/logger"
)

// Executor 定义了执行一期定投所需的链上能力。
type Executor interface {
	Execute(ctx context.Context, plan *Plan) (web3.SwapTicket, error)
}

// ExecutorFunc 允许用函数实现 Executor。
type ExecutorFunc func(ctx context.Context, plan *Plan) (web3.SwapTicket, error)

// Execute 实现 Executor 接口。
func (f ExecutorFunc) Execute(ctx context.Context, plan *Plan) (web3.SwapTicket, error) {
	return f(ctx, plan)
}

// Processor 负责从队列消费到期计划并执行一期定投。
type Processor struct {
	executor    Executor
	store       Store
	consumer    Consumer
	producer    Producer
	workerCount int
	logger      *slog.Logger
}

// nowTime 可在测试中替换以固定时间。
var nowTime = time.Now

// ProcessorOption 定义可选配置。
type ProcessorOption func(*Processor)

// WithProcessorLogger 指定日志输出。
func WithProcessorLogger(logger *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		p.logger = logger
	}
}

// WithWorkerCount 设置消费协程数量。
func WithWorkerCount(workers int) ProcessorOption {
	return func(p *Processor) {
		if workers > 0 {
			p.workerCount = workers
		}
	}
}

// NewProcessor 构造 Processor。
func NewProcessor(executor Executor, store Store, consumer Consumer, producer Producer, opts ...ProcessorOption) *Processor {
	p := &Processor{
		executor:    executor,
		store:       store,
		consumer:    consumer,
		producer:    producer,
		workerCount: 1,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	if p.workerCount <= 0 {
		p.workerCount = 1
	}
	return p
}

// Start 启动计划处理循环。
func (p *Processor) Start(ctx context.Context) error {
	if p.consumer == nil {
		return xerrors.New(xerrors.CodeInitializationFailure, "未配置计划消费者")
	}
	return p.consumer.Consume(ctx, p.workerCount, p.Handle)
}

// Handle 执行单个计划的一期定投。
func (p *Processor) Handle(ctx context.Context, planID string) error {
	if p.store == nil || p.executor == nil {
		return xerrors.New(xerrors.CodeInitializationFailure, "处理器未初始化")
	}

	plan, err := p.store.Claim(ctx, planID, nowTime())
	if err != nil {
		if stdErrors.Is(err, ErrPlanNotFound) || stdErrors.Is(err, ErrPlanCompleted) ||
			stdErrors.Is(err, ErrPlanConflict) || stdErrors.Is(err, ErrPlanNotDue) {
			p.logDebug("跳过计划", slog.String("plan_id", planID), slog.String("reason", err.Error()))
			return nil
		}
		logger.L().Error("领取计划失败", slog.Any("error", err), slog.String("plan_id", planID))
		return err
	}

	ticket, execErr := p.executor.Execute(ctx, plan)
	if execErr != nil {
		return p.handleExecutionFailure(ctx, plan, execErr)
	}

	updated, err := p.store.MarkExecuted(ctx, plan.ID, ticket.Reference, nowTime())
	if err != nil {
		logger.L().Error("记录执行结果失败", slog.Any("error", err), slog.String("plan_id", plan.ID))
		return err
	}
	logger.Interaction().Info("定投执行成功",
		slog.String("plan_id", updated.ID),
		slog.String("user_id", updated.UserID),
		slog.String("reference", ticket.Reference),
		slog.Int("executed_count", updated.ExecutedCount),
		slog.String("status", string(updated.Status)),
	)
	return nil
}

func (p *Processor) handleExecutionFailure(ctx context.Context, plan *Plan, execErr error) error {
	code := xerrors.CodeOf(execErr)
	if code == xerrors.CodeUnknown {
		code = CodePlanExecution
	}
	retryable := xerrors.RetryableError(execErr)
	terminal := plan.Attempts >= plan.MaxRetries || !retryable

	updated, storeErr := p.store.MarkFailure(ctx, plan.ID, execErr.Error(), nowTime())
	if storeErr != nil {
		logger.L().Error("标记计划失败状态出错", slog.Any("error", storeErr), slog.String("plan_id", plan.ID))
		return storeErr
	}
	logger.Interaction().Warn("定投执行失败",
		slog.String("plan_id", plan.ID),
		slog.String("user_id", plan.UserID),
		slog.Bool("terminal", terminal),
		slog.String("error", execErr.Error()),
		slog.String("error_code", string(code)),
		slog.Int("attempts", plan.Attempts),
		slog.Int("max_retries", plan.MaxRetries),
	)

	if retryable && !terminal && updated.Status == StatusActive && p.producer != nil {
		if pubErr := p.producer.Publish(ctx, plan.ID); pubErr != nil {
			return xerrors.Wrap(CodePlanPublish, pubErr, fmt.Sprintf("计划 %s 重投失败", plan.ID))
		}
		p.logDebug("计划已重新排队", slog.String("plan_id", plan.ID), slog.Int("attempts", plan.Attempts))
	}
	return nil
}

func (p *Processor) logDebug(msg string, attrs ...slog.Attr) {
	if p.logger != nil {
		args := make([]any, len(attrs))
		for i, attr := range attrs {
			args[i] = attr
		}
		p.logger.Debug(msg, args...)
	}
}
