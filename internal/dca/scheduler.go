package dca

import (
	"context"
	"log/slog"
	"time"

	xerrors "HODL-Box/internal/errors"
	"HODL-Box/pkg/logger"
)

// Scheduler 周期性扫描到期计划并投递到队列。
type Scheduler struct {
	store    Store
	producer Producer
	interval time.Duration
}

// NewScheduler 构造调度器。interval 为扫描周期。
func NewScheduler(store Store, producer Producer, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Scheduler{store: store, producer: producer, interval: interval}
}

// Start 启动调度循环，直到 ctx 取消。
func (s *Scheduler) Start(ctx context.Context) error {
	if s.store == nil || s.producer == nil {
		return xerrors.New(xerrors.CodeInitializationFailure, "调度器未初始化")
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.dispatchDue(ctx)
		}
	}
}

// DispatchOnce 执行一轮到期扫描，供测试与启动时的首轮调度使用。
func (s *Scheduler) DispatchOnce(ctx context.Context) {
	s.dispatchDue(ctx)
}

func (s *Scheduler) dispatchDue(ctx context.Context) {
	plans, err := s.store.ListDue(ctx, nowTime())
	if err != nil {
		logger.L().Error("扫描到期计划失败", slog.Any("error", err))
		return
	}
	for _, plan := range plans {
		if err := s.producer.Publish(ctx, plan.ID); err != nil {
			logger.L().Error("投递到期计划失败",
				slog.Any("error", err),
				slog.String("plan_id", plan.ID),
			)
			continue
		}
		logger.L().Debug("到期计划已投递", slog.String("plan_id", plan.ID))
	}
}
