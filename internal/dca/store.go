package dca

import (
	"context"
	"time"
)

// Store 抽象定投计划的持久化接口。
type Store interface {
	// Create 写入新计划，ID 冲突时返回 ErrPlanConflict。
	Create(ctx context.Context, plan *Plan) error
	// Get 返回指定计划。
	Get(ctx context.Context, id string) (*Plan, error)
	// List 返回指定用户的全部计划；userID 为空时返回所有计划。
	List(ctx context.Context, userID string) ([]*Plan, error)
	// ListDue 返回到期且处于活跃状态的计划。
	ListDue(ctx context.Context, now time.Time) ([]*Plan, error)
	// Claim 将到期计划置为执行中，并递增尝试次数。
	Claim(ctx context.Context, id string, now time.Time) (*Plan, error)
	// MarkExecuted 记录一次成功执行并推进下次执行时间。
	MarkExecuted(ctx context.Context, id string, reference string, now time.Time) (*Plan, error)
	// MarkFailure 记录一次失败；尝试次数耗尽时计划转为失败状态。
	MarkFailure(ctx context.Context, id string, lastError string, now time.Time) (*Plan, error)
	// SetStatus 在暂停与恢复之间切换计划状态。
	SetStatus(ctx context.Context, id string, status Status) error
	// Close 释放底层资源。
	Close() error
}
