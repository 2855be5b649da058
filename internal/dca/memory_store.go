package dca

import (
	"context"
	"sort"
	"sync"
	"time"

	xerrors "HODL-Box/internal/errors"
)

// MemoryStore 以内存方式保存计划状态，主要用于测试与单机运行。
type MemoryStore struct {
	mu    sync.RWMutex
	plans map[string]*Plan
}

// NewMemoryStore 创建 MemoryStore。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{plans: make(map[string]*Plan)}
}

// Create 实现 Store 接口。
func (m *MemoryStore) Create(_ context.Context, plan *Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if plan == nil {
		return xerrors.New(xerrors.CodeInvalidArgument, "plan 不能为空")
	}
	if plan.ID == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "计划 ID 不能为空")
	}
	if _, ok := m.plans[plan.ID]; ok {
		return ErrPlanConflict
	}
	now := time.Now().Unix()
	if plan.CreatedAt == 0 {
		plan.CreatedAt = now
	}
	plan.UpdatedAt = now
	m.plans[plan.ID] = clonePlan(plan)
	return nil
}

// Get 返回计划副本。
func (m *MemoryStore) Get(_ context.Context, id string) (*Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	plan, ok := m.plans[id]
	if !ok {
		return nil, ErrPlanNotFound
	}
	return clonePlan(plan), nil
}

// List 返回指定用户的计划，按创建时间倒序排列。
func (m *MemoryStore) List(_ context.Context, userID string) ([]*Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]*Plan, 0, len(m.plans))
	for _, plan := range m.plans {
		if userID != "" && plan.UserID != userID {
			continue
		}
		results = append(results, clonePlan(plan))
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].CreatedAt == results[j].CreatedAt {
			return results[i].ID < results[j].ID
		}
		return results[i].CreatedAt > results[j].CreatedAt
	})
	return results, nil
}

// ListDue 返回到期的活跃计划。
func (m *MemoryStore) ListDue(_ context.Context, now time.Time) ([]*Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var results []*Plan
	for _, plan := range m.plans {
		if plan.Status != StatusActive {
			continue
		}
		if plan.NextRunAt > now.Unix() {
			continue
		}
		results = append(results, clonePlan(plan))
	}
	sort.Slice(results, func(i, j int) bool { return results[i].NextRunAt < results[j].NextRunAt })
	return results, nil
}

// Claim 将到期计划置为执行中。
func (m *MemoryStore) Claim(_ context.Context, id string, now time.Time) (*Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	plan, ok := m.plans[id]
	if !ok {
		return nil, ErrPlanNotFound
	}
	switch plan.Status {
	case StatusCompleted:
		return clonePlan(plan), ErrPlanCompleted
	case StatusExecuting:
		return clonePlan(plan), ErrPlanConflict
	case StatusPaused, StatusFailed:
		return clonePlan(plan), ErrPlanConflict
	}
	if plan.NextRunAt > now.Unix() {
		return clonePlan(plan), ErrPlanNotDue
	}
	plan.Status = StatusExecuting
	plan.Attempts++
	plan.LastError = ""
	plan.UpdatedAt = now.Unix()
	return clonePlan(plan), nil
}

// MarkExecuted 记录一次成功执行。
func (m *MemoryStore) MarkExecuted(_ context.Context, id string, reference string, now time.Time) (*Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	plan, ok := m.plans[id]
	if !ok {
		return nil, ErrPlanNotFound
	}
	plan.ExecutedCount++
	plan.Attempts = 0
	plan.LastError = ""
	plan.LastReference = reference
	plan.NextRunAt = now.Add(plan.Frequency.Interval()).Unix()
	plan.UpdatedAt = now.Unix()
	if plan.DurationIntervals > 0 && plan.ExecutedCount >= plan.DurationIntervals {
		plan.Status = StatusCompleted
	} else {
		plan.Status = StatusActive
	}
	return clonePlan(plan), nil
}

// MarkFailure 记录一次失败执行。
func (m *MemoryStore) MarkFailure(_ context.Context, id string, lastError string, now time.Time) (*Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	plan, ok := m.plans[id]
	if !ok {
		return nil, ErrPlanNotFound
	}
	plan.LastError = lastError
	plan.UpdatedAt = now.Unix()
	if plan.MaxRetries > 0 && plan.Attempts >= plan.MaxRetries {
		plan.Status = StatusFailed
	} else {
		plan.Status = StatusActive
	}
	return clonePlan(plan), nil
}

// SetStatus 切换计划状态。
func (m *MemoryStore) SetStatus(_ context.Context, id string, status Status) error {
	if !IsValidStatus(status) {
		return xerrors.New(xerrors.CodeInvalidArgument, "不支持的计划状态: "+string(status))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	plan, ok := m.plans[id]
	if !ok {
		return ErrPlanNotFound
	}
	if plan.Status == StatusCompleted {
		return ErrPlanCompleted
	}
	plan.Status = status
	plan.UpdatedAt = time.Now().Unix()
	return nil
}

// Close 对内存存储无需操作。
func (m *MemoryStore) Close() error {
	return nil
}

// ensure interface compliance at compile time
var _ Store = (*MemoryStore)(nil)
