// Package dca 实现定投计划的建模、持久化、排队与执行。
// 计划由调度器按到期时间投递到队列，执行器消费后完成一次链上交换准备。
package dca

import (
	stdErrors "errors"
	"time"

	xerrors "HODL-Box/internal/errors"
)

// Status 表示定投计划在生命周期中的状态。
type Status string

const (
	StatusActive    Status = "active"
	StatusExecuting Status = "executing"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Frequency 表示定投的执行频率。
type Frequency string

const (
	FrequencyHourly  Frequency = "every_hour"
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// ParseFrequency 校验并规范化频率取值。
func ParseFrequency(raw string) (Frequency, error) {
	switch Frequency(raw) {
	case FrequencyHourly, FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return Frequency(raw), nil
	default:
		return "", xerrors.New(CodePlanValidation, "不支持的定投频率: "+raw)
	}
}

// Interval 返回两次执行之间的间隔。月按 30 天近似。
func (f Frequency) Interval() time.Duration {
	switch f {
	case FrequencyHourly:
		return time.Hour
	case FrequencyWeekly:
		return 7 * 24 * time.Hour
	case FrequencyMonthly:
		return 30 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// Plan 描述一个定投计划。
type Plan struct {
	ID                string    `json:"id"`
	UserID            string    `json:"user_id"`
	Chain             string    `json:"chain"`
	SourceToken       string    `json:"source_token"`
	TargetToken       string    `json:"target_token"`
	AmountPerInterval string    `json:"amount_per_interval"`
	Frequency         Frequency `json:"frequency"`
	DurationIntervals int       `json:"duration_intervals"`
	ExecutedCount     int       `json:"executed_count"`
	Status            Status    `json:"status"`
	Attempts          int       `json:"attempts"`
	MaxRetries        int       `json:"max_retries"`
	LastError         string    `json:"last_error,omitempty"`
	LastReference     string    `json:"last_reference,omitempty"`
	NextRunAt         int64     `json:"next_run_at"`
	CreatedAt         int64     `json:"created_at"`
	UpdatedAt         int64     `json:"updated_at"`
}

var (
	// ErrPlanNotFound 表示指定的定投计划不存在。
	ErrPlanNotFound = xerrors.New(CodePlanNotFound, "dca plan not found")
	// ErrPlanConflict 表示计划在当前状态下无法进行所请求的操作。
	ErrPlanConflict = xerrors.New(CodePlanConflict, "dca plan conflict")
	// ErrPlanCompleted 表示计划已执行完所有期数。
	ErrPlanCompleted = xerrors.New(CodePlanCompleted, "dca plan already completed")
	// ErrPlanNotDue 表示计划尚未到达下次执行时间。
	ErrPlanNotDue = xerrors.New(CodePlanNotDue, "dca plan not due")
)

const (
	CodePlanNotFound   xerrors.Code = "DCA_PLAN_NOT_FOUND"
	CodePlanConflict   xerrors.Code = "DCA_PLAN_CONFLICT"
	CodePlanCompleted  xerrors.Code = "DCA_PLAN_COMPLETED"
	CodePlanNotDue     xerrors.Code = "DCA_PLAN_NOT_DUE"
	CodePlanValidation xerrors.Code = "DCA_VALIDATION_FAILED"
	CodePlanPublish    xerrors.Code = "DCA_PUBLISH_FAILED"
	CodePlanExecution  xerrors.Code = "DCA_EXECUTION_FAILED"
)

func init() {
	xerrors.Register(CodePlanNotFound, xerrors.Attributes{
		Message:   "dca plan not found",
		Severity:  xerrors.SeverityInfo,
		Retryable: false,
		Alert:     false,
	})
	xerrors.Register(CodePlanConflict, xerrors.Attributes{
		Message:   "dca plan conflict",
		Severity:  xerrors.SeverityWarning,
		Retryable: false,
		Alert:     false,
	})
	xerrors.Register(CodePlanCompleted, xerrors.Attributes{
		Message:   "dca plan already completed",
		Severity:  xerrors.SeverityInfo,
		Retryable: false,
		Alert:     false,
	})
	xerrors.Register(CodePlanNotDue, xerrors.Attributes{
		Message:   "dca plan not due",
		Severity:  xerrors.SeverityInfo,
		Retryable: false,
		Alert:     false,
	})
	xerrors.Register(CodePlanValidation, xerrors.Attributes{
		Message:   "dca plan validation failed",
		Severity:  xerrors.SeverityInfo,
		Retryable: false,
		Alert:     false,
	})
	xerrors.Register(CodePlanPublish, xerrors.Attributes{
		Message:   "failed to publish dca plan",
		Severity:  xerrors.SeverityCritical,
		Retryable: true,
		Alert:     true,
	})
	xerrors.Register(CodePlanExecution, xerrors.Attributes{
		Message:   "dca execution failed",
		Severity:  xerrors.SeverityWarning,
		Retryable: true,
		Alert:     true,
	})
}

// IsPlanError 判断错误是否为统一的计划错误。
func IsPlanError(err error, target xerrors.Code) bool {
	if err == nil {
		return false
	}
	switch target {
	case CodePlanNotFound:
		return stdErrors.Is(err, ErrPlanNotFound)
	case CodePlanConflict:
		return stdErrors.Is(err, ErrPlanConflict)
	case CodePlanCompleted:
		return stdErrors.Is(err, ErrPlanCompleted)
	case CodePlanNotDue:
		return stdErrors.Is(err, ErrPlanNotDue)
	default:
		return false
	}
}

// IsValidStatus 检查给定的计划状态是否为支持的枚举值。
func IsValidStatus(status Status) bool {
	switch status {
	case StatusActive, StatusExecuting, StatusPaused, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

func clonePlan(plan *Plan) *Plan {
	if plan == nil {
		return nil
	}
	clone := *plan
	return &clone
}
