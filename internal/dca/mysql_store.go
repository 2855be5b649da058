package dca

import (
	"context"
	"database/sql"
	"strings"
	"time"

	xerrors "HODL-Box/internal/errors"
	storage "HODL-Box/internal/storage/mysql"
)

// MySQLStore 使用 MySQL 持久化定投计划。
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore 创建连接池并执行迁移。
func NewMySQLStore(ctx context.Context, dsn string) (*MySQLStore, error) {
	db, err := storage.Open(ctx, storage.Config{DSN: dsn})
	if err != nil {
		return nil, err
	}
	if err := storage.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &MySQLStore{db: db}, nil
}

const planColumns = `id, user_id, chain, source_token, target_token, amount_per_interval,
        frequency, duration_intervals, executed_count, status, attempts, max_retries,
        last_error, last_reference, next_run_at, created_at, updated_at`

func scanPlan(row interface{ Scan(...any) error }) (*Plan, error) {
	var (
		plan      Plan
		lastError sql.NullString
	)
	if err := row.Scan(
		&plan.ID,
		&plan.UserID,
		&plan.Chain,
		&plan.SourceToken,
		&plan.TargetToken,
		&plan.AmountPerInterval,
		&plan.Frequency,
		&plan.DurationIntervals,
		&plan.ExecutedCount,
		&plan.Status,
		&plan.Attempts,
		&plan.MaxRetries,
		&lastError,
		&plan.LastReference,
		&plan.NextRunAt,
		&plan.CreatedAt,
		&plan.UpdatedAt,
	); err != nil {
		return nil, err
	}
	plan.LastError = lastError.String
	return &plan, nil
}

// Create 写入新计划。
func (s *MySQLStore) Create(ctx context.Context, plan *Plan) error {
	if plan == nil || plan.ID == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "计划 ID 不能为空")
	}

	now := time.Now().Unix()
	if plan.CreatedAt == 0 {
		plan.CreatedAt = now
	}
	plan.UpdatedAt = now

	const stmt = `INSERT INTO dca_plans
        (id, user_id, chain, source_token, target_token, amount_per_interval, frequency,
        duration_intervals, executed_count, status, attempts, max_retries, last_error,
        last_reference, next_run_at, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	if _, err := s.db.ExecContext(ctx, stmt,
		plan.ID, plan.UserID, plan.Chain, plan.SourceToken, plan.TargetToken,
		plan.AmountPerInterval, plan.Frequency, plan.DurationIntervals, plan.ExecutedCount,
		plan.Status, plan.Attempts, plan.MaxRetries, plan.LastError, plan.LastReference,
		plan.NextRunAt, plan.CreatedAt, plan.UpdatedAt,
	); err != nil {
		if strings.Contains(err.Error(), "Duplicate entry") {
			return ErrPlanConflict
		}
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "写入定投计划失败")
	}
	return nil
}

// Get 返回指定计划。
func (s *MySQLStore) Get(ctx context.Context, id string) (*Plan, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+planColumns+` FROM dca_plans WHERE id = ?`, id)
	plan, err := scanPlan(row)
	if err == sql.ErrNoRows {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "查询定投计划失败")
	}
	return plan, nil
}

// List 返回指定用户的计划。
func (s *MySQLStore) List(ctx context.Context, userID string) ([]*Plan, error) {
	query := `SELECT ` + planColumns + ` FROM dca_plans`
	args := []any{}
	if userID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY created_at DESC LIMIT 200`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "查询定投计划失败")
	}
	defer rows.Close()

	var results []*Plan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "解析定投计划失败")
		}
		results = append(results, plan)
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "遍历定投计划失败")
	}
	return results, nil
}

// ListDue 返回到期的活跃计划。
func (s *MySQLStore) ListDue(ctx context.Context, now time.Time) ([]*Plan, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+planColumns+` FROM dca_plans WHERE status = ? AND next_run_at <= ? ORDER BY next_run_at ASC LIMIT 200`,
		StatusActive, now.Unix())
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "查询到期计划失败")
	}
	defer rows.Close()

	var results []*Plan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "解析到期计划失败")
		}
		results = append(results, plan)
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "遍历到期计划失败")
	}
	return results, nil
}

// Claim 以条件更新的方式将到期计划置为执行中，保证同一计划不被并发执行。
func (s *MySQLStore) Claim(ctx context.Context, id string, now time.Time) (*Plan, error) {
	const stmt = `UPDATE dca_plans
        SET status = ?, attempts = attempts + 1, last_error = '', updated_at = ?
        WHERE id = ? AND status = ? AND next_run_at <= ?`

	result, err := s.db.ExecContext(ctx, stmt, StatusExecuting, now.Unix(), id, StatusActive, now.Unix())
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "领取定投计划失败")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "读取更新结果失败")
	}

	plan, getErr := s.Get(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	if affected == 0 {
		switch plan.Status {
		case StatusCompleted:
			return plan, ErrPlanCompleted
		case StatusActive:
			return plan, ErrPlanNotDue
		default:
			return plan, ErrPlanConflict
		}
	}
	return plan, nil
}

// MarkExecuted 记录一次成功执行并推进下次执行时间。
func (s *MySQLStore) MarkExecuted(ctx context.Context, id string, reference string, now time.Time) (*Plan, error) {
	plan, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
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

	const stmt = `UPDATE dca_plans
        SET executed_count = ?, attempts = 0, last_error = '', last_reference = ?,
        next_run_at = ?, status = ?, updated_at = ?
        WHERE id = ?`
	if _, err := s.db.ExecContext(ctx, stmt,
		plan.ExecutedCount, plan.LastReference, plan.NextRunAt, plan.Status, plan.UpdatedAt, id,
	); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "记录执行结果失败")
	}
	return plan, nil
}

// MarkFailure 记录一次失败执行。
func (s *MySQLStore) MarkFailure(ctx context.Context, id string, lastError string, now time.Time) (*Plan, error) {
	plan, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	plan.LastError = lastError
	plan.UpdatedAt = now.Unix()
	if plan.MaxRetries > 0 && plan.Attempts >= plan.MaxRetries {
		plan.Status = StatusFailed
	} else {
		plan.Status = StatusActive
	}

	const stmt = `UPDATE dca_plans SET last_error = ?, status = ?, updated_at = ? WHERE id = ?`
	if _, err := s.db.ExecContext(ctx, stmt, plan.LastError, plan.Status, plan.UpdatedAt, id); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "记录失败结果失败")
	}
	return plan, nil
}

// SetStatus 切换计划状态。
func (s *MySQLStore) SetStatus(ctx context.Context, id string, status Status) error {
	if !IsValidStatus(status) {
		return xerrors.New(xerrors.CodeInvalidArgument, "不支持的计划状态: "+string(status))
	}

	const stmt = `UPDATE dca_plans SET status = ?, updated_at = ? WHERE id = ? AND status != ?`
	result, err := s.db.ExecContext(ctx, stmt, status, time.Now().Unix(), id, StatusCompleted)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "更新计划状态失败")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "读取更新结果失败")
	}
	if affected == 0 {
		plan, getErr := s.Get(ctx, id)
		if getErr != nil {
			return getErr
		}
		if plan.Status == StatusCompleted {
			return ErrPlanCompleted
		}
	}
	return nil
}

// Close 关闭底层数据库连接。
func (s *MySQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

var _ Store = (*MySQLStore)(nil)
