package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	xerrors "HODL-Box/internal/errors"
	storage "HODL-Box/internal/storage/mysql"
)

// SQLRepository 使用 MySQL 持久化用户画像。
type SQLRepository struct {
	db *sql.DB
}

// NewSQLRepository 创建连接池并执行迁移。
func NewSQLRepository(ctx context.Context, dsn string) (*SQLRepository, error) {
	db, err := storage.Open(ctx, storage.Config{DSN: dsn})
	if err != nil {
		return nil, err
	}
	if err := storage.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLRepository{db: db}, nil
}

// Get 查询指定用户的画像。
func (s *SQLRepository) Get(ctx context.Context, userID string) (*Profile, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "用户 ID 不能为空")
	}

	const stmt = `SELECT user_id, name, risk_profile, investment_goal, investment_plan,
        mood_history, motivational_boosts, created_at, last_interaction
        FROM user_profiles WHERE user_id = ?`

	var (
		p         Profile
		moods     sql.NullString
		createdAt int64
		lastSeen  int64
	)
	err := s.db.QueryRowContext(ctx, stmt, userID).Scan(
		&p.UserID,
		&p.Name,
		&p.RiskProfile,
		&p.InvestmentGoal,
		&p.InvestmentPlan,
		&moods,
		&p.MotivationalBoosts,
		&createdAt,
		&lastSeen,
	)
	if err == sql.ErrNoRows {
		return nil, xerrors.New(xerrors.CodeNotFound, "用户画像不存在",
			xerrors.WithMetadata("user_id", userID))
	}
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "查询用户画像失败")
	}

	if moods.Valid && moods.String != "" {
		if err := json.Unmarshal([]byte(moods.String), &p.MoodHistory); err != nil {
			return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "解析情绪历史失败")
		}
	}
	p.CreatedAt = time.Unix(createdAt, 0)
	p.LastInteraction = time.Unix(lastSeen, 0)
	return &p, nil
}

// Save 写入或更新画像。
func (s *SQLRepository) Save(ctx context.Context, p *Profile) error {
	if p == nil || strings.TrimSpace(p.UserID) == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "画像缺少用户 ID")
	}

	moods, err := json.Marshal(p.MoodHistory)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "序列化情绪历史失败")
	}

	const stmt = `INSERT INTO user_profiles
        (user_id, name, risk_profile, investment_goal, investment_plan, mood_history, motivational_boosts, created_at, last_interaction)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON DUPLICATE KEY UPDATE
        name = VALUES(name),
        risk_profile = VALUES(risk_profile),
        investment_goal = VALUES(investment_goal),
        investment_plan = VALUES(investment_plan),
        mood_history = VALUES(mood_history),
        motivational_boosts = VALUES(motivational_boosts),
        last_interaction = VALUES(last_interaction)`

	if _, err := s.db.ExecContext(ctx, stmt,
		p.UserID,
		p.Name,
		p.RiskProfile,
		p.InvestmentGoal,
		p.InvestmentPlan,
		string(moods),
		p.MotivationalBoosts,
		p.CreatedAt.Unix(),
		p.LastInteraction.Unix(),
	); err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "写入用户画像失败")
	}
	return nil
}

// List 按最近交互时间倒序返回画像。
func (s *SQLRepository) List(ctx context.Context) ([]*Profile, error) {
	const stmt = `SELECT user_id, name, risk_profile, investment_goal, investment_plan,
        mood_history, motivational_boosts, created_at, last_interaction
        FROM user_profiles ORDER BY last_interaction DESC LIMIT 200`

	rows, err := s.db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "查询用户画像失败")
	}
	defer rows.Close()

	var results []*Profile
	for rows.Next() {
		var (
			p         Profile
			moods     sql.NullString
			createdAt int64
			lastSeen  int64
		)
		if err := rows.Scan(&p.UserID, &p.Name, &p.RiskProfile, &p.InvestmentGoal, &p.InvestmentPlan,
			&moods, &p.MotivationalBoosts, &createdAt, &lastSeen); err != nil {
			return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "解析用户画像失败")
		}
		if moods.Valid && moods.String != "" {
			if err := json.Unmarshal([]byte(moods.String), &p.MoodHistory); err != nil {
				return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "解析情绪历史失败")
			}
		}
		p.CreatedAt = time.Unix(createdAt, 0)
		p.LastInteraction = time.Unix(lastSeen, 0)
		results = append(results, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "遍历用户画像失败")
	}
	return results, nil
}

// Close 关闭底层数据库连接。
func (s *SQLRepository) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
