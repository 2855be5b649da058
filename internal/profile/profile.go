// Package profile 维护用户画像：风险偏好、投资目标、情绪历史与激励次数。
// 仓库实现有内存快照与 MySQL 两种，接口保持一致。
package profile

import (
	"context"
	"time"
)

// MoodEntry 记录一次情绪分类结果。
type MoodEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Emotion   string    `json:"emotion"`
}

// Profile 表示一位用户的画像数据。
type Profile struct {
	UserID             string      `json:"user_id"`
	Name               string      `json:"name"`
	RiskProfile        string      `json:"risk_profile"`
	InvestmentGoal     string      `json:"investment_goal"`
	InvestmentPlan     string      `json:"investment_plan"`
	MoodHistory        []MoodEntry `json:"mood_history"`
	MotivationalBoosts int         `json:"motivational_boosts"`
	CreatedAt          time.Time   `json:"created_at"`
	LastInteraction    time.Time   `json:"last_interaction"`
}

// Repository 抽象用户画像的持久化接口。
type Repository interface {
	Get(ctx context.Context, userID string) (*Profile, error)
	Save(ctx context.Context, p *Profile) error
	List(ctx context.Context) ([]*Profile, error)
}

// Touch 更新最后交互时间；首次交互时补齐创建时间。
func (p *Profile) Touch(now time.Time) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.LastInteraction = now
}

// RecordMood 追加一条情绪记录，只保留最近 50 条。
func (p *Profile) RecordMood(emotion string, now time.Time) {
	p.MoodHistory = append(p.MoodHistory, MoodEntry{Timestamp: now, Emotion: emotion})
	if len(p.MoodHistory) > 50 {
		p.MoodHistory = p.MoodHistory[len(p.MoodHistory)-50:]
	}
}

func (p *Profile) clone() *Profile {
	if p == nil {
		return nil
	}
	copied := *p
	if p.MoodHistory != nil {
		copied.MoodHistory = make([]MoodEntry, len(p.MoodHistory))
		copy(copied.MoodHistory, p.MoodHistory)
	}
	return &copied
}
