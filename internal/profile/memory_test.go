package profile

import (
	"context"
	"testing"
	"time"

	xerrors "HODL-Box/internal/errors"
)

func TestMemoryRepositoryRoundTrip(t *testing.T) {
	repo, err := NewMemoryRepository(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	p := &Profile{UserID: "u-1", Name: "小明", RiskProfile: "conservative"}
	p.Touch(now)
	p.RecordMood("fearful", now)
	p.MotivationalBoosts++

	if err := repo.Save(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := repo.Get(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "小明" || got.MotivationalBoosts != 1 {
		t.Fatalf("unexpected profile: %+v", got)
	}
	if len(got.MoodHistory) != 1 || got.MoodHistory[0].Emotion != "fearful" {
		t.Fatalf("unexpected mood history: %+v", got.MoodHistory)
	}

	// 副本语义：调用方修改返回值不应影响仓库内的数据。
	got.Name = "改名"
	again, err := repo.Get(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again.Name != "小明" {
		t.Fatalf("repository data mutated: %+v", again)
	}
}

func TestMemoryRepositoryNotFound(t *testing.T) {
	repo, err := NewMemoryRepository(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = repo.Get(context.Background(), "missing")
	if xerrors.CodeOf(err) != xerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemoryRepositorySnapshotRestore(t *testing.T) {
	dir := t.TempDir()

	repo, err := NewMemoryRepository(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p := &Profile{UserID: "u-2", InvestmentGoal: "长期定投"}
	p.Touch(time.Now())
	if err := repo.Save(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	restored, err := NewMemoryRepository(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := restored.Get(context.Background(), "u-2")
	if err != nil {
		t.Fatalf("expected profile restored from snapshot: %v", err)
	}
	if got.InvestmentGoal != "长期定投" {
		t.Fatalf("unexpected profile: %+v", got)
	}
}

func TestMoodHistoryCap(t *testing.T) {
	p := &Profile{UserID: "u-3"}
	now := time.Now()
	for i := 0; i < 60; i++ {
		p.RecordMood("neutral", now)
	}
	if len(p.MoodHistory) != 50 {
		t.Fatalf("expected mood history capped at 50, got %d", len(p.MoodHistory))
	}
}
