package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	xerrors "HODL-Box/internal/errors"
)

// MemoryRepository 将画像保存在内存中，并以 JSON 快照落盘，方便迭代开发。
type MemoryRepository struct {
	mu       sync.RWMutex
	dataFile string
	profiles map[string]*Profile
}

// NewMemoryRepository 创建内存画像仓库并恢复已有快照。
func NewMemoryRepository(dataDir string) (*MemoryRepository, error) {
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("创建数据目录失败: %w", err)
	}

	repo := &MemoryRepository{
		dataFile: filepath.Join(dataDir, "user_profiles.json"),
		profiles: make(map[string]*Profile),
	}
	if err := repo.loadFromDisk(); err != nil {
		return nil, err
	}
	return repo, nil
}

// Get 返回指定用户的画像副本。
func (m *MemoryRepository) Get(_ context.Context, userID string) (*Profile, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "用户 ID 不能为空")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.profiles[userID]
	if !ok {
		return nil, xerrors.New(xerrors.CodeNotFound, "用户画像不存在",
			xerrors.WithMetadata("user_id", userID))
	}
	return p.clone(), nil
}

// Save 写入画像并刷新快照文件。
func (m *MemoryRepository) Save(_ context.Context, p *Profile) error {
	if p == nil || strings.TrimSpace(p.UserID) == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "画像缺少用户 ID")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.profiles[p.UserID] = p.clone()
	return m.persistLocked()
}

// List 按用户 ID 排序返回全部画像。
func (m *MemoryRepository) List(_ context.Context) ([]*Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]*Profile, 0, len(m.profiles))
	for _, p := range m.profiles {
		results = append(results, p.clone())
	}
	sort.Slice(results, func(i, j int) bool { return results[i].UserID < results[j].UserID })
	return results, nil
}

func (m *MemoryRepository) persistLocked() error {
	encoded, err := json.MarshalIndent(m.profiles, "", "  ")
	if err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "序列化画像快照失败")
	}
	if err := os.WriteFile(m.dataFile, encoded, 0o644); err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "写入画像快照失败")
	}
	return nil
}

func (m *MemoryRepository) loadFromDisk() error {
	content, err := os.ReadFile(m.dataFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "读取画像快照失败")
	}
	if len(content) == 0 {
		return nil
	}

	restored := make(map[string]*Profile)
	if err := json.Unmarshal(content, &restored); err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "解析画像快照失败")
	}
	m.profiles = restored
	return nil
}
