package db

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"gorm.io/gorm"

	"agropath/model"
)

var (
	// ErrNotFound 记录不存在
	ErrNotFound = errors.New("记录不存在")
	// ErrDuplicate 主键或唯一键冲突
	ErrDuplicate = errors.New("记录已存在")
)

// SiteStore 站点目录
type SiteStore interface {
	// ListSites 按插入顺序返回站点; kind 为空时返回全部
	ListSites(ctx context.Context, kind model.SiteKind) ([]model.Site, error)
	GetSite(ctx context.Context, id string) (model.Site, error)
	CreateSite(ctx context.Context, site model.Site) error
}

// UserStore 用户账号
type UserStore interface {
	FindUser(ctx context.Context, username string) (model.User, error)
	CreateUser(ctx context.Context, user model.User) error
}

// ---- gorm ----

// GormStore 基于 gorm 的 SiteStore 和 UserStore
type GormStore struct {
	db *gorm.DB
}

// NewGormStore 包装已打开的连接
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) ListSites(ctx context.Context, kind model.SiteKind) ([]model.Site, error) {
	q := s.db.WithContext(ctx).Order("seq, id")
	if kind != "" {
		q = q.Where("kind = ?", string(kind))
	}
	var sites []model.Site
	if err := q.Find(&sites).Error; err != nil {
		return nil, fmt.Errorf("查询站点失败: %w", err)
	}
	return sites, nil
}

func (s *GormStore) GetSite(ctx context.Context, id string) (model.Site, error) {
	var site model.Site
	err := s.db.WithContext(ctx).First(&site, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Site{}, fmt.Errorf("站点 %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Site{}, fmt.Errorf("查询站点 %s 失败: %w", id, err)
	}
	return site, nil
}

func (s *GormStore) CreateSite(ctx context.Context, site model.Site) error {
	err := s.db.WithContext(ctx).Create(&site).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("站点 %s: %w", site.ID, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("插入站点失败: %w", err)
	}
	return nil
}

func (s *GormStore) FindUser(ctx context.Context, username string) (model.User, error) {
	var u model.User
	err := s.db.WithContext(ctx).First(&u, "username = ?", username).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.User{}, fmt.Errorf("用户 %s: %w", username, ErrNotFound)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("查询用户失败: %w", err)
	}
	return u, nil
}

func (s *GormStore) CreateUser(ctx context.Context, user model.User) error {
	err := s.db.WithContext(ctx).Create(&user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("用户 %s: %w", user.Username, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("插入用户失败: %w", err)
	}
	return nil
}

// ---- 内存实现 (未配置数据库时使用) ----

// MemoryStore 内存中的 SiteStore 和 UserStore
type MemoryStore struct {
	mu    sync.RWMutex
	seq   int64
	sites map[string]model.Site
	users map[string]model.User
}

// NewMemoryStore 用给定站点初始化; 重复 ID 以后出现的为准
func NewMemoryStore(sites []model.Site) *MemoryStore {
	m := &MemoryStore{
		sites: make(map[string]model.Site, len(sites)),
		users: make(map[string]model.User),
	}
	for _, s := range sites {
		m.put(s)
	}
	return m
}

func (m *MemoryStore) ListSites(_ context.Context, kind model.SiteKind) ([]model.Site, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.Site, 0, len(m.sites))
	for _, s := range m.sites {
		if kind == "" || s.Kind == kind {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func (m *MemoryStore) GetSite(_ context.Context, id string) (model.Site, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sites[id]
	if !ok {
		return model.Site{}, fmt.Errorf("站点 %s: %w", id, ErrNotFound)
	}
	return s, nil
}

func (m *MemoryStore) CreateSite(_ context.Context, site model.Site) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sites[site.ID]; exists {
		return fmt.Errorf("站点 %s: %w", site.ID, ErrDuplicate)
	}
	m.put(site)
	return nil
}

// put 调用方持有写锁
func (m *MemoryStore) put(site model.Site) {
	m.seq++
	site.Seq = m.seq
	m.sites[site.ID] = site
}

func (m *MemoryStore) FindUser(_ context.Context, username string) (model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[username]
	if !ok {
		return model.User{}, fmt.Errorf("用户 %s: %w", username, ErrNotFound)
	}
	return u, nil
}

func (m *MemoryStore) CreateUser(_ context.Context, user model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.users[user.Username]; exists {
		return fmt.Errorf("用户 %s: %w", user.Username, ErrDuplicate)
	}
	m.users[user.Username] = user
	return nil
}

// NetworkSites 取出网络规划用的站点: 全部农场, 以及最先录入的收储中心和港口
func NetworkSites(ctx context.Context, s SiteStore) (farms []model.Site, center, port model.Site, err error) {
	if farms, err = s.ListSites(ctx, model.SiteFarm); err != nil {
		return nil, center, port, err
	}
	if center, err = firstOfKind(ctx, s, model.SiteCollectionCenter); err != nil {
		return nil, center, port, err
	}
	if port, err = firstOfKind(ctx, s, model.SitePort); err != nil {
		return nil, center, port, err
	}
	return farms, center, port, nil
}

func firstOfKind(ctx context.Context, s SiteStore, kind model.SiteKind) (model.Site, error) {
	sites, err := s.ListSites(ctx, kind)
	if err != nil {
		return model.Site{}, err
	}
	if len(sites) == 0 {
		return model.Site{}, fmt.Errorf("没有 %s 类型的站点: %w", kind, ErrNotFound)
	}
	return sites[0], nil
}
