package routing

import (
	"context"
	"sync"
	"time"

	"github.com/mmcloughlin/geohash"

	"agropath/model"
)

const (
	// DefaultCacheTTL 缓存条目的有效期
	DefaultCacheTTL = 10 * time.Minute

	// geohashPrecision 10 位约 1.2m x 0.6m, 站点坐标固定, 足以区分
	geohashPrecision = 10
)

// Logger printf 风格的日志函数
type Logger func(format string, args ...any)

type cacheEntry struct {
	polyline  model.Polyline
	expiresAt time.Time
}

// CachedProvider 为另一个 Provider 加一层内存缓存
// 键由起点与终点的 geohash 组成, 只缓存成功的结果
type CachedProvider struct {
	inner  Provider
	ttl    time.Duration
	logger Logger
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry
}

// CachedProviderOption 配置 CachedProvider
type CachedProviderOption func(*CachedProvider)

// WithTTL 设置缓存有效期
func WithTTL(ttl time.Duration) CachedProviderOption {
	return func(c *CachedProvider) { c.ttl = ttl }
}

// WithLogger 设置命中/失效时的日志函数, 不设置则不输出
func WithLogger(l Logger) CachedProviderOption {
	return func(c *CachedProvider) { c.logger = l }
}

// withClock 测试用
func withClock(now func() time.Time) CachedProviderOption {
	return func(c *CachedProvider) { c.now = now }
}

// NewCachedProvider 创建带缓存的 Provider
func NewCachedProvider(inner Provider, opts ...CachedProviderOption) *CachedProvider {
	c := &CachedProvider{
		inner:   inner,
		ttl:     DefaultCacheTTL,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Route 实现 Provider 接口
func (c *CachedProvider) Route(ctx context.Context, req RouteRequest) (*model.Polyline, error) {
	key := cacheKey(req)

	c.mu.Lock()
	e, ok := c.entries[key]
	if ok && c.now().After(e.expiresAt) {
		delete(c.entries, key)
		ok = false
	}
	c.mu.Unlock()
	if ok {
		c.logf("routing: cache: 命中 %s", key)
		return clonePolyline(e.polyline), nil
	}

	pl, err := c.inner.Route(ctx, req)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{polyline: *clonePolyline(*pl), expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return pl, nil
}

// Len 当前缓存条目数 (含已过期未清理的)
func (c *CachedProvider) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *CachedProvider) logf(format string, args ...any) {
	if c.logger != nil {
		c.logger(format, args...)
	}
}

func cacheKey(req RouteRequest) string {
	return geohash.EncodeWithPrecision(req.Origin.Lat, req.Origin.Lng, geohashPrecision) +
		":" + geohash.EncodeWithPrecision(req.Destination.Lat, req.Destination.Lng, geohashPrecision)
}

// clonePolyline 复制点切片, 避免调用方修改缓存内容
func clonePolyline(pl model.Polyline) *model.Polyline {
	out := pl
	out.Points = make([]model.GeoPoint, len(pl.Points))
	copy(out.Points, pl.Points)
	return &out
}
