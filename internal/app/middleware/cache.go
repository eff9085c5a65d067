package middleware

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// 缓存条目
type cacheEntry struct {
	Content    []byte
	Expiration time.Time
}

// 过期条目的默认清理间隔
const cacheCleanInterval = 5 * time.Minute

// ResponseCache 进程内的响应缓存，键带上当前用户，避免不同管理员看到彼此的数据
type ResponseCache struct {
	mu    sync.RWMutex
	items map[string]cacheEntry
	ttl   time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

// NewResponseCache 创建响应缓存，每5分钟清理一次过期条目
func NewResponseCache(ttl time.Duration) *ResponseCache {
	return NewResponseCacheWithCleanup(ttl, cacheCleanInterval)
}

// NewResponseCacheWithCleanup 创建响应缓存并指定清理间隔，用完需调用 Close
func NewResponseCacheWithCleanup(ttl, cleanInterval time.Duration) *ResponseCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if cleanInterval <= 0 {
		cleanInterval = cacheCleanInterval
	}
	rc := &ResponseCache{
		items: make(map[string]cacheEntry),
		ttl:   ttl,
		stop:  make(chan struct{}),
	}
	go rc.cleanLoop(cleanInterval)
	return rc
}

func (rc *ResponseCache) cleanLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rc.cleanExpiredCache()
		case <-rc.stop:
			return
		}
	}
}

// cleanExpiredCache 清理过期缓存，返回删除的条目数
func (rc *ResponseCache) cleanExpiredCache() int {
	now := time.Now()
	rc.mu.Lock()
	defer rc.mu.Unlock()

	removed := 0
	for key, entry := range rc.items {
		if entry.Expiration.Before(now) {
			delete(rc.items, key)
			removed++
		}
	}
	return removed
}

// Close 停止后台清理，可重复调用
func (rc *ResponseCache) Close() {
	rc.stopOnce.Do(func() { close(rc.stop) })
}

func (rc *ResponseCache) size() int {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return len(rc.items)
}

func uintToString(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}

// cacheKey 用户ID + 路径 + 排序后的查询参数
func cacheKey(c *gin.Context) string {
	queryParams := c.Request.URL.Query()
	queryKeys := make([]string, 0, len(queryParams))
	for key := range queryParams {
		queryKeys = append(queryKeys, key)
	}
	sort.Strings(queryKeys)

	var b strings.Builder
	for _, key := range queryKeys {
		values := queryParams[key]
		sort.Strings(values)
		for _, value := range values {
			b.WriteString(key + "=" + value + "&")
		}
	}

	hasher := md5.New()
	hasher.Write([]byte(c.Request.URL.Path + "?" + b.String()))
	return uintToString(GetUserID(c)) + ":" + hex.EncodeToString(hasher.Sum(nil))
}

// Middleware 缓存 GET 请求的 200 响应，需放在认证中间件之后
func (rc *ResponseCache) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := cacheKey(c)

		rc.mu.RLock()
		entry, found := rc.items[key]
		rc.mu.RUnlock()

		if found && entry.Expiration.After(time.Now()) {
			c.Header("X-Cache", "HIT")
			c.Data(http.StatusOK, "application/json; charset=utf-8", entry.Content)
			c.Abort()
			return
		}

		// 缓存未命中，捕获响应
		writer := &responseWriter{
			ResponseWriter: c.Writer,
			body:           &bytes.Buffer{},
		}
		c.Writer = writer

		c.Next()

		if c.Writer.Status() == http.StatusOK {
			rc.mu.Lock()
			rc.items[key] = cacheEntry{
				Content:    writer.body.Bytes(),
				Expiration: time.Now().Add(rc.ttl),
			}
			rc.mu.Unlock()
		}
	}
}

// PurgeOnWrite 写请求成功后清空缓存，挂在设备和机构的写接口上
func (rc *ResponseCache) PurgeOnWrite() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if c.Request.Method != http.MethodGet && c.Writer.Status() < http.StatusBadRequest {
			rc.Purge()
		}
	}
}

// Purge 清除所有缓存
func (rc *ResponseCache) Purge() {
	rc.mu.Lock()
	rc.items = make(map[string]cacheEntry)
	rc.mu.Unlock()
}

// Stats 获取缓存统计信息
func (rc *ResponseCache) Stats() map[string]interface{} {
	now := time.Now()
	rc.mu.RLock()
	defer rc.mu.RUnlock()

	expired := 0
	for _, entry := range rc.items {
		if entry.Expiration.Before(now) {
			expired++
		}
	}
	return map[string]interface{}{
		"total_items":   len(rc.items),
		"expired_items": expired,
		"ttl":           rc.ttl.String(),
	}
}

// 自定义响应写入器，用于捕获响应内容
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *responseWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
