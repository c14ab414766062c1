package session

import "github.com/d90432206-droid/caliocr/internal/domain"

// CacheKey 標準值鎖定快取的鍵：同一量別下相同目標值共用一筆標準讀數。
type CacheKey struct {
	Kind        domain.Kind
	TargetValue string
}

// StandardSnapshot 鎖定快取中保存的標準讀數快照，
// 用於預填後續相同目標值點位的擷取畫面。
type StandardSnapshot struct {
	Value  string `json:"value"`
	Unit   string `json:"unit"`
	Image  string `json:"image"`
	Maker  string `json:"maker,omitempty"`
	Model  string `json:"model,omitempty"`
	Serial string `json:"serial,omitempty"`
}

// standardCache 存活於整個作業階段；只會被明確解鎖或 Clear 清空。
type standardCache struct {
	entries map[CacheKey]StandardSnapshot
}

func newStandardCache() *standardCache {
	return &standardCache{entries: map[CacheKey]StandardSnapshot{}}
}

func (c *standardCache) lock(key CacheKey, snap StandardSnapshot) {
	c.entries[key] = snap
}

func (c *standardCache) unlock(key CacheKey) {
	delete(c.entries, key)
}

func (c *standardCache) lookup(key CacheKey) (StandardSnapshot, bool) {
	snap, ok := c.entries[key]
	return snap, ok
}

func (c *standardCache) reset() {
	c.entries = map[CacheKey]StandardSnapshot{}
}
