package cache

import (
	"time"

	"github.com/patrickmn/go-cache"
)

var memCache *cache.Cache

// Init 初始化进程级内存缓存
func Init(defaultExpiration time.Duration) {
	memCache = cache.New(defaultExpiration, 2*defaultExpiration)
}

func ensure() *cache.Cache {
	if memCache == nil {
		memCache = cache.New(time.Hour, 2*time.Hour)
	}
	return memCache
}

// Get 读取缓存
func Get(key string) (interface{}, bool) {
	return ensure().Get(key)
}

// Set 写入缓存，使用默认过期时间
func Set(key string, value interface{}) {
	ensure().SetDefault(key, value)
}

// SetWithTTL 写入缓存并指定过期时间
func SetWithTTL(key string, value interface{}, ttl time.Duration) {
	ensure().Set(key, value, ttl)
}

// Delete 删除缓存
func Delete(key string) {
	ensure().Delete(key)
}

// Flush 清空缓存，测试用
func Flush() {
	ensure().Flush()
}
