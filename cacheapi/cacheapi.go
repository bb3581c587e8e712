package cacheapi

import (
	"context"
	"errors"
)

var (
	ErrCacheKeyNotExist = errors.New("cache key not exist")
)

type ICacheGetter[K comparable, V any] interface {
	Get(ctx context.Context, k K) (V, error)
}

type ICacheSetter[K comparable, V any] interface {
	Set(ctx context.Context, k K, v V) error
}

type ICacheDeleter[K comparable] interface {
	Del(ctx context.Context, k K) error
}

type ICacheLoader[K comparable, V any] interface {
	ICacheGetter[K, V]
	ICacheSetter[K, V]
}

type ICache[K comparable, V any] interface {
	ICacheLoader[K, V]
	ICacheDeleter[K]
}

type LoadCacheCallbackFunc[K comparable, V any] func(ctx context.Context, miss []K) (map[K]V, error)

// Load 读取单个key, 回调中也不存在时返回零值
func Load[K comparable, V any](ctx context.Context, c ICacheLoader[K, V], k K, cb LoadCacheCallbackFunc[K, V]) (V, bool, error) {
	var zero V
	rs, err := LoadMany(ctx, c, []K{k}, cb)
	if err != nil {
		return zero, false, err
	}
	v, ok := rs[k]
	return v, ok, nil
}

// LoadMany 先查缓存, 未命中的key统一交给cb回源, 回源结果写回缓存
func LoadMany[K comparable, V any](ctx context.Context, c ICacheLoader[K, V], ks []K, cb LoadCacheCallbackFunc[K, V]) (map[K]V, error) {
	m := make(map[K]V, len(ks))
	miss := make([]K, 0, len(ks))
	for _, k := range ks {
		v, err := c.Get(ctx, k)
		if errors.Is(err, ErrCacheKeyNotExist) {
			miss = append(miss, k)
			continue
		}
		if err != nil {
			return nil, err
		}
		m[k] = v
	}
	if len(miss) == 0 {
		return m, nil
	}
	rs, err := cb(ctx, miss)
	if err != nil {
		return nil, err
	}
	for k, v := range rs {
		m[k] = v
		_ = c.Set(ctx, k, v)
	}
	return m, nil
}

// DelMany 批量删除, 返回第一个失败的错误
func DelMany[K comparable](ctx context.Context, c ICacheDeleter[K], ks []K) error {
	var first error
	for _, k := range ks {
		if err := c.Del(ctx, k); err != nil && first == nil {
			first = err
		}
	}
	return first
}
