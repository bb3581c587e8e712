package library

import (
	"time"

	"github.com/xxxsen/retrodav/metadata"
	"github.com/xxxsen/retrodav/storage"
)

type config struct {
	thread        int
	retry         int
	retryInterval time.Duration
	providers     []storage.IStorageProvider
	meta          metadata.IProvider
}

type Option func(c *config)

func WithThread(n int) Option {
	return func(c *config) {
		c.thread = n
	}
}

func WithRetry(n int, interval time.Duration) Option {
	return func(c *config) {
		c.retry = n
		c.retryInterval = interval
	}
}

func WithProvider(ps ...storage.IStorageProvider) Option {
	return func(c *config) {
		c.providers = append(c.providers, ps...)
	}
}

// WithMetadataProvider 设置外部元数据源, 未设置时只按文件名推断
func WithMetadataProvider(p metadata.IProvider) Option {
	return func(c *config) {
		c.meta = p
	}
}
