package server

import "github.com/xxxsen/retrodav/library"

type config struct {
	userMap     map[string]string
	lib         library.ILibrary
	maxSaveSize int64
	shareEnable bool
	shareDir    string
}

type Option func(c *config)

func WithUser(m map[string]string) Option {
	return func(c *config) {
		c.userMap = m
	}
}

func WithLibrary(lib library.ILibrary) Option {
	return func(c *config) {
		c.lib = lib
	}
}

func WithMaxSaveSize(sz int64) Option {
	return func(c *config) {
		c.maxSaveSize = sz
	}
}

func applyOpts(opts ...Option) *config {
	c := &config{
		maxSaveSize: defaultMaxSaveSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func WithEnableWebdavShare(v bool, dir string) Option {
	return func(c *config) {
		c.shareEnable = v
		c.shareDir = dir
	}
}
