package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type RomCacheConfig struct {
	Dir  string `json:"dir"`
	Size int64  `json:"size"`
}

type RefreshConfig struct {
	Thread        int   `json:"thread"`
	Retry         int   `json:"retry"`
	RetryInterval int64 `json:"retry_interval"` //毫秒
	OnStart       bool  `json:"on_start"`
}

type ProviderConfig struct {
	ID     string      `json:"id"`
	Kind   string      `json:"kind"`
	Enable bool        `json:"enable"`
	Config interface{} `json:"config"`
}

type WebdavShareConfig struct {
	Enable bool   `json:"enable"`
	Dir    string `json:"dir"`
}

type MetadataConfig struct {
	OvgdbFile string `json:"ovgdb_file"` //OpenVGDB sqlite文件, 为空时只按文件名推断
}

type Config struct {
	Bind        string            `json:"bind"`
	LogInfo     logger.LogConfig  `json:"log_info"`
	DBFile      string            `json:"db_file"`
	UserInfo    map[string]string `json:"user_info"`
	RomCache    RomCacheConfig    `json:"rom_cache"`
	Refresh     RefreshConfig     `json:"refresh"`
	Providers   []ProviderConfig  `json:"providers"`
	WebdavShare WebdavShareConfig `json:"webdav_share"`
	Metadata    MetadataConfig    `json:"metadata"`
}

func defaultConfig() *Config {
	return &Config{
		Bind:   ":9901",
		DBFile: "./retrodav.db",
		RomCache: RomCacheConfig{
			Size: 4 * 1024 * 1024 * 1024,
		},
		Refresh: RefreshConfig{
			Thread:        2,
			Retry:         3,
			RetryInterval: 2000,
		},
	}
}

func Parse(f string) (*Config, error) {
	raw, err := os.ReadFile(f)
	if err != nil {
		return nil, fmt.Errorf("read file:%w", err)
	}
	c := defaultConfig()
	if err := json.Unmarshal(raw, c); err != nil {
		return nil, fmt.Errorf("decode json failed, err:%w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) validate() error {
	exist := make(map[string]struct{}, len(c.Providers))
	for idx, p := range c.Providers {
		if len(p.ID) == 0 {
			return fmt.Errorf("provider at index:%d has no id", idx)
		}
		if len(p.Kind) == 0 {
			return fmt.Errorf("provider:%s has no kind", p.ID)
		}
		if _, ok := exist[p.ID]; ok {
			return fmt.Errorf("duplicate provider id:%s", p.ID)
		}
		exist[p.ID] = struct{}{}
	}
	if c.WebdavShare.Enable && len(c.WebdavShare.Dir) == 0 {
		return fmt.Errorf("webdav share is enabled but no dir provided")
	}
	return nil
}

func (c *Config) EnabledProviders() []ProviderConfig {
	rs := make([]ProviderConfig, 0, len(c.Providers))
	for _, p := range c.Providers {
		if !p.Enable {
			continue
		}
		rs = append(rs, p)
	}
	return rs
}
