package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/xxxsen/retrodav/entity"
	"github.com/xxxsen/retrodav/romcache"
)

var (
	ErrInvalidGameUri = errors.New("game uri not belong to provider")
)

// IStorageProvider 一个ROM存储来源, 所有对外暴露的URI均为逻辑地址
type IStorageProvider interface {
	ID() string
	Kind() string
	URISchemes() []string
	ListFiles(ctx context.Context) ([]*entity.StorageFile, error)
	// OpenRom 返回ROM在本地的路径, 远端存储需要先下载到本地缓存
	OpenRom(ctx context.Context, game *entity.GameItem) (string, error)
	// GetSave 读取存档, 存档不存在时返回nil, nil
	GetSave(ctx context.Context, game *entity.GameItem) ([]byte, error)
	SetSave(ctx context.Context, game *entity.GameItem, data []byte) error
}

// Dependency 由外部注入的公共组件
type Dependency struct {
	RomCache romcache.IRomCache
}

type CreateFunc func(id string, args interface{}, dep *Dependency) (IStorageProvider, error)

var mp = make(map[string]CreateFunc)

func Register(kind string, fn CreateFunc) {
	mp[kind] = fn
}

func Create(kind string, id string, args interface{}, dep *Dependency) (IStorageProvider, error) {
	fn, ok := mp[kind]
	if !ok {
		return nil, fmt.Errorf("storage kind not found, kind:%s", kind)
	}
	if len(id) == 0 {
		return nil, fmt.Errorf("empty storage id, kind:%s", kind)
	}
	if dep == nil {
		dep = &Dependency{}
	}
	return fn(id, args, dep)
}

func List() []string {
	rs := make([]string, 0, len(mp))
	for kind := range mp {
		rs = append(rs, kind)
	}
	sort.Strings(rs)
	return rs
}

// SaveFileName 存档文件名, 与ROM文件名一一对应
func SaveFileName(game *entity.GameItem) string {
	return game.FileName + ".sram"
}
