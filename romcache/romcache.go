package romcache

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/dustin/go-humanize"
	explru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/retrodav/cacheapi"
	cachewrap "github.com/xxxsen/retrodav/cacheapi/adaptor"
	"github.com/xxxsen/retrodav/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	defaultCacheDirName = "retrodav-roms"
	defaultCacheSize    = 4 * 1024 * 1024 * 1024
	defaultAvgRomSize   = 4 * 1024 * 1024
	defaultMinCounters  = 1000
	defaultOverflowTTL  = 10 * time.Minute
	defaultOverflowSize = 8
)

type OpenFunc func(ctx context.Context) (io.ReadCloser, error)

// IRomCache 远端ROM的本地磁盘缓存, 模拟器只能打开本地文件, 因此所有远端ROM都需要先落地
type IRomCache interface {
	// Load 返回key对应的本地文件路径, 未命中或者大小与expectSize不一致时通过cb重新拉取
	// expectSize <= 0 时不校验大小
	Load(ctx context.Context, key string, name string, expectSize int64, cb OpenFunc) (string, error)
	Remove(ctx context.Context, key string) error
}

type romEntry struct {
	Path string
	Size int64
}

type Config struct {
	Dir     string
	MaxSize int64

	// OverflowTTL 未能进入索引的文件在磁盘上的保留时长, 过期后删除
	OverflowTTL time.Duration
}

func NewDefaultConfig() *Config {
	return &Config{
		Dir:     filepath.Join(os.TempDir(), defaultCacheDirName),
		MaxSize: defaultCacheSize,
	}
}

type romCacheImpl struct {
	c        *Config
	cache    cacheapi.ICache[string, *romEntry] //hash(key) => 本地文件
	overflow cacheapi.ICache[string, *romEntry] //被ristretto拒绝的文件, 短暂保留
	sf       singleflight.Group
}

func New(c *Config) (IRomCache, error) {
	if len(c.Dir) == 0 {
		return nil, fmt.Errorf("no rom cache dir provided")
	}
	if c.MaxSize <= 0 {
		c.MaxSize = defaultCacheSize
	}
	if c.OverflowTTL <= 0 {
		c.OverflowTTL = defaultOverflowTTL
	}
	impl := &romCacheImpl{c: c}
	impl.overflow = cachewrap.WrapExpirableLruCache(explru.NewLRU[string, *romEntry](defaultOverflowSize, impl.onOverflowEvict, c.OverflowTTL))
	counters := c.MaxSize / defaultAvgRomSize * 10
	if counters < defaultMinCounters {
		counters = defaultMinCounters
	}
	cc, err := ristretto.NewCache(&ristretto.Config[string, *romEntry]{
		NumCounters:        counters,
		MaxCost:            c.MaxSize,
		BufferItems:        64,
		IgnoreInternalCost: true,
		Cost: func(value *romEntry) int64 {
			return value.Size
		},
		OnEvict: func(item *ristretto.Item[*romEntry]) {
			impl.onEvict(item.Value)
		},
		OnReject: func(item *ristretto.Item[*romEntry]) {
			impl.onReject(item.Value)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create rom cache failed, err:%w", err)
	}
	impl.cache = cachewrap.WrapRistrettoCache(cc)
	if err := impl.loadFromDisk(); err != nil {
		return nil, err
	}
	return impl, nil
}

func (r *romCacheImpl) onEvict(ent *romEntry) {
	if ent == nil {
		return
	}
	_ = os.RemoveAll(filepath.Dir(ent.Path))
	logutil.GetLogger(context.Background()).Debug("evict rom cache", zap.String("path", ent.Path), zap.Int64("size", ent.Size))
}

func hashKeyOf(ent *romEntry) string {
	return filepath.Base(filepath.Dir(ent.Path))
}

// onReject 被拒绝的文件暂存在overflow中, 调用方仍可以在保留时长内打开它
func (r *romCacheImpl) onReject(ent *romEntry) {
	if ent == nil {
		return
	}
	logutil.GetLogger(context.Background()).Warn("rom cache item rejected, keep it as overflow file",
		zap.String("path", ent.Path), zap.String("size", humanize.IBytes(uint64(ent.Size))),
		zap.Duration("ttl", r.c.OverflowTTL))
	_ = r.overflow.Set(context.Background(), hashKeyOf(ent), ent)
}

func (r *romCacheImpl) onOverflowEvict(hkey string, ent *romEntry) {
	if ent == nil {
		return
	}
	// 同一个文件之后可能又被索引了, 这种情况下不能删除
	if cur, err := r.cache.Get(context.Background(), hkey); err == nil && cur.Path == ent.Path {
		return
	}
	_ = os.RemoveAll(filepath.Dir(ent.Path))
	logutil.GetLogger(context.Background()).Debug("remove overflow rom file", zap.String("path", ent.Path), zap.Int64("size", ent.Size))
}

// buildLocation 文件路径: dir/hash[:2]/hash/name, 保留原始文件名让模拟器可以按后缀识别格式
func (r *romCacheImpl) buildLocation(hkey string, name string) string {
	return filepath.Join(r.c.Dir, hkey[:2], hkey, sanitizeName(name))
}

func sanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == ".." || name == string(filepath.Separator) || len(name) == 0 {
		return "rom.bin"
	}
	return name
}

func (r *romCacheImpl) lookup(ctx context.Context, hkey string, expectSize int64) (*romEntry, bool) {
	ent, err := r.cache.Get(ctx, hkey)
	if err != nil {
		if ent, err = r.overflow.Get(ctx, hkey); err != nil {
			return nil, false
		}
	}
	st, err := os.Stat(ent.Path)
	if err != nil {
		_ = r.cache.Del(ctx, hkey)
		return nil, false
	}
	if expectSize > 0 && st.Size() != expectSize {
		logutil.GetLogger(ctx).Debug("rom cache size mismatch, refetch", zap.String("path", ent.Path),
			zap.Int64("cache_size", st.Size()), zap.Int64("expect_size", expectSize))
		return nil, false
	}
	return ent, true
}

func (r *romCacheImpl) Load(ctx context.Context, key string, name string, expectSize int64, cb OpenFunc) (string, error) {
	hkey := utils.KeyHashHex(key)
	if ent, ok := r.lookup(ctx, hkey, expectSize); ok {
		logutil.GetLogger(ctx).Debug("read rom from cache", zap.String("key", key), zap.String("path", ent.Path))
		return ent.Path, nil
	}
	res, err, _ := r.sf.Do(hkey, func() (interface{}, error) {
		if ent, ok := r.lookup(ctx, hkey, expectSize); ok {
			return ent.Path, nil
		}
		return r.fetch(ctx, hkey, key, name, cb)
	})
	if err != nil {
		return "", err
	}
	return res.(string), nil
}

func (r *romCacheImpl) fetch(ctx context.Context, hkey string, key string, name string, cb OpenFunc) (string, error) {
	rc, err := cb(ctx)
	if err != nil {
		return "", err
	}
	defer rc.Close()
	location := r.buildLocation(hkey, name)
	sz, err := utils.SafeSaveIOToFile(location, rc)
	if err != nil {
		return "", fmt.Errorf("save rom to cache failed, key:%s, err:%w", key, err)
	}
	ent := &romEntry{Path: location, Size: sz}
	if err := r.cache.Set(ctx, hkey, ent); err != nil {
		logutil.GetLogger(ctx).Warn("add rom to cache index failed", zap.String("key", key), zap.Error(err))
		r.onReject(ent)
	}
	logutil.GetLogger(ctx).Info("rom saved to cache", zap.String("key", key), zap.String("path", location),
		zap.String("size", humanize.IBytes(uint64(sz))))
	return location, nil
}

func (r *romCacheImpl) Remove(ctx context.Context, key string) error {
	hkey := utils.KeyHashHex(key)
	_ = r.overflow.Del(ctx, hkey)
	ent, err := r.cache.Get(ctx, hkey)
	if err != nil {
		return nil
	}
	_ = r.cache.Del(ctx, hkey)
	if err := os.RemoveAll(filepath.Dir(ent.Path)); err != nil {
		return fmt.Errorf("remove rom cache failed, key:%s, err:%w", key, err)
	}
	return nil
}

// loadFromDisk 启动时把已有的缓存文件重新加入索引, 并清理未写完的临时文件
func (r *romCacheImpl) loadFromDisk() error {
	if err := os.MkdirAll(r.c.Dir, 0755); err != nil {
		return fmt.Errorf("create rom cache dir failed, err:%w", err)
	}
	ctx := context.Background()
	err := filepath.Walk(r.c.Dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if strings.HasSuffix(info.Name(), utils.TempFileSuffix) {
			logutil.GetLogger(ctx).Error("remove unfinished rom cache temp file", zap.String("path", path))
			_ = os.Remove(path)
			return nil
		}
		rel, err := filepath.Rel(r.c.Dir, path)
		if err != nil {
			return nil
		}
		items := strings.Split(filepath.ToSlash(rel), "/")
		if len(items) != 3 || len(items[1]) != 16 || items[0] != items[1][:2] {
			logutil.GetLogger(ctx).Debug("skip non-cache file", zap.String("path", path))
			return nil
		}
		ent := &romEntry{Path: path, Size: info.Size()}
		if err := r.cache.Set(ctx, items[1], ent); err != nil {
			logutil.GetLogger(ctx).Warn("reload rom cache failed", zap.String("path", path), zap.Error(err))
			r.onReject(ent)
			return nil
		}
		logutil.GetLogger(ctx).Debug("load rom to cache", zap.String("path", path), zap.Int64("size", info.Size()))
		return nil
	})
	if err != nil {
		return fmt.Errorf("load rom cache from disk failed, err:%w", err)
	}
	return nil
}
