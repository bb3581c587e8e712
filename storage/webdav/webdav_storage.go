package webdav

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/utils"
	"github.com/xxxsen/retrodav/davclient"
	"github.com/xxxsen/retrodav/davscan"
	"github.com/xxxsen/retrodav/davuri"
	"github.com/xxxsen/retrodav/entity"
	"github.com/xxxsen/retrodav/romcache"
	"github.com/xxxsen/retrodav/storage"
	"go.uber.org/zap"
)

const (
	Kind = "webdav"

	defaultSaveDir     = ".retrodav/saves"
	defaultMaxSaveSize = 16 * 1024 * 1024
)

type config struct {
	URL       string `json:"url"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	Timeout   int64  `json:"timeout"` //秒
	Recursive bool   `json:"recursive"`
	MaxDepth  int    `json:"max_depth"`
}

type webdavStorage struct {
	id      string
	c       *config
	root    *url.URL //逻辑地址, 以/结尾
	cli     davclient.IClient
	scanner *davscan.Scanner
	cache   romcache.IRomCache
}

func New(id string, c *config, cache romcache.IRomCache) (storage.IStorageProvider, error) {
	root, err := parseRoot(c.URL)
	if err != nil {
		return nil, err
	}
	opts := []davclient.Option{davclient.WithAuth(c.Username, c.Password)}
	if c.Timeout > 0 {
		opts = append(opts, davclient.WithTimeout(time.Duration(c.Timeout)*time.Second))
	}
	cli, err := davclient.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create dav client failed, err:%w", err)
	}
	return newWithClient(id, c, root, cli, cache), nil
}

func newWithClient(id string, c *config, root *url.URL, cli davclient.IClient, cache romcache.IRomCache) *webdavStorage {
	return &webdavStorage{
		id:      id,
		c:       c,
		root:    root,
		cli:     cli,
		scanner: davscan.New(cli),
		cache:   cache,
	}
}

// parseRoot 配置中允许填写 http/https 地址, 统一转换为逻辑地址保存
func parseRoot(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("parse webdav url failed, url:%s, err:%w", raw, err)
	}
	if davuri.IsTransport(u) {
		u, err = davuri.ToLogical(u)
		if err != nil {
			return nil, err
		}
	}
	if !davuri.IsLogical(u) {
		return nil, fmt.Errorf("invalid webdav url scheme, url:%s, err:%w", raw, davuri.ErrUnsupportedScheme)
	}
	if len(u.Host) == 0 {
		return nil, fmt.Errorf("no host found in webdav url:%s", raw)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
		if len(u.RawPath) > 0 {
			u.RawPath += "/"
		}
	}
	return u, nil
}

func (w *webdavStorage) ID() string {
	return w.id
}

func (w *webdavStorage) Kind() string {
	return Kind
}

func (w *webdavStorage) URISchemes() []string {
	return []string{davuri.SchemeWebdav, davuri.SchemeWebdavs}
}

func (w *webdavStorage) ListFiles(ctx context.Context) ([]*entity.StorageFile, error) {
	if w.c.Recursive {
		return w.scanner.WalkFiles(ctx, w.root, w.c.MaxDepth)
	}
	return w.scanner.ListFiles(ctx, w.root)
}

func (w *webdavStorage) gameUri(game *entity.GameItem) (*url.URL, error) {
	u, err := url.Parse(game.FileUri)
	if err != nil {
		return nil, fmt.Errorf("parse game uri failed, uri:%s, err:%w", game.FileUri, err)
	}
	// 只允许访问当前provider根目录下的资源, scheme与host都需要一致
	if !davuri.IsLogical(u) || u.Scheme != w.root.Scheme || u.Host != w.root.Host {
		return nil, fmt.Errorf("uri:%s, err:%w", game.FileUri, storage.ErrInvalidGameUri)
	}
	if !strings.HasPrefix(path.Clean(u.Path), w.root.Path) {
		return nil, fmt.Errorf("uri out of root, uri:%s, err:%w", game.FileUri, storage.ErrInvalidGameUri)
	}
	return u, nil
}

func (w *webdavStorage) OpenRom(ctx context.Context, game *entity.GameItem) (string, error) {
	if w.cache == nil {
		return "", fmt.Errorf("no rom cache configured")
	}
	u, err := w.gameUri(game)
	if err != nil {
		return "", err
	}
	return w.cache.Load(ctx, game.FileUri, game.FileName, game.FileSize, func(ctx context.Context) (io.ReadCloser, error) {
		return w.cli.Download(ctx, u)
	})
}

func (w *webdavStorage) saveUri(game *entity.GameItem) *url.URL {
	return w.root.JoinPath(defaultSaveDir, url.PathEscape(storage.SaveFileName(game)))
}

func (w *webdavStorage) GetSave(ctx context.Context, game *entity.GameItem) ([]byte, error) {
	u := w.saveUri(game)
	rc, err := w.cli.Download(ctx, u)
	if errors.Is(err, davclient.ErrNotFound) {
		logutil.GetLogger(ctx).Debug("no save found", zap.String("uri", u.Redacted()))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("download save failed, err:%w", err)
	}
	defer rc.Close()
	raw, err := io.ReadAll(io.LimitReader(rc, defaultMaxSaveSize+1))
	if err != nil {
		return nil, fmt.Errorf("read save failed, err:%w", err)
	}
	if len(raw) > defaultMaxSaveSize {
		return nil, fmt.Errorf("save size exceed limit:%d", defaultMaxSaveSize)
	}
	return raw, nil
}

// SetSave 存档目录不存在时服务端返回409, 此时逐级创建目录后重试一次
func (w *webdavStorage) SetSave(ctx context.Context, game *entity.GameItem, data []byte) error {
	u := w.saveUri(game)
	err := w.cli.Upload(ctx, u, bytes.NewReader(data), int64(len(data)))
	if err == nil {
		return nil
	}
	var se *davclient.StatusError
	if !errors.As(err, &se) || (se.Code != http.StatusConflict && se.Code != http.StatusNotFound) {
		return fmt.Errorf("upload save failed, err:%w", err)
	}
	logutil.GetLogger(ctx).Debug("save dir not exist, create it", zap.String("uri", u.Redacted()))
	if err := w.ensureSaveDir(ctx); err != nil {
		return err
	}
	if err := w.cli.Upload(ctx, u, bytes.NewReader(data), int64(len(data))); err != nil {
		return fmt.Errorf("upload save failed, err:%w", err)
	}
	return nil
}

func (w *webdavStorage) ensureSaveDir(ctx context.Context) error {
	cur := w.root
	for _, item := range strings.Split(defaultSaveDir, "/") {
		cur = cur.JoinPath(item + "/")
		if err := w.cli.Mkcol(ctx, cur); err != nil {
			return fmt.Errorf("create save dir failed, dir:%s, err:%w", cur.Redacted(), err)
		}
	}
	return nil
}

func create(id string, args interface{}, dep *storage.Dependency) (storage.IStorageProvider, error) {
	c := &config{}
	if err := utils.ConvStructJson(args, c); err != nil {
		return nil, err
	}
	return New(id, c, dep.RomCache)
}

func init() {
	storage.Register(Kind, create)
}
