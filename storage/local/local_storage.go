package local

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/utils"
	"github.com/xxxsen/retrodav/entity"
	"github.com/xxxsen/retrodav/storage"
	rdutils "github.com/xxxsen/retrodav/utils"
	"go.uber.org/zap"
)

const (
	Kind       = "local"
	SchemeFile = "file"

	defaultSaveDir = ".retrodav/saves"
)

type config struct {
	Dir string `json:"dir"`
}

type localStorage struct {
	id  string
	dir string
}

func New(id string, dir string) (storage.IStorageProvider, error) {
	if len(dir) == 0 {
		return nil, fmt.Errorf("no local dir provided")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve local dir failed, dir:%s, err:%w", dir, err)
	}
	return &localStorage{id: id, dir: abs}, nil
}

func (l *localStorage) ID() string {
	return l.id
}

func (l *localStorage) Kind() string {
	return Kind
}

func (l *localStorage) URISchemes() []string {
	return []string{SchemeFile}
}

func fileUri(p string) string {
	u := &url.URL{Scheme: SchemeFile, Path: filepath.ToSlash(p)}
	return u.String()
}

// ListFiles 只处理一层, 跳过目录及隐藏文件, 同时计算crc32供元数据匹配
func (l *localStorage) ListFiles(ctx context.Context) ([]*entity.StorageFile, error) {
	ents, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("read local dir failed, dir:%s, err:%w", l.dir, err)
	}
	rs := make([]*entity.StorageFile, 0, len(ents))
	for _, ent := range ents {
		if ent.IsDir() || strings.HasPrefix(ent.Name(), ".") {
			continue
		}
		full := filepath.Join(l.dir, ent.Name())
		info, err := ent.Info()
		if err != nil {
			logutil.GetLogger(ctx).Warn("stat local file failed, skip", zap.String("path", full), zap.Error(err))
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}
		crc, err := fileCrc32(full)
		if err != nil {
			logutil.GetLogger(ctx).Warn("calc crc32 failed, skip", zap.String("path", full), zap.Error(err))
			continue
		}
		rs = append(rs, &entity.StorageFile{
			Name:        ent.Name(),
			Size:        info.Size(),
			ContentHash: &crc,
			URI:         fileUri(full),
		})
	}
	return rs, nil
}

func fileCrc32(p string) (string, error) {
	f, err := os.Open(p)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := crc32.NewIEEE()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%08X", h.Sum32()), nil
}

func (l *localStorage) gamePath(game *entity.GameItem) (string, error) {
	u, err := url.Parse(game.FileUri)
	if err != nil {
		return "", fmt.Errorf("parse game uri failed, uri:%s, err:%w", game.FileUri, err)
	}
	if u.Scheme != SchemeFile {
		return "", fmt.Errorf("uri:%s, err:%w", game.FileUri, storage.ErrInvalidGameUri)
	}
	p := filepath.FromSlash(u.Path)
	rel, err := filepath.Rel(l.dir, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("uri:%s, err:%w", game.FileUri, storage.ErrInvalidGameUri)
	}
	return p, nil
}

func (l *localStorage) OpenRom(ctx context.Context, game *entity.GameItem) (string, error) {
	p, err := l.gamePath(game)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(p); err != nil {
		return "", fmt.Errorf("stat rom failed, path:%s, err:%w", p, err)
	}
	return p, nil
}

func (l *localStorage) savePath(game *entity.GameItem) string {
	return filepath.Join(l.dir, filepath.FromSlash(defaultSaveDir), filepath.Base(storage.SaveFileName(game)))
}

func (l *localStorage) GetSave(ctx context.Context, game *entity.GameItem) ([]byte, error) {
	raw, err := os.ReadFile(l.savePath(game))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read save failed, err:%w", err)
	}
	return raw, nil
}

func (l *localStorage) SetSave(ctx context.Context, game *entity.GameItem, data []byte) error {
	if _, err := rdutils.SafeSaveIOToFile(l.savePath(game), bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write save failed, err:%w", err)
	}
	return nil
}

func create(id string, args interface{}, dep *storage.Dependency) (storage.IStorageProvider, error) {
	c := &config{}
	if err := utils.ConvStructJson(args, c); err != nil {
		return nil, err
	}
	return New(id, c.Dir)
}

func init() {
	storage.Register(Kind, create)
}
