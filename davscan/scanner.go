package davscan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/retrodav/davclient"
	"github.com/xxxsen/retrodav/davuri"
	"github.com/xxxsen/retrodav/davxml"
	"github.com/xxxsen/retrodav/entity"
	"go.uber.org/zap"
)

const (
	hiddenFilePrefix     = "."
	defaultMaxDepthLimit = 16
)

// Entry 扫描得到的一个远端条目, URI 为逻辑地址
type Entry struct {
	Name         string
	Size         int64
	IsDir        bool
	CreationDate string
	URI          *url.URL
}

type ScanCallbackFunc func(ctx context.Context, ent *Entry) (bool, error)

type Scanner struct {
	cli davclient.IClient
}

func New(cli davclient.IClient) *Scanner {
	return &Scanner{cli: cli}
}

// Scan 对root发起一次 PROPFIND(Depth: 1), 按文档顺序回调每个可见条目(不含root自身)
// cb 返回false时提前结束, 无论成功与否都会释放响应body
func (s *Scanner) Scan(ctx context.Context, root *url.URL, cb ScanCallbackFunc) error {
	troot, err := davuri.ToTransport(root)
	if err != nil {
		return err
	}
	troot = asCollection(troot)
	body, err := s.cli.Propfind(ctx, troot)
	if err != nil {
		return fmt.Errorf("propfind failed, root:%s, err:%w", troot.Redacted(), err)
	}
	defer body.Close()
	ms, err := davxml.NewMultiStatusReader(body)
	if err != nil {
		return fmt.Errorf("open multistatus failed, root:%s, err:%w", troot.Redacted(), err)
	}
	for {
		rsp, err := ms.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read multistatus failed, root:%s, err:%w", troot.Redacted(), err)
		}
		ent, ok := s.toEntry(ctx, troot, rsp)
		if !ok {
			continue
		}
		next, err := cb(ctx, ent)
		if err != nil {
			return err
		}
		if !next {
			return nil
		}
	}
}

func (s *Scanner) toEntry(ctx context.Context, troot *url.URL, rsp *davxml.Response) (*Entry, bool) {
	if rsp.Href == nil || len(*rsp.Href) == 0 {
		logutil.GetLogger(ctx).Debug("skip response without href")
		return nil, false
	}
	ref, err := url.Parse(*rsp.Href)
	if err != nil {
		logutil.GetLogger(ctx).Warn("skip response with invalid href", zap.String("href", *rsp.Href), zap.Error(err))
		return nil, false
	}
	resolved := troot.ResolveReference(ref)
	if isSameLocation(resolved, troot) {
		return nil, false
	}
	ent := &Entry{
		IsDir: rsp.IsCollection(),
	}
	if p := rsp.Prop(); p != nil {
		ent.Size = p.ContentLength
		if p.CreationDate != nil {
			ent.CreationDate = *p.CreationDate
		}
	}
	ent.Name = s.decodeName(rsp.Prop(), resolved)
	if len(ent.Name) == 0 || strings.HasPrefix(ent.Name, hiddenFilePrefix) {
		return nil, false
	}
	logical, err := davuri.ToLogical(resolved)
	if err != nil {
		logutil.GetLogger(ctx).Warn("skip response with unsupported href", zap.String("href", *rsp.Href), zap.Error(err))
		return nil, false
	}
	ent.URI = logical
	return ent, true
}

// decodeName 优先使用 displayname(服务端做了百分号编码, 按表单规则解码), 缺失时退化为href的最后一段
func (s *Scanner) decodeName(p *davxml.Prop, resolved *url.URL) string {
	if p != nil && p.DisplayName != nil && len(*p.DisplayName) > 0 {
		name, err := url.QueryUnescape(*p.DisplayName)
		if err != nil {
			return *p.DisplayName
		}
		return name
	}
	base := path.Base(strings.TrimSuffix(resolved.Path, "/"))
	if base == "/" || base == "." {
		return ""
	}
	return base
}

func collectionPath(p string) string {
	return strings.TrimSuffix(p, "/") + "/"
}

// asCollection 相对href需要基于目录解析, 缺少结尾的"/"时补上
func asCollection(u *url.URL) *url.URL {
	if strings.HasSuffix(u.Path, "/") {
		return u
	}
	cp := *u
	cp.Path = collectionPath(u.Path)
	if len(cp.RawPath) > 0 {
		cp.RawPath = collectionPath(cp.RawPath)
	}
	return &cp
}

func locationKey(u *url.URL) string {
	return u.Host + strings.TrimSuffix(u.Path, "/")
}

func isSameLocation(a, b *url.URL) bool {
	if a.Host != b.Host {
		return false
	}
	return strings.TrimSuffix(a.Path, "/") == strings.TrimSuffix(b.Path, "/")
}

// ListFiles 返回root下一层的文件(不含目录), 失败时不返回部分结果
func (s *Scanner) ListFiles(ctx context.Context, root *url.URL) ([]*entity.StorageFile, error) {
	rs := make([]*entity.StorageFile, 0, 32)
	if err := s.Scan(ctx, root, func(ctx context.Context, ent *Entry) (bool, error) {
		if !ent.IsDir {
			rs = append(rs, ent.ToStorageFile())
		}
		return true, nil
	}); err != nil {
		return nil, err
	}
	return rs, nil
}

// Walk 在Scan的基础上逐级向下扫描子目录, 每一层的响应body在进入下一层之前就已释放
func (s *Scanner) Walk(ctx context.Context, root *url.URL, maxDepth int, cb ScanCallbackFunc) error {
	if maxDepth <= 0 || maxDepth > defaultMaxDepthLimit {
		maxDepth = defaultMaxDepthLimit
	}
	w := &walker{
		rootPath: collectionPath(root.Path),
		maxDepth: maxDepth,
		visited:  make(map[string]struct{}, 16),
		cb:       cb,
	}
	w.visited[locationKey(root)] = struct{}{}
	_, err := s.walk(ctx, w, root, 1)
	return err
}

type walker struct {
	rootPath string
	maxDepth int
	visited  map[string]struct{}
	cb       ScanCallbackFunc
}

// enter 判断子目录是否需要继续向下扫描, 已扫描过的目录以及root之外的目录都不再进入
func (w *walker) enter(u *url.URL) bool {
	if !strings.HasPrefix(collectionPath(u.Path), w.rootPath) {
		return false
	}
	key := locationKey(u)
	if _, ok := w.visited[key]; ok {
		return false
	}
	w.visited[key] = struct{}{}
	return true
}

func (s *Scanner) walk(ctx context.Context, w *walker, dir *url.URL, depth int) (bool, error) {
	var subdirs []*url.URL
	next := true
	if err := s.Scan(ctx, dir, func(ctx context.Context, ent *Entry) (bool, error) {
		if ent.IsDir && depth < w.maxDepth && w.enter(ent.URI) {
			subdirs = append(subdirs, ent.URI)
		}
		ok, err := w.cb(ctx, ent)
		if err != nil {
			return false, err
		}
		next = ok
		return ok, nil
	}); err != nil {
		return false, err
	}
	if !next {
		return false, nil
	}
	for _, sub := range subdirs {
		ok, err := s.walk(ctx, w, sub, depth+1)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// WalkFiles 递归收集文件, 失败时不返回部分结果
func (s *Scanner) WalkFiles(ctx context.Context, root *url.URL, maxDepth int) ([]*entity.StorageFile, error) {
	rs := make([]*entity.StorageFile, 0, 32)
	if err := s.Walk(ctx, root, maxDepth, func(ctx context.Context, ent *Entry) (bool, error) {
		if !ent.IsDir {
			rs = append(rs, ent.ToStorageFile())
		}
		return true, nil
	}); err != nil {
		return nil, err
	}
	return rs, nil
}

func (e *Entry) ToStorageFile() *entity.StorageFile {
	return &entity.StorageFile{
		Name: e.Name,
		Size: e.Size,
		URI:  e.URI.String(),
	}
}
