package library

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/retry"
	"github.com/xxxsen/retrodav/dao"
	"github.com/xxxsen/retrodav/entity"
	"github.com/xxxsen/retrodav/metadata"
	"github.com/xxxsen/retrodav/storage"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultThread        = 2
	defaultRetry         = 3
	defaultRetryInterval = 2 * time.Second
)

var (
	ErrGameNotFound     = errors.New("game not found")
	ErrProviderNotFound = errors.New("storage provider not found")
	ErrRefreshRunning   = errors.New("library refresh is running")
)

type RefreshResult struct {
	Provider string        `json:"provider"`
	Listed   int           `json:"listed"`
	Indexed  int           `json:"indexed"`
	Skipped  int           `json:"skipped"`
	Removed  int           `json:"removed"`
	Cost     time.Duration `json:"cost"`
	Err      error         `json:"-"`
}

type ILibrary interface {
	Providers() []string
	Refresh(ctx context.Context) ([]*RefreshResult, error)
	GetGame(ctx context.Context, gameid uint64) (*entity.GameItem, error)
	ListGames(ctx context.Context, req *entity.ListGameRequest) ([]*entity.GameItem, error)
	SetFavorite(ctx context.Context, gameid uint64, fav bool) error
	OpenRom(ctx context.Context, gameid uint64) (*entity.GameItem, string, error)
	GetSave(ctx context.Context, gameid uint64) ([]byte, error)
	SetSave(ctx context.Context, gameid uint64, data []byte) error
}

var _ ILibrary = &Library{}

type Library struct {
	c         *config
	gameDao   dao.IGameDao
	providers map[string]storage.IStorageProvider
	refreshMu sync.Mutex
	lastIndex int64
}

func New(gameDao dao.IGameDao, opts ...Option) (*Library, error) {
	c := &config{
		thread:        defaultThread,
		retry:         defaultRetry,
		retryInterval: defaultRetryInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.thread <= 0 {
		c.thread = defaultThread
	}
	if c.retry <= 0 {
		c.retry = 1
	}
	providers := make(map[string]storage.IStorageProvider, len(c.providers))
	for _, p := range c.providers {
		if _, ok := providers[p.ID()]; ok {
			return nil, fmt.Errorf("duplicate storage provider id:%s", p.ID())
		}
		providers[p.ID()] = p
	}
	return &Library{
		c:         c,
		gameDao:   gameDao,
		providers: providers,
	}, nil
}

func (l *Library) Providers() []string {
	rs := make([]string, 0, len(l.c.providers))
	for _, p := range l.c.providers {
		rs = append(rs, p.ID())
	}
	return rs
}

// Refresh 并发扫描所有存储并写入游戏库, 单个存储失败不影响其他存储
// 返回的结果与Providers()顺序一致
func (l *Library) Refresh(ctx context.Context) ([]*RefreshResult, error) {
	if !l.refreshMu.TryLock() {
		return nil, ErrRefreshRunning
	}
	defer l.refreshMu.Unlock()
	//同一个毫秒内的两次刷新会导致过期数据无法被识别, 因此保证索引时间严格递增
	indexedAt := time.Now().UnixMilli()
	if indexedAt <= l.lastIndex {
		indexedAt = l.lastIndex + 1
	}
	l.lastIndex = indexedAt
	rs := make([]*RefreshResult, len(l.c.providers))
	eg, subctx := errgroup.WithContext(ctx)
	eg.SetLimit(l.c.thread)
	for idx, p := range l.c.providers {
		eg.Go(func() error {
			rs[idx] = l.refreshProvider(subctx, p, indexedAt)
			return nil
		})
	}
	_ = eg.Wait()
	return rs, nil
}

func (l *Library) refreshProvider(ctx context.Context, p storage.IStorageProvider, indexedAt int64) *RefreshResult {
	start := time.Now()
	res := &RefreshResult{Provider: p.ID()}
	logger := logutil.GetLogger(ctx).With(zap.String("provider", p.ID()), zap.String("kind", p.Kind()))
	defer func() {
		res.Cost = time.Since(start)
		if res.Err != nil {
			logger.Error("refresh provider failed", zap.Error(res.Err), zap.Duration("cost", res.Cost))
			return
		}
		logger.Info("refresh provider finish", zap.Int("listed", res.Listed), zap.Int("indexed", res.Indexed),
			zap.Int("skipped", res.Skipped), zap.Int("removed", res.Removed), zap.Duration("cost", res.Cost))
	}()
	var files []*entity.StorageFile
	if err := retry.RetryDo(ctx, uint32(l.c.retry), l.c.retryInterval, func(ctx context.Context) error {
		var err error
		files, err = p.ListFiles(ctx)
		if err != nil {
			logger.Warn("list files failed, wait retry", zap.Error(err))
			return err
		}
		return nil
	}); err != nil {
		res.Err = fmt.Errorf("list files failed, err:%w", err)
		return res
	}
	res.Listed = len(files)
	for _, f := range files {
		title, system, ok := metadata.Resolve(ctx, l.c.meta, f.Name, contentHash(f))
		if !ok {
			res.Skipped++
			logger.Debug("skip unknown file", zap.String("name", f.Name))
			continue
		}
		if _, err := l.gameDao.UpsertGame(ctx, &entity.UpsertGameRequest{
			ProviderId: p.ID(),
			File:       f,
			Title:      title,
			SystemId:   system,
			IndexedAt:  indexedAt,
		}); err != nil {
			res.Err = err
			return res
		}
		res.Indexed++
	}
	rsp, err := l.gameDao.DeleteStaleGame(ctx, &entity.DeleteStaleGameRequest{
		ProviderId: p.ID(),
		Before:     indexedAt,
	})
	if err != nil {
		res.Err = err
		return res
	}
	res.Removed = len(rsp.GameIds)
	return res
}

func contentHash(f *entity.StorageFile) string {
	if f.ContentHash == nil {
		return ""
	}
	return *f.ContentHash
}

func (l *Library) GetGame(ctx context.Context, gameid uint64) (*entity.GameItem, error) {
	rsp, err := l.gameDao.GetGame(ctx, &entity.GetGameRequest{GameIds: []uint64{gameid}})
	if err != nil {
		return nil, err
	}
	if len(rsp.List) == 0 {
		return nil, fmt.Errorf("game_id:%d, err:%w", gameid, ErrGameNotFound)
	}
	return rsp.List[0], nil
}

func (l *Library) ListGames(ctx context.Context, req *entity.ListGameRequest) ([]*entity.GameItem, error) {
	rsp, err := l.gameDao.ListGame(ctx, req)
	if err != nil {
		return nil, err
	}
	return rsp.List, nil
}

func (l *Library) SetFavorite(ctx context.Context, gameid uint64, fav bool) error {
	if _, err := l.GetGame(ctx, gameid); err != nil {
		return err
	}
	if _, err := l.gameDao.SetGameFavorite(ctx, &entity.SetGameFavoriteRequest{GameId: gameid, Favorite: fav}); err != nil {
		return err
	}
	return nil
}

// findProvider 优先按记录中的 provider_id 查找, 找不到时按uri的scheme兜底
func (l *Library) findProvider(game *entity.GameItem) (storage.IStorageProvider, error) {
	if p, ok := l.providers[game.ProviderId]; ok {
		return p, nil
	}
	u, err := url.Parse(game.FileUri)
	if err != nil {
		return nil, fmt.Errorf("parse game uri failed, err:%w", err)
	}
	for _, p := range l.c.providers {
		if slices.Contains(p.URISchemes(), u.Scheme) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("provider:%s, scheme:%s, err:%w", game.ProviderId, u.Scheme, ErrProviderNotFound)
}

func (l *Library) loadGameAndProvider(ctx context.Context, gameid uint64) (*entity.GameItem, storage.IStorageProvider, error) {
	game, err := l.GetGame(ctx, gameid)
	if err != nil {
		return nil, nil, err
	}
	p, err := l.findProvider(game)
	if err != nil {
		return nil, nil, err
	}
	return game, p, nil
}

// OpenRom 返回ROM的本地路径并记录游玩时间
func (l *Library) OpenRom(ctx context.Context, gameid uint64) (*entity.GameItem, string, error) {
	game, p, err := l.loadGameAndProvider(ctx, gameid)
	if err != nil {
		return nil, "", err
	}
	location, err := p.OpenRom(ctx, game)
	if err != nil {
		return nil, "", fmt.Errorf("open rom failed, game_id:%d, err:%w", gameid, err)
	}
	if _, err := l.gameDao.MarkGamePlayed(ctx, &entity.MarkGamePlayedRequest{
		GameId:   gameid,
		PlayedAt: time.Now().UnixMilli(),
	}); err != nil {
		logutil.GetLogger(ctx).Error("mark game played failed", zap.Uint64("game_id", gameid), zap.Error(err))
	}
	return game, location, nil
}

func (l *Library) GetSave(ctx context.Context, gameid uint64) ([]byte, error) {
	game, p, err := l.loadGameAndProvider(ctx, gameid)
	if err != nil {
		return nil, err
	}
	return p.GetSave(ctx, game)
}

func (l *Library) SetSave(ctx context.Context, gameid uint64, data []byte) error {
	game, p, err := l.loadGameAndProvider(ctx, gameid)
	if err != nil {
		return err
	}
	return p.SetSave(ctx, game, data)
}
