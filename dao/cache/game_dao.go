package cache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/retrodav/cacheapi"
	cachewrap "github.com/xxxsen/retrodav/cacheapi/adaptor"
	"github.com/xxxsen/retrodav/dao"
	"github.com/xxxsen/retrodav/entity"
)

const (
	defaultMaxGameDaoCacheSize    = 20000
	defaultGameDaoCacheExpireTime = 24 * time.Hour
)

type gameDao struct {
	dao.IGameDao
	cache cacheapi.ICache[uint64, *entity.GameItem]
}

func NewGameDao(impl dao.IGameDao) dao.IGameDao {
	cc := lru.NewLRU[uint64, *entity.GameItem](defaultMaxGameDaoCacheSize, nil, defaultGameDaoCacheExpireTime)
	return &gameDao{
		IGameDao: impl,
		cache:    cachewrap.WrapExpirableLruCache(cc),
	}
}

func (g *gameDao) UpsertGame(ctx context.Context, req *entity.UpsertGameRequest) (*entity.UpsertGameResponse, error) {
	rsp, err := g.IGameDao.UpsertGame(ctx, req)
	if err != nil {
		return nil, err
	}
	_ = g.cache.Del(ctx, rsp.GameId)
	return rsp, nil
}

func (g *gameDao) GetGame(ctx context.Context, req *entity.GetGameRequest) (*entity.GetGameResponse, error) {
	m, err := cacheapi.LoadMany(ctx, g.cache, req.GameIds, func(ctx context.Context, miss []uint64) (map[uint64]*entity.GameItem, error) {
		res, err := g.IGameDao.GetGame(ctx, &entity.GetGameRequest{
			GameIds: miss,
		})
		if err != nil {
			return nil, err
		}
		rs := make(map[uint64]*entity.GameItem, len(res.List))
		for _, item := range res.List {
			rs[item.GameId] = item
		}
		return rs, nil
	})
	if err != nil {
		return nil, err
	}
	rsp := &entity.GetGameResponse{}
	for _, gid := range req.GameIds {
		v, ok := m[gid]
		if !ok {
			continue
		}
		rsp.List = append(rsp.List, v)
	}
	return rsp, nil
}

func (g *gameDao) DeleteStaleGame(ctx context.Context, req *entity.DeleteStaleGameRequest) (*entity.DeleteStaleGameResponse, error) {
	rsp, err := g.IGameDao.DeleteStaleGame(ctx, req)
	if err != nil {
		return nil, err
	}
	_ = cacheapi.DelMany(ctx, g.cache, rsp.GameIds)
	return rsp, nil
}

func (g *gameDao) MarkGamePlayed(ctx context.Context, req *entity.MarkGamePlayedRequest) (*entity.MarkGamePlayedResponse, error) {
	defer g.cache.Del(ctx, req.GameId)
	return g.IGameDao.MarkGamePlayed(ctx, req)
}

func (g *gameDao) SetGameFavorite(ctx context.Context, req *entity.SetGameFavoriteRequest) (*entity.SetGameFavoriteResponse, error) {
	defer g.cache.Del(ctx, req.GameId)
	return g.IGameDao.SetGameFavorite(ctx, req)
}
