package dao

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/retrodav/entity"

	"github.com/didi/gendry/builder"
	"github.com/xxxsen/common/database"
	"github.com/xxxsen/common/database/dbkit"
	"github.com/xxxsen/common/idgen"
)

type ScanGameCallbackFunc func(ctx context.Context, res []*entity.GameItem) (bool, error)

type IGameDao interface {
	UpsertGame(ctx context.Context, req *entity.UpsertGameRequest) (*entity.UpsertGameResponse, error)
	GetGame(ctx context.Context, req *entity.GetGameRequest) (*entity.GetGameResponse, error)
	GetGameByUri(ctx context.Context, req *entity.GetGameByUriRequest) (*entity.GetGameByUriResponse, error)
	ListGame(ctx context.Context, req *entity.ListGameRequest) (*entity.ListGameResponse, error)
	ScanGame(ctx context.Context, batch int64, cb ScanGameCallbackFunc) error
	DeleteStaleGame(ctx context.Context, req *entity.DeleteStaleGameRequest) (*entity.DeleteStaleGameResponse, error)
	MarkGamePlayed(ctx context.Context, req *entity.MarkGamePlayedRequest) (*entity.MarkGamePlayedResponse, error)
	SetGameFavorite(ctx context.Context, req *entity.SetGameFavoriteRequest) (*entity.SetGameFavoriteResponse, error)
}

type gameDaoImpl struct {
	dbc database.IDatabase
}

func NewGameDao(dbc database.IDatabase) IGameDao {
	return &gameDaoImpl{
		dbc: dbc,
	}
}

func (g *gameDaoImpl) table() string {
	return "rd_game_tab"
}

func (g *gameDaoImpl) txGetByUri(ctx context.Context, q database.IQueryer, uri string) (*entity.GameItem, bool, error) {
	where := map[string]interface{}{
		"file_uri": uri,
		"_limit":   []uint{0, 1},
	}
	rs := make([]*entity.GameItem, 0, 1)
	if err := dbkit.SimpleQuery(ctx, q, g.table(), where, &rs, dbkit.ScanWithTagName("json")); err != nil {
		return nil, false, err
	}
	if len(rs) == 0 {
		return nil, false, nil
	}
	return rs[0], true, nil
}

// UpsertGame 以 file_uri 作为唯一键, 已存在时只刷新文件相关的字段, 保留收藏及游玩记录
func (g *gameDaoImpl) UpsertGame(ctx context.Context, req *entity.UpsertGameRequest) (*entity.UpsertGameResponse, error) {
	if req.File == nil || len(req.File.URI) == 0 {
		return nil, fmt.Errorf("no file uri found")
	}
	crc := ""
	if req.File.ContentHash != nil {
		crc = *req.File.ContentHash
	}
	rsp := &entity.UpsertGameResponse{}
	if err := g.dbc.OnTransation(ctx, func(ctx context.Context, qe database.IQueryExecer) error {
		old, exist, err := g.txGetByUri(ctx, qe, req.File.URI)
		if err != nil {
			return err
		}
		now := time.Now().UnixMilli()
		if exist {
			where := map[string]interface{}{
				"game_id": old.GameId,
			}
			update := map[string]interface{}{
				"provider_id":     req.ProviderId,
				"file_name":       req.File.Name,
				"file_size":       req.File.Size,
				"crc":             crc,
				"title":           req.Title,
				"system_id":       req.SystemId,
				"last_indexed_at": req.IndexedAt,
				"mtime":           now,
			}
			sql, args, err := builder.BuildUpdate(g.table(), where, update)
			if err != nil {
				return err
			}
			if _, err := qe.ExecContext(ctx, sql, args...); err != nil {
				return err
			}
			rsp.GameId = old.GameId
			return nil
		}
		gameid := idgen.NextId()
		data := []map[string]interface{}{
			{
				"game_id":         gameid,
				"provider_id":     req.ProviderId,
				"file_name":       req.File.Name,
				"file_uri":        req.File.URI,
				"file_size":       req.File.Size,
				"crc":             crc,
				"title":           req.Title,
				"system_id":       req.SystemId,
				"last_indexed_at": req.IndexedAt,
				"last_played_at":  0,
				"is_favorite":     0,
				"ctime":           now,
				"mtime":           now,
			},
		}
		sql, args, err := builder.BuildInsert(g.table(), data)
		if err != nil {
			return err
		}
		if _, err := qe.ExecContext(ctx, sql, args...); err != nil {
			return err
		}
		rsp.GameId = gameid
		rsp.Created = true
		return nil
	}); err != nil {
		return nil, fmt.Errorf("upsert game failed, uri:%s, err:%w", req.File.URI, err)
	}
	return rsp, nil
}

func (g *gameDaoImpl) GetGame(ctx context.Context, req *entity.GetGameRequest) (*entity.GetGameResponse, error) {
	if len(req.GameIds) == 0 {
		return &entity.GetGameResponse{}, nil
	}
	where := map[string]interface{}{
		"game_id in": req.GameIds,
	}
	rs := make([]*entity.GameItem, 0, len(req.GameIds))
	if err := dbkit.SimpleQuery(ctx, g.dbc, g.table(), where, &rs, dbkit.ScanWithTagName("json")); err != nil {
		return nil, err
	}
	return &entity.GetGameResponse{List: rs}, nil
}

func (g *gameDaoImpl) GetGameByUri(ctx context.Context, req *entity.GetGameByUriRequest) (*entity.GetGameByUriResponse, error) {
	item, ok, err := g.txGetByUri(ctx, g.dbc, req.FileUri)
	if err != nil {
		return nil, err
	}
	return &entity.GetGameByUriResponse{Item: item, Exist: ok}, nil
}

// escapeLike 转义关键字中的通配符, 配合 ESCAPE '\' 使用
func escapeLike(keyword string) string {
	return likeEscaper.Replace(keyword)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (g *gameDaoImpl) ListGame(ctx context.Context, req *entity.ListGameRequest) (*entity.ListGameResponse, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 100
	}
	fields, _, err := dbkit.ExtractFieldNames(&entity.GameItem{}, "json")
	if err != nil {
		return nil, err
	}
	conds := make([]string, 0, 4)
	args := make([]interface{}, 0, 6)
	if len(req.SystemId) > 0 {
		conds = append(conds, "system_id = ?")
		args = append(args, req.SystemId)
	}
	if len(req.ProviderId) > 0 {
		conds = append(conds, "provider_id = ?")
		args = append(args, req.ProviderId)
	}
	if len(req.Keyword) > 0 {
		// gendry 的 like 不支持 ESCAPE 子句, 这里手动拼接
		conds = append(conds, `title LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(req.Keyword)+"%")
	}
	if req.FavoriteOnly {
		conds = append(conds, "is_favorite = ?")
		args = append(args, 1)
	}
	sql := fmt.Sprintf("SELECT %s FROM %s", strings.Join(fields, ","), g.table())
	if len(conds) > 0 {
		sql += " WHERE " + strings.Join(conds, " AND ")
	}
	sql += " ORDER BY title asc, id asc LIMIT ?, ?"
	args = append(args, req.Offset, limit)
	rows, err := g.dbc.QueryContext(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list game failed, err:%w", err)
	}
	defer rows.Close()
	rs := make([]*entity.GameItem, 0, limit)
	if err := dbkit.ScanRows(rows, &rs, dbkit.ScanWithTagName("json"), dbkit.ScanDataSetLength(int(limit))); err != nil {
		return nil, err
	}
	return &entity.ListGameResponse{List: rs}, nil
}

func (g *gameDaoImpl) ScanGame(ctx context.Context, batch int64, cb ScanGameCallbackFunc) error {
	var lastid uint64
	for {
		res, nextid, err := g.innerScan(ctx, lastid, batch)
		if err != nil {
			return err
		}
		next, err := cb(ctx, res)
		if err != nil {
			return err
		}
		if !next || len(res) < int(batch) {
			return nil
		}
		lastid = nextid
	}
}

func (g *gameDaoImpl) innerScan(ctx context.Context, lastid uint64, limit int64) ([]*entity.GameItem, uint64, error) {
	where := map[string]interface{}{
		"id >":     lastid,
		"_orderby": "id asc",
		"_limit":   []uint{0, uint(limit)},
	}
	rs := make([]*entity.GameItem, 0, limit)
	if err := dbkit.SimpleQuery(ctx, g.dbc, g.table(), where, &rs, dbkit.ScanWithTagName("json")); err != nil {
		return nil, 0, err
	}
	var nextid uint64
	if len(rs) > 0 {
		nextid = rs[len(rs)-1].Id
	}
	return rs, nextid, nil
}

// DeleteStaleGame 删除某个存储在 before 之前索引到的游戏, 即本轮刷新中已经消失的文件
func (g *gameDaoImpl) DeleteStaleGame(ctx context.Context, req *entity.DeleteStaleGameRequest) (*entity.DeleteStaleGameResponse, error) {
	rsp := &entity.DeleteStaleGameResponse{}
	if err := g.dbc.OnTransation(ctx, func(ctx context.Context, qe database.IQueryExecer) error {
		where := map[string]interface{}{
			"provider_id":       req.ProviderId,
			"last_indexed_at <": req.Before,
		}
		rs := make([]*entity.GameItem, 0, 16)
		if err := dbkit.SimpleQuery(ctx, qe, g.table(), where, &rs, dbkit.ScanWithTagName("json")); err != nil {
			return err
		}
		if len(rs) == 0 {
			return nil
		}
		ids := make([]uint64, 0, len(rs))
		for _, item := range rs {
			ids = append(ids, item.GameId)
		}
		sql, args, err := builder.BuildDelete(g.table(), map[string]interface{}{
			"game_id in": ids,
		})
		if err != nil {
			return err
		}
		if _, err := qe.ExecContext(ctx, sql, args...); err != nil {
			return err
		}
		rsp.GameIds = ids
		return nil
	}); err != nil {
		return nil, fmt.Errorf("delete stale game failed, provider:%s, err:%w", req.ProviderId, err)
	}
	return rsp, nil
}

func (g *gameDaoImpl) updateByGameId(ctx context.Context, gameid uint64, update map[string]interface{}) error {
	where := map[string]interface{}{
		"game_id": gameid,
	}
	update["mtime"] = time.Now().UnixMilli()
	sql, args, err := builder.BuildUpdate(g.table(), where, update)
	if err != nil {
		return err
	}
	rs, err := g.dbc.ExecContext(ctx, sql, args...)
	if err != nil {
		return err
	}
	cnt, err := rs.RowsAffected()
	if err != nil {
		return err
	}
	if cnt == 0 {
		return fmt.Errorf("game not found, game_id:%d", gameid)
	}
	return nil
}

func (g *gameDaoImpl) MarkGamePlayed(ctx context.Context, req *entity.MarkGamePlayedRequest) (*entity.MarkGamePlayedResponse, error) {
	if err := g.updateByGameId(ctx, req.GameId, map[string]interface{}{
		"last_played_at": req.PlayedAt,
	}); err != nil {
		return nil, err
	}
	return &entity.MarkGamePlayedResponse{}, nil
}

func (g *gameDaoImpl) SetGameFavorite(ctx context.Context, req *entity.SetGameFavoriteRequest) (*entity.SetGameFavoriteResponse, error) {
	fav := 0
	if req.Favorite {
		fav = 1
	}
	if err := g.updateByGameId(ctx, req.GameId, map[string]interface{}{
		"is_favorite": fav,
	}); err != nil {
		return nil, err
	}
	return &entity.SetGameFavoriteResponse{}, nil
}
