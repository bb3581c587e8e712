package game

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi/proxyutil"
	"github.com/xxxsen/retrodav/entity"
	"github.com/xxxsen/retrodav/metadata"
	"github.com/xxxsen/retrodav/server/model"
	"github.com/xxxsen/retrodav/utils"
	"go.uber.org/zap"
)

const (
	defaultMaxListLimit = 500
)

func (h *GameHandler) ListGame(c *gin.Context, ctx context.Context, request interface{}) {
	req := request.(*model.ListGameRequest)
	if req.Limit <= 0 || req.Limit > defaultMaxListLimit {
		req.Limit = defaultMaxListLimit
	}
	if req.Offset < 0 {
		req.Offset = 0
	}
	lst, err := h.lib.ListGames(ctx, &entity.ListGameRequest{
		Offset:       req.Offset,
		Limit:        req.Limit,
		SystemId:     req.SystemId,
		ProviderId:   req.ProviderId,
		Keyword:      req.Keyword,
		FavoriteOnly: req.FavoriteOnly,
	})
	if err != nil {
		proxyutil.FailJson(c, http.StatusInternalServerError, fmt.Errorf("list game failed, err:%w", err))
		return
	}
	rsp := &model.ListGameResponse{List: make([]*model.GameInfo, 0, len(lst))}
	for _, item := range lst {
		rsp.List = append(rsp.List, toGameInfo(item))
	}
	proxyutil.SuccessJson(c, rsp)
}

func (h *GameHandler) GetGameInfo(c *gin.Context) {
	ctx := c.Request.Context()
	gameid, err := h.parseGameId(c)
	if err != nil {
		proxyutil.FailJson(c, http.StatusBadRequest, err)
		return
	}
	item, err := h.lib.GetGame(ctx, gameid)
	if err != nil {
		proxyutil.FailJson(c, errorCode(err), fmt.Errorf("read game info failed, err:%w", err))
		return
	}
	proxyutil.SuccessJson(c, &model.GetGameInfoResponse{Item: toGameInfo(item)})
}

func (h *GameHandler) SetFavorite(c *gin.Context, ctx context.Context, request interface{}) {
	req := request.(*model.SetFavoriteRequest)
	gameid, err := utils.DecodeGameId(req.GameId)
	if err != nil {
		proxyutil.FailJson(c, http.StatusBadRequest, fmt.Errorf("invalid game id:%s, err:%w", req.GameId, err))
		return
	}
	if err := h.lib.SetFavorite(ctx, gameid, req.Favorite); err != nil {
		proxyutil.FailJson(c, errorCode(err), fmt.Errorf("set favorite failed, err:%w", err))
		return
	}
	logutil.GetLogger(ctx).Info("set game favorite succ", zap.String("game_id", req.GameId), zap.Bool("favorite", req.Favorite))
	proxyutil.SuccessJson(c, &model.SetFavoriteResponse{})
}

func (h *GameHandler) ListSystem(c *gin.Context) {
	ids := metadata.ListSystems()
	rsp := &model.ListSystemResponse{List: make([]*model.SystemItem, 0, len(ids))}
	for _, id := range ids {
		s, ok := metadata.FindSystem(id)
		if !ok {
			continue
		}
		rsp.List = append(rsp.List, &model.SystemItem{
			Id:   s.ID,
			Name: s.Name,
			Exts: s.Extensions,
		})
	}
	proxyutil.SuccessJson(c, rsp)
}
