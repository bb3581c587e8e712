package game

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi/proxyutil"
	"github.com/xxxsen/retrodav/server/model"
	"go.uber.org/zap"
)

func (h *GameHandler) GetSave(c *gin.Context) {
	ctx := c.Request.Context()
	gameid, err := h.parseGameId(c)
	if err != nil {
		proxyutil.FailJson(c, http.StatusBadRequest, err)
		return
	}
	data, err := h.lib.GetSave(ctx, gameid)
	if err != nil {
		proxyutil.FailJson(c, errorCode(err), fmt.Errorf("read save failed, err:%w", err))
		return
	}
	if data == nil {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	c.Data(http.StatusOK, "application/octet-stream", data)
}

func (h *GameHandler) PutSave(c *gin.Context) {
	ctx := c.Request.Context()
	gameid, err := h.parseGameId(c)
	if err != nil {
		proxyutil.FailJson(c, http.StatusBadRequest, err)
		return
	}
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		proxyutil.FailJson(c, http.StatusBadRequest, fmt.Errorf("read save data failed, err:%w", err))
		return
	}
	if err := h.lib.SetSave(ctx, gameid, data); err != nil {
		proxyutil.FailJson(c, errorCode(err), fmt.Errorf("write save failed, err:%w", err))
		return
	}
	logutil.GetLogger(ctx).Info("write save succ", zap.Uint64("game_id", gameid), zap.Int("size", len(data)))
	proxyutil.SuccessJson(c, &model.SetSaveResponse{Size: int64(len(data))})
}
