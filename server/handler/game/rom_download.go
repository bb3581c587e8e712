package game

import (
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi/proxyutil"
	"github.com/xxxsen/retrodav/server/httpkit"
	"go.uber.org/zap"
)

func (h *GameHandler) DownloadRom(c *gin.Context) {
	ctx := c.Request.Context()
	gameid, err := h.parseGameId(c)
	if err != nil {
		proxyutil.FailJson(c, http.StatusBadRequest, err)
		return
	}
	game, location, err := h.lib.OpenRom(ctx, gameid)
	if err != nil {
		proxyutil.FailJson(c, errorCode(err), fmt.Errorf("open rom failed, err:%w", err))
		return
	}
	f, err := os.Open(location)
	if err != nil {
		proxyutil.FailJson(c, http.StatusInternalServerError, fmt.Errorf("open rom file failed, err:%w", err))
		return
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		proxyutil.FailJson(c, http.StatusInternalServerError, fmt.Errorf("stat rom file failed, err:%w", err))
		return
	}
	logutil.GetLogger(ctx).Debug("serve rom file", zap.Uint64("game_id", gameid), zap.String("location", location), zap.Int64("size", st.Size()))
	httpkit.SetRomDownloadHeader(c, game, location)
	c.Writer.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(game.FileName))
	http.ServeContent(c.Writer, c.Request, game.FileName, st.ModTime(), f)
}
