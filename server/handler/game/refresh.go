package game

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/webapi/proxyutil"
	"github.com/xxxsen/retrodav/server/model"
)

func (h *GameHandler) Refresh(c *gin.Context) {
	ctx := c.Request.Context()
	rs, err := h.lib.Refresh(ctx)
	if err != nil {
		proxyutil.FailJson(c, errorCode(err), fmt.Errorf("refresh library failed, err:%w", err))
		return
	}
	rsp := &model.RefreshResponse{List: make([]*model.RefreshResultItem, 0, len(rs))}
	for _, r := range rs {
		item := &model.RefreshResultItem{
			Provider: r.Provider,
			Listed:   r.Listed,
			Indexed:  r.Indexed,
			Skipped:  r.Skipped,
			Removed:  r.Removed,
			Cost:     r.Cost.Milliseconds(),
		}
		if r.Err != nil {
			item.Error = r.Err.Error()
		}
		rsp.List = append(rsp.List, item)
	}
	proxyutil.SuccessJson(c, rsp)
}
