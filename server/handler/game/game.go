package game

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/retrodav/entity"
	"github.com/xxxsen/retrodav/library"
	"github.com/xxxsen/retrodav/server/model"
	"github.com/xxxsen/retrodav/utils"
)

type GameHandler struct {
	lib library.ILibrary
}

func NewGameHandler(lib library.ILibrary) *GameHandler {
	return &GameHandler{
		lib: lib,
	}
}

func (h *GameHandler) parseGameId(c *gin.Context) (uint64, error) {
	xid := c.Param("id")
	gameid, err := utils.DecodeGameId(xid)
	if err != nil {
		return 0, fmt.Errorf("invalid game id:%s, err:%w", xid, err)
	}
	return gameid, nil
}

func errorCode(err error) int {
	switch {
	case errors.Is(err, library.ErrGameNotFound):
		return http.StatusNotFound
	case errors.Is(err, library.ErrRefreshRunning):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func toGameInfo(item *entity.GameItem) *model.GameInfo {
	return &model.GameInfo{
		GameId:       utils.EncodeGameId(item.GameId),
		ProviderId:   item.ProviderId,
		FileName:     item.FileName,
		FileSize:     item.FileSize,
		Crc:          item.Crc,
		Title:        item.Title,
		SystemId:     item.SystemId,
		LastPlayedAt: item.LastPlayedAt,
		IsFavorite:   item.Favorite(),
		Ctime:        item.Ctime,
		Mtime:        item.Mtime,
	}
}
