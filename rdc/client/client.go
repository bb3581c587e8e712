package client

import (
	"context"
	"io"

	"github.com/xxxsen/retrodav/server/model"
)

type IClient interface {
	ListGame(ctx context.Context, req *model.ListGameRequest) ([]*model.GameInfo, error)
	GetGameInfo(ctx context.Context, gameid string) (*model.GameInfo, error)
	Refresh(ctx context.Context) ([]*model.RefreshResultItem, error)
	SetFavorite(ctx context.Context, gameid string, fav bool) error
	DownloadRom(ctx context.Context, gameid string, w io.Writer) (int64, error)
	// GetSave 存档不存在时返回nil, nil
	GetSave(ctx context.Context, gameid string) ([]byte, error)
	PutSave(ctx context.Context, gameid string, r io.Reader, size int64) error
}
