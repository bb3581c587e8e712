package metadata

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type Game struct {
	Title    string
	SystemID string
}

// IProvider 外部元数据源
type IProvider interface {
	FindByCRC(ctx context.Context, crc string, fileName string) (*Game, bool, error)
	FindByFileName(ctx context.Context, fileName string) (*Game, bool, error)
}

// Resolve 依次通过CRC与文件名查询p, 均未命中或者查询出错时退回到按后缀推断
// p 可以为nil, crc 为空时跳过CRC查询
func Resolve(ctx context.Context, p IProvider, fileName string, crc string) (string, string, bool) {
	if p != nil {
		if g, ok := lookup(ctx, p, fileName, crc); ok {
			return g.Title, g.SystemID, true
		}
	}
	return Guess(fileName)
}

func lookup(ctx context.Context, p IProvider, fileName string, crc string) (*Game, bool) {
	if len(crc) > 0 {
		g, ok, err := p.FindByCRC(ctx, crc, fileName)
		if err != nil {
			logutil.GetLogger(ctx).Warn("find game by crc failed", zap.String("crc", crc), zap.Error(err))
		}
		if ok {
			return g, true
		}
	}
	g, ok, err := p.FindByFileName(ctx, fileName)
	if err != nil {
		logutil.GetLogger(ctx).Warn("find game by file name failed", zap.String("name", fileName), zap.Error(err))
	}
	if ok {
		return g, true
	}
	return nil, false
}
