package rdc

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/retry"
	"github.com/xxxsen/retrodav/entity"
	"github.com/xxxsen/retrodav/rdc/client"
	"github.com/xxxsen/retrodav/server/model"
	"github.com/xxxsen/retrodav/storage"
	"github.com/xxxsen/retrodav/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultRetryTimes    = 3
	defaultRetryInterval = 2 * time.Second
	defaultListBatch     = 200
)

type RetroDavClient struct {
	c *config
}

func New(opts ...Option) *RetroDavClient {
	c := &config{
		Thread: 4,
	}
	for _, opt := range opts {
		opt(c)
	}
	return &RetroDavClient{c: c}
}

func (c *RetroDavClient) Client() client.IClient {
	return c.c.Client
}

// ListAllGame 分批拉取游戏列表直到没有更多数据
func (c *RetroDavClient) ListAllGame(ctx context.Context, req *model.ListGameRequest) ([]*model.GameInfo, error) {
	rs := make([]*model.GameInfo, 0, defaultListBatch)
	q := *req
	q.Limit = defaultListBatch
	for {
		lst, err := c.c.Client.ListGame(ctx, &q)
		if err != nil {
			return nil, err
		}
		rs = append(rs, lst...)
		if len(lst) < int(q.Limit) {
			return rs, nil
		}
		q.Offset += int64(len(lst))
	}
}

func (c *RetroDavClient) fetchOneRom(ctx context.Context, gameid string, dir string) (string, int64, error) {
	info, err := c.c.Client.GetGameInfo(ctx, gameid)
	if err != nil {
		return "", 0, fmt.Errorf("read game info failed, err:%w", err)
	}
	dst := filepath.Join(dir, filepath.Base(info.FileName))
	var size int64
	if err := retry.RetryDo(ctx, defaultRetryTimes, defaultRetryInterval, func(ctx context.Context) error {
		f, err := os.CreateTemp(dir, "rom-*"+utils.TempFileSuffix)
		if err != nil {
			return err
		}
		tmp := f.Name()
		defer os.Remove(tmp)
		sz, err := c.c.Client.DownloadRom(ctx, gameid, f)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			logutil.GetLogger(ctx).Error("download rom failed, wait retry", zap.Error(err), zap.String("game_id", gameid))
			return err
		}
		if err := os.Rename(tmp, dst); err != nil {
			return err
		}
		size = sz
		return nil
	}); err != nil {
		return "", 0, err
	}
	return dst, size, nil
}

// FetchRoms 并发下载ROM到指定目录, 返回 game_id => 本地路径
func (c *RetroDavClient) FetchRoms(ctx context.Context, gameids []string, dir string) (map[string]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	rs := make([]string, len(gameids))
	eg, subctx := errgroup.WithContext(ctx)
	eg.SetLimit(c.c.Thread)
	for idx, gameid := range gameids {
		eg.Go(func() error {
			start := time.Now()
			dst, size, err := c.fetchOneRom(subctx, gameid, dir)
			if err != nil {
				return fmt.Errorf("fetch rom failed, game_id:%s, err:%w", gameid, err)
			}
			cost := time.Since(start)
			speed := "-"
			if ms := cost.Milliseconds(); ms > 0 {
				speed = humanize.IBytes(uint64(float64(size)*1000/float64(ms))) + "/s"
			}
			logutil.GetLogger(ctx).Info("fetch rom finish", zap.String("game_id", gameid), zap.String("dst", dst),
				zap.String("size", humanize.IBytes(uint64(size))), zap.Duration("cost", cost), zap.String("speed", speed))
			rs[idx] = dst
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		logutil.GetLogger(ctx).Error("fetch rom failed", zap.Error(err))
		return nil, err
	}
	m := make(map[string]string, len(gameids))
	for idx, gameid := range gameids {
		m[gameid] = rs[idx]
	}
	return m, nil
}

func saveFileName(info *model.GameInfo) string {
	return storage.SaveFileName(&entity.GameItem{FileName: info.FileName})
}

// BackupSaves 并发下载存档到指定目录, 没有存档的游戏会被跳过, 返回实际写入的文件数
func (c *RetroDavClient) BackupSaves(ctx context.Context, games []*model.GameInfo, dir string) (int, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, err
	}
	written := make([]bool, len(games))
	eg, subctx := errgroup.WithContext(ctx)
	eg.SetLimit(c.c.Thread)
	for idx, info := range games {
		eg.Go(func() error {
			var data []byte
			if err := retry.RetryDo(subctx, defaultRetryTimes, defaultRetryInterval, func(ctx context.Context) error {
				var err error
				data, err = c.c.Client.GetSave(ctx, info.GameId)
				return err
			}); err != nil {
				return fmt.Errorf("read save failed, game_id:%s, err:%w", info.GameId, err)
			}
			if data == nil {
				return nil
			}
			dst := filepath.Join(dir, saveFileName(info))
			if _, err := utils.SafeSaveIOToFile(dst, bytes.NewReader(data)); err != nil {
				return fmt.Errorf("write save file failed, game_id:%s, err:%w", info.GameId, err)
			}
			logutil.GetLogger(ctx).Debug("backup save finish", zap.String("game_id", info.GameId), zap.String("dst", dst), zap.Int("size", len(data)))
			written[idx] = true
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return 0, err
	}
	cnt := 0
	for _, ok := range written {
		if ok {
			cnt++
		}
	}
	return cnt, nil
}

func (c *RetroDavClient) RestoreSave(ctx context.Context, gameid string, src string) (int64, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return 0, err
	}
	if err := retry.RetryDo(ctx, defaultRetryTimes, defaultRetryInterval, func(ctx context.Context) error {
		return c.c.Client.PutSave(ctx, gameid, bytes.NewReader(data), int64(len(data)))
	}); err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}
