package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/xxxsen/retrodav/config"
	"github.com/xxxsen/retrodav/dao"
	"github.com/xxxsen/retrodav/dao/cache"
	"github.com/xxxsen/retrodav/db"
	"github.com/xxxsen/retrodav/library"
	"github.com/xxxsen/retrodav/metadata/ovgdb"
	"github.com/xxxsen/retrodav/romcache"
	"github.com/xxxsen/retrodav/server"
	"github.com/xxxsen/retrodav/storage"
	_ "github.com/xxxsen/retrodav/storage/register"

	"github.com/dustin/go-humanize"
	"github.com/xxxsen/common/idgen"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

var file = flag.String("config", "./config.json", "config file path")

func main() {
	flag.Parse()

	c, err := config.Parse(*file)
	if err != nil {
		panic(err)
	}
	logitem := c.LogInfo
	logger := logger.Init(logitem.File, logitem.Level, int(logitem.FileCount), int(logitem.FileSize), int(logitem.KeepDays), logitem.Console)
	if err := idgen.Init(1); err != nil {
		logger.Fatal("init idgen fail", zap.Error(err))
	}
	logger.Info("recv config", zap.String("bind", c.Bind), zap.String("db_file", c.DBFile), zap.Int("provider_count", len(c.Providers)))
	logger.Info("current available storage provider", zap.Strings("list", storage.List()))
	if err := db.InitDB(c.DBFile); err != nil {
		logger.Fatal("init game db fail", zap.Error(err))
	}
	rc, err := buildRomCache(c)
	if err != nil {
		logger.Fatal("init rom cache fail", zap.Error(err))
	}
	logger.Info("current rom cache config")
	logger.Info("-- cache dir", zap.String("dir", c.RomCache.Dir))
	logger.Info("-- max cache storage usage", zap.String("size", humanize.IBytes(uint64(c.RomCache.Size))))
	lib, err := buildLibrary(c, rc)
	if err != nil {
		logger.Fatal("init library fail", zap.Error(err))
	}
	logger.Info("init library succ", zap.Strings("providers", lib.Providers()))
	logger.Info("-- ovgdb metadata", zap.String("file", c.Metadata.OvgdbFile))
	logger.Info("-- webdav share feature", zap.Bool("enable", c.WebdavShare.Enable), zap.String("dir", c.WebdavShare.Dir))
	if c.Refresh.OnStart {
		go refreshOnStart(lib)
	}
	svr, err := server.New(c.Bind,
		server.WithUser(c.UserInfo),
		server.WithLibrary(lib),
		server.WithEnableWebdavShare(c.WebdavShare.Enable, c.WebdavShare.Dir),
	)
	if err != nil {
		logger.Fatal("init server fail", zap.Error(err))
	}
	logger.Info("init server succ, start it...")
	if err := svr.Run(); err != nil {
		logger.Fatal("run server fail", zap.Error(err))
	}
}

func buildRomCache(c *config.Config) (romcache.IRomCache, error) {
	rcc := romcache.NewDefaultConfig()
	if len(c.RomCache.Dir) > 0 {
		rcc.Dir = c.RomCache.Dir
	}
	if c.RomCache.Size > 0 {
		rcc.MaxSize = c.RomCache.Size
	}
	c.RomCache.Dir = rcc.Dir
	c.RomCache.Size = rcc.MaxSize
	return romcache.New(rcc)
}

func buildLibrary(c *config.Config, rc romcache.IRomCache) (*library.Library, error) {
	dep := &storage.Dependency{RomCache: rc}
	ps := make([]storage.IStorageProvider, 0, len(c.Providers))
	for _, item := range c.EnabledProviders() {
		p, err := storage.Create(item.Kind, item.ID, item.Config, dep)
		if err != nil {
			return nil, fmt.Errorf("create storage provider failed, id:%s, kind:%s, err:%w", item.ID, item.Kind, err)
		}
		ps = append(ps, p)
	}
	gameDao := cache.NewGameDao(dao.NewGameDao(db.GetClient()))
	opts := []library.Option{
		library.WithProvider(ps...),
		library.WithThread(c.Refresh.Thread),
		library.WithRetry(c.Refresh.Retry, time.Duration(c.Refresh.RetryInterval)*time.Millisecond),
	}
	if len(c.Metadata.OvgdbFile) > 0 {
		meta, err := ovgdb.New(c.Metadata.OvgdbFile)
		if err != nil {
			return nil, fmt.Errorf("open metadata db failed, err:%w", err)
		}
		opts = append(opts, library.WithMetadataProvider(meta))
	}
	return library.New(gameDao, opts...)
}

func refreshOnStart(lib *library.Library) {
	ctx := context.Background()
	logger := logutil.GetLogger(ctx)
	start := time.Now()
	rs, err := lib.Refresh(ctx)
	if err != nil {
		logger.Error("refresh library on start failed", zap.Error(err))
		return
	}
	for _, r := range rs {
		if r.Err != nil {
			logger.Error("refresh provider on start failed", zap.String("provider", r.Provider), zap.Error(r.Err))
		}
	}
	logger.Info("refresh library on start finish", zap.Int("provider_count", len(rs)), zap.Duration("cost", time.Since(start)))
}
