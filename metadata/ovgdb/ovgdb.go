package ovgdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/xxxsen/common/database"
	"github.com/xxxsen/common/database/dbkit"
	"github.com/xxxsen/common/database/sqlite"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/retrodav/metadata"
	"go.uber.org/zap"
)

const (
	tableRoms     = "ROMs"
	tableReleases = "RELEASES"
	tableSystems  = "SYSTEMS"
)

type romItem struct {
	RomID                    int64          `json:"romID"`
	SystemID                 int64          `json:"systemID"`
	RomFileName              sql.NullString `json:"romFileName"`
	RomExtensionlessFileName sql.NullString `json:"romExtensionlessFileName"`
}

type releaseItem struct {
	ReleaseID        int64          `json:"releaseID"`
	ReleaseTitleName sql.NullString `json:"releaseTitleName"`
}

type systemItem struct {
	SystemID   int64          `json:"systemID"`
	SystemOEID sql.NullString `json:"systemOEID"`
}

type ovgdbProvider struct {
	dbc     database.IDatabase
	systems map[int64]string //systemID => systemOEID
}

// New 打开OpenVGDB数据库文件, 文件只读使用, 不存在时直接报错
func New(file string) (metadata.IProvider, error) {
	if _, err := os.Stat(file); err != nil {
		return nil, fmt.Errorf("stat ovgdb file failed, file:%s, err:%w", file, err)
	}
	dbc, err := sqlite.New(file)
	if err != nil {
		return nil, fmt.Errorf("open ovgdb failed, err:%w", err)
	}
	p, err := newWithClient(context.Background(), dbc)
	if err != nil {
		_ = dbc.Close()
		return nil, err
	}
	return p, nil
}

func newWithClient(ctx context.Context, dbc database.IDatabase) (*ovgdbProvider, error) {
	p := &ovgdbProvider{dbc: dbc, systems: make(map[int64]string, 64)}
	rs := make([]*systemItem, 0, 64)
	if err := dbkit.SimpleQuery(ctx, dbc, tableSystems, map[string]interface{}{
		"_limit": []uint{0, 1000},
	}, &rs, dbkit.ScanWithTagName("json")); err != nil {
		return nil, fmt.Errorf("load ovgdb systems failed, err:%w", err)
	}
	for _, item := range rs {
		if !item.SystemOEID.Valid {
			continue
		}
		p.systems[item.SystemID] = item.SystemOEID.String
	}
	logutil.GetLogger(ctx).Info("load ovgdb succ", zap.Int("system_count", len(p.systems)))
	return p, nil
}

func (p *ovgdbProvider) findRom(ctx context.Context, where map[string]interface{}) (*romItem, bool, error) {
	where["_limit"] = []uint{0, 1}
	rs := make([]*romItem, 0, 1)
	if err := dbkit.SimpleQuery(ctx, p.dbc, tableRoms, where, &rs, dbkit.ScanWithTagName("json")); err != nil {
		return nil, false, err
	}
	if len(rs) == 0 {
		return nil, false, nil
	}
	return rs[0], true, nil
}

func (p *ovgdbProvider) findReleaseTitle(ctx context.Context, romid int64) (string, error) {
	rs := make([]*releaseItem, 0, 1)
	if err := dbkit.SimpleQuery(ctx, p.dbc, tableReleases, map[string]interface{}{
		"romID":    romid,
		"_orderby": "releaseID asc",
		"_limit":   []uint{0, 1},
	}, &rs, dbkit.ScanWithTagName("json")); err != nil {
		return "", err
	}
	if len(rs) == 0 || !rs[0].ReleaseTitleName.Valid {
		return "", nil
	}
	return strings.TrimSpace(rs[0].ReleaseTitleName.String), nil
}

// toGame 标题优先使用发行名称, 其次是库中记录的文件名; 平台无法映射时视为未命中
func (p *ovgdbProvider) toGame(ctx context.Context, rom *romItem, fileName string) (*metadata.Game, bool, error) {
	oeid, ok := p.systems[rom.SystemID]
	if !ok {
		return nil, false, nil
	}
	sys, ok := metadata.MatchOpenEmuSystem(oeid, fileName)
	if !ok {
		logutil.GetLogger(ctx).Debug("skip unsupported ovgdb system", zap.String("oeid", oeid), zap.String("name", fileName))
		return nil, false, nil
	}
	title, err := p.findReleaseTitle(ctx, rom.RomID)
	if err != nil {
		return nil, false, fmt.Errorf("find release failed, rom_id:%d, err:%w", rom.RomID, err)
	}
	if len(title) == 0 && rom.RomExtensionlessFileName.Valid {
		title = metadata.CleanTitle(rom.RomExtensionlessFileName.String)
	}
	if len(title) == 0 {
		title = metadata.CleanTitle(fileName)
	}
	return &metadata.Game{Title: title, SystemID: sys.ID}, true, nil
}

func (p *ovgdbProvider) FindByCRC(ctx context.Context, crc string, fileName string) (*metadata.Game, bool, error) {
	rom, ok, err := p.findRom(ctx, map[string]interface{}{
		"romHashCRC": strings.ToUpper(strings.TrimSpace(crc)),
	})
	if err != nil {
		return nil, false, fmt.Errorf("find rom by crc failed, err:%w", err)
	}
	if !ok {
		return nil, false, nil
	}
	return p.toGame(ctx, rom, fileName)
}

func (p *ovgdbProvider) FindByFileName(ctx context.Context, fileName string) (*metadata.Game, bool, error) {
	rom, ok, err := p.findRom(ctx, map[string]interface{}{
		"romFileName": fileName,
	})
	if err != nil {
		return nil, false, fmt.Errorf("find rom by file name failed, err:%w", err)
	}
	if !ok {
		return nil, false, nil
	}
	return p.toGame(ctx, rom, fileName)
}
