package db

import (
	"context"
	"fmt"

	"github.com/xxxsen/common/database"
	"github.com/xxxsen/common/database/sqlite"
)

var (
	dbClient database.IDatabase
)

var sqllist = []struct {
	name string
	sql  string
}{
	{
		name: "init_rd_game_tab",
		sql: `
CREATE TABLE IF NOT EXISTS rd_game_tab (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    game_id         INTEGER NOT NULL,
    provider_id     TEXT NOT NULL,
    file_name       TEXT NOT NULL,
    file_uri        TEXT NOT NULL,
    file_size       INTEGER NOT NULL DEFAULT 0,
    crc             TEXT NOT NULL DEFAULT '',
    title           TEXT NOT NULL DEFAULT '',
    system_id       TEXT NOT NULL DEFAULT '',
    last_indexed_at INTEGER NOT NULL DEFAULT 0,
    last_played_at  INTEGER NOT NULL DEFAULT 0,
    is_favorite     INTEGER NOT NULL DEFAULT 0,
    ctime           INTEGER,
    mtime           INTEGER,
    UNIQUE (game_id),
    UNIQUE (file_uri)
);
		`,
	},
	{
		name: "init_rd_game_tab_provider_idx",
		sql: `
CREATE INDEX IF NOT EXISTS idx_provider_indexed ON rd_game_tab (provider_id, last_indexed_at);
		`,
	},
}

func InitDB(file string) error {
	ctx := context.Background()
	db, err := sqlite.New(file, func(db database.IDatabase) error {
		for _, item := range sqllist {
			if _, err := db.ExecContext(ctx, item.sql); err != nil {
				return fmt.Errorf("init sql failed, sql:%s, err:%w", item.name, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	dbClient = db
	return nil
}

func GetClient() database.IDatabase {
	return dbClient
}
