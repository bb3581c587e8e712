package ovgdb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xxxsen/common/database"
	"github.com/xxxsen/common/database/sqlite"
	"github.com/xxxsen/retrodav/metadata"
)

var fixture = []string{
	`CREATE TABLE SYSTEMS (systemID INTEGER PRIMARY KEY, systemName TEXT, systemShortName TEXT, systemOEID TEXT)`,
	`CREATE TABLE ROMs (romID INTEGER PRIMARY KEY, systemID INTEGER, romHashCRC TEXT, romHashMD5 TEXT, romFileName TEXT, romExtensionlessFileName TEXT)`,
	`CREATE TABLE RELEASES (releaseID INTEGER PRIMARY KEY, romID INTEGER, releaseTitleName TEXT, releaseDescription TEXT)`,
	`INSERT INTO SYSTEMS VALUES (1, 'Game Boy', 'GB', 'openemu.system.gb')`,
	`INSERT INTO SYSTEMS VALUES (2, 'Super Nintendo', 'SNES', 'openemu.system.snes')`,
	`INSERT INTO SYSTEMS VALUES (3, 'Vectrex', 'VECTREX', 'openemu.system.vectrex')`,
	`INSERT INTO ROMs VALUES (10, 2, 'B19ED489', NULL, 'Super Mario World (USA).sfc', 'Super Mario World (USA)')`,
	`INSERT INTO ROMs VALUES (11, 1, '3F8B5A9C', NULL, 'Tetris DX (World).gbc', 'Tetris DX (World)')`,
	`INSERT INTO ROMs VALUES (12, 3, 'AAAAAAAA', NULL, 'Mine Storm (World).vec', 'Mine Storm (World)')`,
	`INSERT INTO ROMs VALUES (13, 2, NULL, NULL, 'Unreleased (Proto).sfc', 'Unreleased (Proto)')`,
	`INSERT INTO RELEASES VALUES (100, 10, 'Super Mario World', NULL)`,
	`INSERT INTO RELEASES VALUES (101, 11, 'Tetris DX', NULL)`,
}

func newTestProvider(t *testing.T) metadata.IProvider {
	file := filepath.Join(t.TempDir(), "openvgdb.sqlite")
	dbc, err := sqlite.New(file, func(db database.IDatabase) error {
		for _, q := range fixture {
			if _, err := db.ExecContext(context.Background(), q); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = dbc.Close()
	})
	p, err := New(file)
	require.NoError(t, err)
	return p
}

func TestNewMissingFile(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "none.sqlite"))
	assert.Error(t, err)
}

func TestFindByCRC(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()
	g, ok, err := p.FindByCRC(ctx, "b19ed489", "smw.sfc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, &metadata.Game{Title: "Super Mario World", SystemID: "snes"}, g)

	//gb与gbc在库中共用一个系统, 按后缀区分
	g, ok, err = p.FindByCRC(ctx, "3F8B5A9C", "tetris.gbc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "gbc", g.SystemID)
	g, ok, err = p.FindByCRC(ctx, "3F8B5A9C", "tetris.bin")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "gb", g.SystemID)

	_, ok, err = p.FindByCRC(ctx, "AAAAAAAA", "mine.vec")
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = p.FindByCRC(ctx, "00000000", "x.sfc")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFindByFileName(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()
	g, ok, err := p.FindByFileName(ctx, "Unreleased (Proto).sfc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, &metadata.Game{Title: "Unreleased", SystemID: "snes"}, g)

	_, ok, err = p.FindByFileName(ctx, "unknown.sfc")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolveOrder(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()
	tests := []struct {
		name   string
		crc    string
		title  string
		system string
		ok     bool
	}{
		{"renamed.sfc", "B19ED489", "Super Mario World", "snes", true},
		{"Super Mario World (USA).sfc", "", "Super Mario World", "snes", true},
		{"Tetris DX (World).gbc", "FFFFFFFF", "Tetris DX", "gbc", true},
		{"Zelda (USA).gba", "12345678", "Zelda", "gba", true},
		{"readme.txt", "", "", "", false},
	}
	for _, tst := range tests {
		title, system, ok := metadata.Resolve(ctx, p, tst.name, tst.crc)
		assert.Equal(t, tst.ok, ok, tst.name)
		assert.Equal(t, tst.title, title, tst.name)
		assert.Equal(t, tst.system, system, tst.name)
	}
}
