package metadata

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeProvider struct {
	byCRC  map[string]*Game
	byName map[string]*Game
	err    error
	calls  []string
}

func (f *fakeProvider) FindByCRC(ctx context.Context, crc string, fileName string) (*Game, bool, error) {
	f.calls = append(f.calls, "crc:"+crc)
	if f.err != nil {
		return nil, false, f.err
	}
	g, ok := f.byCRC[crc]
	return g, ok, nil
}

func (f *fakeProvider) FindByFileName(ctx context.Context, fileName string) (*Game, bool, error) {
	f.calls = append(f.calls, "name:"+fileName)
	if f.err != nil {
		return nil, false, f.err
	}
	g, ok := f.byName[fileName]
	return g, ok, nil
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	p := &fakeProvider{
		byCRC:  map[string]*Game{"0000ABCD": {Title: "Mother 3", SystemID: "gba"}},
		byName: map[string]*Game{"m3.gba": {Title: "By Name", SystemID: "gba"}},
	}
	title, system, ok := Resolve(ctx, p, "m3.gba", "0000ABCD")
	assert.True(t, ok)
	assert.Equal(t, "Mother 3", title)
	assert.Equal(t, "gba", system)
	assert.Equal(t, []string{"crc:0000ABCD"}, p.calls)

	p.calls = nil
	title, _, ok = Resolve(ctx, p, "m3.gba", "")
	assert.True(t, ok)
	assert.Equal(t, "By Name", title)
	assert.Equal(t, []string{"name:m3.gba"}, p.calls)

	title, system, ok = Resolve(ctx, nil, "Metroid (USA).nes", "")
	assert.True(t, ok)
	assert.Equal(t, "Metroid", title)
	assert.Equal(t, "nes", system)

	failed := &fakeProvider{err: errors.New("db locked")}
	title, system, ok = Resolve(ctx, failed, "Metroid (USA).nes", "11112222")
	assert.True(t, ok)
	assert.Equal(t, "Metroid", title)
	assert.Equal(t, "nes", system)
	assert.Len(t, failed.calls, 2)
}

func TestMatchOpenEmuSystem(t *testing.T) {
	s, ok := MatchOpenEmuSystem("openemu.system.gb", "a.gbc")
	assert.True(t, ok)
	assert.Equal(t, "gbc", s.ID)
	s, ok = MatchOpenEmuSystem("openemu.system.gb", "a.zip")
	assert.True(t, ok)
	assert.Equal(t, "gb", s.ID)
	_, ok = MatchOpenEmuSystem("openemu.system.vectrex", "a.vec")
	assert.False(t, ok)
	_, ok = MatchOpenEmuSystem("", "a.zip")
	assert.False(t, ok)
}
