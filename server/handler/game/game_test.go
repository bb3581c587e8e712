package game

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xxxsen/retrodav/entity"
	"github.com/xxxsen/retrodav/library"
	"github.com/xxxsen/retrodav/server/model"
	"github.com/xxxsen/retrodav/utils"
)

type commonResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type fakeLibrary struct {
	games map[uint64]*entity.GameItem
	saves map[uint64][]byte
	rom   string
}

func (f *fakeLibrary) Providers() []string { return []string{"fake"} }

func (f *fakeLibrary) Refresh(ctx context.Context) ([]*library.RefreshResult, error) {
	return []*library.RefreshResult{{Provider: "fake", Listed: 2, Indexed: 1, Skipped: 1}}, nil
}

func (f *fakeLibrary) GetGame(ctx context.Context, gameid uint64) (*entity.GameItem, error) {
	g, ok := f.games[gameid]
	if !ok {
		return nil, library.ErrGameNotFound
	}
	return g, nil
}

func (f *fakeLibrary) ListGames(ctx context.Context, req *entity.ListGameRequest) ([]*entity.GameItem, error) {
	rs := make([]*entity.GameItem, 0, len(f.games))
	for _, g := range f.games {
		if len(req.SystemId) > 0 && g.SystemId != req.SystemId {
			continue
		}
		rs = append(rs, g)
	}
	return rs, nil
}

func (f *fakeLibrary) SetFavorite(ctx context.Context, gameid uint64, fav bool) error {
	g, err := f.GetGame(ctx, gameid)
	if err != nil {
		return err
	}
	g.IsFavorite = 0
	if fav {
		g.IsFavorite = 1
	}
	return nil
}

func (f *fakeLibrary) OpenRom(ctx context.Context, gameid uint64) (*entity.GameItem, string, error) {
	g, err := f.GetGame(ctx, gameid)
	if err != nil {
		return nil, "", err
	}
	return g, f.rom, nil
}

func (f *fakeLibrary) GetSave(ctx context.Context, gameid uint64) ([]byte, error) {
	if _, err := f.GetGame(ctx, gameid); err != nil {
		return nil, err
	}
	return f.saves[gameid], nil
}

func (f *fakeLibrary) SetSave(ctx context.Context, gameid uint64, data []byte) error {
	if _, err := f.GetGame(ctx, gameid); err != nil {
		return err
	}
	f.saves[gameid] = data
	return nil
}

func newTestEngine(t *testing.T) (*gin.Engine, *fakeLibrary) {
	rom := filepath.Join(t.TempDir(), "Tetris.gb")
	require.NoError(t, os.WriteFile(rom, []byte("tetris-rom-data"), 0644))
	lib := &fakeLibrary{
		games: map[uint64]*entity.GameItem{
			1: {GameId: 1, ProviderId: "fake", FileName: "Tetris.gb", Title: "Tetris", SystemId: "gb", FileSize: 15},
			2: {GameId: 2, ProviderId: "fake", FileName: "Mario.sfc", Title: "Mario", SystemId: "snes"},
		},
		saves: map[uint64][]byte{},
		rom:   rom,
	}
	h := NewGameHandler(lib)
	engine := gin.New()
	engine.GET("/info/:id", h.GetGameInfo)
	engine.GET("/rom/:id", h.DownloadRom)
	engine.GET("/save/:id", h.GetSave)
	engine.PUT("/save/:id", h.PutSave)
	engine.POST("/refresh", h.Refresh)
	engine.GET("/systems", h.ListSystem)
	return engine, lib
}

func doRequest(engine *gin.Engine, method string, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder, data interface{}) *commonResponse {
	rsp := &commonResponse{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), rsp))
	if data != nil && len(rsp.Data) > 0 {
		require.NoError(t, json.Unmarshal(rsp.Data, data))
	}
	return rsp
}

func TestGetGameInfo(t *testing.T) {
	engine, _ := newTestEngine(t)
	w := doRequest(engine, http.MethodGet, "/info/"+utils.EncodeGameId(1), nil)
	info := &model.GetGameInfoResponse{}
	rsp := decodeResponse(t, w, info)
	assert.Equal(t, 0, rsp.Code)
	require.NotNil(t, info.Item)
	assert.Equal(t, "Tetris", info.Item.Title)
	assert.Equal(t, utils.EncodeGameId(1), info.Item.GameId)

	w = doRequest(engine, http.MethodGet, "/info/"+utils.EncodeGameId(100), nil)
	rsp = decodeResponse(t, w, nil)
	assert.NotEqual(t, 0, rsp.Code)

	w = doRequest(engine, http.MethodGet, "/info/zzz", nil)
	rsp = decodeResponse(t, w, nil)
	assert.NotEqual(t, 0, rsp.Code)
}

func TestDownloadRom(t *testing.T) {
	engine, _ := newTestEngine(t)
	w := doRequest(engine, http.MethodGet, "/rom/"+utils.EncodeGameId(1), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "tetris-rom-data", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "Tetris.gb")

	req := httptest.NewRequest(http.MethodGet, "/rom/"+utils.EncodeGameId(1), nil)
	req.Header.Set("Range", "bytes=0-5")
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusPartialContent, w.Code)
	assert.Equal(t, "tetris", w.Body.String())
}

func TestSaveRoundTrip(t *testing.T) {
	engine, lib := newTestEngine(t)
	xid := utils.EncodeGameId(1)
	w := doRequest(engine, http.MethodGet, "/save/"+xid, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(engine, http.MethodPut, "/save/"+xid, []byte("sram-data"))
	saveRsp := &model.SetSaveResponse{}
	rsp := decodeResponse(t, w, saveRsp)
	assert.Equal(t, 0, rsp.Code)
	assert.Equal(t, int64(9), saveRsp.Size)
	assert.Equal(t, "sram-data", string(lib.saves[1]))

	w = doRequest(engine, http.MethodGet, "/save/"+xid, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sram-data", w.Body.String())
}

func TestRefreshAndSystems(t *testing.T) {
	engine, _ := newTestEngine(t)
	w := doRequest(engine, http.MethodPost, "/refresh", nil)
	refresh := &model.RefreshResponse{}
	rsp := decodeResponse(t, w, refresh)
	assert.Equal(t, 0, rsp.Code)
	require.Len(t, refresh.List, 1)
	assert.Equal(t, "fake", refresh.List[0].Provider)
	assert.Equal(t, 1, refresh.List[0].Skipped)

	w = doRequest(engine, http.MethodGet, "/systems", nil)
	systems := &model.ListSystemResponse{}
	rsp = decodeResponse(t, w, systems)
	assert.Equal(t, 0, rsp.Code)
	assert.NotEmpty(t, systems.List)
}

func TestListGameAndFavorite(t *testing.T) {
	_, lib := newTestEngine(t)
	h := NewGameHandler(lib)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/list", nil)
	h.ListGame(c, context.Background(), &model.ListGameRequest{SystemId: "snes"})
	lst := &model.ListGameResponse{}
	rsp := decodeResponse(t, w, lst)
	assert.Equal(t, 0, rsp.Code)
	require.Len(t, lst.List, 1)
	assert.Equal(t, "Mario", lst.List[0].Title)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/favorite", nil)
	h.SetFavorite(c, context.Background(), &model.SetFavoriteRequest{GameId: utils.EncodeGameId(2), Favorite: true})
	rsp = decodeResponse(t, w, nil)
	assert.Equal(t, 0, rsp.Code)
	assert.True(t, lib.games[2].Favorite())

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/favorite", nil)
	h.SetFavorite(c, context.Background(), &model.SetFavoriteRequest{GameId: "bad"})
	rsp = decodeResponse(t, w, nil)
	assert.NotEqual(t, 0, rsp.Code)
}
