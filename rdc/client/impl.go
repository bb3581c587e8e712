package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/xxxsen/retrodav/server/model"
)

const (
	apiListGame    = "/api/game/list"
	apiGameInfo    = "/api/game/info/"
	apiRefresh     = "/api/game/refresh"
	apiSetFavorite = "/api/game/favorite"
	apiRom         = "/api/game/rom/"
	apiSave        = "/api/game/save/"
)

const (
	defaultTimeout = 10 * time.Minute
)

type commonResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

type defaultClient struct {
	c      *config
	client *http.Client
}

func (d *defaultClient) buildUrl(api string) string {
	return fmt.Sprintf("%s://%s%s", d.c.Schema, d.c.Host, api)
}

func (d *defaultClient) applyAuth(req *http.Request) {
	if len(d.c.AccessKey) == 0 {
		return
	}
	req.SetBasicAuth(d.c.AccessKey, d.c.SecretKey)
}

func (d *defaultClient) do(ctx context.Context, method string, api string, body io.Reader, size int64) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, d.buildUrl(api), body)
	if err != nil {
		return nil, err
	}
	if size >= 0 && body != nil {
		req.ContentLength = size
	}
	d.applyAuth(req)
	return d.client.Do(req)
}

func decodeJsonResponse(rsp *http.Response, out interface{}) error {
	if rsp.StatusCode != http.StatusOK {
		return fmt.Errorf("status code not ok, code:%d", rsp.StatusCode)
	}
	pkgRsp := &commonResponse{
		Data: out,
	}
	if err := json.NewDecoder(rsp.Body).Decode(pkgRsp); err != nil {
		return err
	}
	if pkgRsp.Code != 0 {
		return fmt.Errorf("biz code not ok, code:%d, msg:%s", pkgRsp.Code, pkgRsp.Message)
	}
	return nil
}

func (d *defaultClient) callJson(ctx context.Context, method string, api string, in interface{}, out interface{}) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, d.buildUrl(api), body)
	if err != nil {
		return err
	}
	d.applyAuth(req)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rsp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer rsp.Body.Close()
	return decodeJsonResponse(rsp, out)
}

func (d *defaultClient) ListGame(ctx context.Context, req *model.ListGameRequest) ([]*model.GameInfo, error) {
	q := url.Values{}
	q.Set("offset", strconv.FormatInt(req.Offset, 10))
	q.Set("limit", strconv.FormatInt(req.Limit, 10))
	if len(req.SystemId) > 0 {
		q.Set("system_id", req.SystemId)
	}
	if len(req.ProviderId) > 0 {
		q.Set("provider_id", req.ProviderId)
	}
	if len(req.Keyword) > 0 {
		q.Set("keyword", req.Keyword)
	}
	if req.FavoriteOnly {
		q.Set("favorite_only", "true")
	}
	rsp := &model.ListGameResponse{}
	if err := d.callJson(ctx, http.MethodGet, apiListGame+"?"+q.Encode(), nil, rsp); err != nil {
		return nil, err
	}
	return rsp.List, nil
}

func (d *defaultClient) GetGameInfo(ctx context.Context, gameid string) (*model.GameInfo, error) {
	rsp := &model.GetGameInfoResponse{}
	if err := d.callJson(ctx, http.MethodGet, apiGameInfo+url.PathEscape(gameid), nil, rsp); err != nil {
		return nil, err
	}
	if rsp.Item == nil {
		return nil, fmt.Errorf("no game info found, game_id:%s", gameid)
	}
	return rsp.Item, nil
}

func (d *defaultClient) Refresh(ctx context.Context) ([]*model.RefreshResultItem, error) {
	rsp := &model.RefreshResponse{}
	if err := d.callJson(ctx, http.MethodPost, apiRefresh, nil, rsp); err != nil {
		return nil, err
	}
	return rsp.List, nil
}

func (d *defaultClient) SetFavorite(ctx context.Context, gameid string, fav bool) error {
	req := &model.SetFavoriteRequest{
		GameId:   gameid,
		Favorite: fav,
	}
	return d.callJson(ctx, http.MethodPost, apiSetFavorite, req, &model.SetFavoriteResponse{})
}

func (d *defaultClient) DownloadRom(ctx context.Context, gameid string, w io.Writer) (int64, error) {
	rsp, err := d.do(ctx, http.MethodGet, apiRom+url.PathEscape(gameid), nil, -1)
	if err != nil {
		return 0, err
	}
	defer rsp.Body.Close()
	if rsp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("status code not ok, code:%d", rsp.StatusCode)
	}
	return io.Copy(w, rsp.Body)
}

func (d *defaultClient) GetSave(ctx context.Context, gameid string) ([]byte, error) {
	rsp, err := d.do(ctx, http.MethodGet, apiSave+url.PathEscape(gameid), nil, -1)
	if err != nil {
		return nil, err
	}
	defer rsp.Body.Close()
	if rsp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if rsp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status code not ok, code:%d", rsp.StatusCode)
	}
	return io.ReadAll(rsp.Body)
}

func (d *defaultClient) PutSave(ctx context.Context, gameid string, r io.Reader, size int64) error {
	rsp, err := d.do(ctx, http.MethodPut, apiSave+url.PathEscape(gameid), r, size)
	if err != nil {
		return err
	}
	defer rsp.Body.Close()
	return decodeJsonResponse(rsp, &model.SetSaveResponse{})
}

func New(opts ...Option) (IClient, error) {
	c := &config{
		Schema:  "https",
		Timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if len(c.Host) == 0 {
		return nil, fmt.Errorf("no host found")
	}
	return &defaultClient{
		c: c,
		client: &http.Client{
			Timeout: c.Timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				IdleConnTimeout:     20 * time.Second,
				MaxIdleConns:        5,
				MaxIdleConnsPerHost: 1,
			},
		},
	}, nil
}
