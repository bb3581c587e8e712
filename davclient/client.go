package davclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/retrodav/davuri"
	"go.uber.org/zap"
)

const (
	MethodPropfind = "PROPFIND"
	MethodMkcol    = "MKCOL"

	StatusMultiStatus = 207

	defaultTimeout = time.Minute
)

const propfindAllPropBody = `<?xml version="1.0" encoding="utf-8"?>
<D:propfind xmlns:D="DAV:"><D:allprop/></D:propfind>`

var (
	ErrNotFound = errors.New("remote resource not found")
)

type StatusError struct {
	Method string
	URL    string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status code not ok, method:%s, url:%s, code:%d", e.Method, e.URL, e.Code)
}

func (e *StatusError) Unwrap() error {
	if e.Code == http.StatusNotFound {
		return ErrNotFound
	}
	return nil
}

// IClient WebDAV传输层, 不做任何重试, 地址可以是逻辑形式(webdav/webdavs)或传输形式(http/https)
type IClient interface {
	Propfind(ctx context.Context, uri *url.URL) (io.ReadCloser, error)
	Download(ctx context.Context, uri *url.URL) (io.ReadCloser, error)
	Upload(ctx context.Context, uri *url.URL, r io.Reader, size int64) error
	Mkcol(ctx context.Context, uri *url.URL) error
}

type defaultClient struct {
	c     *config
	httpc *http.Client
}

func New(opts ...Option) (IClient, error) {
	c := &config{
		Timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.Timeout <= 0 {
		return nil, fmt.Errorf("invalid timeout:%s", c.Timeout)
	}
	httpc := c.Client
	if httpc == nil {
		httpc = newHttpClient(c.Timeout)
	}
	return &defaultClient{c: c, httpc: httpc}, nil
}

func newHttpClient(timeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout:   timeout,
		KeepAlive: 30 * time.Second,
	}
	return &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           dialer.DialContext,
			TLSHandshakeTimeout:   timeout,
			ResponseHeaderTimeout: timeout,
			IdleConnTimeout:       20 * time.Second,
			MaxIdleConns:          5,
			MaxIdleConnsPerHost:   2,
		},
	}
}

func (d *defaultClient) applyAuth(req *http.Request) {
	if len(d.c.Username) == 0 || len(d.c.Password) == 0 {
		return
	}
	req.SetBasicAuth(d.c.Username, d.c.Password)
}

func (d *defaultClient) newRequest(ctx context.Context, method string, uri *url.URL, body io.Reader) (*http.Request, error) {
	tu, err := davuri.ToTransport(uri)
	if err != nil {
		return nil, err
	}
	if body == nil {
		body = http.NoBody
	}
	req, err := http.NewRequestWithContext(ctx, method, tu.String(), body)
	if err != nil {
		return nil, err
	}
	d.applyAuth(req)
	return req, nil
}

// do 发起请求, 状态码不在 okCodes 中时关闭body并返回 *StatusError
func (d *defaultClient) do(req *http.Request, okCodes ...int) (*http.Response, error) {
	start := time.Now()
	rsp, err := d.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request failed, method:%s, url:%s, err:%w", req.Method, req.URL.Redacted(), err)
	}
	logutil.GetLogger(req.Context()).Debug("dav request finish",
		zap.String("method", req.Method), zap.String("url", req.URL.Redacted()),
		zap.Int("code", rsp.StatusCode), zap.Duration("cost", time.Since(start)))
	for _, code := range okCodes {
		if rsp.StatusCode == code {
			return rsp, nil
		}
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(rsp.Body, 4096))
	_ = rsp.Body.Close()
	return nil, &StatusError{Method: req.Method, URL: req.URL.Redacted(), Code: rsp.StatusCode}
}

// Propfind 获取uri及其直接子级的属性, 调用方负责关闭返回的body
func (d *defaultClient) Propfind(ctx context.Context, uri *url.URL) (io.ReadCloser, error) {
	req, err := d.newRequest(ctx, MethodPropfind, uri, strings.NewReader(propfindAllPropBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Depth", "1")
	req.Header.Set("Content-Type", "application/xml; charset=utf-8")
	rsp, err := d.do(req, StatusMultiStatus, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return rsp.Body, nil
}

// Download 以流的形式返回文件内容, 调用方负责关闭
func (d *defaultClient) Download(ctx context.Context, uri *url.URL) (io.ReadCloser, error) {
	req, err := d.newRequest(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, err
	}
	rsp, err := d.do(req, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return rsp.Body, nil
}

// Upload 以流的形式上传文件, size < 0 时使用chunked传输
func (d *defaultClient) Upload(ctx context.Context, uri *url.URL, r io.Reader, size int64) error {
	req, err := d.newRequest(ctx, http.MethodPut, uri, r)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	if size >= 0 {
		req.ContentLength = size
		if size == 0 {
			req.Body = http.NoBody
		}
	} else {
		req.ContentLength = -1
	}
	rsp, err := d.do(req, http.StatusOK, http.StatusCreated, http.StatusNoContent)
	if err != nil {
		return err
	}
	_ = rsp.Body.Close()
	return nil
}

// Mkcol 创建远端目录, 目录已存在(405)视为成功
func (d *defaultClient) Mkcol(ctx context.Context, uri *url.URL) error {
	req, err := d.newRequest(ctx, MethodMkcol, uri, nil)
	if err != nil {
		return err
	}
	rsp, err := d.do(req, http.StatusCreated, http.StatusOK, http.StatusMethodNotAllowed)
	if err != nil {
		return err
	}
	_ = rsp.Body.Close()
	return nil
}
