package davuri

import (
	"errors"
	"fmt"
	"net/url"
)

// 游戏库里保存的地址使用 webdav:// 或 webdavs://, 而http客户端只认 http:// 与 https://
// 两种形式通过同一张表互相转换, 保证往返一致

var (
	ErrUnsupportedScheme = errors.New("unsupported uri scheme")
)

const (
	SchemeWebdav  = "webdav"
	SchemeWebdavs = "webdavs"
	SchemeHttp    = "http"
	SchemeHttps   = "https"
)

type schemePair struct {
	logical   string
	transport string
}

var schemeTable = []schemePair{
	{logical: SchemeWebdav, transport: SchemeHttp},
	{logical: SchemeWebdavs, transport: SchemeHttps},
}

func findPair(scheme string) (schemePair, bool) {
	for _, p := range schemeTable {
		if p.logical == scheme || p.transport == scheme {
			return p, true
		}
	}
	return schemePair{}, false
}

func IsLogical(u *url.URL) bool {
	p, ok := findPair(u.Scheme)
	return ok && p.logical == u.Scheme
}

func IsTransport(u *url.URL) bool {
	p, ok := findPair(u.Scheme)
	return ok && p.transport == u.Scheme
}

func replaceScheme(u *url.URL, pick func(p schemePair) string) (*url.URL, error) {
	p, ok := findPair(u.Scheme)
	if !ok {
		return nil, fmt.Errorf("scheme:%q, err:%w", u.Scheme, ErrUnsupportedScheme)
	}
	nu := *u
	nu.Scheme = pick(p)
	return &nu, nil
}

// ToTransport 返回可以直接交给http客户端的地址, 输入不会被修改
func ToTransport(u *url.URL) (*url.URL, error) {
	return replaceScheme(u, func(p schemePair) string { return p.transport })
}

// ToLogical 返回用于持久化的地址, 输入不会被修改
func ToLogical(u *url.URL) (*url.URL, error) {
	return replaceScheme(u, func(p schemePair) string { return p.logical })
}

func convertString(raw string, fn func(*url.URL) (*url.URL, error)) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse uri failed, uri:%s, err:%w", raw, err)
	}
	nu, err := fn(u)
	if err != nil {
		return "", err
	}
	return nu.String(), nil
}

func ToTransportString(raw string) (string, error) {
	return convertString(raw, ToTransport)
}

func ToLogicalString(raw string) (string, error) {
	return convertString(raw, ToLogical)
}
