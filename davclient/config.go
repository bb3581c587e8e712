package davclient

import (
	"net/http"
	"time"
)

type config struct {
	Username string
	Password string
	Timeout  time.Duration
	Client   *http.Client
}

type Option func(*config)

func WithAuth(user string, pass string) Option {
	return func(c *config) {
		c.Username = user
		c.Password = pass
	}
}

// WithTimeout 设置建连及等待响应头的超时, 不限制body的传输时长
func WithTimeout(t time.Duration) Option {
	return func(c *config) {
		c.Timeout = t
	}
}

func WithHTTPClient(cli *http.Client) Option {
	return func(c *config) {
		c.Client = cli
	}
}
