package share

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/net/webdav"
)

var AllowMethods = []string{
	http.MethodOptions,
	http.MethodGet,
	http.MethodPut,
	http.MethodDelete,
	http.MethodHead,
	"PROPPATCH",
	"PROPFIND",
	"COPY",
	"MOVE",
	"MKCOL",
	"LOCK",
	"UNLOCK",
}

// ShareHandler 将本地目录以webdav的形式共享出去, 便于其他设备作为存储源挂载
type ShareHandler struct {
	h *webdav.Handler
}

func NewShareHandler(dir string, prefix string) *ShareHandler {
	return &ShareHandler{
		h: &webdav.Handler{
			Prefix:     prefix,
			FileSystem: webdav.Dir(dir),
			LockSystem: webdav.NewMemLS(),
			Logger: func(r *http.Request, err error) {
				if err == nil {
					return
				}
				logutil.GetLogger(r.Context()).Error("webdav share request failed", zap.String("method", r.Method),
					zap.String("path", r.URL.Path), zap.Error(err))
			},
		},
	}
}

func (s *ShareHandler) Handler(c *gin.Context) {
	s.h.ServeHTTP(c.Writer, c.Request)
}
