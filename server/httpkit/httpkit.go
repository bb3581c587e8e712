package httpkit

import (
	"mime"
	"path"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/xxxsen/retrodav/entity"
	"github.com/xxxsen/retrodav/utils"
)

const (
	defaultMimeType = "application/octet-stream"
)

// DetermineMimeType 优先按后缀判断, 后缀未知时读取文件头探测
func DetermineMimeType(filename string, location string) string {
	if mimeType := mime.TypeByExtension(path.Ext(filename)); mimeType != "" {
		return mimeType
	}
	if len(location) == 0 {
		return defaultMimeType
	}
	m, err := mimetype.DetectFile(location)
	if err != nil {
		return defaultMimeType
	}
	return m.String()
}

func SetRomDownloadHeader(c *gin.Context, game *entity.GameItem, location string) {
	c.Writer.Header().Set("Content-Type", DetermineMimeType(game.FileName, location))
	c.Writer.Header().Set("Cache-Control", "private, max-age=86400")
	if game.GameId != 0 {
		c.Writer.Header().Set("ETag", "W/\""+utils.EncodeGameId(game.GameId)+"-"+game.Crc+"\"")
	}
}
