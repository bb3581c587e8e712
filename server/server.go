package server

import (
	"fmt"

	"github.com/xxxsen/common/webapi"
	"github.com/xxxsen/common/webapi/auth"
	"github.com/xxxsen/common/webapi/middleware"
	"github.com/xxxsen/common/webapi/proxyutil"
	"github.com/xxxsen/retrodav/server/handler/game"
	"github.com/xxxsen/retrodav/server/handler/share"
	localmiddleware "github.com/xxxsen/retrodav/server/middleware"
	"github.com/xxxsen/retrodav/server/model"

	"github.com/gin-gonic/gin"
)

const (
	defaultMaxSaveSize = 16 * 1024 * 1024
)

func init() {
	gin.SetMode(gin.ReleaseMode)
}

type Server struct {
	c      *config
	engine webapi.IWebEngine
}

func New(bind string, opts ...Option) (*Server, error) {
	c := applyOpts(opts...)
	if c.lib == nil {
		return nil, fmt.Errorf("no library found")
	}
	svr := &Server{c: c}
	var err error
	svr.engine, err = webapi.NewEngine("/", bind, webapi.WithAuth(auth.MapUserMatch(c.userMap)), webapi.WithRegister(svr.initAPI))
	if err != nil {
		return nil, err
	}
	return svr, nil
}

func (s *Server) initAPI(router *gin.RouterGroup) {
	mustAuthMiddleware := middleware.MustAuthMiddleware()

	gameHandler := game.NewGameHandler(s.c.lib)
	gameRouter := router.Group("/api/game", mustAuthMiddleware)
	{
		gameRouter.GET("/list", proxyutil.WrapBizFunc(gameHandler.ListGame, &model.ListGameRequest{}))
		gameRouter.GET("/info/:id", gameHandler.GetGameInfo)
		gameRouter.GET("/systems", gameHandler.ListSystem)
		gameRouter.POST("/refresh", gameHandler.Refresh)
		gameRouter.POST("/favorite", proxyutil.WrapBizFunc(gameHandler.SetFavorite, &model.SetFavoriteRequest{}))
		gameRouter.GET("/rom/:id", gameHandler.DownloadRom)
		gameRouter.GET("/save/:id", gameHandler.GetSave)
		gameRouter.PUT("/save/:id", localmiddleware.BodyLimitMiddleware(s.c.maxSaveSize), gameHandler.PutSave)
	}
	if s.c.shareEnable {
		shareRouter := router.Group("/webdav", mustAuthMiddleware)
		{
			shareHandler := share.NewShareHandler(s.c.shareDir, shareRouter.BasePath())
			for _, method := range share.AllowMethods {
				shareRouter.Handle(method, "/*all", shareHandler.Handler)
			}
		}
	}
}

func (s *Server) Run() error {
	return s.engine.Run()
}
