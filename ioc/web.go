package ioc

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/campuslink/filerelay/internel/config"
	"github.com/campuslink/filerelay/internel/web"
	"github.com/campuslink/filerelay/internel/web/middleware"
)

func InitWebServer(mdls []gin.HandlerFunc, fileHdl *web.FileHandler) *gin.Engine {
	server := gin.Default()
	server.Use(mdls...)
	fileHdl.RegisterRoutes(server)
	return server
}

func InitGinMiddlewares(cfg *config.Config) []gin.HandlerFunc {
	origins := cfg.Origins()
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}

	return []gin.HandlerFunc{
		cors.New(cors.Config{
			AllowCredentials: true,
			AllowHeaders:     []string{"Content-Type", "Authorization"},
			AllowMethods:     []string{"GET", "POST"},
			AllowOriginFunc: func(origin string) bool {
				_, ok := allowed[origin]
				return ok
			},
			MaxAge: 12 * time.Hour,
		}),
		middleware.NewAuthMiddlewareBuilder(cfg.AuthSecret).CheckToken(),
	}
}
