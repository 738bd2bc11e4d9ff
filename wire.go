//go:build wireinject

package main

import (
	"github.com/gin-gonic/gin"
	"github.com/google/wire"

	"github.com/campuslink/filerelay/internel/config"
	"github.com/campuslink/filerelay/internel/repository"
	"github.com/campuslink/filerelay/internel/repository/dao"
	"github.com/campuslink/filerelay/internel/service"
	"github.com/campuslink/filerelay/internel/web"
	"github.com/campuslink/filerelay/ioc"
)

func InitWebServer(cfg *config.Config) *gin.Engine {
	wire.Build(
		// third-party infrastructure
		ioc.InitDB,
		ioc.InitContentFs,

		// dao
		dao.NewRecordDAO,

		// repo
		repository.NewFileRepository,

		// service
		service.NewUploadService,

		// controller
		web.NewFileHandler,

		// app
		ioc.InitGinMiddlewares,
		ioc.InitWebServer,
	)
	return nil
}
