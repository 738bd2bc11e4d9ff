package ioc

import (
	"github.com/spf13/afero"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/campuslink/filerelay/internel/config"
	"github.com/campuslink/filerelay/internel/repository/dao"
	"github.com/campuslink/filerelay/pkg/log"
)

// InitDB opens the sqlite ledger index and migrates its schema.
func InitDB(cfg *config.Config) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(cfg.LedgerDB), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to open ledger index %s: %v", cfg.LedgerDB, err)
	}
	if err := dao.InitTables(db); err != nil {
		log.Fatalf("failed to migrate ledger index: %v", err)
	}
	return db
}

// InitContentFs creates the content directory if needed and returns a
// filesystem rooted at it, so nothing above it is ever reachable.
func InitContentFs(cfg *config.Config) afero.Fs {
	base := afero.NewOsFs()
	if err := base.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		log.Fatalf("failed to create content directory %s: %v", cfg.UploadDir, err)
	}
	return afero.NewBasePathFs(base, cfg.UploadDir)
}
