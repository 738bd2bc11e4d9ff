package main

import (
	"net/http"

	"github.com/campuslink/filerelay/internel/config"
	"github.com/campuslink/filerelay/pkg/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	server := InitWebServer(cfg)

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: server,
		// Bounds how long a client may dribble a request body, so a
		// stalled upload cannot hold its connection forever.
		ReadTimeout: cfg.ReadTimeout(),
	}

	log.Infof("upload relay listening on %s, content dir %s", cfg.Addr(), cfg.UploadDir)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server stopped: %v", err)
	}
}
