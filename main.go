package main

import (
	"context"
	"log"

	"fittrack/models"
	"fittrack/web"

	"github.com/joho/godotenv"
	"github.com/rohanthewiz/logger"
)

func main() {
	// .env is optional; real deployments set env vars directly
	_ = godotenv.Load()

	logger.SetLogLevel("info")

	if err := models.InitDB(); err != nil {
		log.Fatal("Failed to initialize database: ", err)
	}
	defer models.CloseDB()

	if err := models.InitJWT(); err != nil {
		log.Fatal("Failed to initialize JWT: ", err)
	}

	// When sync is configured, this instance also runs the device-side
	// orchestrator against a remote FitTrack server.
	syncCfg, err := models.LoadSyncConfig()
	if err != nil {
		log.Fatal("Invalid sync configuration: ", err)
	}
	if syncCfg.Enabled {
		store := models.NewLocalStore()
		session := models.NewSession(syncCfg.Username, store)
		remote := models.NewHTTPSnapshotService(syncCfg)

		orch, err := models.NewOrchestrator(session, remote, syncCfg)
		if err != nil {
			log.Fatal("Failed to start sync orchestrator: ", err)
		}
		orch.Start(context.Background())
		defer orch.Stop()
	}

	srv := web.NewServer()
	logger.Info("Starting FitTrack API on port 8000")
	log.Fatal(web.Run(srv))
}
