package main

import (
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"paperpal/config/database"
	"paperpal/internal/collab/store"
	"paperpal/internal/metrics"
	"paperpal/pkg/logger"
	"paperpal/router"
	"paperpal/socket"
)

func main() {
	logger.Init()
	defer logger.Log.Sync()

	if err := godotenv.Load(); err != nil {
		// Not an error in production; the environment is set by the host.
		logger.Sugar.Info("No .env file found, using environment variables from OS")
	}

	db := database.Connect()
	defer db.Close()

	m := metrics.New()
	sessionStore := store.NewMemoryStore()

	hub := socket.NewHub(sessionStore, m)
	go hub.Run()

	handler := router.Setup(db, sessionStore, hub, m)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	logger.Sugar.Infof("Backend listening on :%s", port)
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		logger.Sugar.Fatalf("Server exited: %v", err)
	}
}
