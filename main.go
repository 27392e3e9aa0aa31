package main

import (
	"context"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tmpdrop/tmpdrop/internal/manifest"
	"github.com/tmpdrop/tmpdrop/internal/metrics"
	"github.com/tmpdrop/tmpdrop/internal/store"
	"github.com/tmpdrop/tmpdrop/internal/sweeper"
)

func main() {
	config := LoadConfig()

	if missing := config.Missing(); len(missing) > 0 {
		// Start anyway so /health can report what is absent.
		log.Printf("Warning: missing required configuration: %s", strings.Join(missing, ", "))
	}

	m, err := manifest.Open(config.Storage.Manifest)
	if err != nil {
		log.Fatal("Failed to open manifest database:", err)
	}
	defer m.Close()

	prom := metrics.NewProm("tmpdrop")
	st := store.NewGitHub(config.Repo.Token, config.Repo.Owner, config.Repo.Name, config.Repo.Branch)

	sweep := sweeper.New(st, m, prom, config.Storage.Namespace, config.SweepInterval())
	go sweep.Run(context.Background())

	api := NewAPI(st, m, prom, config)

	router := gin.Default()
	api.RegisterRoutes(router)

	log.Printf("Starting server on port %s", config.Server.Port)
	if err := router.Run(":" + config.Server.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
