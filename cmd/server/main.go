package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/iliyamo/cinema-ticketing/internal/app"
	"github.com/iliyamo/cinema-ticketing/internal/config"
)

func main() {
	// a missing .env is fine; the environment may already be set
	_ = godotenv.Load()

	cfg := config.MustLoad()

	a, err := app.New(cfg)
	if err != nil {
		log.Fatalf("init app: %v", err)
	}
	if err := a.Run(); err != nil {
		log.Fatalf("run app: %v", err)
	}
}
