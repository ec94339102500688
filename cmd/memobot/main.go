package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/m3rciful/memobot/core/bootstrap"
	"github.com/m3rciful/memobot/core/cmd"
	coreconfig "github.com/m3rciful/memobot/core/config"
	"github.com/m3rciful/memobot/internal/app"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf(".env not loaded: %v", err)
	}

	err := cmd.Run(cmd.Options{
		DefaultConfigPath: "config.yaml",
		Bootstrap: func(cfg *coreconfig.Config) (cmd.TelegramApp, error) {
			res, err := bootstrap.Run(bootstrap.Options{Config: cfg})
			if err != nil {
				return nil, err
			}
			return app.New(cfg, res.DB)
		},
	})
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
