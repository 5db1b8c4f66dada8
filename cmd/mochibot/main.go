package main

import (
	"log"

	"github.com/joho/godotenv"

	corecmd "github.com/mochiserver/mochibot/core/cmd"
	"github.com/mochiserver/mochibot/internal/bot"
	"github.com/mochiserver/mochibot/internal/config"
)

func main() {
	// Optional .env for local development; real deployments set the
	// environment directly.
	_ = godotenv.Load()

	err := corecmd.Run(corecmd.Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			return config.Load(path)
		},
		Bootstrap: func(carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
			cfg, ok := carrier.(*config.Config)
			if !ok {
				log.Fatal("unexpected config type")
			}
			return bot.Bootstrap(cfg)
		},
	})
	if err != nil {
		log.Fatalf("mochibot: %v", err)
	}
}
