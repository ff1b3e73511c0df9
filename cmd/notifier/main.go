package main

import (
	"context"
	"log"
	"os"

	"github.com/Individual-1/notifier/internal/background"
	"github.com/Individual-1/notifier/internal/background/config"
	"github.com/Individual-1/notifier/internal/logging"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	logger := logging.New(os.Stdout, "json", cfg.LogLevel)

	app, err := background.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Printf("%v", err)
		os.Exit(1)
	}
	defer app.Close()

	if err := app.Run(ctx); err != nil {
		log.Printf("%v", err)
	}
}
