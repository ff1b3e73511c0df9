package main

import (
	"context"
	"log"

	"github.com/Individual-1/notifier/internal/client/cli"
	"github.com/Individual-1/notifier/internal/client/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()

	app, err := cli.NewApp(cfg)
	if err != nil {
		log.Printf("%v", err)
		return
	}

	app.Run(ctx)
}
