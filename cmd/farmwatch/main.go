package main

import (
	"context"
	"log"

	"farmwatch/internal/app"
)

func main() {
	ctx := context.Background()

	application, err := app.NewApp(ctx)
	if err != nil {
		log.Fatalf("Failed to start farmwatch: %v", err)
	}
	defer application.Close()

	if err := application.Run(ctx); err != nil {
		application.Close()
		log.Fatalf("farmwatch stopped: %v", err)
	}
}
