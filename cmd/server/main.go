package main

import (
	"context"
	"fmt"
	"os"

	"expense-api/internal/server"
	"expense-api/internal/server/config"
	"github.com/joho/godotenv"
)

func main() {
	// optional .env for local development
	_ = godotenv.Load()

	cfg := config.LoadConfig()

	app, err := server.NewApp(context.Background(), cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := app.Run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
