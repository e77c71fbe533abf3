package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"mace/internal/console"
)

func main() {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Overload(".env")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := console.New().Run(ctx, os.Args)
	stop()
	os.Exit(code)
}
