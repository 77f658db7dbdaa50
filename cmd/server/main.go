package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dmann24/quantina-core/internal/app"
	"github.com/Dmann24/quantina-core/internal/config"
)

func main() {
	cfg := config.Load()

	a, err := app.New(context.Background(), cfg)
	if err != nil {
		log.Fatalf("failed to build application: %v", err)
	}

	go func() {
		if err := a.Start(); err != nil {
			log.Fatalf("serve failed: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	a.Shutdown(ctx)
}
