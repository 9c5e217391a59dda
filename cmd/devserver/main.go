package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/lazypandaa/gramvaani-client/internal/devserver"
)

func main() {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		// .env file is optional
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	withAudio := os.Getenv("GRAMVAANI_DEV_AUDIO") == "1"
	server := devserver.New(logger, withAudio)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}

	go func() {
		if err := server.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Development backend started",
		zap.String("port", port),
		zap.Bool("withAudio", withAudio))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Echo().Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
