package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/devjadaun/documind-go/internal/config"
	"github.com/devjadaun/documind-go/internal/devstub"
	"github.com/devjadaun/documind-go/internal/pkg/logger"
)

func main() {
	cfg := config.LoadConfig()
	log := logger.New(cfg.Environment, cfg.LogFilePath)
	defer log.Sync()

	stub, err := devstub.NewServer(cfg.DevUploadMaxMB, log)
	if err != nil {
		log.Fatal("startup failed", zap.Error(err))
	}

	if pemBytes, err := stub.PublicKeyPEM(); err == nil {
		fmt.Println("Provider public key (save and point AUTH_PUBLIC_KEY_PATH at it):")
		fmt.Println(string(pemBytes))
	}

	srv := &http.Server{
		Addr:    ":" + cfg.DevServerPort,
		Handler: stub.Handler(),
	}

	go func() {
		log.Info("devserver listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	// Handle SIGINT/SIGTERM for graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	<-c

	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown error", zap.Error(err))
	}
}
