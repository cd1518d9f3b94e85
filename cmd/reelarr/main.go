package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reelarr/config"
	"reelarr/internal/api"
	"reelarr/internal/program"
	"reelarr/internal/shared/httpserver"
	"reelarr/internal/shared/logger"
)

func init() {
	// Force logs to Stdout and remove timestamps for cleaner Docker logs
	log.SetOutput(os.Stdout)
	log.SetFlags(0)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Invalid configuration:", err)
	}
	logger.Init(cfg.Environment, cfg.Debug, cfg.LogFile)

	log.Println("-----------------------------------------")
	log.Println("reelarr starting")
	log.Println("-----------------------------------------")

	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Printf("Initializing components...")

	prog, err := program.New(cfg)
	if err != nil {
		log.Fatal("Failed to initialize program:", err)
	}
	defer prog.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErrs := make(chan error, 1)
	go func() {
		runErrs <- prog.Run(ctx)
	}()

	handler := api.New(prog).Handler()

	addr := ":" + cfg.ServerPort
	log.Printf("=========================================")
	log.Printf("reelarr is starting on %s", addr)
	log.Printf("Environment: %s", cfg.Environment)
	log.Printf("Debug Mode: %v", cfg.Debug)
	log.Printf("=========================================")

	srvConfig := httpserver.DefaultConfig(addr)
	srv := httpserver.CreateServer(srvConfig, handler)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	// The admin surface's "stop" operation triggers the same shutdown
	// path an OS signal would, by pushing onto this same channel.
	prog.OnShutdown(func() {
		select {
		case quit <- syscall.SIGTERM:
		default:
		}
	})

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("FATAL: Server failed to start: %v", err)
		}
	}()

	log.Printf("Server started successfully. Waiting for shutdown signal...")

	select {
	case <-quit:
		log.Printf("Shutting down server...")
	case err := <-runErrs:
		if err != nil {
			log.Printf("Program supervisor exited with error: %v", err)
		}
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during server shutdown: %v", err)
	} else {
		log.Printf("Server shutdown complete")
	}
}
