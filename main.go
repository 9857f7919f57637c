// Package main, dmrelay sunucusunun giriş noktasıdır.
//
// Bu dosyanın görevi Dependency Injection "wire-up":
//  1. Config'i yükle
//  2. Database'i başlat (embedded migration'lar)
//  3. Repository, Hub, Service, Handler katmanlarını oluştur
//  4. Hub callback'lerini bağla
//  5. HTTP router + CORS
//  6. HTTP Server'ı başlat, sinyal gelince graceful shutdown
//
// Global değişken yok; her şey burada oluşturulup birbirine bağlanır.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"

	"github.com/akinalp/dmrelay/config"
	"github.com/akinalp/dmrelay/database"
	"github.com/akinalp/dmrelay/ws"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("[main] dmrelay server starting...")

	// ─── 1. Config ───
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[main] failed to load config: %v", err)
	}
	log.Printf("[main] config loaded (port=%d)", cfg.Server.Port)

	// ─── 2. Database ───
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("[main] failed to initialize database: %v", err)
	}
	defer db.Close()

	// ─── 3. Katmanlar ───
	repos := initRepositories(db.Conn)
	hub := ws.NewHub(ws.NewRegistry())

	svcs, limiters, err := initServices(repos, hub, cfg)
	if err != nil {
		log.Fatalf("[main] failed to initialize services: %v", err)
	}
	defer limiters.Stop()
	defer svcs.Notifier.Close()

	// ─── 4. Hub callback'leri ───
	registerHubCallbacks(hub, svcs)

	// ─── 5. Router + CORS ───
	h := initHandlers(svcs, limiters, hub, db.Conn, cfg)
	mux := http.NewServeMux()
	initRoutes(mux, h, svcs.Auth)

	origins := cfg.Server.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	// ─── 6. HTTP Server ───
	// WriteTimeout yok: WS bağlantıları uzun ömürlüdür.
	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           corsHandler.Handler(mux),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("[main] server listening on %s", cfg.Server.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[main] server error: %v", err)
		}
	}()

	<-done
	log.Println("[main] shutting down...")

	// Önce WebSocket bağlantılarını kapat, sonra HTTP server'ı.
	hub.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("[main] forced shutdown: %v", err)
	}

	log.Println("[main] server stopped gracefully")
}
