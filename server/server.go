package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bibmarket/bibmarket/config"
	"github.com/bibmarket/bibmarket/db"
	"github.com/bibmarket/bibmarket/mailingservices"
	"github.com/bibmarket/bibmarket/services"
)

type Server struct {
	Config             *config.Config
	Mail               *mailingservices.Mailgun
	AuthRepository     db.AuthRepository
	ListingRepository  db.ListingRepository
	ChatRepository     db.ChatRepository
	AuthService        services.AuthService
	ChatService        services.ChatService
	TranslationService services.TranslationService
}

// Start runs the HTTP server until an interrupt, then drains in-flight
// requests.
func (s *Server) Start() {
	port := s.Config.Port
	if port == 0 {
		port = 8080
	}

	r := s.setupRouter()
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: r,
	}

	go func() {
		log.Printf("server started on port %d", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}
	log.Println("server exited")
}
