package main

import (
	"context"
	"log"

	"github.com/bibmarket/bibmarket/config"
	"github.com/bibmarket/bibmarket/db"
	"github.com/bibmarket/bibmarket/mailingservices"
	"github.com/bibmarket/bibmarket/server"
	"github.com/bibmarket/bibmarket/services"
)

func main() {
	conf, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	mailgunClient := &mailingservices.Mailgun{}
	mailgunClient.Init(conf)

	var pusher services.Pusher
	if conf.GoogleApplicationCredentials != "" {
		notificationService, err := services.NewNotificationService(conf.GoogleApplicationCredentials)
		if err != nil {
			log.Printf("push notifications disabled: %v", err)
		} else {
			pusher = notificationService
		}
	}

	var translator services.TranslationProvider
	if conf.GoogleTranslateApiKey != "" {
		translator, err = services.NewGoogleTranslator(context.Background(), conf.GoogleTranslateApiKey)
		if err != nil {
			log.Printf("translations disabled: %v", err)
		}
	}

	gormDB := db.GetDB(conf)
	authRepo := db.NewAuthRepo(gormDB)
	listingRepo := db.NewListingRepo(gormDB)
	chatRepo := db.NewChatRepo(gormDB)

	authService := services.NewAuthService(authRepo, conf)
	chatService := services.NewChatService(chatRepo, listingRepo, authRepo, mailgunClient, pusher, conf)
	translationService := services.NewTranslationService(translator, chatRepo)

	s := &server.Server{
		Config:             conf,
		Mail:               mailgunClient,
		AuthRepository:     authRepo,
		ListingRepository:  listingRepo,
		ChatRepository:     chatRepo,
		AuthService:        authService,
		ChatService:        chatService,
		TranslationService: translationService,
	}

	s.Start()
}
