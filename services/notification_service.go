package services

import (
	"context"
	"log"

	firebase "firebase.google.com/go"
	"firebase.google.com/go/messaging"
	"github.com/pkg/errors"
	"google.golang.org/api/option"
)

// NotificationService sends new-message push notifications through Firebase
// Cloud Messaging. It satisfies the Pusher interface consumed by ChatService.
type NotificationService struct {
	client *messaging.Client
}

// NewNotificationService initializes the FCM client from a credentials file.
func NewNotificationService(credentialsFile string) (*NotificationService, error) {
	opt := option.WithCredentialsFile(credentialsFile)
	app, err := firebase.NewApp(context.Background(), nil, opt)
	if err != nil {
		return nil, errors.Wrap(err, "error initializing firebase app")
	}

	client, err := app.Messaging(context.Background())
	if err != nil {
		return nil, errors.Wrap(err, "error getting messaging client")
	}
	log.Println("Firebase Messaging client initialized")

	return &NotificationService{client: client}, nil
}

// Push sends a notification to one device token.
func (s *NotificationService) Push(deviceToken, title, body string) error {
	message := &messaging.Message{
		Token: deviceToken,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
	}

	_, err := s.client.Send(context.Background(), message)
	if err != nil {
		log.Println("Error sending message:", err)
		return err
	}
	return nil
}
