package mailingservices

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/bibmarket/bibmarket/config"
	"github.com/mailgun/mailgun-go/v4"
)

// Mailgun sends marketplace notification emails. It satisfies the
// services.Mailer interface.
type Mailgun struct {
	Client *mailgun.MailgunImpl
	From   string
}

// Init configures the mailgun client from config.
func (m *Mailgun) Init(conf *config.Config) {
	m.Client = mailgun.NewMailgun(conf.MgDomain, conf.MailgunApiKey)
	m.From = conf.MgEmailFrom
}

// SendListingSavedEmail tells a listing owner someone saved their listing.
func (m *Mailgun) SendListingSavedEmail(recipient, listingTitle string) error {
	if m.Client == nil {
		return nil
	}

	subject := "Someone saved your listing"
	body := fmt.Sprintf("A runner saved your listing %q. Reply from your inbox to start the conversation.", listingTitle)
	message := m.Client.NewMessage(m.From, subject, body, recipient)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, _, err := m.Client.Send(ctx, message)
	if err != nil {
		log.Printf("mailgun send failed: %v", err)
		return err
	}
	return nil
}
