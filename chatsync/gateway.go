package chatsync

import (
	"context"

	"github.com/bibmarket/bibmarket/models"
	"github.com/bibmarket/bibmarket/services"
	"github.com/google/uuid"
)

// ServiceGateway adapts the chat service to the Gateway consumed by the
// polling loops.
type ServiceGateway struct {
	chat services.ChatService
}

// NewServiceGateway wraps a ChatService.
func NewServiceGateway(chat services.ChatService) *ServiceGateway {
	return &ServiceGateway{chat: chat}
}

// FetchMessages walks the cursor pages back to the beginning and returns the
// full ascending message set. Only the first (latest) page marks messages
// read; the cursor pages behind it are history peeks and leave read state
// alone.
func (g *ServiceGateway) FetchMessages(_ context.Context, conversationID uuid.UUID, viewerID uint) ([]models.Message, error) {
	page, hasOlder, apiErr := g.chat.FetchMessages(conversationID, viewerID, nil, services.DefaultMessagePageSize)
	if apiErr != nil {
		return nil, apiErr
	}

	all := page
	for hasOlder && len(all) > 0 {
		cursor := all[0].CreatedAt
		var older []models.Message
		older, hasOlder, apiErr = g.chat.FetchMessages(conversationID, viewerID, &cursor, services.DefaultMessagePageSize)
		if apiErr != nil {
			return nil, apiErr
		}
		all = append(older, all...)
	}
	return all, nil
}

func (g *ServiceGateway) FetchConversations(_ context.Context, viewerID uint) ([]models.ConversationSummary, error) {
	summaries, apiErr := g.chat.ListConversations(viewerID)
	if apiErr != nil {
		return nil, apiErr
	}
	return summaries, nil
}

func (g *ServiceGateway) TotalUnread(_ context.Context, viewerID uint) (int, error) {
	total, apiErr := g.chat.TotalUnread(viewerID)
	if apiErr != nil {
		return 0, apiErr
	}
	return total, nil
}
