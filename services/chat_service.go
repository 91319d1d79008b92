package services

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/bibmarket/bibmarket/config"
	"github.com/bibmarket/bibmarket/db"
	apiError "github.com/bibmarket/bibmarket/errors"
	"github.com/bibmarket/bibmarket/models"
	"github.com/google/uuid"
)

// DefaultMessagePageSize caps one page of a conversation fetch unless the
// config overrides it.
const DefaultMessagePageSize = 50

// Mailer sends marketplace notification emails. Implemented by
// mailingservices.Mailgun.
type Mailer interface {
	SendListingSavedEmail(recipient, listingTitle string) error
}

// Pusher delivers "new message" push notifications. Implemented by the
// firebase-backed NotificationService. Push delivery is a side effect only and
// never a sync transport.
type Pusher interface {
	Push(deviceToken, title, body string) error
}

// ChatService is the message store gateway: every operation authorizes the
// caller as a conversation participant before touching rows, and a rejected
// caller learns nothing, not even whether the conversation exists.
type ChatService interface {
	StartConversation(listingID uuid.UUID, senderID uint, body string) (*models.Conversation, *models.Message, *apiError.Error)
	SaveListing(listingID uuid.UUID, saverID uint) (*models.Conversation, *apiError.Error)
	SendMessage(conversationID uuid.UUID, senderID uint, body string) (*models.Message, *apiError.Error)
	FetchMessages(conversationID uuid.UUID, viewerID uint, before *time.Time, limit int) ([]models.Message, bool, *apiError.Error)
	GetMessage(conversationID, messageID uuid.UUID, viewerID uint) (*models.Message, *apiError.Error)
	ListConversations(viewerID uint) ([]models.ConversationSummary, *apiError.Error)
	DeleteConversation(conversationID uuid.UUID, viewerID uint) *apiError.Error
	UnreadCount(conversationID uuid.UUID, viewerID uint) (int, *apiError.Error)
	TotalUnread(viewerID uint) (int, *apiError.Error)
}

// chatService struct
type chatService struct {
	Config      *config.Config
	chatRepo    db.ChatRepository
	listingRepo db.ListingRepository
	authRepo    db.AuthRepository
	mailer      Mailer
	pusher      Pusher
}

// NewChatService instantiates a chatService. mailer and pusher may be nil;
// their side effects are then skipped.
func NewChatService(chatRepo db.ChatRepository, listingRepo db.ListingRepository, authRepo db.AuthRepository, mailer Mailer, pusher Pusher, conf *config.Config) ChatService {
	return &chatService{
		Config:      conf,
		chatRepo:    chatRepo,
		listingRepo: listingRepo,
		authRepo:    authRepo,
		mailer:      mailer,
		pusher:      pusher,
	}
}

func (s *chatService) pageSize() int {
	if s.Config != nil && s.Config.MessagePageSize > 0 {
		return s.Config.MessagePageSize
	}
	return DefaultMessagePageSize
}

// conversationNotFound is the uniform rejection for a missing conversation and
// for a caller who is not a participant. Using one answer for both keeps
// probing requests from confirming that a conversation exists.
var conversationNotFound = apiError.New("conversation not found", http.StatusNotFound)

// authorizeParticipant loads the conversation and verifies the caller occupies
// one of its two slots.
func (s *chatService) authorizeParticipant(conversationID uuid.UUID, userID uint) (*models.Conversation, *apiError.Error) {
	conversation, err := s.chatRepo.GetConversation(conversationID)
	if err != nil {
		return nil, conversationNotFound
	}
	if !conversation.HasParticipant(userID) {
		return nil, conversationNotFound
	}
	return conversation, nil
}

func (s *chatService) StartConversation(listingID uuid.UUID, senderID uint, body string) (*models.Conversation, *models.Message, *apiError.Error) {
	if strings.TrimSpace(body) == "" {
		return nil, nil, apiError.New("message body cannot be empty", http.StatusBadRequest)
	}

	conversation, apiErr := s.findOrCreateConversation(listingID, senderID)
	if apiErr != nil {
		return nil, nil, apiErr
	}

	message, apiErr := s.SendMessage(conversation.ID, senderID, body)
	if apiErr != nil {
		return nil, nil, apiErr
	}
	return conversation, message, nil
}

func (s *chatService) SaveListing(listingID uuid.UUID, saverID uint) (*models.Conversation, *apiError.Error) {
	conversation, apiErr := s.findOrCreateConversation(listingID, saverID)
	if apiErr != nil {
		return nil, apiErr
	}

	message := &models.Message{
		ConversationID: conversation.ID,
		SenderID:       saverID,
		Body:           "listing saved",
		Kind:           models.MessageKindListingSave,
	}
	if err := s.chatRepo.CreateMessage(message); err != nil {
		log.Printf("SaveListing error creating marker message: %v", err)
		return nil, apiError.ErrInternalServerError
	}
	// A save marker never activates: the conversation stays hidden from the
	// saver until the owner responds.
	if err := s.chatRepo.TouchConversation(conversation.ID, message.Body, false); err != nil {
		log.Printf("SaveListing error touching conversation: %v", err)
		return nil, apiError.ErrInternalServerError
	}

	if s.mailer != nil {
		if owner, err := s.authRepo.FindUserByID(conversation.Listing.SellerID); err == nil {
			if err := s.mailer.SendListingSavedEmail(owner.Email, conversation.Listing.Title); err != nil {
				log.Printf("SaveListing email side effect failed: %v", err)
			}
		}
	}

	return conversation, nil
}

func (s *chatService) findOrCreateConversation(listingID uuid.UUID, userID uint) (*models.Conversation, *apiError.Error) {
	listing, err := s.listingRepo.GetListing(listingID)
	if err != nil {
		return nil, apiError.New("listing not found", http.StatusNotFound)
	}
	if listing.SellerID == userID {
		return nil, apiError.New("cannot open a conversation on your own listing", http.StatusBadRequest)
	}

	existing, err := s.chatRepo.FindConversationByListingAndParticipant(listingID, userID)
	if err == nil {
		return existing, nil
	}

	conversation := &models.Conversation{
		ListingID:      listingID,
		Listing:        *listing,
		ParticipantAID: userID,
		ParticipantBID: listing.SellerID,
	}
	if err := s.chatRepo.CreateConversation(conversation); err != nil {
		log.Printf("findOrCreateConversation error: %v", err)
		return nil, apiError.ErrInternalServerError
	}
	return conversation, nil
}

func (s *chatService) SendMessage(conversationID uuid.UUID, senderID uint, body string) (*models.Message, *apiError.Error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apiError.New("message body cannot be empty", http.StatusBadRequest)
	}

	conversation, apiErr := s.authorizeParticipant(conversationID, senderID)
	if apiErr != nil {
		return nil, apiErr
	}

	message := &models.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Body:           body,
		Kind:           models.MessageKindText,
	}
	if err := s.chatRepo.CreateMessage(message); err != nil {
		log.Printf("SendMessage error creating message: %v", err)
		return nil, apiError.ErrInternalServerError
	}

	// Any real text message activates the conversation, which is what makes a
	// save-spawned thread appear in the saver's list once the owner replies.
	if err := s.chatRepo.TouchConversation(conversationID, body, true); err != nil {
		log.Printf("SendMessage error touching conversation: %v", err)
		return nil, apiError.ErrInternalServerError
	}

	s.notifyRecipient(conversation, message)

	return message, nil
}

// notifyRecipient pushes a best-effort new-message notification to the other
// participant's device.
func (s *chatService) notifyRecipient(conversation *models.Conversation, message *models.Message) {
	if s.pusher == nil {
		return
	}
	recipientID := conversation.OtherParticipant(message.SenderID)
	recipient, err := s.authRepo.FindUserByID(recipientID)
	if err != nil || recipient.DeviceToken == "" {
		return
	}
	if err := s.pusher.Push(recipient.DeviceToken, "New message", message.Body); err != nil {
		log.Printf("push notification failed for user %d: %v", recipientID, err)
	}
}

// FetchMessages returns one ascending page. The default (cursor-less) fetch is
// the "open the conversation" read and marks the returned unread messages as
// read; a cursor fetch is history scrolling and must not clear unread state.
func (s *chatService) FetchMessages(conversationID uuid.UUID, viewerID uint, before *time.Time, limit int) ([]models.Message, bool, *apiError.Error) {
	if _, apiErr := s.authorizeParticipant(conversationID, viewerID); apiErr != nil {
		return nil, false, apiErr
	}
	if limit <= 0 || limit > s.pageSize() {
		limit = s.pageSize()
	}

	messages, hasOlder, err := s.chatRepo.GetMessages(conversationID, before, limit)
	if err != nil {
		log.Printf("FetchMessages error: %v", err)
		return nil, false, apiError.ErrInternalServerError
	}

	if before == nil {
		now := time.Now()
		var toMark []uuid.UUID
		for i := range messages {
			if messages[i].UnreadBy(viewerID) {
				toMark = append(toMark, messages[i].ID)
				messages[i].ReadAt = &now
			}
		}
		if err := s.chatRepo.MarkMessagesRead(toMark, now); err != nil {
			log.Printf("FetchMessages mark-read error: %v", err)
		}
	}

	return messages, hasOlder, nil
}

func (s *chatService) GetMessage(conversationID, messageID uuid.UUID, viewerID uint) (*models.Message, *apiError.Error) {
	if _, apiErr := s.authorizeParticipant(conversationID, viewerID); apiErr != nil {
		return nil, apiErr
	}
	message, err := s.chatRepo.GetMessage(messageID)
	if err != nil || message.ConversationID != conversationID {
		return nil, apiError.New("message not found", http.StatusNotFound)
	}
	return message, nil
}

func (s *chatService) ListConversations(viewerID uint) ([]models.ConversationSummary, *apiError.Error) {
	conversations, err := s.chatRepo.GetConversationsByParticipant(viewerID)
	if err != nil {
		log.Printf("ListConversations error: %v", err)
		return nil, apiError.ErrInternalServerError
	}

	summaries := make([]models.ConversationSummary, 0, len(conversations))
	for _, conversation := range conversations {
		if !conversation.VisibleTo(viewerID) {
			continue
		}
		latest, err := s.chatRepo.LatestMessage(conversation.ID)
		if err != nil {
			log.Printf("ListConversations latest message error: %v", err)
			return nil, apiError.ErrInternalServerError
		}
		unread, err := s.chatRepo.CountUnread(conversation.ID, viewerID)
		if err != nil {
			log.Printf("ListConversations unread count error: %v", err)
			return nil, apiError.ErrInternalServerError
		}
		summaries = append(summaries, models.ConversationSummary{
			Conversation: conversation,
			LastMessage:  latest,
			UnreadCount:  int(unread),
		})
	}
	return summaries, nil
}

func (s *chatService) DeleteConversation(conversationID uuid.UUID, viewerID uint) *apiError.Error {
	conversation, apiErr := s.authorizeParticipant(conversationID, viewerID)
	if apiErr != nil {
		return apiErr
	}

	column := "deleted_by_a"
	if conversation.ParticipantBID == viewerID {
		column = "deleted_by_b"
	}
	if err := s.chatRepo.SetConversationDeleted(conversationID, column); err != nil {
		log.Printf("DeleteConversation error: %v", err)
		return apiError.ErrInternalServerError
	}
	return nil
}

func (s *chatService) UnreadCount(conversationID uuid.UUID, viewerID uint) (int, *apiError.Error) {
	if _, apiErr := s.authorizeParticipant(conversationID, viewerID); apiErr != nil {
		return 0, apiErr
	}
	count, err := s.chatRepo.CountUnread(conversationID, viewerID)
	if err != nil {
		log.Printf("UnreadCount error: %v", err)
		return 0, apiError.ErrInternalServerError
	}
	return int(count), nil
}

// TotalUnread recomputes the badge aggregate from scratch over the viewer's
// visible conversations. Recomputing per poll, rather than maintaining a
// counter, keeps multiple sessions from drifting apart.
func (s *chatService) TotalUnread(viewerID uint) (int, *apiError.Error) {
	summaries, apiErr := s.ListConversations(viewerID)
	if apiErr != nil {
		return 0, apiErr
	}
	total := 0
	for _, summary := range summaries {
		total += summary.UnreadCount
	}
	return total, nil
}
