package db

import (
	"time"

	"github.com/bibmarket/bibmarket/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// ChatRepository is the persistence layer under the message store gateway.
// Participant checks and visibility filtering live in the chat service; this
// layer only reads and writes rows.
type ChatRepository interface {
	CreateConversation(conversation *models.Conversation) error
	GetConversation(id uuid.UUID) (*models.Conversation, error)
	GetConversationsByParticipant(userID uint) ([]models.Conversation, error)
	FindConversationByListingAndParticipant(listingID uuid.UUID, userID uint) (*models.Conversation, error)
	TouchConversation(id uuid.UUID, preview string, activated bool) error
	SetConversationDeleted(id uuid.UUID, column string) error

	CreateMessage(message *models.Message) error
	GetMessage(id uuid.UUID) (*models.Message, error)
	GetMessages(conversationID uuid.UUID, before *time.Time, limit int) ([]models.Message, bool, error)
	LatestMessage(conversationID uuid.UUID) (*models.Message, error)
	MarkMessagesRead(ids []uuid.UUID, at time.Time) error
	CountUnread(conversationID uuid.UUID, viewerID uint) (int64, error)
	UpdateMessageTranslation(id uuid.UUID, sourceLang string, translatedBody, translatedLang *string) error
}

type chatRepo struct {
	DB *gorm.DB
}

// NewChatRepo creates a new instance of ChatRepository
func NewChatRepo(db *GormDB) ChatRepository {
	return &chatRepo{db.DB}
}

func (r *chatRepo) CreateConversation(conversation *models.Conversation) error {
	if conversation.ID == uuid.Nil {
		conversation.ID = uuid.New()
	}
	if err := r.DB.Create(conversation).Error; err != nil {
		return errors.Wrap(err, "could not create conversation")
	}
	return nil
}

func (r *chatRepo) GetConversation(id uuid.UUID) (*models.Conversation, error) {
	var conversation models.Conversation
	if err := r.DB.Preload("Listing").First(&conversation, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &conversation, nil
}

func (r *chatRepo) GetConversationsByParticipant(userID uint) ([]models.Conversation, error) {
	var conversations []models.Conversation
	err := r.DB.Preload("Listing").
		Where("participant_a_id = ? OR participant_b_id = ?", userID, userID).
		Order("updated_at DESC").
		Find(&conversations).Error
	if err != nil {
		return nil, errors.Wrap(err, "could not list conversations")
	}
	return conversations, nil
}

func (r *chatRepo) FindConversationByListingAndParticipant(listingID uuid.UUID, userID uint) (*models.Conversation, error) {
	var conversation models.Conversation
	err := r.DB.Preload("Listing").
		Where("listing_id = ? AND (participant_a_id = ? OR participant_b_id = ?)", listingID, userID, userID).
		First(&conversation).Error
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

// TouchConversation records the latest message preview and bumps UpdatedAt so
// list ordering follows activity.
func (r *chatRepo) TouchConversation(id uuid.UUID, preview string, activated bool) error {
	updates := map[string]interface{}{
		"last_message": preview,
		"updated_at":   time.Now(),
	}
	if activated {
		updates["activated"] = true
	}
	return r.DB.Model(&models.Conversation{}).Where("id = ?", id).Updates(updates).Error
}

func (r *chatRepo) SetConversationDeleted(id uuid.UUID, column string) error {
	if column != "deleted_by_a" && column != "deleted_by_b" {
		return errors.Errorf("invalid soft delete column %q", column)
	}
	return r.DB.Model(&models.Conversation{}).Where("id = ?", id).Update(column, true).Error
}

func (r *chatRepo) CreateMessage(message *models.Message) error {
	if message.ID == uuid.Nil {
		message.ID = uuid.New()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}
	if err := r.DB.Create(message).Error; err != nil {
		return errors.Wrap(err, "could not create message")
	}
	return nil
}

func (r *chatRepo) GetMessage(id uuid.UUID) (*models.Message, error) {
	var message models.Message
	if err := r.DB.First(&message, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &message, nil
}

// GetMessages returns one ascending page of messages plus whether older ones
// exist beyond it. A nil cursor means the latest page.
func (r *chatRepo) GetMessages(conversationID uuid.UUID, before *time.Time, limit int) ([]models.Message, bool, error) {
	query := r.DB.Where("conversation_id = ?", conversationID)
	if before != nil {
		query = query.Where("created_at < ?", *before)
	}

	var page []models.Message
	// limit+1 probes for an older page without a second count query.
	if err := query.Order("created_at DESC").Limit(limit + 1).Find(&page).Error; err != nil {
		return nil, false, errors.Wrap(err, "could not fetch messages")
	}

	hasOlder := false
	if len(page) > limit {
		hasOlder = true
		page = page[:limit]
	}

	// reverse into ascending order
	for i, j := 0, len(page)-1; i < j; i, j = i+1, j-1 {
		page[i], page[j] = page[j], page[i]
	}
	return page, hasOlder, nil
}

func (r *chatRepo) LatestMessage(conversationID uuid.UUID) (*models.Message, error) {
	var message models.Message
	err := r.DB.Where("conversation_id = ?", conversationID).
		Order("created_at DESC").
		First(&message).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &message, nil
}

// MarkMessagesRead sets the read timestamp on the given rows. Only null
// read_at rows are touched, so the transition is monotonic and repeat calls
// are no-ops.
func (r *chatRepo) MarkMessagesRead(ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return r.DB.Model(&models.Message{}).
		Where("id IN ? AND read_at IS NULL", ids).
		Update("read_at", at).Error
}

func (r *chatRepo) CountUnread(conversationID uuid.UUID, viewerID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND read_at IS NULL", conversationID, viewerID).
		Count(&count).Error
	if err != nil {
		return 0, errors.Wrap(err, "could not count unread")
	}
	return count, nil
}

// UpdateMessageTranslation persists the shared translation cache fields.
// Last write wins; the payload is only ever replaced wholesale.
func (r *chatRepo) UpdateMessageTranslation(id uuid.UUID, sourceLang string, translatedBody, translatedLang *string) error {
	return r.DB.Model(&models.Message{}).Where("id = ?", id).Updates(map[string]interface{}{
		"source_lang":     sourceLang,
		"translated_body": translatedBody,
		"translated_lang": translatedLang,
	}).Error
}
