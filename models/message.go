package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	MessageKindText        = "text"
	MessageKindListingSave = "listing_saved"
)

// Message belongs to exactly one conversation. CreatedAt is the authoritative
// ordering key. ReadAt is null until the recipient observes the message; the
// translation payload is valid only for the language recorded in
// TranslatedLang.
type Message struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ConversationID uuid.UUID  `gorm:"type:uuid;not null;index" json:"conversation_id"`
	SenderID       uint       `gorm:"not null;index" json:"sender_id"`
	Body           string     `json:"body"`
	Kind           string     `gorm:"type:varchar(20);default:text" json:"kind"`
	CreatedAt      time.Time  `gorm:"index" json:"created_at"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
	SourceLang     *string    `gorm:"type:varchar(8)" json:"source_lang,omitempty"`
	TranslatedBody *string    `json:"translated_body,omitempty"`
	TranslatedLang *string    `gorm:"type:varchar(8)" json:"translated_lang,omitempty"`
}

// UnreadBy reports whether the message counts toward userID's unread badge.
func (m *Message) UnreadBy(userID uint) bool {
	return m.SenderID != userID && m.ReadAt == nil
}

// HasTranslationFor reports whether the stored translation payload can serve a
// viewer reading in lang. A payload recorded for a different target language
// is a cache miss.
func (m *Message) HasTranslationFor(lang string) bool {
	return m.TranslatedBody != nil && m.TranslatedLang != nil && *m.TranslatedLang == lang
}

type SendMessageRequest struct {
	Body string `json:"body" binding:"required" conform:"trim"`
}
