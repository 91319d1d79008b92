package models

import (
	"time"

	"github.com/google/uuid"
)

// Conversation pairs exactly two participants around a listing. The pair is
// stored as a fixed A/B slot assignment; the slots are never equal and never
// zero. A conversation created by a "save" action stays dormant
// (Activated=false) until the listing owner responds.
type Conversation struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ListingID      uuid.UUID `gorm:"type:uuid;not null;index" json:"listing_id"`
	Listing        Listing   `gorm:"foreignKey:ListingID" json:"listing"`
	ParticipantAID uint      `gorm:"not null;index" json:"participant_a_id"`
	ParticipantBID uint      `gorm:"not null;index" json:"participant_b_id"`
	Activated      bool      `gorm:"default:false" json:"activated"`
	DeletedByA     bool      `gorm:"default:false" json:"-"`
	DeletedByB     bool      `gorm:"default:false" json:"-"`
	LastMessage    string    `json:"last_message"`
	CreatedAt      time.Time `json:"created_at"`
	// UpdatedAt orders the conversation list; bumped on every new message.
	UpdatedAt time.Time `json:"updated_at"`
}

// HasParticipant reports whether userID occupies one of the two slots.
func (c *Conversation) HasParticipant(userID uint) bool {
	return userID != 0 && (c.ParticipantAID == userID || c.ParticipantBID == userID)
}

// OtherParticipant returns the slot opposite to userID, 0 if userID is not a
// participant.
func (c *Conversation) OtherParticipant(userID uint) uint {
	switch userID {
	case c.ParticipantAID:
		return c.ParticipantBID
	case c.ParticipantBID:
		return c.ParticipantAID
	default:
		return 0
	}
}

// DeletedBy reports whether userID has soft-deleted the conversation on
// their side.
func (c *Conversation) DeletedBy(userID uint) bool {
	switch userID {
	case c.ParticipantAID:
		return c.DeletedByA
	case c.ParticipantBID:
		return c.DeletedByB
	default:
		return false
	}
}

// VisibleTo is the conversation list eligibility rule: a participant sees the
// conversation once it is activated, or at any time if they own the listing it
// originated from. A side that soft-deleted the conversation never sees it.
// Non-participants never see it.
func (c *Conversation) VisibleTo(userID uint) bool {
	if !c.HasParticipant(userID) {
		return false
	}
	if c.DeletedBy(userID) {
		return false
	}
	return c.Activated || c.Listing.SellerID == userID
}

// ConversationSummary is the list-level view: the conversation with its most
// recent message and the viewer's unread count.
type ConversationSummary struct {
	Conversation Conversation `json:"conversation"`
	LastMessage  *Message     `json:"last_message,omitempty"`
	UnreadCount  int          `json:"unread_count"`
}
