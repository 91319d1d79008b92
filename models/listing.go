package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ListingKindBib  = "bib"
	ListingKindRoom = "room"
)

// Listing is a race entry (bib) or hotel room offered on the marketplace.
// Conversations always originate from a listing.
type Listing struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	SellerID  uint           `gorm:"not null;index" json:"seller_id"`
	Seller    User           `gorm:"foreignKey:SellerID" json:"seller"`
	Kind      string         `gorm:"type:varchar(10);not null" json:"kind" binding:"required,oneof=bib room"`
	Title     string         `json:"title" binding:"required,min=3" conform:"trim"`
	RaceName  string         `json:"race_name" conform:"trim"`
	Price     float64        `json:"price" binding:"required,gt=0"`
	Currency  string         `gorm:"type:varchar(3);default:EUR" json:"currency" conform:"upper"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
