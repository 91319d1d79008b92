package db

import (
	"github.com/bibmarket/bibmarket/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// ListingRepository interface
type ListingRepository interface {
	CreateListing(listing *models.Listing) (*models.Listing, error)
	GetListing(id uuid.UUID) (*models.Listing, error)
	GetListingsBySeller(sellerID uint) ([]models.Listing, error)
}

type listingRepo struct {
	DB *gorm.DB
}

// NewListingRepo creates a new instance of ListingRepository
func NewListingRepo(db *GormDB) ListingRepository {
	return &listingRepo{db.DB}
}

func (l *listingRepo) CreateListing(listing *models.Listing) (*models.Listing, error) {
	if listing.ID == uuid.Nil {
		listing.ID = uuid.New()
	}
	if err := l.DB.Create(listing).Error; err != nil {
		return nil, errors.Wrap(err, "could not create listing")
	}
	return listing, nil
}

func (l *listingRepo) GetListing(id uuid.UUID) (*models.Listing, error) {
	var listing models.Listing
	if err := l.DB.Preload("Seller").First(&listing, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &listing, nil
}

func (l *listingRepo) GetListingsBySeller(sellerID uint) ([]models.Listing, error) {
	var listings []models.Listing
	if err := l.DB.Where("seller_id = ?", sellerID).Order("created_at DESC").Find(&listings).Error; err != nil {
		return nil, err
	}
	return listings, nil
}
