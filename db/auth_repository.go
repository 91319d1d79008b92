package db

import (
	"github.com/bibmarket/bibmarket/models"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// AuthRepository interface
type AuthRepository interface {
	CreateUser(user *models.User) (*models.User, error)
	FindUserByEmail(email string) (*models.User, error)
	FindUserByID(id uint) (*models.User, error)
	IsEmailExist(email string) error
	AddToBlackList(blacklist *models.Blacklist) error
	IsTokenInBlacklist(token string) bool
	UpdateDeviceToken(userID uint, token string) error
}

// authRepo struct
type authRepo struct {
	DB *gorm.DB
}

// NewAuthRepo creates a new instance of AuthRepository
func NewAuthRepo(db *GormDB) AuthRepository {
	return &authRepo{db.DB}
}

func (a *authRepo) CreateUser(user *models.User) (*models.User, error) {
	if err := a.DB.Create(user).Error; err != nil {
		return nil, errors.Wrap(err, "could not create user")
	}
	return user, nil
}

func (a *authRepo) FindUserByEmail(email string) (*models.User, error) {
	var user models.User
	if err := a.DB.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (a *authRepo) FindUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := a.DB.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (a *authRepo) IsEmailExist(email string) error {
	var count int64
	if err := a.DB.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return errors.Wrap(err, "gorm count error")
	}
	if count > 0 {
		return errors.New("email already in use")
	}
	return nil
}

func (a *authRepo) AddToBlackList(blacklist *models.Blacklist) error {
	return a.DB.Create(blacklist).Error
}

func (a *authRepo) IsTokenInBlacklist(token string) bool {
	var count int64
	a.DB.Model(&models.Blacklist{}).Where("token = ?", token).Count(&count)
	return count > 0
}

func (a *authRepo) UpdateDeviceToken(userID uint, token string) error {
	return a.DB.Model(&models.User{}).Where("id = ?", userID).Update("device_token", token).Error
}
