package models

import (
	"errors"

	goval "github.com/go-passwd/validator"
	"github.com/leebenson/conform"
	"golang.org/x/crypto/bcrypt"
)

const (
	RoleRunner   = "runner"
	RoleOperator = "operator"
)

// User represents a marketplace account: an individual runner or a tour operator.
type User struct {
	Model
	Fullname       string `json:"fullname" binding:"required,min=2" conform:"trim"`
	Email          string `json:"email" gorm:"unique;not null" binding:"required,email" conform:"trim,lower"`
	Password       string `json:"password,omitempty" gorm:"-"`
	HashedPassword string `json:"-"`
	Role           string `json:"role" gorm:"default:runner" binding:"omitempty,oneof=runner operator"`
	Language       string `json:"language" gorm:"default:en" conform:"trim,lower"`
	DeviceToken    string `json:"-"`
}

// Blacklist holds access tokens invalidated by logout.
type Blacklist struct {
	Model
	Email string `json:"email"`
	Token string `json:"token"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UserResponse struct {
	ID       uint   `json:"id"`
	Fullname string `json:"fullname"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Language string `json:"language"`
}

type LoginResponse struct {
	UserResponse
	AccessToken string `json:"access_token"`
}

func (u *User) Response() UserResponse {
	return UserResponse{
		ID:       u.ID,
		Fullname: u.Fullname,
		Email:    u.Email,
		Role:     u.Role,
		Language: u.Language,
	}
}

// VerifyPassword compares the given password with the stored hash.
func (u *User) VerifyPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.HashedPassword), []byte(password))
}

func ValidatePassword(password string) error {
	passwordValidator := goval.New(
		goval.MinLength(6, errors.New("password cant be less than 6 characters")),
		goval.MaxLength(64, errors.New("password cant be more than 64 characters")))
	return passwordValidator.Validate(password)
}

// ConformInput trims and normalizes bound request fields in place.
func ConformInput(data interface{}) error {
	return conform.Strings(data)
}
