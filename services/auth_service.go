package services

import (
	"log"
	"net/http"

	"github.com/bibmarket/bibmarket/config"
	"github.com/bibmarket/bibmarket/db"
	apiError "github.com/bibmarket/bibmarket/errors"
	"github.com/bibmarket/bibmarket/models"
	"github.com/bibmarket/bibmarket/services/jwt"
	"golang.org/x/crypto/bcrypt"
)

// AuthService interface
type AuthService interface {
	SignupUser(user *models.User) (*models.User, *apiError.Error)
	LoginUser(loginRequest *models.LoginRequest) (*models.LoginResponse, *apiError.Error)
	LogoutUser(user *models.User, token string) *apiError.Error
	RegisterDeviceToken(userID uint, token string) *apiError.Error
}

// authService struct
type authService struct {
	Config   *config.Config
	authRepo db.AuthRepository
}

// NewAuthService instantiate an authService
func NewAuthService(authRepo db.AuthRepository, conf *config.Config) AuthService {
	return &authService{
		Config:   conf,
		authRepo: authRepo,
	}
}

func (s *authService) SignupUser(user *models.User) (*models.User, *apiError.Error) {
	if err := models.ConformInput(user); err != nil {
		log.Printf("SignupUser conform error: %v", err)
		return nil, apiError.ErrInternalServerError
	}

	if err := models.ValidatePassword(user.Password); err != nil {
		return nil, apiError.New(err.Error(), http.StatusBadRequest)
	}

	if err := s.authRepo.IsEmailExist(user.Email); err != nil {
		return nil, apiError.New("email already in use", http.StatusBadRequest)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("SignupUser error hashing password: %v", err)
		return nil, apiError.ErrInternalServerError
	}
	user.HashedPassword = string(hashedPassword)
	user.Password = ""

	created, err := s.authRepo.CreateUser(user)
	if err != nil {
		log.Printf("SignupUser error creating user: %v", err)
		return nil, apiError.GetUniqueContraintError(err)
	}

	return created, nil
}

func (s *authService) LoginUser(loginRequest *models.LoginRequest) (*models.LoginResponse, *apiError.Error) {
	user, err := s.authRepo.FindUserByEmail(loginRequest.Email)
	if err != nil {
		return nil, apiError.New("invalid email or password", http.StatusUnauthorized)
	}

	if err := user.VerifyPassword(loginRequest.Password); err != nil {
		return nil, apiError.New("invalid email or password", http.StatusUnauthorized)
	}

	accessToken, err := jwt.GenerateToken(user.ID, user.Email, s.Config.JWTSecret)
	if err != nil {
		log.Printf("LoginUser error generating token: %v", err)
		return nil, apiError.ErrInternalServerError
	}

	return &models.LoginResponse{
		UserResponse: user.Response(),
		AccessToken:  accessToken,
	}, nil
}

func (s *authService) LogoutUser(user *models.User, token string) *apiError.Error {
	blacklist := &models.Blacklist{
		Email: user.Email,
		Token: token,
	}
	if err := s.authRepo.AddToBlackList(blacklist); err != nil {
		log.Printf("LogoutUser error blacklisting token: %v", err)
		return apiError.ErrInternalServerError
	}
	return nil
}

func (s *authService) RegisterDeviceToken(userID uint, token string) *apiError.Error {
	if err := s.authRepo.UpdateDeviceToken(userID, token); err != nil {
		log.Printf("RegisterDeviceToken error: %v", err)
		return apiError.ErrInternalServerError
	}
	return nil
}
