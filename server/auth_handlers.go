package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	errs "github.com/bibmarket/bibmarket/errors"
	"github.com/bibmarket/bibmarket/models"
	"github.com/bibmarket/bibmarket/server/response"
)

func (s *Server) handleSignup() gin.HandlerFunc {
	return func(c *gin.Context) {
		var user models.User
		if err := c.ShouldBindJSON(&user); err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, err)
			return
		}

		created, apiErr := s.AuthService.SignupUser(&user)
		if apiErr != nil {
			response.JSON(c, "", apiErr.Status, nil, apiErr)
			return
		}
		response.JSON(c, "user created successfully", http.StatusCreated, created.Response(), nil)
	}
}

func (s *Server) handleLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		var loginRequest models.LoginRequest
		if err := c.ShouldBindJSON(&loginRequest); err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, err)
			return
		}

		loginResponse, apiErr := s.AuthService.LoginUser(&loginRequest)
		if apiErr != nil {
			response.JSON(c, "", apiErr.Status, nil, apiErr)
			return
		}
		response.JSON(c, "login successful", http.StatusOK, loginResponse, nil)
	}
}

func (s *Server) handleLogout() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, token, apiErr := currentUser(c)
		if apiErr != nil {
			response.JSON(c, "", apiErr.Status, nil, apiErr)
			return
		}

		if apiErr := s.AuthService.LogoutUser(user, token); apiErr != nil {
			response.JSON(c, "", apiErr.Status, nil, apiErr)
			return
		}
		response.JSON(c, "logout successful", http.StatusOK, nil, nil)
	}
}

func (s *Server) handleShowProfile() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, _, apiErr := currentUser(c)
		if apiErr != nil {
			response.JSON(c, "", apiErr.Status, nil, apiErr)
			return
		}
		response.JSON(c, "", http.StatusOK, user.Response(), nil)
	}
}

func (s *Server) handleRegisterDeviceToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, _, apiErr := currentUser(c)
		if apiErr != nil {
			response.JSON(c, "", apiErr.Status, nil, apiErr)
			return
		}

		var body struct {
			DeviceToken string `json:"device_token" binding:"required"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, err)
			return
		}

		if apiErr := s.AuthService.RegisterDeviceToken(user.ID, body.DeviceToken); apiErr != nil {
			response.JSON(c, "", apiErr.Status, nil, apiErr)
			return
		}
		response.JSON(c, "device token registered", http.StatusOK, nil, nil)
	}
}

// currentUser pulls the authenticated user and access token the Authorize
// middleware stored on the context.
func currentUser(c *gin.Context) (*models.User, string, *errs.Error) {
	userValue, exists := c.Get("user")
	if !exists {
		return nil, "", errs.New("Unauthorized", http.StatusUnauthorized)
	}
	user, ok := userValue.(*models.User)
	if !ok {
		return nil, "", errs.ErrInternalServerError
	}
	token, _ := c.Get("access_token")
	accessToken, _ := token.(string)
	return user, accessToken, nil
}
