package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/bibmarket/bibmarket/models"
	"github.com/bibmarket/bibmarket/server/response"
)

func (s *Server) handleCreateListing() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, _, apiErr := currentUser(c)
		if apiErr != nil {
			response.JSON(c, "", apiErr.Status, nil, apiErr)
			return
		}

		var listing models.Listing
		if err := c.ShouldBindJSON(&listing); err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, err)
			return
		}
		if err := models.ConformInput(&listing); err != nil {
			response.JSON(c, "", http.StatusInternalServerError, nil, err)
			return
		}
		listing.SellerID = user.ID

		created, err := s.ListingRepository.CreateListing(&listing)
		if err != nil {
			response.JSON(c, "failed to create listing", http.StatusInternalServerError, nil, err)
			return
		}
		response.JSON(c, "listing created successfully", http.StatusCreated, created, nil)
	}
}

func (s *Server) handleGetMyListings() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, _, apiErr := currentUser(c)
		if apiErr != nil {
			response.JSON(c, "", apiErr.Status, nil, apiErr)
			return
		}

		listings, err := s.ListingRepository.GetListingsBySeller(user.ID)
		if err != nil {
			response.JSON(c, "failed to fetch listings", http.StatusInternalServerError, nil, err)
			return
		}
		response.JSON(c, "", http.StatusOK, listings, nil)
	}
}

// handleSaveListing creates (or reuses) the dormant conversation a save action
// spawns. The listing owner sees it immediately; the saver will not until the
// owner responds.
func (s *Server) handleSaveListing() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, _, apiErr := currentUser(c)
		if apiErr != nil {
			response.JSON(c, "", apiErr.Status, nil, apiErr)
			return
		}

		listingID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			response.JSON(c, "invalid listing id", http.StatusBadRequest, nil, err)
			return
		}

		conversation, apiErr := s.ChatService.SaveListing(listingID, user.ID)
		if apiErr != nil {
			response.JSON(c, "", apiErr.Status, nil, apiErr)
			return
		}
		response.JSON(c, "listing saved", http.StatusOK, conversation, nil)
	}
}

func (s *Server) handleContactListing() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, _, apiErr := currentUser(c)
		if apiErr != nil {
			response.JSON(c, "", apiErr.Status, nil, apiErr)
			return
		}

		listingID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			response.JSON(c, "invalid listing id", http.StatusBadRequest, nil, err)
			return
		}

		var body models.SendMessageRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, err)
			return
		}

		conversation, message, apiErr := s.ChatService.StartConversation(listingID, user.ID, body.Body)
		if apiErr != nil {
			response.JSON(c, "", apiErr.Status, nil, apiErr)
			return
		}
		response.JSON(c, "conversation started", http.StatusCreated, gin.H{
			"conversation": conversation,
			"message":      message,
		}, nil)
	}
}
