package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/bibmarket/bibmarket/models"
	"github.com/bibmarket/bibmarket/server/response"
)

func (s *Server) handleListConversations() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, _, apiErr := currentUser(c)
		if apiErr != nil {
			response.JSON(c, "", apiErr.Status, nil, apiErr)
			return
		}

		summaries, apiErr := s.ChatService.ListConversations(user.ID)
		if apiErr != nil {
			response.JSON(c, "", apiErr.Status, nil, apiErr)
			return
		}
		response.JSON(c, "", http.StatusOK, summaries, nil)
	}
}

// handleGetMessages returns one ascending page of the conversation. Without a
// "before" cursor this is the open-the-conversation read and marks the
// returned messages read; with a cursor it is a history peek and read state is
// untouched.
func (s *Server) handleGetMessages() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, _, apiErr := currentUser(c)
		if apiErr != nil {
			response.JSON(c, "", apiErr.Status, nil, apiErr)
			return
		}

		conversationID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			response.JSON(c, "invalid conversation id", http.StatusBadRequest, nil, err)
			return
		}

		var before *time.Time
		if raw := c.Query("before"); raw != "" {
			parsed, err := time.Parse(time.RFC3339Nano, raw)
			if err != nil {
				response.JSON(c, "invalid before cursor", http.StatusBadRequest, nil, err)
				return
			}
			before = &parsed
		}
		limit, _ := strconv.Atoi(c.Query("limit"))

		messages, hasOlder, apiErr := s.ChatService.FetchMessages(conversationID, user.ID, before, limit)
		if apiErr != nil {
			response.JSON(c, "", apiErr.Status, nil, apiErr)
			return
		}
		response.JSON(c, "", http.StatusOK, gin.H{
			"messages":  messages,
			"has_older": hasOlder,
		}, nil)
	}
}

func (s *Server) handleSendMessage() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, _, apiErr := currentUser(c)
		if apiErr != nil {
			response.JSON(c, "", apiErr.Status, nil, apiErr)
			return
		}

		conversationID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			response.JSON(c, "invalid conversation id", http.StatusBadRequest, nil, err)
			return
		}

		var body models.SendMessageRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, err)
			return
		}

		message, apiErr := s.ChatService.SendMessage(conversationID, user.ID, body.Body)
		if apiErr != nil {
			response.JSON(c, "", apiErr.Status, nil, apiErr)
			return
		}
		response.JSON(c, "message sent successfully", http.StatusCreated, message, nil)
	}
}

func (s *Server) handleDeleteConversation() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, _, apiErr := currentUser(c)
		if apiErr != nil {
			response.JSON(c, "", apiErr.Status, nil, apiErr)
			return
		}

		conversationID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			response.JSON(c, "invalid conversation id", http.StatusBadRequest, nil, err)
			return
		}

		if apiErr := s.ChatService.DeleteConversation(conversationID, user.ID); apiErr != nil {
			response.JSON(c, "", apiErr.Status, nil, apiErr)
			return
		}
		response.JSON(c, "conversation deleted", http.StatusOK, nil, nil)
	}
}

func (s *Server) handleTotalUnread() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, _, apiErr := currentUser(c)
		if apiErr != nil {
			response.JSON(c, "", apiErr.Status, nil, apiErr)
			return
		}

		total, apiErr := s.ChatService.TotalUnread(user.ID)
		if apiErr != nil {
			response.JSON(c, "", apiErr.Status, nil, apiErr)
			return
		}
		response.JSON(c, "", http.StatusOK, gin.H{"total_unread": total}, nil)
	}
}

// handleGetTranslation resolves the display content of one message for the
// viewer's language, running the translation state machine on a cache miss.
func (s *Server) handleGetTranslation() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, _, apiErr := currentUser(c)
		if apiErr != nil {
			response.JSON(c, "", apiErr.Status, nil, apiErr)
			return
		}

		conversationID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			response.JSON(c, "invalid conversation id", http.StatusBadRequest, nil, err)
			return
		}
		messageID, err := uuid.Parse(c.Param("messageID"))
		if err != nil {
			response.JSON(c, "invalid message id", http.StatusBadRequest, nil, err)
			return
		}
		lang := c.Query("lang")
		if lang == "" {
			lang = user.Language
		}

		message, apiErr := s.ChatService.GetMessage(conversationID, messageID, user.ID)
		if apiErr != nil {
			response.JSON(c, "", apiErr.Status, nil, apiErr)
			return
		}

		entry := s.TranslationService.EnsureTranslated(c.Request.Context(), message, user.ID, lang)
		display := s.TranslationService.DisplayBody(message, user.ID, lang)
		response.JSON(c, "", http.StatusOK, gin.H{
			"body":        message.Body,
			"display":     display,
			"translation": entry,
		}, nil)
	}
}

func (s *Server) handleToggleTranslation() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, _, apiErr := currentUser(c)
		if apiErr != nil {
			response.JSON(c, "", apiErr.Status, nil, apiErr)
			return
		}

		conversationID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			response.JSON(c, "invalid conversation id", http.StatusBadRequest, nil, err)
			return
		}
		messageID, err := uuid.Parse(c.Param("messageID"))
		if err != nil {
			response.JSON(c, "invalid message id", http.StatusBadRequest, nil, err)
			return
		}
		lang := c.Query("lang")
		if lang == "" {
			lang = user.Language
		}

		message, apiErr := s.ChatService.GetMessage(conversationID, messageID, user.ID)
		if apiErr != nil {
			response.JSON(c, "", apiErr.Status, nil, apiErr)
			return
		}

		showOriginal := s.TranslationService.ToggleShowOriginal(messageID, lang)
		display := s.TranslationService.DisplayBody(message, user.ID, lang)
		response.JSON(c, "", http.StatusOK, gin.H{
			"show_original": showOriginal,
			"display":       display,
		}, nil)
	}
}
