package chatsync

import (
	"context"
	"sync"
	"time"

	"github.com/bibmarket/bibmarket/models"
	"github.com/bibmarket/bibmarket/services"
	"github.com/google/uuid"
)

// Translator is the slice of the translation cache the session feeds newly
// confirmed messages into. Satisfied by services.TranslationService.
type Translator interface {
	EnsureTranslated(ctx context.Context, message *models.Message, viewerID uint, lang string) *services.TranslationEntry
}

// Session bundles the three polling loops of one signed-in viewer: the
// conversation list, the total-unread badge, and the currently open
// conversation. Opening another conversation swaps in a fresh engine; late
// results from the abandoned one are discarded because nothing reads them.
// A Session is the embedding point for anything driving an inbox against the
// HTTP API through a Gateway: an end-user client, an operator auto-responder,
// or a monitoring worker.
type Session struct {
	viewerID     uint
	language     string
	gateway      Gateway
	translator   Translator
	onNewMessage MessageNotifier

	messageInterval time.Duration
	listInterval    time.Duration
	badgeInterval   time.Duration

	list  *ListSync
	badge *Badge

	mu           sync.Mutex
	engine       *Engine
	cancelEngine context.CancelFunc
}

// NewSession creates a session for one viewer. translator and onNewMessage
// may be nil.
func NewSession(viewerID uint, language string, gateway Gateway, translator Translator, onNewMessage MessageNotifier) *Session {
	return &Session{
		viewerID:        viewerID,
		language:        language,
		gateway:         gateway,
		translator:      translator,
		onNewMessage:    onNewMessage,
		messageInterval: MessagePollInterval,
		listInterval:    ListPollInterval,
		badgeInterval:   BadgePollInterval,
		list:            NewListSync(viewerID, gateway),
		badge:           NewBadge(viewerID, gateway),
	}
}

// Start launches the list and badge loops. They stop when ctx ends.
func (s *Session) Start(ctx context.Context) {
	go NewLoop("conversation-list", s.listInterval, s.list.Poll).Run(ctx)
	go NewLoop("unread-badge", s.badgeInterval, s.badge.Poll).Run(ctx)
}

// Open seeds an engine for the given conversation and starts its message
// loop, replacing any previously open conversation.
func (s *Session) Open(ctx context.Context, conversationID uuid.UUID, seed []models.Message) *Engine {
	engine := NewEngine(conversationID, s.viewerID, s.gateway, s.observe)
	engine.Seed(seed)

	loopCtx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	if s.cancelEngine != nil {
		s.cancelEngine()
	}
	s.engine = engine
	s.cancelEngine = cancel
	s.mu.Unlock()

	go NewLoop("messages", s.messageInterval, engine.Poll).Run(loopCtx)
	return engine
}

// CloseConversation stops the open conversation's loop, if any.
func (s *Session) CloseConversation() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelEngine != nil {
		s.cancelEngine()
		s.cancelEngine = nil
	}
	s.engine = nil
}

// Engine returns the engine of the currently open conversation, nil when none
// is open.
func (s *Session) Engine() *Engine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine
}

// Conversations returns the last polled conversation list.
func (s *Session) Conversations() []models.ConversationSummary {
	return s.list.Conversations()
}

// TotalUnread returns the last polled badge aggregate.
func (s *Session) TotalUnread() int {
	return s.badge.Total()
}

// observe runs the per-message side effects for each newly confirmed server
// message: warm the translation cache, then notify the caller. Confirmed
// messages only; the engine never surfaces temp entries here, so a message
// that might still change identity is never translated.
func (s *Session) observe(message models.Message) {
	if s.translator != nil {
		s.translator.EnsureTranslated(context.Background(), &message, s.viewerID, s.language)
	}
	if s.onNewMessage != nil {
		s.onNewMessage(message)
	}
}
