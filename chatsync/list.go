package chatsync

import (
	"context"
	"sync"

	"github.com/bibmarket/bibmarket/models"
)

// ListSync keeps the viewer's conversation list fresh. Unlike the message
// engine there is no optimistic merge: summaries are never created locally,
// so each successful poll simply replaces the list, unread counts included.
type ListSync struct {
	viewerID uint
	gateway  Gateway

	token chan struct{}

	mu        sync.Mutex
	summaries []models.ConversationSummary
}

// NewListSync creates a list synchronizer for one viewer.
func NewListSync(viewerID uint, gateway Gateway) *ListSync {
	l := &ListSync{
		viewerID: viewerID,
		gateway:  gateway,
		token:    make(chan struct{}, 1),
	}
	l.token <- struct{}{}
	return l
}

// Poll refetches the visible conversations and swaps the local list. A failed
// fetch keeps the previous list; overlapping ticks are dropped.
func (l *ListSync) Poll(ctx context.Context) error {
	select {
	case <-l.token:
	default:
		return ErrPollInFlight
	}
	defer func() { l.token <- struct{}{} }()

	summaries, err := l.gateway.FetchConversations(ctx, l.viewerID)
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.summaries = summaries
	l.mu.Unlock()
	return nil
}

// Conversations returns a copy of the last successfully polled list.
func (l *ListSync) Conversations() []models.ConversationSummary {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.ConversationSummary, len(l.summaries))
	copy(out, l.summaries)
	return out
}
