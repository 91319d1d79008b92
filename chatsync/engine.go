// Package chatsync keeps a session's view of the marketplace inbox consistent
// with the store through interval polling: one engine per open conversation,
// one list synchronizer, and one total-unread badge, each driven by its own
// loop with its own reentrancy guard.
package chatsync

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bibmarket/bibmarket/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrPollInFlight reports a tick that fired while the previous poll for the
// same loop had not resolved. The tick is dropped, never queued.
var ErrPollInFlight = errors.New("chatsync: poll already in flight")

// Gateway is the read side of the message store as seen by the polling loops.
type Gateway interface {
	// FetchMessages returns the full current message set of the
	// conversation, ascending by creation time.
	FetchMessages(ctx context.Context, conversationID uuid.UUID, viewerID uint) ([]models.Message, error)
	// FetchConversations returns the conversation summaries visible to the
	// viewer.
	FetchConversations(ctx context.Context, viewerID uint) ([]models.ConversationSummary, error)
	// TotalUnread returns the viewer's aggregate unread count.
	TotalUnread(ctx context.Context, viewerID uint) (int, error)
}

// Entry is one row of the rendered timeline: either a server-confirmed
// message or a local optimistic one still waiting for its persisted copy.
type Entry struct {
	models.Message
	// TempID tags a locally created, not yet confirmed message. It is never
	// a store identifier. Empty for server entries.
	TempID string `json:"temp_id,omitempty"`
}

// Temp reports whether the entry is still optimistic.
func (e Entry) Temp() bool {
	return e.TempID != ""
}

// MessageNotifier receives each newly observed server message authored by
// someone other than the viewer, exactly once.
type MessageNotifier func(message models.Message)

// Engine reconciles one open conversation: the initial snapshot, local
// optimistic sends and polled server truth merge into a single ordered,
// deduplicated timeline that is always safe to render.
type Engine struct {
	conversationID uuid.UUID
	viewerID       uint
	gateway        Gateway
	onNewMessage   MessageNotifier

	// token is the per-loop reentrancy guard: Poll try-acquires it and
	// drops the tick when the previous poll still holds it.
	token chan struct{}

	mu      sync.Mutex
	entries []Entry
	// seen holds the server message ids already surfaced, so a message is
	// notified once even when it arrives out of order.
	seen map[uuid.UUID]bool
}

// NewEngine creates an engine for one conversation. onNewMessage may be nil.
func NewEngine(conversationID uuid.UUID, viewerID uint, gateway Gateway, onNewMessage MessageNotifier) *Engine {
	e := &Engine{
		conversationID: conversationID,
		viewerID:       viewerID,
		gateway:        gateway,
		onNewMessage:   onNewMessage,
		token:          make(chan struct{}, 1),
	}
	e.token <- struct{}{}
	return e
}

// ConversationID returns the conversation this engine tracks.
func (e *Engine) ConversationID() uuid.UUID {
	return e.conversationID
}

// Seed installs the initial server snapshot. Seeded messages never notify.
func (e *Engine) Seed(messages []models.Message) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.entries = make([]Entry, 0, len(messages))
	e.seen = make(map[uuid.UUID]bool, len(messages))
	for _, m := range messages {
		e.entries = append(e.entries, Entry{Message: m})
		e.seen[m.ID] = true
	}
	sortEntries(e.entries)
}

// SendLocal appends an optimistic message stamped with the client clock. It is
// immediately visible at its timestamp position. Persisting the message to the
// store is the caller's concern, not the engine's.
func (e *Engine) SendLocal(body string) Entry {
	entry := Entry{
		Message: models.Message{
			ConversationID: e.conversationID,
			SenderID:       e.viewerID,
			Body:           body,
			Kind:           models.MessageKindText,
			CreatedAt:      time.Now(),
		},
		TempID: uuid.NewString(),
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.entries = append(e.entries, entry)
	sortEntries(e.entries)
	return entry
}

// Messages returns a sorted copy of the current timeline.
func (e *Engine) Messages() []Entry {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Entry, len(e.entries))
	copy(out, e.entries)
	return out
}

// Poll fetches the full current server set and reconciles it against local
// state. Overlapping ticks are dropped with ErrPollInFlight. A failed fetch
// leaves the timeline untouched; the next scheduled tick retries naturally, so
// nothing is ever lost: optimistic entries stay until explicitly confirmed.
func (e *Engine) Poll(ctx context.Context) error {
	select {
	case <-e.token:
	default:
		return ErrPollInFlight
	}
	defer func() { e.token <- struct{}{} }()

	serverSet, err := e.gateway.FetchMessages(ctx, e.conversationID, e.viewerID)
	if err != nil {
		return err
	}

	fresh := e.reconcile(serverSet)
	if e.onNewMessage != nil {
		for _, m := range fresh {
			e.onNewMessage(m)
		}
	}
	return nil
}

// reconcile merges the polled server set with surviving optimistic entries and
// returns the newly appeared server messages authored by others.
func (e *Engine) reconcile(serverSet []models.Message) []models.Message {
	e.mu.Lock()
	defer e.mu.Unlock()

	// An optimistic entry is confirmed once the server set contains a message
	// with the same sender and identical body; the server copy supersedes it.
	var unconfirmed []Entry
	for _, entry := range e.entries {
		if !entry.Temp() {
			continue
		}
		if !containsMatch(serverSet, entry) {
			unconfirmed = append(unconfirmed, entry)
		}
	}

	merged := make([]Entry, 0, len(serverSet)+len(unconfirmed))
	for _, m := range serverSet {
		merged = append(merged, Entry{Message: m})
	}
	merged = append(merged, unconfirmed...)
	sortEntries(merged)
	e.entries = merged

	if e.seen == nil {
		e.seen = make(map[uuid.UUID]bool, len(serverSet))
	}
	var fresh []models.Message
	for _, m := range serverSet {
		if e.seen[m.ID] {
			continue
		}
		e.seen[m.ID] = true
		if m.SenderID != e.viewerID {
			fresh = append(fresh, m)
		}
	}
	return fresh
}

func containsMatch(serverSet []models.Message, entry Entry) bool {
	for _, m := range serverSet {
		if m.SenderID == entry.SenderID && m.Body == entry.Body {
			return true
		}
	}
	return false
}

// sortEntries orders ascending by creation time. The sort is stable so equal
// timestamps keep their arrival order.
func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
}
