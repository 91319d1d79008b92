package services

import (
	"testing"
	"time"

	"github.com/bibmarket/bibmarket/config"
	"github.com/bibmarket/bibmarket/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMailer struct {
	recipients []string
}

func (f *fakeMailer) SendListingSavedEmail(recipient, listingTitle string) error {
	f.recipients = append(f.recipients, recipient)
	return nil
}

type fakePusher struct {
	bodies []string
}

func (f *fakePusher) Push(deviceToken, title, body string) error {
	f.bodies = append(f.bodies, body)
	return nil
}

type chatFixture struct {
	service     ChatService
	chatRepo    *fakeChatRepo
	listingRepo *fakeListingRepo
	authRepo    *fakeAuthRepo
	mailer      *fakeMailer
	pusher      *fakePusher
	listing     *models.Listing
	seller      *models.User
	buyer       *models.User
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()

	chatRepo := newFakeChatRepo()
	listingRepo := newFakeListingRepo()
	authRepo := newFakeAuthRepo()
	mailer := &fakeMailer{}
	pusher := &fakePusher{}

	seller, err := authRepo.CreateUser(&models.User{Email: "operator@tours.example", Role: models.RoleOperator, DeviceToken: "seller-device"})
	require.NoError(t, err)
	buyer, err := authRepo.CreateUser(&models.User{Email: "runner@race.example", Role: models.RoleRunner})
	require.NoError(t, err)

	listing, err := listingRepo.CreateListing(&models.Listing{
		SellerID: seller.ID,
		Kind:     models.ListingKindBib,
		Title:    "Berlin marathon bib",
	})
	require.NoError(t, err)

	service := NewChatService(chatRepo, listingRepo, authRepo, mailer, pusher, &config.Config{})
	return &chatFixture{
		service:     service,
		chatRepo:    chatRepo,
		listingRepo: listingRepo,
		authRepo:    authRepo,
		mailer:      mailer,
		pusher:      pusher,
		listing:     listing,
		seller:      seller,
		buyer:       buyer,
	}
}

func (f *chatFixture) conversationIDs(t *testing.T, viewerID uint) []uuid.UUID {
	t.Helper()
	summaries, apiErr := f.service.ListConversations(viewerID)
	require.Nil(t, apiErr)
	ids := make([]uuid.UUID, 0, len(summaries))
	for _, s := range summaries {
		ids = append(ids, s.Conversation.ID)
	}
	return ids
}

func TestStartConversationActivatesForBothSides(t *testing.T) {
	f := newChatFixture(t)

	conversation, message, apiErr := f.service.StartConversation(f.listing.ID, f.buyer.ID, "Is the bib still available?")
	require.Nil(t, apiErr)
	require.NotNil(t, message)
	assert.Equal(t, models.MessageKindText, message.Kind)

	assert.Contains(t, f.conversationIDs(t, f.buyer.ID), conversation.ID)
	assert.Contains(t, f.conversationIDs(t, f.seller.ID), conversation.ID)

	// The seller got a push for the first message.
	require.Len(t, f.pusher.bodies, 1)
	assert.Equal(t, "Is the bib still available?", f.pusher.bodies[0])
}

func TestStartConversationRejectsEmptyBody(t *testing.T) {
	f := newChatFixture(t)

	_, _, apiErr := f.service.StartConversation(f.listing.ID, f.buyer.ID, "   ")
	require.NotNil(t, apiErr)
	assert.Equal(t, 400, apiErr.Status)
}

func TestStartConversationRejectsOwnListing(t *testing.T) {
	f := newChatFixture(t)

	_, _, apiErr := f.service.StartConversation(f.listing.ID, f.seller.ID, "hello me")
	require.NotNil(t, apiErr)
	assert.Equal(t, 400, apiErr.Status)
}

// A save spawns a dormant conversation: the listing owner sees it immediately,
// the saver does not see it until the owner sends a real message.
func TestSaveListingStaysHiddenFromSaverUntilOwnerReplies(t *testing.T) {
	f := newChatFixture(t)

	conversation, apiErr := f.service.SaveListing(f.listing.ID, f.buyer.ID)
	require.Nil(t, apiErr)

	assert.Empty(t, f.conversationIDs(t, f.buyer.ID))
	assert.Contains(t, f.conversationIDs(t, f.seller.ID), conversation.ID)

	// The owner was emailed about the save.
	require.Len(t, f.mailer.recipients, 1)
	assert.Equal(t, f.seller.Email, f.mailer.recipients[0])

	// A second save reuses the conversation and still does not activate it.
	again, apiErr := f.service.SaveListing(f.listing.ID, f.buyer.ID)
	require.Nil(t, apiErr)
	assert.Equal(t, conversation.ID, again.ID)
	assert.Empty(t, f.conversationIDs(t, f.buyer.ID))

	// The owner replies; now both sides see the conversation.
	_, apiErr = f.service.SendMessage(conversation.ID, f.seller.ID, "Thanks for saving, want it?")
	require.Nil(t, apiErr)
	assert.Contains(t, f.conversationIDs(t, f.buyer.ID), conversation.ID)
	assert.Contains(t, f.conversationIDs(t, f.seller.ID), conversation.ID)
}

// A caller who is not a participant gets the same answer as a caller probing a
// conversation that does not exist.
func TestChatOperationsDoNotLeakExistence(t *testing.T) {
	f := newChatFixture(t)
	conversation, _, apiErr := f.service.StartConversation(f.listing.ID, f.buyer.ID, "hi")
	require.Nil(t, apiErr)

	stranger := uint(99)
	missing := uuid.New()

	_, notParticipant := f.service.SendMessage(conversation.ID, stranger, "let me in")
	_, notFound := f.service.SendMessage(missing, f.buyer.ID, "anyone?")
	require.NotNil(t, notParticipant)
	require.NotNil(t, notFound)
	assert.Equal(t, notFound, notParticipant)

	_, _, fetchErr := f.service.FetchMessages(conversation.ID, stranger, nil, 0)
	assert.Equal(t, notFound, fetchErr)

	deleteErr := f.service.DeleteConversation(conversation.ID, stranger)
	assert.Equal(t, notFound, deleteErr)
}

func TestSendMessageRejectsEmptyBody(t *testing.T) {
	f := newChatFixture(t)
	conversation, _, apiErr := f.service.StartConversation(f.listing.ID, f.buyer.ID, "hi")
	require.Nil(t, apiErr)

	_, apiErr = f.service.SendMessage(conversation.ID, f.seller.ID, " \t ")
	require.NotNil(t, apiErr)
	assert.Equal(t, 400, apiErr.Status)

	messages, _, fetchErr := f.service.FetchMessages(conversation.ID, f.seller.ID, nil, 0)
	require.Nil(t, fetchErr)
	assert.Len(t, messages, 1, "rejected body must not be persisted")
}

func TestFetchMessagesMarksReadOnlyWithoutCursor(t *testing.T) {
	f := newChatFixture(t)
	conversation, _, apiErr := f.service.StartConversation(f.listing.ID, f.buyer.ID, "hi")
	require.Nil(t, apiErr)
	_, apiErr = f.service.SendMessage(conversation.ID, f.seller.ID, "hello runner")
	require.Nil(t, apiErr)
	_, apiErr = f.service.SendMessage(conversation.ID, f.seller.ID, "bib is yours if you want it")
	require.Nil(t, apiErr)

	unread, apiErr := f.service.UnreadCount(conversation.ID, f.buyer.ID)
	require.Nil(t, apiErr)
	require.Equal(t, 2, unread)

	// History scrolling must not clear unread state.
	cursor := time.Now().Add(time.Hour)
	_, _, fetchErr := f.service.FetchMessages(conversation.ID, f.buyer.ID, &cursor, 0)
	require.Nil(t, fetchErr)
	unread, apiErr = f.service.UnreadCount(conversation.ID, f.buyer.ID)
	require.Nil(t, apiErr)
	assert.Equal(t, 2, unread)

	// Opening the conversation (no cursor) clears it.
	messages, _, fetchErr := f.service.FetchMessages(conversation.ID, f.buyer.ID, nil, 0)
	require.Nil(t, fetchErr)
	for _, m := range messages {
		if m.SenderID != f.buyer.ID {
			assert.NotNil(t, m.ReadAt, "returned page must reflect the read")
		}
	}
	unread, apiErr = f.service.UnreadCount(conversation.ID, f.buyer.ID)
	require.Nil(t, apiErr)
	assert.Zero(t, unread)

	// Marking read is idempotent.
	_, _, fetchErr = f.service.FetchMessages(conversation.ID, f.buyer.ID, nil, 0)
	require.Nil(t, fetchErr)
	unread, apiErr = f.service.UnreadCount(conversation.ID, f.buyer.ID)
	require.Nil(t, apiErr)
	assert.Zero(t, unread)
}

func TestFetchMessagesHonorsConfiguredPageSize(t *testing.T) {
	f := newChatFixture(t)
	small := NewChatService(f.chatRepo, f.listingRepo, f.authRepo, nil, nil, &config.Config{MessagePageSize: 2})

	conversation, _, apiErr := f.service.StartConversation(f.listing.ID, f.buyer.ID, "hi")
	require.Nil(t, apiErr)
	_, apiErr = f.service.SendMessage(conversation.ID, f.seller.ID, "hello")
	require.Nil(t, apiErr)
	_, apiErr = f.service.SendMessage(conversation.ID, f.seller.ID, "still there?")
	require.Nil(t, apiErr)

	messages, hasOlder, fetchErr := small.FetchMessages(conversation.ID, f.buyer.ID, nil, 0)
	require.Nil(t, fetchErr)
	assert.Len(t, messages, 2)
	assert.True(t, hasOlder)

	// An explicit limit above the configured cap is clamped to it.
	messages, _, fetchErr = small.FetchMessages(conversation.ID, f.buyer.ID, nil, 10)
	require.Nil(t, fetchErr)
	assert.Len(t, messages, 2)
}

func TestTotalUnreadCoversVisibleConversationsOnly(t *testing.T) {
	f := newChatFixture(t)

	// Active conversation with two unread seller messages.
	conversation, _, apiErr := f.service.StartConversation(f.listing.ID, f.buyer.ID, "hi")
	require.Nil(t, apiErr)
	_, apiErr = f.service.SendMessage(conversation.ID, f.seller.ID, "hello")
	require.Nil(t, apiErr)
	_, apiErr = f.service.SendMessage(conversation.ID, f.seller.ID, "still there?")
	require.Nil(t, apiErr)

	total, apiErr := f.service.TotalUnread(f.buyer.ID)
	require.Nil(t, apiErr)
	assert.Equal(t, 2, total)

	// A conversation the buyer soft-deleted stops counting for them.
	require.Nil(t, f.service.DeleteConversation(conversation.ID, f.buyer.ID))
	total, apiErr = f.service.TotalUnread(f.buyer.ID)
	require.Nil(t, apiErr)
	assert.Zero(t, total)

	// The seller's side is untouched by the buyer's delete.
	assert.Contains(t, f.conversationIDs(t, f.seller.ID), conversation.ID)
}

func TestGetMessageRequiresMatchingConversation(t *testing.T) {
	f := newChatFixture(t)
	conversation, message, apiErr := f.service.StartConversation(f.listing.ID, f.buyer.ID, "hi")
	require.Nil(t, apiErr)

	got, apiErr := f.service.GetMessage(conversation.ID, message.ID, f.seller.ID)
	require.Nil(t, apiErr)
	assert.Equal(t, message.ID, got.ID)

	_, apiErr = f.service.GetMessage(conversation.ID, uuid.New(), f.seller.ID)
	require.NotNil(t, apiErr)
	assert.Equal(t, 404, apiErr.Status)
}
