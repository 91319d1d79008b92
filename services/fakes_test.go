package services

import (
	"sort"
	"time"

	"github.com/bibmarket/bibmarket/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// fakeChatRepo is an in-memory db.ChatRepository used by the service tests.
type fakeChatRepo struct {
	conversations map[uuid.UUID]*models.Conversation
	messages      map[uuid.UUID][]*models.Message
}

func newFakeChatRepo() *fakeChatRepo {
	return &fakeChatRepo{
		conversations: make(map[uuid.UUID]*models.Conversation),
		messages:      make(map[uuid.UUID][]*models.Message),
	}
}

func (f *fakeChatRepo) CreateConversation(conversation *models.Conversation) error {
	if conversation.ID == uuid.Nil {
		conversation.ID = uuid.New()
	}
	now := time.Now()
	conversation.CreatedAt = now
	conversation.UpdatedAt = now
	stored := *conversation
	f.conversations[conversation.ID] = &stored
	return nil
}

func (f *fakeChatRepo) GetConversation(id uuid.UUID) (*models.Conversation, error) {
	conversation, ok := f.conversations[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	result := *conversation
	return &result, nil
}

func (f *fakeChatRepo) GetConversationsByParticipant(userID uint) ([]models.Conversation, error) {
	var out []models.Conversation
	for _, conversation := range f.conversations {
		if conversation.HasParticipant(userID) {
			out = append(out, *conversation)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (f *fakeChatRepo) FindConversationByListingAndParticipant(listingID uuid.UUID, userID uint) (*models.Conversation, error) {
	for _, conversation := range f.conversations {
		if conversation.ListingID == listingID && conversation.HasParticipant(userID) {
			result := *conversation
			return &result, nil
		}
	}
	return nil, errors.New("record not found")
}

func (f *fakeChatRepo) TouchConversation(id uuid.UUID, preview string, activated bool) error {
	conversation, ok := f.conversations[id]
	if !ok {
		return errors.New("record not found")
	}
	conversation.LastMessage = preview
	conversation.UpdatedAt = time.Now()
	if activated {
		conversation.Activated = true
	}
	return nil
}

func (f *fakeChatRepo) SetConversationDeleted(id uuid.UUID, column string) error {
	conversation, ok := f.conversations[id]
	if !ok {
		return errors.New("record not found")
	}
	switch column {
	case "deleted_by_a":
		conversation.DeletedByA = true
	case "deleted_by_b":
		conversation.DeletedByB = true
	default:
		return errors.Errorf("invalid column %q", column)
	}
	return nil
}

func (f *fakeChatRepo) CreateMessage(message *models.Message) error {
	if message.ID == uuid.Nil {
		message.ID = uuid.New()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}
	stored := *message
	f.messages[message.ConversationID] = append(f.messages[message.ConversationID], &stored)
	return nil
}

func (f *fakeChatRepo) GetMessage(id uuid.UUID) (*models.Message, error) {
	for _, msgs := range f.messages {
		for _, m := range msgs {
			if m.ID == id {
				result := *m
				return &result, nil
			}
		}
	}
	return nil, errors.New("record not found")
}

func (f *fakeChatRepo) GetMessages(conversationID uuid.UUID, before *time.Time, limit int) ([]models.Message, bool, error) {
	var all []models.Message
	for _, m := range f.messages[conversationID] {
		if before != nil && !m.CreatedAt.Before(*before) {
			continue
		}
		all = append(all, *m)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })

	hasOlder := false
	if len(all) > limit {
		hasOlder = true
		all = all[len(all)-limit:]
	}
	return all, hasOlder, nil
}

func (f *fakeChatRepo) LatestMessage(conversationID uuid.UUID) (*models.Message, error) {
	msgs := f.messages[conversationID]
	if len(msgs) == 0 {
		return nil, nil
	}
	latest := msgs[0]
	for _, m := range msgs[1:] {
		if m.CreatedAt.After(latest.CreatedAt) {
			latest = m
		}
	}
	result := *latest
	return &result, nil
}

func (f *fakeChatRepo) MarkMessagesRead(ids []uuid.UUID, at time.Time) error {
	marked := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		marked[id] = true
	}
	for _, msgs := range f.messages {
		for _, m := range msgs {
			if marked[m.ID] && m.ReadAt == nil {
				readAt := at
				m.ReadAt = &readAt
			}
		}
	}
	return nil
}

func (f *fakeChatRepo) CountUnread(conversationID uuid.UUID, viewerID uint) (int64, error) {
	var count int64
	for _, m := range f.messages[conversationID] {
		if m.UnreadBy(viewerID) {
			count++
		}
	}
	return count, nil
}

func (f *fakeChatRepo) UpdateMessageTranslation(id uuid.UUID, sourceLang string, translatedBody, translatedLang *string) error {
	for _, msgs := range f.messages {
		for _, m := range msgs {
			if m.ID == id {
				m.SourceLang = &sourceLang
				m.TranslatedBody = translatedBody
				m.TranslatedLang = translatedLang
				return nil
			}
		}
	}
	return errors.New("record not found")
}

// fakeListingRepo is an in-memory db.ListingRepository.
type fakeListingRepo struct {
	listings map[uuid.UUID]*models.Listing
}

func newFakeListingRepo() *fakeListingRepo {
	return &fakeListingRepo{listings: make(map[uuid.UUID]*models.Listing)}
}

func (f *fakeListingRepo) CreateListing(listing *models.Listing) (*models.Listing, error) {
	if listing.ID == uuid.Nil {
		listing.ID = uuid.New()
	}
	stored := *listing
	f.listings[listing.ID] = &stored
	return listing, nil
}

func (f *fakeListingRepo) GetListing(id uuid.UUID) (*models.Listing, error) {
	listing, ok := f.listings[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	result := *listing
	return &result, nil
}

func (f *fakeListingRepo) GetListingsBySeller(sellerID uint) ([]models.Listing, error) {
	var out []models.Listing
	for _, listing := range f.listings {
		if listing.SellerID == sellerID {
			out = append(out, *listing)
		}
	}
	return out, nil
}

// fakeAuthRepo is an in-memory db.AuthRepository.
type fakeAuthRepo struct {
	users     map[uint]*models.User
	blacklist map[string]bool
}

func newFakeAuthRepo() *fakeAuthRepo {
	return &fakeAuthRepo{users: make(map[uint]*models.User), blacklist: make(map[string]bool)}
}

func (f *fakeAuthRepo) CreateUser(user *models.User) (*models.User, error) {
	if user.ID == 0 {
		user.ID = uint(len(f.users) + 1)
	}
	stored := *user
	f.users[user.ID] = &stored
	return user, nil
}

func (f *fakeAuthRepo) FindUserByEmail(email string) (*models.User, error) {
	for _, user := range f.users {
		if user.Email == email {
			result := *user
			return &result, nil
		}
	}
	return nil, errors.New("record not found")
}

func (f *fakeAuthRepo) FindUserByID(id uint) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	result := *user
	return &result, nil
}

func (f *fakeAuthRepo) IsEmailExist(email string) error {
	if _, err := f.FindUserByEmail(email); err == nil {
		return errors.New("email already in use")
	}
	return nil
}

func (f *fakeAuthRepo) AddToBlackList(blacklist *models.Blacklist) error {
	f.blacklist[blacklist.Token] = true
	return nil
}

func (f *fakeAuthRepo) IsTokenInBlacklist(token string) bool {
	return f.blacklist[token]
}

func (f *fakeAuthRepo) UpdateDeviceToken(userID uint, token string) error {
	user, ok := f.users[userID]
	if !ok {
		return errors.New("record not found")
	}
	user.DeviceToken = token
	return nil
}
