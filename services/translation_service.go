package services

import (
	"context"
	"log"
	"sync"

	"github.com/bibmarket/bibmarket/db"
	"github.com/bibmarket/bibmarket/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"google.golang.org/api/option"
	translate "google.golang.org/api/translate/v2"
)

// Translation entry states.
const (
	TranslationIdle         = "idle"
	TranslationLoading      = "loading"
	TranslationReady        = "ready"
	TranslationSameLanguage = "same_language"
	TranslationError        = "error"
)

// TranslationResult is what the external provider returns for one text.
type TranslationResult struct {
	TranslatedText     string
	DetectedSourceLang string
}

// TranslationProvider is the opaque remote translate function. No retries are
// owned here; a failed call leaves the message untranslated.
type TranslationProvider interface {
	Translate(ctx context.Context, text, targetLang string) (*TranslationResult, error)
}

type googleTranslator struct {
	svc *translate.Service
}

// NewGoogleTranslator builds a TranslationProvider on the Google Translate v2
// REST API.
func NewGoogleTranslator(ctx context.Context, apiKey string) (TranslationProvider, error) {
	if apiKey == "" {
		return nil, errors.New("google translate api key is empty")
	}
	svc, err := translate.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, errors.Wrap(err, "could not create translate service")
	}
	return &googleTranslator{svc: svc}, nil
}

func (g *googleTranslator) Translate(ctx context.Context, text, targetLang string) (*TranslationResult, error) {
	resp, err := g.svc.Translations.List([]string{text}, targetLang).Format("text").Context(ctx).Do()
	if err != nil {
		return nil, errors.Wrap(err, "translate call failed")
	}
	if len(resp.Translations) == 0 {
		return nil, errors.New("translate call returned no translations")
	}
	t := resp.Translations[0]
	return &TranslationResult{
		TranslatedText:     t.TranslatedText,
		DetectedSourceLang: t.DetectedSourceLanguage,
	}, nil
}

// TranslationEntry is the viewer-relative translation state for one
// (message, target language) pair.
type TranslationEntry struct {
	Status             string `json:"status"`
	TranslatedText     string `json:"translated_text,omitempty"`
	DetectedSourceLang string `json:"detected_source_lang,omitempty"`
	ShowOriginal       bool   `json:"show_original"`
}

type translationKey struct {
	messageID uuid.UUID
	lang      string
}

// TranslationService produces, caches and invalidates per-viewer translations.
// Results are kept in memory for the session and written back onto the message
// row as a best-effort shared cache for later viewers of the same language.
type TranslationService interface {
	EnsureTranslated(ctx context.Context, message *models.Message, viewerID uint, lang string) *TranslationEntry
	Entry(messageID uuid.UUID, lang string) *TranslationEntry
	DisplayBody(message *models.Message, viewerID uint, lang string) string
	ToggleShowOriginal(messageID uuid.UUID, lang string) bool
	SetShowOriginalAll(show bool)
}

type translationService struct {
	provider TranslationProvider
	chatRepo db.ChatRepository

	mu              sync.Mutex
	entries         map[translationKey]*TranslationEntry
	showOriginalAll bool
}

// NewTranslationService instantiates a translationService. provider may be
// nil, in which case every message resolves to its original text.
func NewTranslationService(provider TranslationProvider, chatRepo db.ChatRepository) TranslationService {
	return &translationService{
		provider: provider,
		chatRepo: chatRepo,
		entries:  make(map[translationKey]*TranslationEntry),
	}
}

// EnsureTranslated runs the idle -> loading -> {ready|same-language|error}
// machine for one message and target language. Own messages, unsaved messages
// and empty target languages never enter the machine. An existing terminal
// entry is returned as-is: errors are not retried automatically.
func (t *translationService) EnsureTranslated(ctx context.Context, message *models.Message, viewerID uint, lang string) *TranslationEntry {
	if t.provider == nil || lang == "" || message == nil {
		return nil
	}
	if message.SenderID == viewerID || message.ID == uuid.Nil {
		return nil
	}
	if message.Kind != models.MessageKindText {
		return nil
	}

	key := translationKey{messageID: message.ID, lang: lang}

	t.mu.Lock()
	if existing, ok := t.entries[key]; ok && existing.Status != TranslationIdle {
		entry := *existing
		t.mu.Unlock()
		return &entry
	}
	entry := &TranslationEntry{Status: TranslationLoading}
	t.entries[key] = entry
	t.mu.Unlock()

	t.resolve(ctx, message, lang, key, entry)

	t.mu.Lock()
	result := *entry
	t.mu.Unlock()
	return &result
}

func (t *translationService) resolve(ctx context.Context, message *models.Message, lang string, key translationKey, entry *TranslationEntry) {
	// Stored payload already matches the viewer's language: cache hit, no
	// external call.
	if message.HasTranslationFor(lang) {
		t.mu.Lock()
		entry.Status = TranslationReady
		entry.TranslatedText = *message.TranslatedBody
		if message.SourceLang != nil {
			entry.DetectedSourceLang = *message.SourceLang
		}
		t.mu.Unlock()
		return
	}

	// A previously detected source language equal to the target means there is
	// nothing to translate; skip the provider round trip.
	if message.SourceLang != nil && *message.SourceLang == lang {
		t.mu.Lock()
		entry.Status = TranslationSameLanguage
		entry.DetectedSourceLang = *message.SourceLang
		t.mu.Unlock()
		return
	}

	result, err := t.provider.Translate(ctx, message.Body, lang)
	if err != nil {
		log.Printf("translation failed for message %s: %v", message.ID, err)
		t.mu.Lock()
		entry.Status = TranslationError
		t.mu.Unlock()
		return
	}

	if result.DetectedSourceLang == lang {
		t.mu.Lock()
		entry.Status = TranslationSameLanguage
		entry.DetectedSourceLang = result.DetectedSourceLang
		t.mu.Unlock()
		// Persist the detected language only, so the next viewer skips
		// re-detection.
		if err := t.chatRepo.UpdateMessageTranslation(message.ID, result.DetectedSourceLang, nil, nil); err != nil {
			log.Printf("translation write-back failed for message %s: %v", message.ID, err)
		}
		return
	}

	t.mu.Lock()
	entry.Status = TranslationReady
	entry.TranslatedText = result.TranslatedText
	entry.DetectedSourceLang = result.DetectedSourceLang
	t.mu.Unlock()

	translated := result.TranslatedText
	target := lang
	if err := t.chatRepo.UpdateMessageTranslation(message.ID, result.DetectedSourceLang, &translated, &target); err != nil {
		log.Printf("translation write-back failed for message %s: %v", message.ID, err)
	}
}

// Entry returns a copy of the cache entry, nil when the pair is unknown.
func (t *translationService) Entry(messageID uuid.UUID, lang string) *TranslationEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	if entry, ok := t.entries[translationKey{messageID: messageID, lang: lang}]; ok {
		result := *entry
		return &result
	}
	return nil
}

// DisplayBody resolves what the viewer should read: own messages and anything
// without a ready translation fall back to the original text; a ready
// translation is shown unless the viewer toggled the original back on.
func (t *translationService) DisplayBody(message *models.Message, viewerID uint, lang string) string {
	if message == nil {
		return ""
	}
	if message.SenderID == viewerID || lang == "" {
		return message.Body
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.entries[translationKey{messageID: message.ID, lang: lang}]
	if !ok || entry.Status != TranslationReady {
		return message.Body
	}
	if t.showOriginalAll || entry.ShowOriginal {
		return message.Body
	}
	return entry.TranslatedText
}

// ToggleShowOriginal flips the per-message original/translated toggle and
// returns the new value.
func (t *translationService) ToggleShowOriginal(messageID uuid.UUID, lang string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.entries[translationKey{messageID: messageID, lang: lang}]
	if !ok {
		return false
	}
	entry.ShowOriginal = !entry.ShowOriginal
	return entry.ShowOriginal
}

func (t *translationService) SetShowOriginalAll(show bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.showOriginalAll = show
}
