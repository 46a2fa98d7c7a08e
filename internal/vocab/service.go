package vocab

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"codeberg.org/snonux/lexilive/internal"
	"codeberg.org/snonux/lexilive/internal/audio"
	"codeberg.org/snonux/lexilive/internal/batch"
)

// Service implements the vocabulary operations on top of a Store, the remote AI and a MediaStore
type Service struct {
	store  Store
	ai     AI
	media  MediaStore
	logger *zap.SugaredLogger
	now    func() time.Time
	newID  func(word string) string

	mu sync.Mutex // serialises load-modify-save cycles
}

// Option configures a Service
type Option func(*Service)

// WithLogger sets the logger used for warnings
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithClock overrides the time source used for SavedAt
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithIDGenerator overrides how saved word ids are created
func WithIDGenerator(newID func(word string) string) Option {
	return func(s *Service) {
		s.newID = newID
	}
}

// NewService creates a new vocabulary service
func NewService(store Store, ai AI, media MediaStore, opts ...Option) *Service {
	s := &Service{
		store:  store,
		ai:     ai,
		media:  media,
		logger: zap.NewNop().Sugar(),
		now:    time.Now,
		newID:  internal.GenerateWordID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Lookup validates the word and fetches its structured definition
func (s *Service) Lookup(ctx context.Context, word string) (WordRecord, error) {
	return s.LookupSense(ctx, word, "")
}

// LookupSense is Lookup for one sense of the word, described by hint
func (s *Service) LookupSense(ctx context.Context, word, hint string) (WordRecord, error) {
	word = strings.TrimSpace(word)
	if err := audio.ValidateWord(word); err != nil {
		return WordRecord{}, fmt.Errorf("%w: %v", ErrInvalidWord, err)
	}

	record, err := s.ai.LookupWord(ctx, word, strings.TrimSpace(hint))
	if err != nil {
		return WordRecord{}, fmt.Errorf("failed to look up %q: %w", word, err)
	}

	if strings.TrimSpace(record.Word) == "" {
		record.Word = word
	}
	return record, nil
}

// Save adds a record to the saved list. If the word is already saved the
// existing entry is returned and created is false.
func (s *Service) Save(ctx context.Context, record WordRecord) (saved SavedWord, created bool, err error) {
	if err := record.Validate(); err != nil {
		return SavedWord{}, false, err
	}
	record.Word = strings.TrimSpace(record.Word)

	s.mu.Lock()
	defer s.mu.Unlock()

	words, err := s.store.Load(ctx)
	if err != nil {
		return SavedWord{}, false, fmt.Errorf("failed to load saved words: %w", err)
	}

	for _, w := range words {
		if strings.EqualFold(w.Word, record.Word) {
			return w, false, nil
		}
	}

	saved = SavedWord{
		ID:         s.newID(record.Word),
		WordRecord: record,
		SavedAt:    s.now(),
	}

	// Newest first
	words = append([]SavedWord{saved}, words...)
	if err := s.store.Save(ctx, words); err != nil {
		return SavedWord{}, false, fmt.Errorf("failed to save word list: %w", err)
	}

	return saved, true, nil
}

// List returns the saved words, newest first. A corrupt store yields an empty list.
func (s *Service) List(ctx context.Context) ([]SavedWord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	words, err := s.store.Load(ctx)
	if errors.Is(err, ErrCorrupt) {
		s.logger.Warnw("saved word list is corrupt, showing empty list", "error", err)
		return []SavedWord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load saved words: %w", err)
	}
	return words, nil
}

// Get returns a single saved word by id
func (s *Service) Get(ctx context.Context, id string) (SavedWord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	words, err := s.store.Load(ctx)
	if err != nil {
		return SavedWord{}, fmt.Errorf("failed to load saved words: %w", err)
	}

	for _, w := range words {
		if w.ID == id {
			return w, nil
		}
	}
	return SavedWord{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Delete removes a saved word and its generated media
func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	words, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load saved words: %w", err)
	}

	idx := indexOf(words, id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	words = append(words[:idx:idx], words[idx+1:]...)
	if err := s.store.Save(ctx, words); err != nil {
		return fmt.Errorf("failed to save word list: %w", err)
	}

	if s.media != nil {
		if err := s.media.Remove(id); err != nil {
			s.logger.Warnw("failed to remove media for deleted word", "id", id, "error", err)
		}
	}
	return nil
}

// Speak synthesizes speech for a word or sentence
func (s *Service) Speak(ctx context.Context, text string) (Media, error) {
	text = strings.TrimSpace(text)
	if err := audio.ValidateSpeechText(text); err != nil {
		return Media{}, fmt.Errorf("%w: %v", ErrInvalidWord, err)
	}

	m, err := s.ai.Speak(ctx, text)
	if err != nil {
		return Media{}, fmt.Errorf("speech synthesis failed: %w", err)
	}
	return m, nil
}

// Label analyses an image and returns the objects found in it
func (s *Service) Label(ctx context.Context, image []byte, mimeType string) ([]Label, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidImage)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, fmt.Errorf("%w: unsupported content type %q", ErrInvalidImage, mimeType)
	}

	labels, err := s.ai.AnalyzeImage(ctx, image, mimeType)
	if err != nil {
		return nil, fmt.Errorf("image analysis failed: %w", err)
	}
	return labels, nil
}

// GenerateImage creates an illustration for a saved word and stores it
func (s *Service) GenerateImage(ctx context.Context, id string) (SavedWord, error) {
	return s.generateMedia(ctx, id, KindImage)
}

// GenerateVideo creates a short clip for a saved word and stores it
func (s *Service) GenerateVideo(ctx context.Context, id string) (SavedWord, error) {
	return s.generateMedia(ctx, id, KindVideo)
}

func (s *Service) generateMedia(ctx context.Context, id, kind string) (SavedWord, error) {
	if s.media == nil {
		return SavedWord{}, fmt.Errorf("no media store configured")
	}

	// Generation can take minutes, so it runs outside the lock
	word, err := s.Get(ctx, id)
	if err != nil {
		return SavedWord{}, err
	}

	var m Media
	switch kind {
	case KindImage:
		m, err = s.ai.GenerateImage(ctx, ImagePrompt(word.WordRecord))
	case KindVideo:
		m, err = s.ai.GenerateVideo(ctx, VideoPrompt(word.WordRecord))
	default:
		return SavedWord{}, fmt.Errorf("unknown media kind: %s", kind)
	}
	if err != nil {
		return SavedWord{}, fmt.Errorf("%s generation for %q failed: %w", kind, word.Word, err)
	}

	ref, err := s.media.Put(id, kind, m)
	if err != nil {
		return SavedWord{}, fmt.Errorf("failed to store %s: %w", kind, err)
	}

	saved, err := s.update(ctx, id, func(w *SavedWord) {
		if kind == KindImage {
			w.ImageRef = ref
		} else {
			w.VideoRef = ref
		}
	})
	if errors.Is(err, ErrNotFound) {
		// Deleted while generating; Delete already ran, so drop the new file here
		if rmErr := s.media.Remove(id); rmErr != nil {
			s.logger.Warnw("failed to remove media for deleted word", "id", id, "error", rmErr)
		}
	}
	return saved, err
}

// update applies fn to the saved word with the given id and persists the list
func (s *Service) update(ctx context.Context, id string, fn func(*SavedWord)) (SavedWord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	words, err := s.store.Load(ctx)
	if err != nil {
		return SavedWord{}, fmt.Errorf("failed to load saved words: %w", err)
	}

	idx := indexOf(words, id)
	if idx < 0 {
		// Deleted while media was being generated
		return SavedWord{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	fn(&words[idx])
	if err := s.store.Save(ctx, words); err != nil {
		return SavedWord{}, fmt.Errorf("failed to save word list: %w", err)
	}
	return words[idx], nil
}

// ImportResult summarises a bulk import
type ImportResult struct {
	Saved    int
	Existing int
	Failed   int
}

// Import looks up and saves every entry, using its note as the sense hint.
// Per-word failures are reported via progress and joined into the returned
// error without aborting the run.
func (s *Service) Import(ctx context.Context, entries []batch.WordEntry, progress func(i int, word string, err error)) (ImportResult, error) {
	var result ImportResult
	var errs []error

	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		err := s.importOne(ctx, entry, &result)
		if err != nil {
			result.Failed++
			errs = append(errs, fmt.Errorf("%s: %w", entry.Word, err))
		}
		if progress != nil {
			progress(i, entry.Word, err)
		}
	}

	return result, errors.Join(errs...)
}

func (s *Service) importOne(ctx context.Context, entry batch.WordEntry, result *ImportResult) error {
	record, err := s.LookupSense(ctx, entry.Word, entry.Note)
	if err != nil {
		return err
	}

	_, created, err := s.Save(ctx, record)
	if err != nil {
		return err
	}

	if created {
		result.Saved++
	} else {
		result.Existing++
	}
	return nil
}

func indexOf(words []SavedWord, id string) int {
	for i, w := range words {
		if w.ID == id {
			return i
		}
	}
	return -1
}
