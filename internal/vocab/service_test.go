package vocab_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/snonux/lexilive/internal/batch"
	"codeberg.org/snonux/lexilive/internal/store"
	"codeberg.org/snonux/lexilive/internal/testutil"
	"codeberg.org/snonux/lexilive/internal/vocab"
)

type fixture struct {
	svc   *vocab.Service
	store *store.MemoryStore
	ai    *testutil.MockAI
	media *testutil.MockMediaStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store: store.NewMemoryStore(),
		ai:    testutil.NewMockAI(),
		media: testutil.NewMockMediaStore(),
	}

	clock := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	seq := 0
	f.svc = vocab.NewService(f.store, f.ai, f.media,
		vocab.WithClock(func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		}),
		vocab.WithIDGenerator(func(word string) string {
			seq++
			return strings.ToLower(word) + "-" + string(rune('0'+seq))
		}),
	)
	return f
}

func TestLookup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec, err := f.svc.Lookup(ctx, "  apple ")
	require.NoError(t, err)
	assert.Equal(t, "apple", rec.Word)
	assert.Equal(t, 1, f.ai.CallCount("LookupWord"))

	_, err = f.svc.Lookup(ctx, "   ")
	assert.ErrorIs(t, err, vocab.ErrInvalidWord)

	_, err = f.svc.Lookup(ctx, "1234")
	assert.ErrorIs(t, err, vocab.ErrInvalidWord)
	assert.Equal(t, 1, f.ai.CallCount("LookupWord"), "invalid input must not reach the API")
}

func TestLookupFillsMissingWord(t *testing.T) {
	f := newFixture(t)
	f.ai.Records["quokka"] = vocab.WordRecord{DefinitionEN: "a small wallaby"}

	rec, err := f.svc.Lookup(context.Background(), "quokka")
	require.NoError(t, err)
	assert.Equal(t, "quokka", rec.Word)
}

func TestLookupPropagatesAPIError(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("quota exceeded")
	f.ai.Errors["LookupWord"] = boom

	_, err := f.svc.Lookup(context.Background(), "apple")
	assert.ErrorIs(t, err, boom)
}

func TestSaveNewestFirstAndDeduplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gen := testutil.TestDataGenerator{}

	first, created, err := f.svc.Save(ctx, gen.SampleRecord("apple"))
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "apple-1", first.ID)
	assert.False(t, first.SavedAt.IsZero())

	second, created, err := f.svc.Save(ctx, gen.SampleRecord("ephemeral"))
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := f.svc.Save(ctx, gen.SampleRecord("APPLE"))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)

	words, err := f.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, words, 2)
	assert.Equal(t, second.ID, words[0].ID)
	assert.Equal(t, first.ID, words[1].ID)
}

func TestSaveRejectsEmptyRecord(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.svc.Save(context.Background(), vocab.WordRecord{Word: "apple"})
	assert.ErrorIs(t, err, vocab.ErrInvalidWord)
}

func TestListCorruptStoreYieldsEmpty(t *testing.T) {
	f := newFixture(t)
	f.store.SetRaw("garbage")

	words, err := f.svc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, words)

	// Mutations refuse to overwrite data that might still be recoverable
	_, _, err = f.svc.Save(context.Background(), testutil.TestDataGenerator{}.SampleRecord("apple"))
	assert.ErrorIs(t, err, vocab.ErrCorrupt)
}

func TestGetAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	saved, _, err := f.svc.Save(ctx, testutil.TestDataGenerator{}.SampleRecord("apple"))
	require.NoError(t, err)

	got, err := f.svc.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.Word, got.Word)

	require.NoError(t, f.svc.Delete(ctx, saved.ID))
	assert.Equal(t, []string{saved.ID}, f.media.Removed)

	_, err = f.svc.Get(ctx, saved.ID)
	assert.ErrorIs(t, err, vocab.ErrNotFound)
	assert.ErrorIs(t, f.svc.Delete(ctx, saved.ID), vocab.ErrNotFound)
}

func TestGenerateImageAndVideo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	saved, _, err := f.svc.Save(ctx, testutil.TestDataGenerator{}.SampleRecord("apple"))
	require.NoError(t, err)

	withImage, err := f.svc.GenerateImage(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.ID+"/image", withImage.ImageRef)
	assert.Empty(t, withImage.VideoRef)

	withVideo, err := f.svc.GenerateVideo(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.ID+"/video", withVideo.VideoRef)
	assert.Equal(t, saved.ID+"/image", withVideo.ImageRef)

	persisted, err := f.svc.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, withVideo.ImageRef, persisted.ImageRef)
	assert.Equal(t, withVideo.VideoRef, persisted.VideoRef)

	_, err = f.svc.GenerateImage(ctx, "missing")
	assert.ErrorIs(t, err, vocab.ErrNotFound)
}

func TestGenerateImageFailureLeavesWordUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.ai.Errors["GenerateImage"] = errors.New("safety filter")

	saved, _, err := f.svc.Save(ctx, testutil.TestDataGenerator{}.SampleRecord("apple"))
	require.NoError(t, err)

	_, err = f.svc.GenerateImage(ctx, saved.ID)
	require.Error(t, err)

	got, err := f.svc.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Empty(t, got.ImageRef)
	assert.Empty(t, f.media.Files)
}

// deletingAI deletes the word while its image is being generated
type deletingAI struct {
	*testutil.MockAI
	svc *vocab.Service
	id  string
}

func (d *deletingAI) GenerateImage(ctx context.Context, prompt string) (vocab.Media, error) {
	if err := d.svc.Delete(ctx, d.id); err != nil {
		return vocab.Media{}, err
	}
	return d.MockAI.GenerateImage(ctx, prompt)
}

func TestGenerateImageForWordDeletedMeanwhile(t *testing.T) {
	ctx := context.Background()
	media := testutil.NewMockMediaStore()
	ai := &deletingAI{MockAI: testutil.NewMockAI()}
	svc := vocab.NewService(store.NewMemoryStore(), ai, media)
	ai.svc = svc

	saved, _, err := svc.Save(ctx, testutil.TestDataGenerator{}.SampleRecord("apple"))
	require.NoError(t, err)
	ai.id = saved.ID

	_, err = svc.GenerateImage(ctx, saved.ID)
	assert.ErrorIs(t, err, vocab.ErrNotFound)
	assert.Empty(t, media.Files, "the generated image must not outlive the word")
}

func TestSpeakAndLabel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	m, err := f.svc.Speak(ctx, "apple")
	require.NoError(t, err)
	assert.Equal(t, "audio/wav", m.MIMEType)

	_, err = f.svc.Speak(ctx, "")
	assert.ErrorIs(t, err, vocab.ErrInvalidWord)

	labels, err := f.svc.Label(ctx, []byte{1, 2, 3}, "image/jpeg")
	require.NoError(t, err)
	assert.Len(t, labels, 2)

	_, err = f.svc.Label(ctx, nil, "image/jpeg")
	assert.ErrorIs(t, err, vocab.ErrInvalidImage)
	_, err = f.svc.Label(ctx, []byte{1}, "text/plain")
	assert.ErrorIs(t, err, vocab.ErrInvalidImage)
}

func TestImportCollectsErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.svc.Save(ctx, testutil.TestDataGenerator{}.SampleRecord("apple"))
	require.NoError(t, err)

	var seen []string
	entries := []batch.WordEntry{{Word: "apple"}, {Word: "ephemeral"}, {Word: "42"}}
	result, err := f.svc.Import(ctx, entries, func(i int, word string, err error) {
		seen = append(seen, word)
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "42")
	assert.Equal(t, vocab.ImportResult{Saved: 1, Existing: 1, Failed: 1}, result)
	assert.Equal(t, []string{"apple", "ephemeral", "42"}, seen)
}

func TestImportPassesNoteAsHint(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entries := batch.Parse("bank = the side of a river\nephemeral\n")
	result, err := f.svc.Import(ctx, entries, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Saved)
	assert.Equal(t, []string{"LookupWord:bank|the side of a river", "LookupWord:ephemeral"}, f.ai.Calls)
}

func TestLookupSense(t *testing.T) {
	f := newFixture(t)

	record, err := f.svc.LookupSense(context.Background(), " bank ", " money ")
	require.NoError(t, err)
	assert.Equal(t, "bank", record.Word)
	assert.Equal(t, []string{"LookupWord:bank|money"}, f.ai.Calls)
}

func TestPrompts(t *testing.T) {
	rec := testutil.TestDataGenerator{}.SampleRecord("apple")

	assert.Contains(t, vocab.ImagePrompt(rec), `"apple"`)
	assert.Contains(t, vocab.ImagePrompt(rec), rec.DefinitionEN)
	assert.Contains(t, vocab.VideoPrompt(rec), rec.Example)
}

func TestPracticeInstruction(t *testing.T) {
	words := []vocab.SavedWord{
		{WordRecord: vocab.WordRecord{Word: "apple"}},
		{WordRecord: vocab.WordRecord{Word: "river"}},
		{WordRecord: vocab.WordRecord{Word: "quiet"}},
	}

	got := vocab.PracticeInstruction("Be kind.\n", words, 2)
	if !strings.HasPrefix(got, "Be kind.\n\n") {
		t.Errorf("instruction lost the base prompt: %q", got)
	}
	if !strings.Contains(got, "apple, river.") {
		t.Errorf("instruction does not list the first two words: %q", got)
	}
	if strings.Contains(got, "quiet") {
		t.Errorf("instruction exceeds the word limit: %q", got)
	}

	if got := vocab.PracticeInstruction("Be kind.", nil, 10); got != "Be kind." {
		t.Errorf("instruction without words = %q", got)
	}
}
