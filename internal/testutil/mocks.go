package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"codeberg.org/snonux/lexilive/internal/vocab"
)

// MockAI mocks the remote model API. It satisfies vocab.AI and the provider
// interface used by the ai package.
type MockAI struct {
	ProviderName string
	Records      map[string]vocab.WordRecord // keyed by lowercase word
	Labels       []vocab.Label
	SpeechData   []byte
	ImageData    []byte
	VideoData    []byte
	Errors       map[string]error // keyed by operation name
	AvailableErr error

	mu    sync.Mutex
	Calls []string
}

// NewMockAI creates a MockAI with sample records for a few words
func NewMockAI() *MockAI {
	gen := TestDataGenerator{}
	return &MockAI{
		ProviderName: "mock",
		Records: map[string]vocab.WordRecord{
			"apple":       gen.SampleRecord("apple"),
			"serendipity": gen.SampleRecord("serendipity"),
			"ephemeral":   gen.SampleRecord("ephemeral"),
		},
		Labels: []vocab.Label{
			{Name: "apple", NameZH: "苹果", Confidence: 0.97},
			{Name: "table", NameZH: "桌子", Confidence: 0.81},
		},
		SpeechData: gen.GenerateWAVData(),
		ImageData:  gen.GenerateImageData(),
		VideoData:  gen.GenerateVideoData(),
		Errors:     map[string]error{},
	}
}

func (m *MockAI) record(call string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, call)
	return m.Errors[strings.SplitN(call, ":", 2)[0]]
}

// CallCount returns how many calls started with the given operation name
func (m *MockAI) CallCount(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Calls {
		if strings.HasPrefix(c, op+":") {
			n++
		}
	}
	return n
}

// Name returns the provider name
func (m *MockAI) Name() string {
	if m.ProviderName == "" {
		return "mock"
	}
	return m.ProviderName
}

// IsAvailable returns AvailableErr
func (m *MockAI) IsAvailable() error {
	return m.AvailableErr
}

// LookupWord returns the configured record, or a generated one for unknown
// words. A hint is recorded as "LookupWord:word|hint".
func (m *MockAI) LookupWord(ctx context.Context, word, hint string) (vocab.WordRecord, error) {
	call := "LookupWord:" + word
	if hint != "" {
		call += "|" + hint
	}
	if err := m.record(call); err != nil {
		return vocab.WordRecord{}, err
	}
	if rec, ok := m.Records[strings.ToLower(word)]; ok {
		return rec, nil
	}
	return TestDataGenerator{}.SampleRecord(word), nil
}

// Speak returns SpeechData as WAV
func (m *MockAI) Speak(ctx context.Context, text string) (vocab.Media, error) {
	if err := m.record("Speak:" + text); err != nil {
		return vocab.Media{}, err
	}
	return vocab.Media{Data: m.SpeechData, MIMEType: "audio/wav"}, nil
}

// AnalyzeImage returns Labels
func (m *MockAI) AnalyzeImage(ctx context.Context, data []byte, mimeType string) ([]vocab.Label, error) {
	if err := m.record(fmt.Sprintf("AnalyzeImage:%s:%d", mimeType, len(data))); err != nil {
		return nil, err
	}
	return m.Labels, nil
}

// GenerateImage returns ImageData as PNG
func (m *MockAI) GenerateImage(ctx context.Context, prompt string) (vocab.Media, error) {
	if err := m.record("GenerateImage:" + prompt); err != nil {
		return vocab.Media{}, err
	}
	return vocab.Media{Data: m.ImageData, MIMEType: "image/png"}, nil
}

// GenerateVideo returns VideoData as MP4
func (m *MockAI) GenerateVideo(ctx context.Context, prompt string) (vocab.Media, error) {
	if err := m.record("GenerateVideo:" + prompt); err != nil {
		return vocab.Media{}, err
	}
	return vocab.Media{Data: m.VideoData, MIMEType: "video/mp4"}, nil
}

// MockMediaStore keeps media in memory
type MockMediaStore struct {
	mu      sync.Mutex
	Files   map[string]vocab.Media // keyed by ref
	Removed []string
	PutErr  error
}

// NewMockMediaStore creates an empty MockMediaStore
func NewMockMediaStore() *MockMediaStore {
	return &MockMediaStore{Files: map[string]vocab.Media{}}
}

// Put stores media under "<id>/<kind>"
func (m *MockMediaStore) Put(id, kind string, media vocab.Media) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PutErr != nil {
		return "", m.PutErr
	}
	ref := id + "/" + kind
	m.Files[ref] = media
	return ref, nil
}

// Remove deletes all media of a word
func (m *MockMediaStore) Remove(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for ref := range m.Files {
		if strings.HasPrefix(ref, id+"/") {
			delete(m.Files, ref)
		}
	}
	m.Removed = append(m.Removed, id)
	return nil
}

// TestDataGenerator generates test data
type TestDataGenerator struct{}

// SampleRecord generates a plausible word record for word
func (g TestDataGenerator) SampleRecord(word string) vocab.WordRecord {
	return vocab.WordRecord{
		Word:         word,
		Phonetic:     "/" + word + "/",
		PartOfSpeech: "noun",
		DefinitionEN: "a test definition of " + word,
		DefinitionZH: "测试释义",
		Example:      "This sentence uses the word " + word + ".",
		ExampleZH:    "这个句子使用了这个词。",
	}
}

// GenerateWAVData generates a minimal WAV header with no samples
func (g TestDataGenerator) GenerateWAVData() []byte {
	return []byte{
		'R', 'I', 'F', 'F', 36, 0, 0, 0, 'W', 'A', 'V', 'E',
		'f', 'm', 't', ' ', 16, 0, 0, 0, 1, 0, 1, 0,
		0xC0, 0x5D, 0, 0, 0x80, 0xBB, 0, 0, 2, 0, 16, 0,
		'd', 'a', 't', 'a', 0, 0, 0, 0,
	}
}

// GenerateImageData generates mock PNG data
func (g TestDataGenerator) GenerateImageData() []byte {
	return []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'}
}

// GenerateVideoData generates mock MP4 data
func (g TestDataGenerator) GenerateVideoData() []byte {
	return []byte{0, 0, 0, 0x18, 'f', 't', 'y', 'p', 'm', 'p', '4', '2'}
}

// GeneratePCM generates n bytes of little-endian PCM16 silence with a marker in the first sample
func (g TestDataGenerator) GeneratePCM(n int, marker byte) []byte {
	pcm := make([]byte, n)
	if n > 0 {
		pcm[0] = marker
	}
	return pcm
}
