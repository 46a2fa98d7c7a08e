package models

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/snonux/lexilive/internal/ai"
)

func TestCategorizeGemini(t *testing.T) {
	tests := []struct {
		id      string
		actions []string
		want    Category
	}{
		{"gemini-2.5-flash", []string{"generateContent"}, CategoryText},
		{"gemini-2.5-flash-preview-tts", nil, CategorySpeech},
		{"imagen-4.0-generate-001", []string{"predict"}, CategoryImage},
		{"gemini-2.5-flash-image", nil, CategoryImage},
		{"veo-3.0-fast-generate-001", []string{"predictLongRunning"}, CategoryVideo},
		{"gemini-2.5-flash-native-audio-preview-09-2025", nil, CategoryLive},
		{"gemini-2.0-flash", []string{"generateContent", "bidiGenerateContent"}, CategoryLive},
		{"text-embedding-004", []string{"embedContent"}, ""},
		{"unknown-model", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, CategorizeGemini(tt.id, tt.actions))
		})
	}
}

func TestCategorizeOpenAI(t *testing.T) {
	tests := []struct {
		id   string
		want Category
	}{
		{"gpt-4o-mini", CategoryText},
		{"o3-mini", CategoryText},
		{"gpt-4o-mini-tts", CategorySpeech},
		{"tts-1-hd", CategorySpeech},
		{"dall-e-3", CategoryImage},
		{"gpt-image-1", CategoryImage},
		{"gpt-4o-realtime-preview", CategoryLive},
		{"whisper-1", ""},
		{"gpt-4o-audio-preview", ""},
		{"text-embedding-3-small", ""},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, CategorizeOpenAI(tt.id))
		})
	}
}

func TestListWithoutClients(t *testing.T) {
	_, err := NewLister(nil, nil, nil).List(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no API key found")
}

func TestListOpenAI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data": []map[string]any{
				{"id": "whisper-1", "object": "model"},
				{"id": "tts-1", "object": "model"},
				{"id": "gpt-4o-mini", "object": "model"},
				{"id": "dall-e-3", "object": "model"},
			},
		})
	}))
	defer srv.Close()

	lister := NewLister(nil, ai.NewOpenAIClient("test-key", srv.URL+"/v1"), nil)
	models, err := lister.List(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []Model{
		{Provider: "openai", ID: "dall-e-3", Category: CategoryImage},
		{Provider: "openai", ID: "gpt-4o-mini", Category: CategoryText},
		{Provider: "openai", ID: "tts-1", Category: CategorySpeech},
	}, models)
}

func TestListGemini(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/models"), r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"models": []map[string]any{
				{"name": "models/gemini-2.5-flash"},
				{"name": "models/veo-3.0-generate-001"},
				{"name": "models/text-embedding-004"},
			},
		})
	}))
	defer srv.Close()

	client, err := ai.NewGeminiClient(context.Background(), "test-key", srv.URL+"/")
	require.NoError(t, err)

	models, err := NewLister(client, nil, nil).List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Model{
		{Provider: "gemini", ID: "gemini-2.5-flash", Category: CategoryText},
		{Provider: "gemini", ID: "veo-3.0-generate-001", Category: CategoryVideo},
	}, models)
}

func TestListSkipsFailingProvider(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"bad key"}}`, http.StatusUnauthorized)
	}))
	defer failing.Close()

	working := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"data": []map[string]any{{"id": "tts-1"}}})
	}))
	defer working.Close()

	gemini, err := ai.NewGeminiClient(context.Background(), "test-key", failing.URL+"/")
	require.NoError(t, err)

	lister := NewLister(gemini, ai.NewOpenAIClient("test-key", working.URL+"/v1"), nil)
	models, err := lister.List(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, "tts-1", models[0].ID)

	// Every provider failing is an error
	lister = NewLister(gemini, nil, nil)
	_, err = lister.List(context.Background())
	assert.Error(t, err)
}

func TestPrint(t *testing.T) {
	var buf bytes.Buffer
	Print(&buf, []Model{
		{Provider: "gemini", ID: "gemini-2.5-flash", Category: CategoryText},
		{Provider: "openai", ID: "tts-1", Category: CategorySpeech},
	})

	out := buf.String()
	assert.Contains(t, out, "Text Models")
	assert.Contains(t, out, "gemini   gemini-2.5-flash")
	assert.Contains(t, out, "openai   tts-1")
	// Empty categories are reported
	assert.Contains(t, out, "Video Generation Models:\n  none found")
}
