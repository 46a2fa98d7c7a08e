package ai

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"google.golang.org/genai"

	"codeberg.org/snonux/lexilive/internal/vocab"
)

const lookupInstruction = `You are a bilingual English-Chinese dictionary for language learners.
Return the requested fields for the given English word:
- word: the word as written by the learner
- phonetic: IPA pronunciation, including the slashes
- partOfSpeech: short part of speech such as noun, verb, adjective
- definitionEn: one concise English definition
- definitionZh: the Simplified Chinese meaning
- example: one natural English example sentence using the word
- exampleZh: the Simplified Chinese translation of the example`

const labelInstruction = `Identify the distinct objects visible in this image that a language learner
would want to name. For each object return its English name (name), its
Simplified Chinese name (nameZh) and your confidence between 0 and 1
(confidence). Order the list by confidence, highest first, at most 8 items.`

// lookupPrompt is the user turn for a word lookup. The hint narrows the
// definition to one sense.
func lookupPrompt(word, hint string) string {
	if hint == "" {
		return fmt.Sprintf("Word: %s", word)
	}
	return fmt.Sprintf("Word: %s\nMeaning intended: %s\nDefine the word in this sense only.", word, hint)
}

// labelJSONPrompt asks for JSON output when the API has no response schema
func labelJSONPrompt() string {
	return labelInstruction + `

Answer with a JSON object {"labels": [{"name": "...", "nameZh": "...", "confidence": 0.9}]}.`
}

// wordRecordSchema describes vocab.WordRecord for structured output
func wordRecordSchema() *genai.Schema {
	str := func(desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeString, Description: desc}
	}
	fields := []string{"word", "phonetic", "partOfSpeech", "definitionEn", "definitionZh", "example", "exampleZh"}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"word":         str("The word"),
			"phonetic":     str("IPA pronunciation"),
			"partOfSpeech": str("Part of speech"),
			"definitionEn": str("English definition"),
			"definitionZh": str("Simplified Chinese meaning"),
			"example":      str("English example sentence"),
			"exampleZh":    str("Chinese translation of the example"),
		},
		Required:         fields,
		PropertyOrdering: fields,
	}
}

// labelsSchema describes a list of vocab.Label for structured output
func labelsSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"name":       {Type: genai.TypeString},
				"nameZh":     {Type: genai.TypeString},
				"confidence": {Type: genai.TypeNumber},
			},
			Required: []string{"name", "nameZh", "confidence"},
		},
	}
}

// parseWordRecord decodes a model answer into a word record. A blank word
// is filled in from the query.
func parseWordRecord(text, query string) (vocab.WordRecord, error) {
	var record vocab.WordRecord
	body := stripCodeFence(text)
	if body == "" {
		return record, ErrEmptyResponse
	}
	if err := json.Unmarshal([]byte(body), &record); err != nil {
		return record, fmt.Errorf("failed to parse word record: %w", err)
	}

	if strings.TrimSpace(record.Word) == "" {
		record.Word = query
	}
	record.Word = strings.TrimSpace(record.Word)
	return record, nil
}

// parseLabels decodes either a bare JSON array or an object with a labels key
func parseLabels(text string) ([]vocab.Label, error) {
	body := stripCodeFence(text)
	if body == "" {
		return nil, ErrEmptyResponse
	}

	var labels []vocab.Label
	if strings.HasPrefix(body, "[") {
		if err := json.Unmarshal([]byte(body), &labels); err != nil {
			return nil, fmt.Errorf("failed to parse labels: %w", err)
		}
	} else {
		var wrapped struct {
			Labels []vocab.Label `json:"labels"`
		}
		if err := json.Unmarshal([]byte(body), &wrapped); err != nil {
			return nil, fmt.Errorf("failed to parse labels: %w", err)
		}
		labels = wrapped.Labels
	}

	return normalizeLabels(labels), nil
}

// normalizeLabels drops unnamed entries, clamps confidence to [0, 1] and
// sorts by confidence, highest first
func normalizeLabels(labels []vocab.Label) []vocab.Label {
	out := make([]vocab.Label, 0, len(labels))
	for _, l := range labels {
		l.Name = strings.TrimSpace(l.Name)
		if l.Name == "" {
			continue
		}
		l.NameZH = strings.TrimSpace(l.NameZH)
		l.Confidence = min(max(l.Confidence, 0), 1)
		out = append(out, l)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	return out
}

// stripCodeFence removes a surrounding markdown code fence some models add
// even in JSON mode
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[i+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
