package audio

import (
	"strings"
	"testing"
)

func TestValidateWord(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid English word",
			text:    "serendipity",
			wantErr: false,
		},
		{
			name:    "valid phrase",
			text:    "look forward to",
			wantErr: false,
		},
		{
			name:    "valid Chinese word",
			text:    "苹果",
			wantErr: false,
		},
		{
			name:    "empty text",
			text:    "",
			wantErr: true,
			errMsg:  "text cannot be empty",
		},
		{
			name:    "whitespace only",
			text:    "   \t\n",
			wantErr: true,
			errMsg:  "text cannot be empty",
		},
		{
			name:    "numbers only",
			text:    "12345",
			wantErr: true,
			errMsg:  "at least one letter",
		},
		{
			name:    "too long",
			text:    strings.Repeat("a", MaxWordLength+1),
			wantErr: true,
			errMsg:  "too long",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateWord(tt.text)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateWord() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && err != nil {
				if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("ValidateWord() error = %v, want error containing %v", err.Error(), tt.errMsg)
				}
			}
		})
	}
}

func TestValidateSpeechTextAllowsSentences(t *testing.T) {
	sentence := "The serendipitous discovery changed the course of the experiment."
	if err := ValidateSpeechText(sentence); err != nil {
		t.Errorf("ValidateSpeechText() unexpected error: %v", err)
	}
	if err := ValidateWord(sentence); err == nil {
		t.Errorf("ValidateWord() expected error for a sentence longer than %d runes", MaxWordLength)
	}
}
