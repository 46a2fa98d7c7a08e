// Package models lists the remote models available to the configured
// Gemini and OpenAI API keys, grouped by what lexilive uses them for:
// word lookup, speech, image and video generation and live conversation.
package models
