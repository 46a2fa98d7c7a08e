// Package ai wraps the remote generative models behind one Provider
// interface.
//
// Two providers exist: Gemini (google.golang.org/genai) supports every
// operation, OpenAI (go-openai) supports everything except video. NewProvider
// composes the configured stack:
//
//	primary -> optional fallback -> circuit breaker -> speech cache
//
// Local code only builds prompts and response schemas and unwraps the
// results into vocab types.
package ai
