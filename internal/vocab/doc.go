// Package vocab holds the lexilive domain: word records returned by the
// remote lookup, saved words persisted in the local list, and the Service
// that ties lookup, persistence, speech and generated media together.
// It also provides the flashcard Deck used by the review screens.
package vocab
