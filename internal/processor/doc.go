// Package processor runs the lexilive command line operations. It looks up
// and saves words, reviews and exports the saved list, plays speech,
// generates media, holds live conversations and starts the HTTP server or
// the desktop application. Progress goes to stdout, problems to stderr.
package processor
