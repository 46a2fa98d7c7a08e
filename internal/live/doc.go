// Package live runs the realtime spoken practice session.
//
// Microphone audio is read from an io.Reader, cut into fixed-size frames by
// a Framer and streamed to the model through a Transport. Audio coming back
// is handed to a Player; the Scheduler implementation plays chunks back to
// back using a running "next start time" cursor. When the server signals
// an interruption all pending playback is dropped and the cursor resets.
package live
