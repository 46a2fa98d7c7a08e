package audio

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Format describes mono or multi-channel 16-bit little-endian PCM
type Format struct {
	SampleRate int
	Channels   int
}

// Formats used by the live session
var (
	InputFormat  = Format{SampleRate: 16000, Channels: 1}
	OutputFormat = Format{SampleRate: 24000, Channels: 1}
)

// BytesPerSecond returns the PCM16 byte rate
func (f Format) BytesPerSecond() int {
	return f.SampleRate * f.Channels * 2
}

// Duration returns how long n bytes of PCM16 take to play
func (f Format) Duration(n int) time.Duration {
	bps := f.BytesPerSecond()
	if bps == 0 {
		return 0
	}
	return time.Duration(n) * time.Second / time.Duration(bps)
}

// Bytes returns the byte count for d of audio, rounded down to whole frames
func (f Format) Bytes(d time.Duration) int {
	frame := f.Channels * 2
	n := int(d * time.Duration(f.BytesPerSecond()) / time.Second)
	return n - n%frame
}

// MIMEType returns the MIME type used for raw PCM on the wire
func (f Format) MIMEType() string {
	return fmt.Sprintf("audio/pcm;rate=%d", f.SampleRate)
}

// ParsePCMMIMEType extracts the sample rate from "audio/pcm;rate=24000" style
// MIME types, returning def when the rate is absent
func ParsePCMMIMEType(mimeType string, def int) int {
	for _, part := range strings.Split(mimeType, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if ok && strings.EqualFold(k, "rate") {
			if rate, err := strconv.Atoi(v); err == nil && rate > 0 {
				return rate
			}
		}
	}
	return def
}

// PCM16ToBytes encodes samples as little-endian bytes
func PCM16ToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// BytesToPCM16 decodes little-endian bytes into samples; a trailing odd byte is ignored
func BytesToPCM16(data []byte) []int16 {
	out := make([]int16, len(data)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return out
}
