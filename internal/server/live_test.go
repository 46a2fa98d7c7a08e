package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"codeberg.org/snonux/lexilive/internal/live"
	"codeberg.org/snonux/lexilive/internal/media"
	"codeberg.org/snonux/lexilive/internal/store"
	"codeberg.org/snonux/lexilive/internal/testutil"
	"codeberg.org/snonux/lexilive/internal/vocab"
)

const testFrameSamples = 160

func dialLive(t *testing.T, transport *testutil.MockTransport) *websocket.Conn {
	t.Helper()

	mediaStore, err := media.New(media.DefaultOptions(t.TempDir()))
	require.NoError(t, err)
	service := vocab.NewService(store.NewMemoryStore(), testutil.NewMockAI(), mediaStore)
	s := New(DefaultConfig(), service, WithLive(transport, live.DefaultConfig(), testFrameSamples))

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/live"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil reads frames until match accepts one
func readUntil(t *testing.T, conn *websocket.Conn, match func(kind int, data []byte) bool) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		kind, data, err := conn.ReadMessage()
		require.NoError(t, err)
		if match(kind, data) {
			return
		}
	}
}

func controlOf(kind int, data []byte) (ControlMessage, bool) {
	if kind != websocket.TextMessage {
		return ControlMessage{}, false
	}
	var msg ControlMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ControlMessage{}, false
	}
	return msg, true
}

func waitControl(t *testing.T, conn *websocket.Conn, want ControlMessage) {
	t.Helper()
	readUntil(t, conn, func(kind int, data []byte) bool {
		msg, ok := controlOf(kind, data)
		return ok && msg == want
	})
}

func TestLiveRelay(t *testing.T) {
	transport := testutil.NewMockTransport()
	conn := dialLive(t, transport)

	waitControl(t, conn, ControlMessage{Type: MessageState, State: "active"})

	// One full frame of microphone audio reaches the model
	frame := make([]byte, testFrameSamples*2)
	frame[0] = 7
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, frame))
	require.Eventually(t, func() bool { return transport.Conn.FrameCount() == 1 }, time.Second, 5*time.Millisecond)

	// Model audio is forwarded as a binary frame
	chunk := testutil.TestDataGenerator{}.GeneratePCM(480, 9)
	transport.Conn.Push(live.Event{Type: live.EventAudio, PCM: chunk})
	readUntil(t, conn, func(kind int, data []byte) bool {
		return kind == websocket.BinaryMessage && bytes.Equal(data, chunk)
	})

	transport.Conn.Push(live.Event{Type: live.EventOutputTranscript, Text: "Hello there"})
	waitControl(t, conn, ControlMessage{Type: MessageTranscript, Role: live.RoleModel, Text: "Hello there"})

	transport.Conn.Push(live.Event{Type: live.EventInterrupted})
	waitControl(t, conn, ControlMessage{Type: MessageInterrupted})

	// Text turns are sent and echoed as user transcript
	require.NoError(t, conn.WriteJSON(ControlMessage{Type: MessageText, Text: "How are you?"}))
	waitControl(t, conn, ControlMessage{Type: MessageTranscript, Role: live.RoleUser, Text: "How are you?"})

	require.NoError(t, conn.WriteJSON(ControlMessage{Type: MessageStop}))
	waitControl(t, conn, ControlMessage{Type: MessageState, State: "closed"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "unexpected error %v", err)
			break
		}
	}
	assert.True(t, transport.Conn.IsClosed())
}

func TestLiveRelayServerEndsSession(t *testing.T) {
	transport := testutil.NewMockTransport()
	conn := dialLive(t, transport)

	waitControl(t, conn, ControlMessage{Type: MessageState, State: "active"})
	transport.Conn.Push(live.Event{Type: live.EventGoAway, TimeLeft: time.Second})

	waitControl(t, conn, ControlMessage{Type: MessageState, State: "closed"})
}

func TestLiveRelayConnectFailure(t *testing.T) {
	transport := testutil.NewMockTransport()
	transport.ConnectErr = errors.New("quota exceeded")
	conn := dialLive(t, transport)

	waitControl(t, conn, ControlMessage{Type: MessageState, State: "failed"})
	waitControl(t, conn, ControlMessage{Type: MessageError, Text: "quota exceeded"})
}

func TestLiveRelayRejectsBadControlMessages(t *testing.T) {
	transport := testutil.NewMockTransport()
	conn := dialLive(t, transport)
	waitControl(t, conn, ControlMessage{Type: MessageState, State: "active"})

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{oops")))
	waitControl(t, conn, ControlMessage{Type: MessageError, Text: "invalid control message"})

	require.NoError(t, conn.WriteJSON(ControlMessage{Type: "dance"}))
	waitControl(t, conn, ControlMessage{Type: MessageError, Text: "unknown message type dance"})
}

func TestLiveClientInterruptDropsQueuedAudio(t *testing.T) {
	c := newLiveClient(nil, zap.NewNop().Sugar())
	require.NoError(t, c.Enqueue([]byte{1, 2}))
	require.NoError(t, c.Enqueue([]byte{3, 4}))

	assert.Equal(t, 2, c.Interrupt())

	// Stale audio is skipped without touching the socket
	msg := <-c.send
	require.NoError(t, c.writeOutbound(msg))
	msg = <-c.send
	require.NoError(t, c.writeOutbound(msg))
	assert.Equal(t, int64(0), c.pending.Load())

	msg = <-c.send
	ctrl, ok := controlOf(msg.kind, msg.data)
	require.True(t, ok)
	assert.Equal(t, MessageInterrupted, ctrl.Type)
}

func TestIsLocalOrigin(t *testing.T) {
	assert.True(t, isLocalOrigin("http://localhost:3000"))
	assert.True(t, isLocalOrigin("http://127.0.0.1:8080"))
	assert.False(t, isLocalOrigin("https://example.com"))
	assert.True(t, sameHost("http://words.lan:8080", "words.lan:8080"))
}
