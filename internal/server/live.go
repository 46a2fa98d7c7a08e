package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"codeberg.org/snonux/lexilive/internal/live"
)

const (
	liveWriteWait  = 10 * time.Second
	livePongWait   = 60 * time.Second
	livePingPeriod = (livePongWait * 9) / 10
	liveSendBuffer = 256
)

// Control message types exchanged as JSON text frames
const (
	MessageState       = "state"
	MessageTranscript  = "transcript"
	MessageInterrupted = "interrupted"
	MessageError       = "error"
	MessageText        = "text"
	MessageStop        = "stop"
)

// ControlMessage is a JSON text frame on the live socket
type ControlMessage struct {
	Type  string `json:"type"`
	State string `json:"state,omitempty"`
	Role  string `json:"role,omitempty"`
	Text  string `json:"text,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || isLocalOrigin(origin) || sameHost(origin, r.Host)
	},
}

func isLocalOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

func sameHost(origin, host string) bool {
	u, err := url.Parse(origin)
	return err == nil && u.Host == host
}

type outbound struct {
	kind       int
	data       []byte
	generation uint64
}

// liveClient is one browser connected to the relay. It is the session's
// Player: model audio is forwarded as binary frames and the browser does
// its own gapless scheduling.
type liveClient struct {
	conn   *websocket.Conn
	logger *zap.SugaredLogger

	send       chan outbound
	done       chan struct{}
	closeOnce  sync.Once
	generation atomic.Uint64
	pending    atomic.Int64
	writerDone chan struct{}
}

func newLiveClient(conn *websocket.Conn, logger *zap.SugaredLogger) *liveClient {
	return &liveClient{
		conn:       conn,
		logger:     logger,
		send:       make(chan outbound, liveSendBuffer),
		done:       make(chan struct{}),
		writerDone: make(chan struct{}),
	}
}

// Enqueue forwards a chunk of model audio to the browser
func (c *liveClient) Enqueue(pcm []byte) error {
	c.pending.Add(1)
	if !c.queue(outbound{kind: websocket.BinaryMessage, data: pcm, generation: c.generation.Load()}) {
		c.pending.Add(-1)
		return io.ErrClosedPipe
	}
	return nil
}

// Interrupt drops audio still queued for the browser and tells it to clear
// its own playback queue
func (c *liveClient) Interrupt() int {
	c.generation.Add(1)
	dropped := int(c.pending.Load())
	c.control(ControlMessage{Type: MessageInterrupted})
	return dropped
}

// Close is a no-op; the relay owns the socket
func (c *liveClient) Close() error {
	return nil
}

func (c *liveClient) control(msg ControlMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Errorw("failed to encode control message", "type", msg.Type, "error", err)
		return
	}
	c.queue(outbound{kind: websocket.TextMessage, data: data})
}

// queue never blocks since session callbacks run under the session lock
func (c *liveClient) queue(msg outbound) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		c.logger.Warnw("live client is too slow, dropping message", "type", msg.kind)
		return false
	}
}

// close stops the write pump after it flushed what is queued
func (c *liveClient) close() {
	c.closeOnce.Do(func() { close(c.done) })
	<-c.writerDone
}

func (c *liveClient) write(kind int, data []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
	return c.conn.WriteMessage(kind, data)
}

func (c *liveClient) writeOutbound(msg outbound) error {
	if msg.kind == websocket.BinaryMessage {
		c.pending.Add(-1)
		if msg.generation != c.generation.Load() {
			return nil
		}
	}
	return c.write(msg.kind, msg.data)
}

func (c *liveClient) writePump() {
	ticker := time.NewTicker(livePingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		close(c.writerDone)
	}()

	for {
		select {
		case msg := <-c.send:
			if err := c.writeOutbound(msg); err != nil {
				c.logger.Debugw("live write failed", "error", err)
				c.closeOnce.Do(func() { close(c.done) })
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.closeOnce.Do(func() { close(c.done) })
				return
			}
		case <-c.done:
			for {
				select {
				case msg := <-c.send:
					if err := c.writeOutbound(msg); err != nil {
						return
					}
				default:
					c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return
				}
			}
		}
	}
}

// readPump feeds binary frames into audio and handles control messages
// until the browser goes away
func (c *liveClient) readPump(audio io.Writer, onControl func(ControlMessage)) {
	c.conn.SetReadDeadline(time.Now().Add(livePongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(livePongWait))
		return nil
	})

	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warnw("live read failed", "error", err)
			}
			return
		}

		switch kind {
		case websocket.BinaryMessage:
			if _, err := audio.Write(data); err != nil {
				// The session stopped reading audio; keep serving control messages
				c.logger.Debugw("dropping microphone audio", "bytes", len(data), "error", err)
			}
		case websocket.TextMessage:
			var msg ControlMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				c.control(ControlMessage{Type: MessageError, Text: "invalid control message"})
				continue
			}
			onControl(msg)
		}
	}
}

// handleLive upgrades to a websocket and relays it to a new live session
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.requestLogger(r).Warnw("websocket upgrade failed", "error", err)
		return
	}

	id := uuid.NewString()
	logger := s.logger.With("request_id", RequestID(r.Context()), "connection", id)
	client := newLiveClient(conn, logger)
	go client.writePump()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	stopOnShutdown := context.AfterFunc(s.liveCtx, cancel)
	defer stopOnShutdown()

	opts := []live.SessionOption{
		live.WithID(id),
		live.WithConfig(s.liveConfig),
		live.WithLogger(s.logger),
		live.WithMetrics(s.metrics),
		live.OnState(func(st live.State) {
			client.control(ControlMessage{Type: MessageState, State: st.String()})
		}),
		live.OnTranscript(func(role, text string) {
			client.control(ControlMessage{Type: MessageTranscript, Role: role, Text: text})
		}),
		live.OnError(func(err error) {
			client.control(ControlMessage{Type: MessageError, Text: err.Error()})
		}),
	}
	if s.frameSamples > 0 {
		opts = append(opts, live.WithFrameSamples(s.frameSamples))
	}
	session := live.NewSession(s.transport, client, opts...)

	mic, micWriter := io.Pipe()
	logger.Infow("live client connected", "remote", r.RemoteAddr)
	if err := session.Start(ctx, mic); err != nil {
		logger.Warnw("live session failed to start", "error", err)
		micWriter.Close()
		client.close()
		return
	}

	// Session end closes the socket, which ends the read pump below
	go func() {
		select {
		case <-session.Done():
		case <-ctx.Done():
			session.Stop()
		}
		client.close()
	}()

	client.readPump(micWriter, func(msg ControlMessage) {
		switch msg.Type {
		case MessageText:
			if err := session.SendText(ctx, msg.Text); err != nil {
				client.control(ControlMessage{Type: MessageError, Text: err.Error()})
			}
		case MessageStop:
			go session.Stop()
		default:
			client.control(ControlMessage{Type: MessageError, Text: "unknown message type " + msg.Type})
		}
	})

	session.Stop()
	micWriter.Close()
	client.close()
	logger.Infow("live client disconnected", "state", session.State().String())
}
