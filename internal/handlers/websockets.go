package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait   = 10 * time.Second
	wsPongWait    = 60 * time.Second
	wsPingPeriod  = wsPongWait * 9 / 10
	wsMaxInbound  = 4 << 10
	wsDefaultPoll = time.Second
	wsMaxPoll     = 10 * time.Second
)

type wsEnvelope struct {
	Type  string          `json:"type"`
	Seq   uint64          `json:"seq"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	// The stream is authenticated by token, not by cookie, so any origin may connect.
	CheckOrigin: func(*http.Request) bool { return true },
}

// statusStream pushes shield status frames to one websocket client. A frame
// is written on connect and afterwards only when the status changes.
type statusStream struct {
	h    *Handler
	conn *websocket.Conn
	seq  uint64
	last []byte
}

// @Summary      Status stream
// @Description  Websocket of {"type":"status","seq":n,"data":Status} frames, sent on connect and on change. Poll period via ?interval=500ms or ?interval_ms=500 (max 10s).
// @Tags         shield
// @Param        access_token  query  string  false  "Bearer token when headers cannot be set"
// @Router       /ws [get]
// @Security     BearerAuth
func (h *Handler) wsConnect(c *gin.Context) {
	poll := h.parseInterval(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.log != nil {
			h.log.Warnw("ws_upgrade_failed", "err", err)
		}
		return
	}
	defer func() { _ = conn.Close() }()

	s := &statusStream{h: h, conn: conn}
	if err := s.run(c.Request.Context(), poll); err != nil && h.log != nil {
		h.log.Infow("ws_stream_closed", "err", err, "frames", s.seq)
	}
}

func (s *statusStream) run(ctx context.Context, poll time.Duration) error {
	s.conn.SetReadLimit(wsMaxInbound)
	_ = s.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	gone := make(chan error, 1)
	go func() {
		for {
			if _, _, err := s.conn.ReadMessage(); err != nil {
				gone <- err
				return
			}
		}
	}()

	if err := s.push(ctx); err != nil {
		return err
	}

	tick := time.NewTicker(poll)
	defer tick.Stop()
	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	for {
		select {
		case err := <-gone:
			return err
		case <-ctx.Done():
			return ctx.Err()
		case <-ping.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return err
			}
		case <-tick.C:
			if err := s.push(ctx); err != nil {
				return err
			}
		}
	}
}

// push writes the current status unless it matches the last frame sent.
func (s *statusStream) push(ctx context.Context) error {
	data, err := json.Marshal(s.h.services.Shield.Status(ctx))
	if err != nil {
		return err
	}
	if s.last != nil && bytes.Equal(data, s.last) {
		return nil
	}
	s.seq++
	s.last = data
	_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return s.conn.WriteJSON(wsEnvelope{Type: "status", Seq: s.seq, Data: data})
}

// parseInterval reads ?interval=<duration> or ?interval_ms=<n>. Values that
// do not parse or fall outside (0, wsMaxPoll] are ignored.
func (h *Handler) parseInterval(c *gin.Context) time.Duration {
	if d, err := time.ParseDuration(c.Query("interval")); err == nil && d > 0 && d <= wsMaxPoll {
		return d
	}
	if ms, err := strconv.Atoi(c.Query("interval_ms")); err == nil {
		if d := time.Duration(ms) * time.Millisecond; d > 0 && d <= wsMaxPoll {
			return d
		}
	}
	return wsDefaultPoll
}
