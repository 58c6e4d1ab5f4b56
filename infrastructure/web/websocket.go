package web

import (
	"context"
	"fmt"
	"time"

	"pairchat/domain/chat"
	"pairchat/domain/event"
	"pairchat/runtime"
	"pairchat/sink"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
)

const closeGrace = time.Second

var errSessionReplaced = fmt.Errorf("session replaced")

// handleWebSocket owns one connection: this goroutine reads and dispatches,
// a second one drains the connection sink to the socket.
func (s *Server) handleWebSocket(c *websocket.Conn) {
	handle := chat.Handle(uuid.NewString())
	log := s.log.With("handle", handle)
	connSink := sink.NewConnectionSink(handle, s.options.ConnectionBufferSize, log)
	session := s.engine.NewSession(handle, connSink)

	ctx, cancel := context.WithCancel(s.baseCtx)
	s.monitor.ConnectionOpened()
	log.Info("WebSocket connected", "remote", c.RemoteAddr().String())

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		err := connSink.Drain(ctx, func(e event.Outbound) error {
			return s.write(c, e)
		})
		if err != nil {
			log.Debug("Writer stopped", "error", err)
			// unblock the reader so the session unwinds
			_ = c.SetReadDeadline(time.Now())
		}
	}()

	if s.options.LoginTimeout > 0 {
		_ = c.SetReadDeadline(time.Now().Add(s.options.LoginTimeout))
	}

	s.readLoop(ctx, c, session)

	session.Disconnect(context.Background())
	connSink.Close()
	cancel()
	<-writerDone
	_ = c.Close()
	s.monitor.ConnectionClosed()
	log.Info("WebSocket disconnected")
}

func (s *Server) readLoop(ctx context.Context, c *websocket.Conn, session *runtime.Session) {
	awaitingLogin := s.options.LoginTimeout > 0
	for {
		_, raw, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				s.log.Debug("WebSocket read ended", "handle", session.Handle(), "error", err)
			}
			return
		}

		cmd, err := DecodeCommand(raw)
		if err != nil {
			session.Fail(ctx, err)
			continue
		}
		_ = session.Dispatch(ctx, cmd)

		if awaitingLogin && session.State() == runtime.Authenticated {
			awaitingLogin = false
			_ = c.SetReadDeadline(time.Time{})
		}
	}
}

// write sends one event with a deadline. A sessionReplaced event is the
// last thing an evicted connection receives before it is closed.
func (s *Server) write(c *websocket.Conn, e event.Outbound) error {
	payload, err := EncodeEvent(e)
	if err != nil {
		s.log.Error("Event encoding failed", "type", e.Type(), "error", err)
		return nil
	}
	if s.options.WriteTimeout > 0 {
		_ = c.SetWriteDeadline(time.Now().Add(s.options.WriteTimeout))
	}
	if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
		return err
	}

	if e.Type() == event.SessionReplacedType {
		closing := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "session replaced")
		_ = c.WriteControl(websocket.CloseMessage, closing, time.Now().Add(closeGrace))
		return errSessionReplaced
	}
	return nil
}
