package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/himanishpuri/SignVault/pkg/signvault/broadcast"
)

const maxInboundFrame = 4096

func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || originAllowed(s.config.Server.AllowedOrigins, origin)
		},
	}
}

// handleSocket handles GET /socket. The consumer first receives the retained
// history as one acceleration-history frame, then one acceleration-update
// frame per published sample.
//
// The endpoint speaks plain WebSocket with JSON text frames of the form
// {"event": ..., "data": ...}. It does not implement the socket.io protocol,
// so socket.io clients cannot connect; use a browser WebSocket and dispatch
// on the event field.
func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnf("Socket upgrade from %s failed: %v", getClientIP(r), err)
		return
	}
	defer conn.Close()

	ch := s.service.Acceleration()
	consumer, err := ch.Subscribe()
	if err != nil {
		s.closeSocket(conn, websocket.CloseGoingAway, "server shutting down")
		return
	}
	defer ch.Unsubscribe(consumer)

	s.log.Infof("Stream consumer %d connected from %s (%d total)", consumer.ID(), getClientIP(r), ch.Consumers())

	done := make(chan struct{})
	go s.readPump(conn, done)
	s.writePump(conn, consumer, done)

	s.log.Infof("Stream consumer %d disconnected", consumer.ID())
}

// readPump discards inbound frames and answers pings until the peer goes
// away, then closes done.
func (s *Server) readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	pongWait := s.config.Stream.PingInterval + s.config.Stream.WriteTimeout
	conn.SetReadLimit(maxInboundFrame)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debugf("Socket read ended: %v", err)
			}
			return
		}
	}
}

func (s *Server) writePump(conn *websocket.Conn, c *broadcast.Consumer, done <-chan struct{}) {
	ticker := time.NewTicker(s.config.Stream.PingInterval)
	defer ticker.Stop()

	if err := s.writeFrame(conn, SocketFrame{Event: EventHistory, Data: c.History()}); err != nil {
		return
	}

	for {
		select {
		case <-done:
			return

		case sample, ok := <-c.Updates():
			if !ok {
				code, text := closeReason(c.Err())
				if code == websocket.ClosePolicyViolation {
					s.log.Warnf("Stream consumer %d dropped: %v", c.ID(), c.Err())
				}
				s.closeSocket(conn, code, text)
				return
			}
			if err := s.writeFrame(conn, SocketFrame{Event: EventUpdate, Data: sample}); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(s.config.Stream.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) writeFrame(conn *websocket.Conn, frame SocketFrame) error {
	conn.SetWriteDeadline(time.Now().Add(s.config.Stream.WriteTimeout))
	if err := conn.WriteJSON(frame); err != nil {
		s.log.Debugf("Socket write failed: %v", err)
		return err
	}
	return nil
}

func (s *Server) closeSocket(conn *websocket.Conn, code int, text string) {
	msg := websocket.FormatCloseMessage(code, text)
	conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(s.config.Stream.WriteTimeout))
}

// closeReason maps why the channel dropped a consumer to a close frame.
func closeReason(err error) (int, string) {
	switch {
	case errors.Is(err, broadcast.ErrSlowConsumer):
		return websocket.ClosePolicyViolation, "slow consumer"
	case errors.Is(err, broadcast.ErrChannelClosed):
		return websocket.CloseGoingAway, "server shutting down"
	default:
		return websocket.CloseNormalClosure, ""
	}
}
