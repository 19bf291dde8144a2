package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/jsl-segmenter/internal/controller"
	"github.com/snappy-loop/jsl-segmenter/internal/models"
)

const (
	sessionWSReadLimit   = 64 << 10
	sessionWSIdleTimeout = 30 * time.Minute
)

var sessionWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// sessionConn serializes writes to one WebSocket connection.
type sessionConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *sessionConn) send(ev models.SessionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeWSJSON(s.conn, ev)
}

// SessionWS handles GET /ws. Each connection gets its own interaction controller.
func (h *Handler) SessionWS(w http.ResponseWriter, r *http.Request) {
	conn, err := sessionWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("session ws upgrade failed")
		return
	}
	defer conn.Close()

	logger := log.With().Str("session_id", uuid.NewString()).Logger()
	logger.Info().Msg("Session opened")

	out := &sessionConn{conn: conn}
	ctx, cancel := context.WithCancel(context.Background())
	var inflight sync.WaitGroup

	ctrl := controller.New(h.agent,
		controller.WithTimeout(h.segmentTimeout),
		controller.WithExamples(h.examples),
		controller.WithOnChange(func(s controller.Snapshot) {
			if err := out.send(models.SessionEvent{Type: models.EventState, State: &s}); err != nil {
				logger.Debug().Err(err).Msg("session ws write")
			}
		}),
	)
	defer func() {
		ctrl.Close()
		cancel()
		inflight.Wait()
		logger.Info().Msg("Session closed")
	}()

	initial := ctrl.Snapshot()
	if err := out.send(models.SessionEvent{Type: models.EventExamples, Examples: ctrl.Examples()}); err != nil {
		return
	}
	if err := out.send(models.SessionEvent{Type: models.EventState, State: &initial}); err != nil {
		return
	}

	conn.SetReadLimit(sessionWSReadLimit)
	conn.SetReadDeadline(time.Now().Add(sessionWSIdleTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(sessionWSIdleTimeout))
		return nil
	})

	reject := func(err error) {
		if err := out.send(models.SessionEvent{Type: models.EventRejected, Error: err.Error()}); err != nil {
			logger.Debug().Err(err).Msg("session ws write")
		}
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug().Err(err).Msg("session ws read")
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(sessionWSIdleTimeout))

		var in models.SessionCommand
		if err := json.Unmarshal(raw, &in); err != nil {
			reject(errors.New("invalid JSON: " + err.Error()))
			continue
		}

		switch in.Type {
		case models.CommandInput:
			ctrl.SetInput(in.Text)
		case models.CommandExample:
			if err := ctrl.LoadExample(in.Index); err != nil {
				reject(err)
			}
		case models.CommandClear:
			ctrl.Clear()
		case models.CommandSubmit:
			inflight.Add(1)
			go func() {
				defer inflight.Done()
				if err := ctrl.Submit(ctx); err != nil && !errors.Is(err, controller.ErrCleared) {
					reject(err)
				}
			}()
		default:
			reject(errors.New("unknown command type: " + in.Type))
		}
	}
}

func writeWSJSON(conn *websocket.Conn, v interface{}) error {
	conn.SetWriteDeadline(time.Now().Add(30 * time.Second))
	return conn.WriteJSON(v)
}
