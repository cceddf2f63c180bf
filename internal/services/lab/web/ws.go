package web

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/louisbranch/smartlab/internal/lab/session"
	"golang.org/x/net/websocket"
)

const stateFrameType = "lab.state"

// stateFrame is pushed to the socket on connect and after every change.
type stateFrame struct {
	Type  string    `json:"type"`
	State stateView `json:"state"`
}

// handleWS streams the session's state. The socket is read only to notice
// the client going away.
func (h *handler) handleWS(w http.ResponseWriter, r *http.Request, ctrl *session.Controller) {
	locale := h.locales.locale(r)
	server := websocket.Server{
		Handshake: sameOrigin,
		Handler: func(conn *websocket.Conn) {
			h.streamState(conn, ctrl, locale)
		},
	}
	server.ServeHTTP(w, r)
}

// sameOrigin rejects cross-site handshakes; the session rides on a cookie.
func sameOrigin(cfg *websocket.Config, r *http.Request) error {
	origin, err := websocket.Origin(cfg, r)
	if err != nil {
		return err
	}
	if origin == nil {
		return errors.New("null origin")
	}
	if !strings.EqualFold(origin.Host, r.Host) {
		return fmt.Errorf("origin %q does not match host %q", origin.Host, r.Host)
	}
	cfg.Origin = origin
	return nil
}

func (h *handler) streamState(conn *websocket.Conn, ctrl *session.Controller, locale string) {
	defer func() {
		_ = conn.Close()
	}()

	updates := make(chan session.State, 1)
	unsubscribe := ctrl.Subscribe(func(st session.State) {
		offerLatest(updates, st)
	})
	defer unsubscribe()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		_, _ = io.Copy(io.Discard, conn)
	}()

	send := func(st session.State) error {
		return websocket.JSON.Send(conn, stateFrame{Type: stateFrameType, State: h.newStateView(st, locale)})
	}

	current := ctrl.State()
	if err := send(current); err != nil {
		return
	}
	last := current.Version
	ctx := conn.Request().Context()
	for {
		select {
		case <-closed:
			return
		case <-ctx.Done():
			return
		case st := <-updates:
			if st.Version <= last {
				continue
			}
			last = st.Version
			if err := send(st); err != nil {
				log.Printf("ws send failed session_id=%s err=%v", ctrl.ID(), err)
				return
			}
		}
	}
}

// offerLatest keeps only the newest pending snapshot in ch.
func offerLatest(ch chan session.State, st session.State) {
	for {
		select {
		case ch <- st:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
