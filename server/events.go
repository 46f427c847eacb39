package server

import (
	"net/http"
	"sync"
	"time"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/gorilla/websocket"
	"github.com/tendermint/tendermint/libs/log"

	"github.com/GPTx-global/cidoracle/types"
)

const (
	subscriberBuffer = 64
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = pongWait * 9 / 10
)

type subscriber struct {
	conn *websocket.Conn
	send chan types.EventMessage
	once sync.Once
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.send) })
}

// EventHub fans committed events out to websocket subscribers. A subscriber
// that falls behind by more than its buffer is disconnected.
type EventHub struct {
	logger   log.Logger
	upgrader websocket.Upgrader

	mtx    sync.RWMutex
	subs   map[*subscriber]struct{}
	closed bool
}

func NewEventHub(logger log.Logger) *EventHub {
	return &EventHub{
		logger: logger.With("module", "events"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		subs: make(map[*subscriber]struct{}),
	}
}

// Publish implements app.EventListener. It never blocks.
func (h *EventHub) Publish(height int64, events sdk.Events) {
	h.mtx.Lock()
	defer h.mtx.Unlock()

	for _, ev := range events {
		msg := types.EventMessage{
			Height:     height,
			Type:       ev.Type,
			Attributes: make(map[string]string, len(ev.Attributes)),
		}
		for _, attr := range ev.Attributes {
			msg.Attributes[string(attr.Key)] = string(attr.Value)
		}

		for sub := range h.subs {
			select {
			case sub.send <- msg:
			default:
				h.logger.Info("dropping slow subscriber", "remote", sub.conn.RemoteAddr().String())
				delete(h.subs, sub)
				sub.close()
			}
		}
	}
}

// Subscribers returns the number of connected subscribers.
func (h *EventHub) Subscribers() int {
	h.mtx.RLock()
	defer h.mtx.RUnlock()
	return len(h.subs)
}

// Close disconnects every subscriber and rejects new ones.
func (h *EventHub) Close() {
	h.mtx.Lock()
	defer h.mtx.Unlock()

	h.closed = true
	for sub := range h.subs {
		delete(h.subs, sub)
		sub.close()
	}
}

func (h *EventHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", "err", err)
		return
	}

	sub := &subscriber{conn: conn, send: make(chan types.EventMessage, subscriberBuffer)}

	h.mtx.Lock()
	if h.closed {
		h.mtx.Unlock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"), time.Now().Add(writeWait))
		conn.Close()
		return
	}
	h.subs[sub] = struct{}{}
	h.mtx.Unlock()

	go h.writePump(sub)
	h.readPump(sub)
}

func (h *EventHub) remove(sub *subscriber) {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
		sub.close()
	}
}

// readPump discards client messages and notices disconnects.
func (h *EventHub) readPump(sub *subscriber) {
	defer h.remove(sub)

	sub.conn.SetReadLimit(512)
	_ = sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	sub.conn.SetPongHandler(func(string) error {
		return sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *EventHub) writePump(sub *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		sub.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-sub.send:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = sub.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := sub.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
