package subscribe

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/tendermint/tendermint/libs/log"

	"github.com/GPTx-global/cidoracle/oracle/retry"
	"github.com/GPTx-global/cidoracle/types"
)

const EventsPath = "/v1/events"

// Manager subscribes to the committed event feed of an oracle service.
type Manager struct {
	logger      log.Logger
	endpoint    string
	dialer      *websocket.Dialer
	eventTypes  map[string]bool
	channelSize int
	retry       *retry.Config
}

// NewManager creates a subscription manager for the service at endpoint
// (http or https). With no eventTypes every event is delivered.
func NewManager(logger log.Logger, endpoint string, eventTypes ...string) (*Manager, error) {
	wsURL, err := WebsocketURL(endpoint)
	if err != nil {
		return nil, err
	}

	filter := make(map[string]bool, len(eventTypes))
	for _, t := range eventTypes {
		filter[t] = true
	}
	return &Manager{
		logger:      logger.With("module", "subscribe"),
		endpoint:    wsURL,
		dialer:      websocket.DefaultDialer,
		eventTypes:  filter,
		channelSize: 2 << 10,
		retry:       retry.DefaultConfig(),
	}, nil
}

// WebsocketURL returns the event feed URL of an http(s) service endpoint.
func WebsocketURL(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + EventsPath
	return u.String(), nil
}

// Subscribe connects to the feed and delivers matching events until ctx is
// done or the connection drops. The channel is closed on return.
func (m *Manager) Subscribe(ctx context.Context) (<-chan types.EventMessage, error) {
	var conn *websocket.Conn
	err := retry.Do(ctx, m.retry, func() error {
		var err error
		conn, _, err = m.dialer.DialContext(ctx, m.endpoint, nil)
		return err
	}, retry.Always)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", m.endpoint, err)
	}
	m.logger.Debug("subscribed", "endpoint", m.endpoint)

	ch := make(chan types.EventMessage, m.channelSize)
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()
	go func() {
		defer close(ch)
		defer close(done)
		defer conn.Close()

		for {
			var msg types.EventMessage
			if err := conn.ReadJSON(&msg); err != nil {
				if ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					m.logger.Error("event feed closed", "error", err)
				}
				return
			}
			if !m.match(msg) {
				continue
			}
			select {
			case ch <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

func (m *Manager) match(msg types.EventMessage) bool {
	return len(m.eventTypes) == 0 || m.eventTypes[msg.Type]
}
