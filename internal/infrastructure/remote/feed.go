package remote

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/ersonp/realmforge/internal/domain/entities"
	"github.com/ersonp/realmforge/internal/domain/ports"
)

const (
	feedHandshakeTimeout = 10 * time.Second
	feedPongWait         = 60 * time.Second
	feedBuffer           = 64
)

// Feed implements ports.ChangeFeed over the service's /events websocket.
type Feed struct {
	url    string
	dialer *websocket.Dialer
	logger logrus.FieldLogger
}

// NewFeed creates a feed for the service at baseURL. A non-empty worldID
// asks the server to send only that world's events.
func NewFeed(baseURL, worldID string, logger logrus.FieldLogger) (*Feed, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("base url %q: unsupported scheme", baseURL)
	}
	u.Path += "/events"
	if worldID != "" {
		u.RawQuery = url.Values{"world_id": {worldID}}.Encode()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Feed{
		url:    u.String(),
		dialer: &websocket.Dialer{HandshakeTimeout: feedHandshakeTimeout},
		logger: logger,
	}, nil
}

// URL returns the websocket address.
func (f *Feed) URL() string {
	return f.url
}

// Subscribe connects and streams events until ctx is done or the
// connection drops. The channel is closed when the subscription ends.
func (f *Feed) Subscribe(ctx context.Context) (<-chan entities.ChangeEvent, error) {
	conn, _, err := f.dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: dialing %s: %v", ports.ErrNetwork, f.url, err)
	}

	events := make(chan entities.ChangeEvent, feedBuffer)
	done := make(chan struct{})

	// Closing the connection unblocks ReadJSON.
	go func() {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			conn.Close()
		case <-done:
		}
	}()

	go func() {
		defer close(events)
		defer close(done)
		defer conn.Close()

		conn.SetReadDeadline(time.Now().Add(feedPongWait))
		conn.SetPingHandler(func(data string) error {
			conn.SetReadDeadline(time.Now().Add(feedPongWait))
			return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
		})

		for {
			var ev entities.ChangeEvent
			if err := conn.ReadJSON(&ev); err != nil {
				if ctx.Err() == nil && websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					f.logger.WithError(err).Warn("change feed closed")
				}
				return
			}
			conn.SetReadDeadline(time.Now().Add(feedPongWait))
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, nil
}
