package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/ersonp/realmforge/internal/domain/entities"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// feedConn pumps hub events to one websocket.
type feedConn struct {
	hub    *Hub
	conn   *websocket.Conn
	id     string
	events <-chan entities.ChangeEvent
	logger logrus.FieldLogger
}

// GetEvents upgrades to a websocket and streams change events, optionally
// limited to the world_id query parameter.
func (s *HTTPServer) GetEvents(w http.ResponseWriter, r *http.Request, vars map[string]string) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client.
		s.logger.WithError(err).Debug("websocket upgrade failed")
		return nil
	}

	worldID := r.URL.Query().Get("world_id")
	id, events := s.Hub.Register(worldID)
	fc := &feedConn{
		hub:    s.Hub,
		conn:   conn,
		id:     id,
		events: events,
		logger: s.logger.WithFields(logrus.Fields{"subscriber": id, "world": worldID}),
	}
	fc.logger.Info("change feed subscriber connected")

	go fc.writePump()
	go fc.readPump()
	return nil
}

// readPump discards client messages and keeps the read deadline fresh.
// It unregisters the subscriber when the connection ends.
func (c *feedConn) readPump() {
	defer func() {
		c.hub.Unregister(c.id)
		c.conn.Close()
		c.logger.Info("change feed subscriber disconnected")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.WithError(err).Warn("failed to set read deadline")
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.WithError(err).Warn("change feed read error")
			}
			return
		}
	}
}

// writePump sends events and periodic pings.
func (c *feedConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.events:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteJSON(ev); err != nil {
				c.logger.WithError(err).Debug("write event failed")
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.WithError(err).Debug("ping failed")
				return
			}
		}
	}
}
