package broadcast

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	// writeWait - таймаут записи кадра клиенту
	writeWait = 10 * time.Second

	// pongWait - сколько ждем pong от клиента
	pongWait = 60 * time.Second

	// pingPeriod - период отправки ping, должен быть меньше pongWait
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize - лимит на размер управляющего сообщения от клиента
	maxMessageSize = 512
)

// Client - одно WebSocket-подключение подписчика
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	logger *logrus.Logger
	send   chan []byte
}

// newClient создает клиента с буферизованным каналом отправки
func newClient(hub *Hub, conn *websocket.Conn, logger *logrus.Logger) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		logger: logger,
		send:   make(chan []byte, 32),
	}
}

// readPump читает управляющие сообщения клиента (join/leave комнат).
// Членство в комнатах не сохраняется: при разрыве соединения оно сбрасывается.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.WithError(err).Debug("Unexpected websocket close")
			}
			return
		}

		var msg ControlMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.logger.WithError(err).Warn("Failed to parse control message")
			continue
		}

		switch msg.Event {
		case ControlJoinIncident:
			if msg.IncidentID != "" {
				c.hub.Join(c, msg.IncidentID)
			}
		case ControlLeaveIncident:
			if msg.IncidentID != "" {
				c.hub.Leave(c, msg.IncidentID)
			}
		default:
			c.logger.WithField("event", msg.Event).Debug("Unknown control message")
		}
	}
}

// writePump пишет кадры из буфера клиенту и поддерживает соединение ping-ами
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// хаб закрыл канал
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
