package broadcast

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// аутентификация подписчиков не предусмотрена, подключиться может любой
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWS возвращает gin-хэндлер, апгрейдящий соединение до WebSocket
// и регистрирующий клиента в хабе
func ServeWS(hub *Hub, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.WithError(err).Warn("Failed to upgrade websocket connection")
			return
		}

		client := newClient(hub, conn, logger)
		hub.register <- client

		go client.writePump()
		go client.readPump()
	}
}
