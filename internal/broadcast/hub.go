package broadcast

import (
	"context"

	"github.com/sirupsen/logrus"
)

// roomRequest - запрос на вход/выход клиента из комнаты инцидента
type roomRequest struct {
	client     *Client
	incidentID string
}

// Hub управляет подключенными WebSocket-клиентами и комнатами инцидентов.
// Все изменения реестра сериализуются через каналы в горутине Run,
// поэтому блокировки не нужны.
type Hub struct {
	logger *logrus.Logger

	clients map[*Client]bool
	rooms   map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	join       chan roomRequest
	leave      chan roomRequest
	events     chan Event
}

// NewHub создает новый Hub
func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		logger:     logger,
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		join:       make(chan roomRequest),
		leave:      make(chan roomRequest),
		events:     make(chan Event, 64),
	}
}

// Run запускает цикл обработки хаба, блокируется до отмены контекста
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("Broadcast hub started")
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("Broadcast hub stopped")
			for client := range h.clients {
				h.dropClient(client)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			h.logger.WithField("clients", len(h.clients)).Debug("Client connected")

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.dropClient(client)
				h.logger.WithField("clients", len(h.clients)).Debug("Client disconnected")
			}

		case req := <-h.join:
			room, ok := h.rooms[req.incidentID]
			if !ok {
				room = make(map[*Client]bool)
				h.rooms[req.incidentID] = room
			}
			// повторный join того же клиента не имеет эффекта
			room[req.client] = true

		case req := <-h.leave:
			if room, ok := h.rooms[req.incidentID]; ok {
				delete(room, req.client)
				if len(room) == 0 {
					delete(h.rooms, req.incidentID)
				}
			}

		case event := <-h.events:
			h.fanOut(event)
		}
	}
}

// Broadcast ставит событие в очередь на рассылку.
// При переполненной очереди событие отбрасывается: доставка best-effort.
func (h *Hub) Broadcast(event Event) {
	select {
	case h.events <- event:
	default:
		h.logger.WithField("event", event.Type).Warn("Hub event queue full, dropping event")
	}
}

// Join добавляет клиента в комнату инцидента
func (h *Hub) Join(client *Client, incidentID string) {
	h.join <- roomRequest{client: client, incidentID: incidentID}
}

// Leave убирает клиента из комнаты инцидента
func (h *Hub) Leave(client *Client, incidentID string) {
	h.leave <- roomRequest{client: client, incidentID: incidentID}
}

// fanOut доставляет событие всем подключенным клиентам, а затем повторно
// участникам комнаты инцидента. Подписчик комнаты получает событие дважды —
// семантика at-least-once, дедупликация остается на стороне клиента.
func (h *Hub) fanOut(event Event) {
	frame, err := event.Frame()
	if err != nil {
		h.logger.WithError(err).Error("Failed to marshal event frame")
		return
	}

	for client := range h.clients {
		h.send(client, frame)
	}

	roomID := event.RoomID()
	if roomID == "" {
		return
	}
	for client := range h.rooms[roomID] {
		h.send(client, frame)
	}
}

// send пишет кадр в буфер клиента, отбрасывая медленного клиента при переполнении
func (h *Hub) send(client *Client, frame []byte) {
	select {
	case client.send <- frame:
	default:
		h.logger.Warn("Client send buffer full, dropping client")
		h.dropClient(client)
	}
}

// dropClient убирает клиента из реестра и всех комнат, закрывает его канал отправки
func (h *Hub) dropClient(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	for incidentID, room := range h.rooms {
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, incidentID)
		}
	}
	close(client.send)
}
