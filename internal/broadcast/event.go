package broadcast

import (
	"encoding/json"

	"github.com/shenikar/incident_reporting_system/internal/models"
)

// Типы событий жизненного цикла, доставляемые подписчикам
const (
	EventIncidentNew    = "incident:new"
	EventIncidentUpdate = "incident:update"
	EventIncidentDelete = "incident:delete"
)

// Event - событие жизненного цикла инцидента.
// Для new/update заполнен Incident, для delete — только IncidentID.
type Event struct {
	Type       string           `json:"event"`
	Incident   *models.Incident `json:"incident,omitempty"`
	IncidentID string           `json:"incidentId,omitempty"`
}

// RoomID возвращает идентификатор комнаты инцидента, к которому относится событие
func (e Event) RoomID() string {
	if e.IncidentID != "" {
		return e.IncidentID
	}
	if e.Incident != nil {
		return e.Incident.ID.String()
	}
	return ""
}

// Frame сериализует событие в кадр для отправки клиенту.
// Формат кадра: {"event": "...", "data": {...}}
func (e Event) Frame() ([]byte, error) {
	payload := map[string]any{}
	switch e.Type {
	case EventIncidentDelete:
		payload["incidentId"] = e.RoomID()
	default:
		payload["incident"] = e.Incident
	}
	return json.Marshal(map[string]any{
		"event": e.Type,
		"data":  payload,
	})
}

// ControlMessage - управляющее сообщение от клиента (join/leave комнаты)
type ControlMessage struct {
	Event      string `json:"event"`
	IncidentID string `json:"incidentId"`
}

// Управляющие команды клиента
const (
	ControlJoinIncident  = "join:incident"
	ControlLeaveIncident = "leave:incident"
)
