package v1

import (
	"time"

	"github.com/google/uuid"
)

// LocationDTO - географическая точка в формате GeoJSON.
// Координаты всегда в порядке [lng, lat].
type LocationDTO struct {
	Type        string    `json:"type" validate:"omitempty,oneof=Point"`
	Coordinates []float64 `json:"coordinates" validate:"required,len=2"`
}

// CreateIncidentRequest DTO для создания инцидента
// @Description DTO для создания инцидента
type CreateIncidentRequest struct {
	Title       string      `json:"title" validate:"required,min=2,max=255"`
	Description string      `json:"description" validate:"required"`
	Category    string      `json:"category" validate:"required,oneof=Fire Accident Crime Disaster"`
	Severity    int         `json:"severity" validate:"required,min=1,max=5"`
	Location    LocationDTO `json:"location" validate:"required"`
	Media       []string    `json:"media"`
	// Status игнорируется: новый инцидент всегда создается со статусом pending
	Status string `json:"status"`
}

// UpdateStatusRequest DTO для смены статуса инцидента
// @Description DTO для смены статуса инцидента
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// IncidentResponse DTO для ответа с информацией об инциденте
// @Description DTO для ответа с информацией об инциденте
type IncidentResponse struct {
	ID          uuid.UUID   `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Category    string      `json:"category"`
	Severity    int         `json:"severity"`
	Status      string      `json:"status"`
	Location    LocationDTO `json:"location"`
	Media       []string    `json:"media"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// DataResponse - конверт успешного ответа с одним объектом
type DataResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// ListDataResponse - конверт успешного ответа со списком
type ListDataResponse struct {
	Success bool `json:"success"`
	Count   int  `json:"count"`
	Data    any  `json:"data"`
}

// MessageResponse - конверт ответа с сообщением (удаление)
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// ErrorResponse - конверт ответа с ошибкой
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
