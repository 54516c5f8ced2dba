package models

import (
	"time"

	"github.com/google/uuid"
)

// Категории инцидентов (закрытый набор)
const (
	CategoryFire     = "Fire"
	CategoryAccident = "Accident"
	CategoryCrime    = "Crime"
	CategoryDisaster = "Disaster"
)

// Статусы жизненного цикла инцидента
const (
	StatusPending  = "pending"
	StatusVerified = "verified"
	StatusResolved = "resolved"
)

// Incident представляет одно сообщение о происшествии
type Incident struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Severity    int       `json:"severity"`
	Status      string    `json:"status"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Media       []string  `json:"media"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsValidStatus проверяет принадлежность статуса закрытому набору
func IsValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusVerified, StatusResolved:
		return true
	}
	return false
}

// IsValidCategory проверяет принадлежность категории закрытому набору
func IsValidCategory(category string) bool {
	switch category {
	case CategoryFire, CategoryAccident, CategoryCrime, CategoryDisaster:
		return true
	}
	return false
}

// IncidentFilter задает необязательные фильтры списка, объединяемые по AND.
// Точный фильтр Severity имеет приоритет над диапазоном MinSeverity/MaxSeverity.
type IncidentFilter struct {
	Category    string
	Status      string
	Severity    *int
	MinSeverity *int
	MaxSeverity *int
}

// StatusCount — счётчик инцидентов по одному значению статуса или категории
type StatusCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// IncidentStats — сводка для админской панели
type IncidentStats struct {
	Total      int           `json:"total"`
	ByStatus   []StatusCount `json:"by_status"`
	ByCategory []StatusCount `json:"by_category"`
}
