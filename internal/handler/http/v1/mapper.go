package v1

import "github.com/shenikar/incident_reporting_system/internal/models"

// DTOToIncidentModel преобразует DTO создания в доменную модель.
// Порядок координат [lng, lat] сохраняется насквозь.
func DTOToIncidentModel(dto CreateIncidentRequest) *models.Incident {
	return &models.Incident{
		Title:       dto.Title,
		Description: dto.Description,
		Category:    dto.Category,
		Severity:    dto.Severity,
		Longitude:   dto.Location.Coordinates[0],
		Latitude:    dto.Location.Coordinates[1],
		Media:       dto.Media,
	}
}

// ModelToIncidentResponse преобразует доменную модель в DTO для ответа
func ModelToIncidentResponse(model *models.Incident) *IncidentResponse {
	media := model.Media
	if media == nil {
		media = []string{}
	}
	return &IncidentResponse{
		ID:          model.ID,
		Title:       model.Title,
		Description: model.Description,
		Category:    model.Category,
		Severity:    model.Severity,
		Status:      model.Status,
		Location: LocationDTO{
			Type:        "Point",
			Coordinates: []float64{model.Longitude, model.Latitude},
		},
		Media:     media,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

// ModelsToIncidentResponses преобразует слайс моделей в слайс DTO
func ModelsToIncidentResponses(models []*models.Incident) []*IncidentResponse {
	responses := make([]*IncidentResponse, len(models))
	for i, model := range models {
		responses[i] = ModelToIncidentResponse(model)
	}
	return responses
}
