package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/shenikar/incident_reporting_system/internal/broadcast"
	"github.com/shenikar/incident_reporting_system/internal/config"
	"github.com/shenikar/incident_reporting_system/internal/models"
	"github.com/shenikar/incident_reporting_system/internal/webhook"
	"github.com/shenikar/incident_reporting_system/pkg/e"
	"github.com/shenikar/incident_reporting_system/pkg/geo"
)

// IncidentRepository определяет контракт для работы с бд инцидентов
type IncidentRepository interface {
	Create(ctx context.Context, incident *models.Incident) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*models.Incident, error)
	Delete(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	List(ctx context.Context, filter models.IncidentFilter) ([]*models.Incident, error)
	FindNearby(ctx context.Context, lng, lat, radiusKm float64, limit int) ([]*models.Incident, error)
	GetStats(ctx context.Context) (*models.IncidentStats, error)

	GetIncidentFromCache(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	SetIncidentCache(ctx context.Context, incident *models.Incident) error
	InvalidateIncidentCache(ctx context.Context, id uuid.UUID) error
}

// IncidentService определяет контракт для бизнес-логики управления инцидентами
type IncidentService interface {
	CreateIncident(ctx context.Context, incident *models.Incident) error
	GetIncident(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	UpdateIncidentStatus(ctx context.Context, id uuid.UUID, status string) (*models.Incident, error)
	DeleteIncident(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	ListIncidents(ctx context.Context, filter models.IncidentFilter) ([]*models.Incident, error)
	FindNearby(ctx context.Context, lng, lat, radiusKm float64) ([]*models.Incident, error)
	GetStats(ctx context.Context) (*models.IncidentStats, error)
}

type incidentService struct {
	repo             IncidentRepository
	logger           *logrus.Logger
	cfg              *config.Config
	eventPublisher   broadcast.Publisher
	webhookPublisher webhook.WebhookPublisher
}

func NewIncidentService(
	repo IncidentRepository,
	logger *logrus.Logger,
	cfg *config.Config,
	eventPublisher broadcast.Publisher,
	webhookPublisher webhook.WebhookPublisher,
) IncidentService {
	return &incidentService{
		repo:             repo,
		logger:           logger,
		cfg:              cfg,
		eventPublisher:   eventPublisher,
		webhookPublisher: webhookPublisher,
	}
}

// CreateIncident создает инцидент.
// Статус всегда выставляется в pending, что бы ни прислал клиент.
func (s *incidentService) CreateIncident(ctx context.Context, incident *models.Incident) error {
	log := s.logger.WithFields(logrus.Fields{
		"service": "incident",
		"method":  "CreateIncident",
		"title":   incident.Title,
	})
	log.Info("Attempting to create a new incident")

	incident.Status = models.StatusPending
	if incident.Media == nil {
		incident.Media = []string{}
	}
	if err := s.repo.Create(ctx, incident); err != nil {
		log.WithError(err).Error("Failed to create incident in repository")
		return fmt.Errorf("service: could not create incident: %w", err)
	}

	s.notify(ctx, broadcast.EventIncidentNew, incident, incident.ID)

	log.WithField("incident_id", incident.ID).Info("Incident created successfully")
	return nil
}

// GetIncident получает инцидент по ID, сначала пробуя кэш
func (s *incidentService) GetIncident(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "GetIncident",
		"incident_id": id,
	})

	cached, err := s.repo.GetIncidentFromCache(ctx, id)
	if err != nil {
		// промах кэша не фатален, идем в бд
		log.WithError(err).Warn("Failed to read incident from cache")
	}
	if cached != nil {
		log.Debug("Incident served from cache")
		return cached, nil
	}

	incident, err := s.repo.GetByID(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Failed to get incident from repository")
		return nil, fmt.Errorf("service: could not get incident: %w", err)
	}

	if err := s.repo.SetIncidentCache(ctx, incident); err != nil {
		log.WithError(err).Warn("Failed to cache incident")
	}

	return incident, nil
}

// UpdateIncidentStatus устанавливает новый статус инцидента.
// Допустимо любое значение из закрытого набора, граф переходов не проверяется.
func (s *incidentService) UpdateIncidentStatus(ctx context.Context, id uuid.UUID, status string) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "UpdateIncidentStatus",
		"incident_id": id,
		"status":      status,
	})
	log.Info("Attempting to update incident status")

	if !models.IsValidStatus(status) {
		log.Warn("Rejected status outside the closed set")
		return nil, fmt.Errorf("service: status %q: %w", status, e.ErrInvalidStatus)
	}

	incident, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		log.WithError(err).Warn("Failed to update incident status in repository")
		return nil, fmt.Errorf("service: could not update incident status: %w", err)
	}

	if err := s.repo.InvalidateIncidentCache(ctx, id); err != nil {
		log.WithError(err).Warn("Failed to invalidate incident cache")
	}

	s.notify(ctx, broadcast.EventIncidentUpdate, incident, id)

	log.Info("Incident status updated successfully")
	return incident, nil
}

// DeleteIncident жестко удаляет инцидент
func (s *incidentService) DeleteIncident(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "DeleteIncident",
		"incident_id": id,
	})
	log.Info("Attempting to delete incident")

	incident, err := s.repo.Delete(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Failed to delete incident in repository")
		return nil, fmt.Errorf("service: could not delete incident: %w", err)
	}

	if err := s.repo.InvalidateIncidentCache(ctx, id); err != nil {
		log.WithError(err).Warn("Failed to invalidate incident cache")
	}

	// подписчикам достаточно идентификатора, тело не передаем
	s.notify(ctx, broadcast.EventIncidentDelete, nil, id)

	log.Info("Incident deleted successfully")
	return incident, nil
}

// ListIncidents возвращает инциденты по фильтрам, новые первыми
func (s *incidentService) ListIncidents(ctx context.Context, filter models.IncidentFilter) ([]*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "incident",
		"method":  "ListIncidents",
	})

	incidents, err := s.repo.List(ctx, filter)
	if err != nil {
		log.WithError(err).Error("Failed to list incidents from repository")
		return nil, fmt.Errorf("service: could not list incidents: %w", err)
	}

	log.WithField("count", len(incidents)).Debug("Incidents listed")
	return incidents, nil
}

// FindNearby находит инциденты в радиусе radiusKm километров от точки,
// ближайшие первыми, не больше настроенного лимита. Чтение без побочных эффектов.
func (s *incidentService) FindNearby(ctx context.Context, lng, lat, radiusKm float64) ([]*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "incident",
		"method":  "FindNearby",
		"lng":     lng,
		"lat":     lat,
		"radius":  radiusKm,
	})

	if radiusKm < 0 {
		return nil, fmt.Errorf("service: negative radius: %w", e.ErrInvalidInput)
	}

	incidents, err := s.repo.FindNearby(ctx, lng, lat, radiusKm, s.cfg.NearbyMaxResults)
	if err != nil {
		log.WithError(err).Error("Failed to find nearby incidents")
		return nil, fmt.Errorf("service: could not find nearby incidents: %w", err)
	}

	// Страховка поверх индекса: оставляем только записи внутри радиуса
	// по дуге большого круга.
	filtered := incidents[:0]
	for _, incident := range incidents {
		if geo.DistanceKm(lat, lng, incident.Latitude, incident.Longitude) <= radiusKm {
			filtered = append(filtered, incident)
		}
	}

	log.WithField("count", len(filtered)).Debug("Nearby incidents found")
	return filtered, nil
}

// GetStats возвращает сводку по инцидентам для админской панели
func (s *incidentService) GetStats(ctx context.Context) (*models.IncidentStats, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "incident",
		"method":  "GetStats",
	})

	stats, err := s.repo.GetStats(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to get incident stats")
		return nil, fmt.Errorf("service: could not get stats: %w", err)
	}
	return stats, nil
}

// notify рассылает событие жизненного цикла в канал реального времени и
// очередь вебхуков. Ошибки доставки только логируются: мутация уже применена
// и не откатывается из-за проблем нотификации.
func (s *incidentService) notify(ctx context.Context, eventType string, incident *models.Incident, id uuid.UUID) {
	event := broadcast.Event{
		Type:     eventType,
		Incident: incident,
	}
	if incident == nil {
		event.IncidentID = id.String()
	}
	if err := s.eventPublisher.Publish(ctx, event); err != nil {
		s.logger.WithError(err).WithField("event", eventType).Error("Failed to publish broadcast event")
	}

	if err := s.webhookPublisher.Publish(ctx, webhook.WebhookEvent{
		Type:       eventType,
		IncidentID: id.String(),
		Incident:   incident,
		Timestamp:  time.Now().UTC(),
	}); err != nil {
		s.logger.WithError(err).WithField("event", eventType).Error("Failed to enqueue webhook event")
	}
}
