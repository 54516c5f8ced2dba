package service

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/shenikar/incident_reporting_system/internal/broadcast"
	broadcast_mocks "github.com/shenikar/incident_reporting_system/internal/broadcast/mocks"
	"github.com/shenikar/incident_reporting_system/internal/config"
	"github.com/shenikar/incident_reporting_system/internal/models"
	"github.com/shenikar/incident_reporting_system/internal/service/mocks"
	"github.com/shenikar/incident_reporting_system/internal/webhook"
	webhook_mocks "github.com/shenikar/incident_reporting_system/internal/webhook/mocks"
	"github.com/shenikar/incident_reporting_system/pkg/e"
)

// newTestIncidentService — вспомогательная функция для создания инстанса сервиса с моками.
func newTestIncidentService(t *testing.T) (*incidentService, *mocks.MockIncidentRepository, *broadcast_mocks.MockPublisher, *webhook_mocks.MockWebhookPublisher) {
	ctrl := gomock.NewController(t)
	repoMock := mocks.NewMockIncidentRepository(ctrl)
	eventMock := broadcast_mocks.NewMockPublisher(ctrl)
	webhookMock := webhook_mocks.NewMockWebhookPublisher(ctrl)

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	cfg := &config.Config{
		NearbyDefaultRadiusKm: 5,
		NearbyMaxResults:      10,
	}

	svc := NewIncidentService(repoMock, logger, cfg, eventMock, webhookMock)
	return svc.(*incidentService), repoMock, eventMock, webhookMock
}

func TestCreateIncident_ForcesPendingStatus(t *testing.T) {
	// Подготовка
	svc, repoMock, eventMock, webhookMock := newTestIncidentService(t)
	ctx := context.Background()
	incident := &models.Incident{
		Title:       "Пожар на складе",
		Description: "Сильное задымление",
		Category:    models.CategoryFire,
		Severity:    5,
		Longitude:   -74.0,
		Latitude:    40.71,
		Status:      models.StatusVerified, // клиент пытается создать сразу verified
	}

	// Ожидания
	repoMock.EXPECT().
		Create(ctx, incident).
		DoAndReturn(func(_ context.Context, inc *models.Incident) error {
			inc.ID = uuid.New()
			return nil
		}).Times(1)
	eventMock.EXPECT().
		Publish(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, ev broadcast.Event) error {
			assert.Equal(t, broadcast.EventIncidentNew, ev.Type)
			require.NotNil(t, ev.Incident)
			assert.Equal(t, models.StatusPending, ev.Incident.Status)
			return nil
		}).Times(1)
	webhookMock.EXPECT().Publish(ctx, gomock.Any()).Return(nil).Times(1)

	// Действие
	err := svc.CreateIncident(ctx, incident)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, incident.Status)
	assert.NotNil(t, incident.Media)
}

func TestCreateIncident_RepositoryError(t *testing.T) {
	svc, repoMock, eventMock, webhookMock := newTestIncidentService(t)
	ctx := context.Background()
	incident := &models.Incident{Title: "Авария", Category: models.CategoryAccident, Severity: 2}

	repoMock.EXPECT().Create(ctx, incident).Return(errors.New("db down")).Times(1)
	// события не публикуются при ошибке записи
	eventMock.EXPECT().Publish(gomock.Any(), gomock.Any()).Times(0)
	webhookMock.EXPECT().Publish(gomock.Any(), gomock.Any()).Times(0)

	err := svc.CreateIncident(ctx, incident)
	require.Error(t, err)
}

func TestCreateIncident_PublishFailureDoesNotFailMutation(t *testing.T) {
	// Ошибки доставки событий логируются, но не откатывают мутацию
	svc, repoMock, eventMock, webhookMock := newTestIncidentService(t)
	ctx := context.Background()
	incident := &models.Incident{Title: "Кража", Category: models.CategoryCrime, Severity: 1}

	repoMock.EXPECT().Create(ctx, incident).Return(nil).Times(1)
	eventMock.EXPECT().Publish(ctx, gomock.Any()).Return(errors.New("redis down")).Times(1)
	webhookMock.EXPECT().Publish(ctx, gomock.Any()).Return(errors.New("redis down")).Times(1)

	err := svc.CreateIncident(ctx, incident)
	require.NoError(t, err)
}

func TestGetIncident_Success_FromCache(t *testing.T) {
	// Подготовка
	svc, repoMock, _, _ := newTestIncidentService(t)
	ctx := context.Background()
	incidentID := uuid.New()
	expectedIncident := &models.Incident{
		ID:    incidentID,
		Title: "Инцидент из кеша",
	}

	// Ожидания
	repoMock.EXPECT().
		GetIncidentFromCache(ctx, incidentID).
		Return(expectedIncident, nil).
		Times(1)

	// Действие
	incident, err := svc.GetIncident(ctx, incidentID)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, expectedIncident, incident)
}

func TestGetIncident_Success_FromDB(t *testing.T) {
	svc, repoMock, _, _ := newTestIncidentService(t)
	ctx := context.Background()
	incidentID := uuid.New()
	expectedIncident := &models.Incident{
		ID:    incidentID,
		Title: "Инцидент из БД",
	}

	// 1. Промах кеша
	repoMock.EXPECT().
		GetIncidentFromCache(ctx, incidentID).
		Return(nil, nil).
		Times(1)

	// 2. Попадание в БД
	repoMock.EXPECT().
		GetByID(ctx, incidentID).
		Return(expectedIncident, nil).
		Times(1)

	// 3. Запись в кеш
	repoMock.EXPECT().
		SetIncidentCache(ctx, expectedIncident).
		Return(nil).
		Times(1)

	incident, err := svc.GetIncident(ctx, incidentID)

	require.NoError(t, err)
	assert.Equal(t, expectedIncident, incident)
}

func TestGetIncident_NotFound(t *testing.T) {
	svc, repoMock, _, _ := newTestIncidentService(t)
	ctx := context.Background()
	incidentID := uuid.New()

	repoMock.EXPECT().GetIncidentFromCache(ctx, incidentID).Return(nil, nil).Times(1)
	repoMock.EXPECT().GetByID(ctx, incidentID).Return(nil, e.Wrap("repository.GetByID", e.ErrNotFound)).Times(1)

	incident, err := svc.GetIncident(ctx, incidentID)

	require.Error(t, err)
	assert.True(t, errors.Is(err, e.ErrNotFound))
	assert.Nil(t, incident)
}

func TestUpdateIncidentStatus_Success(t *testing.T) {
	// Подготовка
	svc, repoMock, eventMock, webhookMock := newTestIncidentService(t)
	ctx := context.Background()
	incidentID := uuid.New()
	updated := &models.Incident{
		ID:     incidentID,
		Title:  "Пожар",
		Status: models.StatusVerified,
	}

	// Ожидания
	repoMock.EXPECT().UpdateStatus(ctx, incidentID, models.StatusVerified).Return(updated, nil).Times(1)
	repoMock.EXPECT().InvalidateIncidentCache(ctx, incidentID).Return(nil).Times(1)
	eventMock.EXPECT().
		Publish(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, ev broadcast.Event) error {
			assert.Equal(t, broadcast.EventIncidentUpdate, ev.Type)
			assert.Equal(t, incidentID.String(), ev.RoomID())
			return nil
		}).Times(1)
	webhookMock.EXPECT().Publish(ctx, gomock.Any()).Return(nil).Times(1)

	// Действие
	incident, err := svc.UpdateIncidentStatus(ctx, incidentID, models.StatusVerified)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, models.StatusVerified, incident.Status)
}

func TestUpdateIncidentStatus_InvalidStatus(t *testing.T) {
	svc, repoMock, eventMock, webhookMock := newTestIncidentService(t)
	ctx := context.Background()

	// репозиторий и издатели не должны вызываться
	repoMock.EXPECT().UpdateStatus(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	eventMock.EXPECT().Publish(gomock.Any(), gomock.Any()).Times(0)
	webhookMock.EXPECT().Publish(gomock.Any(), gomock.Any()).Times(0)

	incident, err := svc.UpdateIncidentStatus(ctx, uuid.New(), "archived")

	require.Error(t, err)
	assert.True(t, errors.Is(err, e.ErrInvalidStatus))
	assert.Nil(t, incident)
}

func TestUpdateIncidentStatus_NotFound(t *testing.T) {
	svc, repoMock, eventMock, webhookMock := newTestIncidentService(t)
	ctx := context.Background()
	incidentID := uuid.New()

	repoMock.EXPECT().
		UpdateStatus(ctx, incidentID, models.StatusResolved).
		Return(nil, e.Wrap("repository.UpdateStatus", e.ErrNotFound)).
		Times(1)
	eventMock.EXPECT().Publish(gomock.Any(), gomock.Any()).Times(0)
	webhookMock.EXPECT().Publish(gomock.Any(), gomock.Any()).Times(0)

	incident, err := svc.UpdateIncidentStatus(ctx, incidentID, models.StatusResolved)

	require.Error(t, err)
	assert.True(t, errors.Is(err, e.ErrNotFound))
	assert.Nil(t, incident)
}

func TestDeleteIncident_Success_EventCarriesOnlyID(t *testing.T) {
	// Подготовка
	svc, repoMock, eventMock, webhookMock := newTestIncidentService(t)
	ctx := context.Background()
	incidentID := uuid.New()
	deleted := &models.Incident{ID: incidentID, Title: "Удаляемый инцидент"}

	// Ожидания
	repoMock.EXPECT().Delete(ctx, incidentID).Return(deleted, nil).Times(1)
	repoMock.EXPECT().InvalidateIncidentCache(ctx, incidentID).Return(nil).Times(1)
	eventMock.EXPECT().
		Publish(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, ev broadcast.Event) error {
			assert.Equal(t, broadcast.EventIncidentDelete, ev.Type)
			assert.Nil(t, ev.Incident) // подписчикам достаточно идентификатора
			assert.Equal(t, incidentID.String(), ev.IncidentID)
			return nil
		}).Times(1)
	webhookMock.EXPECT().
		Publish(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, ev webhook.WebhookEvent) error {
			assert.Equal(t, incidentID.String(), ev.IncidentID)
			return nil
		}).Times(1)

	// Действие
	incident, err := svc.DeleteIncident(ctx, incidentID)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, deleted, incident)
}

func TestDeleteIncident_NotFound(t *testing.T) {
	svc, repoMock, eventMock, webhookMock := newTestIncidentService(t)
	ctx := context.Background()
	incidentID := uuid.New()

	repoMock.EXPECT().
		Delete(ctx, incidentID).
		Return(nil, e.Wrap("repository.Delete", e.ErrNotFound)).
		Times(1)
	eventMock.EXPECT().Publish(gomock.Any(), gomock.Any()).Times(0)
	webhookMock.EXPECT().Publish(gomock.Any(), gomock.Any()).Times(0)

	incident, err := svc.DeleteIncident(ctx, incidentID)

	require.Error(t, err)
	assert.True(t, errors.Is(err, e.ErrNotFound))
	assert.Nil(t, incident)
}

func TestListIncidents_PassesFilter(t *testing.T) {
	svc, repoMock, _, _ := newTestIncidentService(t)
	ctx := context.Background()
	severity := 3
	filter := models.IncidentFilter{
		Category: models.CategoryFire,
		Status:   models.StatusPending,
		Severity: &severity,
	}
	expected := []*models.Incident{{Title: "Пожар", Category: models.CategoryFire}}

	repoMock.EXPECT().List(ctx, filter).Return(expected, nil).Times(1)

	incidents, err := svc.ListIncidents(ctx, filter)

	require.NoError(t, err)
	assert.Equal(t, expected, incidents)
}

func TestFindNearby_FiltersOutOfRadius(t *testing.T) {
	// Подготовка: индекс вернул запись за пределами радиуса, сервис ее отсекает
	svc, repoMock, _, _ := newTestIncidentService(t)
	ctx := context.Background()
	near := &models.Incident{Title: "Рядом", Latitude: 40.7101, Longitude: -74.0001}
	far := &models.Incident{Title: "Далеко", Latitude: 40.8, Longitude: -74.0}

	repoMock.EXPECT().
		FindNearby(ctx, -74.0, 40.71, 1.0, 10).
		Return([]*models.Incident{near, far}, nil).
		Times(1)

	incidents, err := svc.FindNearby(ctx, -74.0, 40.71, 1.0)

	require.NoError(t, err)
	require.Len(t, incidents, 1)
	assert.Equal(t, near, incidents[0])
}

func TestFindNearby_ZeroRadiusMatchesCoincidentPoint(t *testing.T) {
	svc, repoMock, _, _ := newTestIncidentService(t)
	ctx := context.Background()
	coincident := &models.Incident{Title: "В той же точке", Latitude: 40.71, Longitude: -74.0}

	repoMock.EXPECT().
		FindNearby(ctx, -74.0, 40.71, 0.0, 10).
		Return([]*models.Incident{coincident}, nil).
		Times(1)

	incidents, err := svc.FindNearby(ctx, -74.0, 40.71, 0)

	require.NoError(t, err)
	require.Len(t, incidents, 1)
}

func TestFindNearby_NegativeRadius(t *testing.T) {
	svc, repoMock, _, _ := newTestIncidentService(t)
	ctx := context.Background()

	repoMock.EXPECT().FindNearby(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	incidents, err := svc.FindNearby(ctx, -74.0, 40.71, -1)

	require.Error(t, err)
	assert.True(t, errors.Is(err, e.ErrInvalidInput))
	assert.Nil(t, incidents)
}

func TestGetStats_Success(t *testing.T) {
	svc, repoMock, _, _ := newTestIncidentService(t)
	ctx := context.Background()
	expected := &models.IncidentStats{
		Total:    4,
		ByStatus: []models.StatusCount{{Value: models.StatusPending, Count: 4}},
	}

	repoMock.EXPECT().GetStats(ctx).Return(expected, nil).Times(1)

	stats, err := svc.GetStats(ctx)

	require.NoError(t, err)
	assert.Equal(t, expected, stats)
}
