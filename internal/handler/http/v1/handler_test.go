package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/shenikar/incident_reporting_system/internal/config"
	"github.com/shenikar/incident_reporting_system/internal/models"
	"github.com/shenikar/incident_reporting_system/internal/service/mocks"
	"github.com/shenikar/incident_reporting_system/pkg/e"
)

// newTestHandler создает новый экземпляр Handler с мокированным сервисом
func newTestHandler(t *testing.T) (*Handler, *mocks.MockIncidentService, *gin.Engine) {
	ctrl := gomock.NewController(t)
	mockService := mocks.NewMockIncidentService(ctrl)

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	cfg := &config.Config{
		NearbyDefaultRadiusKm: 5,
		NearbyMaxResults:      10,
	}

	handler := NewHandler(mockService, logger, cfg)

	// Настройка Gin роутера для тестов
	gin.SetMode(gin.TestMode)
	router := gin.New()
	api := router.Group("/api/v1")
	handler.RegisterRoutes(api)
	handler.RegisterSystemRoutes(router)

	return handler, mockService, router
}

// makeRequest - вспомогательная функция для выполнения HTTP-запросов
func makeRequest(router *gin.Engine, method, url string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, url, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func newCreateRequest() CreateIncidentRequest {
	return CreateIncidentRequest{
		Title:       "Warehouse fire",
		Description: "Heavy smoke near the docks",
		Category:    models.CategoryFire,
		Severity:    5,
		Location: LocationDTO{
			Type:        "Point",
			Coordinates: []float64{-74.0, 40.71},
		},
		Media: []string{"photo1.jpg"},
	}
}

func TestCreateIncident_Success(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	incidentID := uuid.New()
	reqBody := newCreateRequest()
	reqBody.Status = "verified" // должен игнорироваться

	mockService.EXPECT().
		CreateIncident(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, inc *models.Incident) error {
			assert.Equal(t, -74.0, inc.Longitude)
			assert.Equal(t, 40.71, inc.Latitude)
			inc.ID = incidentID
			inc.Status = models.StatusPending
			inc.CreatedAt = time.Now()
			inc.UpdatedAt = inc.CreatedAt
			return nil
		}).Times(1)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/incidents", bytes.NewBuffer(bodyBytes))

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Success bool             `json:"success"`
		Data    IncidentResponse `json:"data"`
	}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, incidentID, resp.Data.ID)
	assert.Equal(t, models.StatusPending, resp.Data.Status)
	// порядок координат [lng, lat] сохранен в ответе
	assert.Equal(t, []float64{-74.0, 40.71}, resp.Data.Location.Coordinates)
}

func TestCreateIncident_InvalidJSON(t *testing.T) {
	_, mockService, router := newTestHandler(t)

	mockService.EXPECT().CreateIncident(gomock.Any(), gomock.Any()).Times(0) // Сервис не должен вызываться

	w := makeRequest(router, "POST", "/api/v1/incidents", bytes.NewBufferString(`{"title": "test"`))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Missing required fields")
}

func TestCreateIncident_MissingFields(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	reqBody := newCreateRequest()
	reqBody.Description = "" // Отсутствует обязательное поле

	mockService.EXPECT().CreateIncident(gomock.Any(), gomock.Any()).Times(0)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/incidents", bytes.NewBuffer(bodyBytes))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Missing required fields")
	assert.Contains(t, w.Body.String(), `"success":false`)
}

func TestCreateIncident_SeverityOutOfRange(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	reqBody := newCreateRequest()
	reqBody.Severity = 6

	mockService.EXPECT().CreateIncident(gomock.Any(), gomock.Any()).Times(0)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/incidents", bytes.NewBuffer(bodyBytes))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateIncident_UnknownCategory(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	reqBody := newCreateRequest()
	reqBody.Category = "Flood"

	mockService.EXPECT().CreateIncident(gomock.Any(), gomock.Any()).Times(0)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/incidents", bytes.NewBuffer(bodyBytes))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListIncidents_ParsesFilters(t *testing.T) {
	_, mockService, router := newTestHandler(t)

	mockService.EXPECT().
		ListIncidents(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, filter models.IncidentFilter) ([]*models.Incident, error) {
			assert.Equal(t, models.CategoryFire, filter.Category)
			assert.Equal(t, models.StatusPending, filter.Status)
			require.NotNil(t, filter.MinSeverity)
			assert.Equal(t, 2, *filter.MinSeverity)
			assert.Nil(t, filter.Severity)
			return []*models.Incident{{Category: models.CategoryFire}}, nil
		}).Times(1)

	w := makeRequest(router, "GET", "/api/v1/incidents?category=Fire&status=pending&minSeverity=2", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":1`)
	assert.Contains(t, w.Body.String(), `"success":true`)
}

func TestListIncidents_Empty(t *testing.T) {
	_, mockService, router := newTestHandler(t)

	mockService.EXPECT().
		ListIncidents(gomock.Any(), models.IncidentFilter{}).
		Return([]*models.Incident{}, nil).
		Times(1)

	w := makeRequest(router, "GET", "/api/v1/incidents", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":0`)
	assert.Contains(t, w.Body.String(), `"data":[]`)
}

func TestGetNearby_MissingCoordinates(t *testing.T) {
	_, mockService, router := newTestHandler(t)

	mockService.EXPECT().FindNearby(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	w := makeRequest(router, "GET", "/api/v1/incidents/nearby?lat=40.71", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Longitude and latitude are required")
}

func TestGetNearby_DefaultRadius(t *testing.T) {
	_, mockService, router := newTestHandler(t)

	// без параметра radius используется значение по умолчанию из конфигурации
	mockService.EXPECT().
		FindNearby(gomock.Any(), -74.0, 40.71, 5.0).
		Return([]*models.Incident{}, nil).
		Times(1)

	w := makeRequest(router, "GET", "/api/v1/incidents/nearby?lng=-74.0&lat=40.71", nil)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetNearby_Success(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	incident := &models.Incident{
		ID:        uuid.New(),
		Title:     "Warehouse fire",
		Category:  models.CategoryFire,
		Severity:  5,
		Status:    models.StatusPending,
		Longitude: -74.0,
		Latitude:  40.71,
	}

	mockService.EXPECT().
		FindNearby(gomock.Any(), -74.0, 40.71, 1.0).
		Return([]*models.Incident{incident}, nil).
		Times(1)

	w := makeRequest(router, "GET", "/api/v1/incidents/nearby?lng=-74.0&lat=40.71&radius=1", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":1`)
	assert.Contains(t, w.Body.String(), incident.ID.String())
}

func TestGetIncident_Success(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	incidentID := uuid.New()
	incident := &models.Incident{ID: incidentID, Title: "Accident on the bridge", Status: models.StatusVerified}

	mockService.EXPECT().
		GetIncident(gomock.Any(), incidentID).
		Return(incident, nil).
		Times(1)

	w := makeRequest(router, "GET", "/api/v1/incidents/"+incidentID.String(), nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), incidentID.String())
}

func TestGetIncident_NotFound(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	incidentID := uuid.New()

	mockService.EXPECT().
		GetIncident(gomock.Any(), incidentID).
		Return(nil, fmt.Errorf("service: %w", e.ErrNotFound)).
		Times(1)

	w := makeRequest(router, "GET", "/api/v1/incidents/"+incidentID.String(), nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Incident not found")
}

func TestUpdateStatus_Success(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	incidentID := uuid.New()
	updated := &models.Incident{ID: incidentID, Status: models.StatusVerified}

	mockService.EXPECT().
		UpdateIncidentStatus(gomock.Any(), incidentID, models.StatusVerified).
		Return(updated, nil).
		Times(1)

	body := bytes.NewBufferString(`{"status": "verified"}`)
	w := makeRequest(router, "PATCH", "/api/v1/incidents/"+incidentID.String()+"/status", body)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"verified"`)
}

func TestUpdateStatus_InvalidStatus(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	incidentID := uuid.New()

	mockService.EXPECT().
		UpdateIncidentStatus(gomock.Any(), incidentID, "archived").
		Return(nil, fmt.Errorf("service: %w", e.ErrInvalidStatus)).
		Times(1)

	body := bytes.NewBufferString(`{"status": "archived"}`)
	w := makeRequest(router, "PATCH", "/api/v1/incidents/"+incidentID.String()+"/status", body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid status. Must be: pending, verified, or resolved")
}

func TestUpdateStatus_NotFound(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	incidentID := uuid.New()

	mockService.EXPECT().
		UpdateIncidentStatus(gomock.Any(), incidentID, models.StatusResolved).
		Return(nil, fmt.Errorf("service: %w", e.ErrNotFound)).
		Times(1)

	body := bytes.NewBufferString(`{"status": "resolved"}`)
	w := makeRequest(router, "PATCH", "/api/v1/incidents/"+incidentID.String()+"/status", body)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteIncident_Success(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	incidentID := uuid.New()
	deleted := &models.Incident{ID: incidentID, Title: "Removed report"}

	mockService.EXPECT().
		DeleteIncident(gomock.Any(), incidentID).
		Return(deleted, nil).
		Times(1)

	w := makeRequest(router, "DELETE", "/api/v1/incidents/"+incidentID.String(), nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Incident deleted successfully")
	assert.Contains(t, w.Body.String(), incidentID.String())
}

func TestDeleteIncident_NotFound(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	incidentID := uuid.New()

	mockService.EXPECT().
		DeleteIncident(gomock.Any(), incidentID).
		Return(nil, fmt.Errorf("service: %w", e.ErrNotFound)).
		Times(1)

	w := makeRequest(router, "DELETE", "/api/v1/incidents/"+incidentID.String(), nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteIncident_ServiceError(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	incidentID := uuid.New()

	mockService.EXPECT().
		DeleteIncident(gomock.Any(), incidentID).
		Return(nil, errors.New("db down")).
		Times(1)

	w := makeRequest(router, "DELETE", "/api/v1/incidents/"+incidentID.String(), nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"success":false`)
}

func TestGetStats_Success(t *testing.T) {
	_, mockService, router := newTestHandler(t)

	mockService.EXPECT().
		GetStats(gomock.Any()).
		Return(&models.IncidentStats{Total: 7}, nil).
		Times(1)

	w := makeRequest(router, "GET", "/api/v1/incidents/stats", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":7`)
}

func TestHealthCheck(t *testing.T) {
	_, _, router := newTestHandler(t)

	w := makeRequest(router, "GET", "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"OK"`)
}
