package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/shenikar/incident_reporting_system/internal/config"
	"github.com/shenikar/incident_reporting_system/internal/models"
	"github.com/shenikar/incident_reporting_system/internal/service"
	"github.com/shenikar/incident_reporting_system/pkg/e"
)

type Handler struct {
	incidentService service.IncidentService
	logger          *logrus.Logger
	validate        *validator.Validate
	cfg             *config.Config
}

func NewHandler(incidentService service.IncidentService, logger *logrus.Logger, cfg *config.Config) *Handler {
	return &Handler{
		incidentService: incidentService,
		logger:          logger,
		validate:        validator.New(),
		cfg:             cfg,
	}
}

// respondError мапит сентинельные ошибки сервиса на HTTP-статусы
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, e.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Success: false, Message: "Incident not found"})
	case errors.Is(err, e.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, ErrorResponse{Success: false, Message: "Invalid status. Must be: pending, verified, or resolved"})
	case errors.Is(err, e.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, ErrorResponse{Success: false, Message: "Invalid input"})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Success: false, Message: "Internal server error"})
	}
}

// @Summary Report a new incident
// @Description Create a new incident report. Status is always forced to pending.
// @Tags Incidents
// @Accept json
// @Produce json
// @Param incident body CreateIncidentRequest true "Incident report"
// @Success 201 {object} DataResponse
// @Failure 400 {object} ErrorResponse "Missing required fields"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /incidents [post]
func (h *Handler) createIncident(c *gin.Context) {
	var input CreateIncidentRequest
	log := h.logger.WithField("method", "createIncident")

	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, ErrorResponse{Success: false, Message: "Missing required fields"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, ErrorResponse{Success: false, Message: "Missing required fields"})
		return
	}

	lng, lat := input.Location.Coordinates[0], input.Location.Coordinates[1]
	if lng < -180 || lng > 180 || lat < -90 || lat > 90 {
		log.Warn("Coordinates out of range")
		c.JSON(http.StatusBadRequest, ErrorResponse{Success: false, Message: "Invalid coordinates"})
		return
	}

	model := DTOToIncidentModel(input)
	if err := h.incidentService.CreateIncident(c.Request.Context(), model); err != nil {
		log.WithError(err).Error("Failed to create incident in service")
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, DataResponse{Success: true, Data: ModelToIncidentResponse(model)})
}

// @Summary List incidents
// @Description Get all incidents with optional conjunctive filters, newest first.
// @Tags Incidents
// @Accept json
// @Produce json
// @Param category query string false "Exact category match" Enums(Fire, Accident, Crime, Disaster)
// @Param status query string false "Exact status match" Enums(pending, verified, resolved)
// @Param severity query int false "Exact severity match, takes precedence over min/max"
// @Param minSeverity query int false "Minimum severity"
// @Param maxSeverity query int false "Maximum severity"
// @Success 200 {object} ListDataResponse
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /incidents [get]
func (h *Handler) listIncidents(c *gin.Context) {
	log := h.logger.WithField("method", "listIncidents")

	filter := models.IncidentFilter{
		Category: c.Query("category"),
		Status:   c.Query("status"),
	}
	filter.Severity = intQuery(c, "severity")
	filter.MinSeverity = intQuery(c, "minSeverity")
	filter.MaxSeverity = intQuery(c, "maxSeverity")

	incidents, err := h.incidentService.ListIncidents(c.Request.Context(), filter)
	if err != nil {
		log.WithError(err).Error("Failed to list incidents from service")
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ListDataResponse{
		Success: true,
		Count:   len(incidents),
		Data:    ModelsToIncidentResponses(incidents),
	})
}

// @Summary Get nearby incidents
// @Description Find incidents within a radius of a point, nearest first, capped at 10.
// @Tags Incidents
// @Accept json
// @Produce json
// @Param lng query number true "Longitude of the center point"
// @Param lat query number true "Latitude of the center point"
// @Param radius query number false "Radius in kilometers" default(5)
// @Success 200 {object} ListDataResponse
// @Failure 400 {object} ErrorResponse "Longitude and latitude are required"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /incidents/nearby [get]
func (h *Handler) getNearbyIncidents(c *gin.Context) {
	log := h.logger.WithField("method", "getNearbyIncidents")

	lngStr, latStr := c.Query("lng"), c.Query("lat")
	if lngStr == "" || latStr == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Success: false, Message: "Longitude and latitude are required"})
		return
	}

	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Success: false, Message: "Longitude and latitude are required"})
		return
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Success: false, Message: "Longitude and latitude are required"})
		return
	}

	radius := h.cfg.NearbyDefaultRadiusKm
	if radiusStr := c.Query("radius"); radiusStr != "" {
		if parsed, err := strconv.ParseFloat(radiusStr, 64); err == nil {
			radius = parsed
		}
	}

	incidents, err := h.incidentService.FindNearby(c.Request.Context(), lng, lat, radius)
	if err != nil {
		log.WithError(err).Error("Failed to find nearby incidents in service")
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ListDataResponse{
		Success: true,
		Count:   len(incidents),
		Data:    ModelsToIncidentResponses(incidents),
	})
}

// @Summary Get incident by ID
// @Description Get a single incident by its ID.
// @Tags Incidents
// @Accept json
// @Produce json
// @Param id path string true "Incident ID"
// @Success 200 {object} DataResponse
// @Failure 400 {object} ErrorResponse "Invalid incident ID"
// @Failure 404 {object} ErrorResponse "Incident not found"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /incidents/{id} [get]
func (h *Handler) getIncident(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Success: false, Message: "Incident not found"})
		return
	}
	log := h.logger.WithField("method", "getIncident").WithField("id", id)

	incident, err := h.incidentService.GetIncident(c.Request.Context(), id)
	if err != nil {
		log.WithError(err).Warn("Failed to get incident from service")
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, DataResponse{Success: true, Data: ModelToIncidentResponse(incident)})
}

// @Summary Update incident status
// @Description Set incident status to any value of the closed set. The transition graph is not guarded.
// @Tags Incidents
// @Accept json
// @Produce json
// @Param id path string true "Incident ID"
// @Param status body UpdateStatusRequest true "New status"
// @Success 200 {object} DataResponse
// @Failure 400 {object} ErrorResponse "Invalid status"
// @Failure 404 {object} ErrorResponse "Incident not found"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /incidents/{id}/status [patch]
func (h *Handler) updateIncidentStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Success: false, Message: "Incident not found"})
		return
	}
	log := h.logger.WithField("method", "updateIncidentStatus").WithField("id", id)

	var input UpdateStatusRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, ErrorResponse{Success: false, Message: "Invalid status. Must be: pending, verified, or resolved"})
		return
	}
	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, ErrorResponse{Success: false, Message: "Invalid status. Must be: pending, verified, or resolved"})
		return
	}

	incident, err := h.incidentService.UpdateIncidentStatus(c.Request.Context(), id, input.Status)
	if err != nil {
		log.WithError(err).Warn("Failed to update incident status in service")
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, DataResponse{Success: true, Data: ModelToIncidentResponse(incident)})
}

// @Summary Delete an incident
// @Description Hard-delete an incident by its ID.
// @Tags Incidents
// @Accept json
// @Produce json
// @Param id path string true "Incident ID"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} ErrorResponse "Incident not found"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /incidents/{id} [delete]
func (h *Handler) deleteIncident(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Success: false, Message: "Incident not found"})
		return
	}
	log := h.logger.WithField("method", "deleteIncident").WithField("id", id)

	incident, err := h.incidentService.DeleteIncident(c.Request.Context(), id)
	if err != nil {
		log.WithError(err).Warn("Failed to delete incident in service")
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{
		Success: true,
		Message: "Incident deleted successfully",
		Data:    ModelToIncidentResponse(incident),
	})
}

// @Summary Get incident statistics
// @Description Get incident counts grouped by status and category.
// @Tags Admin
// @Accept json
// @Produce json
// @Success 200 {object} DataResponse
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /incidents/stats [get]
func (h *Handler) getStats(c *gin.Context) {
	log := h.logger.WithField("method", "getStats")

	stats, err := h.incidentService.GetStats(c.Request.Context())
	if err != nil {
		log.WithError(err).Error("Failed to get stats from service")
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, DataResponse{Success: true, Data: stats})
}

// @Summary Get application health status
// @Description Get health status of the application
// @Tags System
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string "Status OK"
// @Router /health [get]
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "OK"})
}

// intQuery читает необязательный целочисленный query-параметр
func intQuery(c *gin.Context, name string) *int {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &value
}
