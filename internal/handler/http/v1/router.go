package v1

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes регистрирует все маршруты API v1
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	incidents := api.Group("/incidents")
	{
		incidents.POST("", h.createIncident)
		incidents.GET("", h.listIncidents)
		// статические маршруты должны стоять раньше /:id
		incidents.GET("/nearby", h.getNearbyIncidents)
		incidents.GET("/stats", h.getStats)
		incidents.GET("/:id", h.getIncident)
		incidents.PATCH("/:id/status", h.updateIncidentStatus)
		incidents.DELETE("/:id", h.deleteIncident)
	}
}

// RegisterSystemRoutes регистрирует системные маршруты вне версии API
func (h *Handler) RegisterSystemRoutes(r gin.IRouter) {
	r.GET("/health", h.healthCheck)
}
