package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mr1hm/go-disaster-dashboard/internal/catalog"
	"github.com/mr1hm/go-disaster-dashboard/internal/dashboard"
	"github.com/mr1hm/go-disaster-dashboard/internal/geolocation"
	"github.com/mr1hm/go-disaster-dashboard/internal/mapview"
	"github.com/mr1hm/go-disaster-dashboard/internal/metrics"
	"github.com/mr1hm/go-disaster-dashboard/internal/models"
	"github.com/mr1hm/go-disaster-dashboard/internal/repository"
)

// Dashboard is the session surface behind the /api/sessions routes.
type Dashboard interface {
	Create() dashboard.Snapshot
	Snapshot(id string) (dashboard.Snapshot, error)
	Close(id string) error
	Search(term string) ([]models.NamedLocation, bool)
	SearchSession(id, term string) ([]models.NamedLocation, bool, error)
	Select(id, name, region string) (dashboard.Snapshot, error)
	SetFilter(id string, f dashboard.Filter) (dashboard.Snapshot, error)
	SetLayer(id, key string, enabled bool) (dashboard.Snapshot, error)
	ReportPosition(id string, pos models.UserPosition) error
	ReportError(id string, code int, message string) error
}

type Store interface {
	repository.ZoneRepository
	repository.FacilityRepository
	Ping(ctx context.Context) error
}

type Handler struct {
	sessions Dashboard
	store    Store
	catalog  *catalog.Catalog
	metrics  *metrics.Collector
}

func NewHandler(sessions Dashboard, store Store, cat *catalog.Catalog, m *metrics.Collector) *Handler {
	return &Handler{
		sessions: sessions,
		store:    store,
		catalog:  cat,
		metrics:  m,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.health)
	if h.metrics != nil {
		r.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	}

	api := r.Group("/api")
	api.GET("/locations/search", h.searchLocations)
	api.GET("/zones", h.getZones)
	api.GET("/facilities", h.getFacilities)
	api.GET("/charts", h.getCharts)

	sessions := api.Group("/sessions")
	sessions.POST("", h.createSession)
	sessions.GET("/:id", h.getSession)
	sessions.DELETE("/:id", h.closeSession)
	sessions.GET("/:id/search", h.searchSession)
	sessions.POST("/:id/position", h.reportPosition)
	sessions.POST("/:id/selection", h.selectLocation)
	sessions.PUT("/:id/filter", h.setFilter)
	sessions.PUT("/:id/layers/:layer", h.setLayer)
	sessions.GET("/:id/map", h.getMap)
}

func (h *Handler) health(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) searchLocations(c *gin.Context) {
	q := c.Query("q")
	results, show := h.sessions.Search(q)
	c.JSON(http.StatusOK, gin.H{"results": results, "show_results": show})
}

func (h *Handler) searchSession(c *gin.Context) {
	results, show, err := h.sessions.SearchSession(c.Param("id"), c.Query("q"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results, "show_results": show})
}

func (h *Handler) createSession(c *gin.Context) {
	c.JSON(http.StatusCreated, h.sessions.Create())
}

func (h *Handler) getSession(c *gin.Context) {
	snap, err := h.sessions.Snapshot(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *Handler) closeSession(c *gin.Context) {
	if err := h.sessions.Close(c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type positionRequest struct {
	Latitude  *float64       `json:"latitude" binding:"omitempty,gte=-90,lte=90"`
	Longitude *float64       `json:"longitude" binding:"omitempty,gte=-180,lte=180"`
	Error     *positionError `json:"error"`
}

type positionError struct {
	Code    int    `json:"code" binding:"gte=0,lte=3"`
	Message string `json:"message"`
}

// reportPosition accepts the browser's one-shot geolocation outcome: either
// a fix or the error it raised.
func (h *Handler) reportPosition(c *gin.Context) {
	var req positionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := c.Param("id")
	var err error
	switch {
	case req.Error != nil:
		err = h.sessions.ReportError(id, req.Error.Code, req.Error.Message)
	case req.Latitude != nil && req.Longitude != nil:
		err = h.sessions.ReportPosition(id, models.UserPosition{Latitude: *req.Latitude, Longitude: *req.Longitude})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "latitude and longitude, or error, are required"})
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

type selectionRequest struct {
	Name   string `json:"name" binding:"required"`
	Region string `json:"region" binding:"required"`
}

func (h *Handler) selectLocation(c *gin.Context) {
	var req selectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	snap, err := h.sessions.Select(c.Param("id"), req.Name, req.Region)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

type filterRequest struct {
	Type string `json:"type"`
}

func (h *Handler) setFilter(c *gin.Context) {
	var req filterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	f, err := dashboard.ParseFilter(req.Type)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	snap, err := h.sessions.SetFilter(c.Param("id"), f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

type layerRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

func (h *Handler) setLayer(c *gin.Context) {
	var req layerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	snap, err := h.sessions.SetLayer(c.Param("id"), c.Param("layer"), *req.Enabled)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap.Layers)
}

type mapResponse struct {
	View       mapview.View          `json:"view"`
	Zones      FeatureCollection     `json:"zones"`
	Facilities FeatureCollection     `json:"facilities"`
	UserMarker *dashboard.UserMarker `json:"user_marker,omitempty"`
}

func (h *Handler) getMap(c *gin.Context) {
	snap, err := h.sessions.Snapshot(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, mapResponse{
		View:       snap.Map,
		Zones:      zonesToGeoJSON(snap.Zones),
		Facilities: facilitiesToGeoJSON(snap.Facilities),
		UserMarker: snap.UserMarker,
	})
}

func (h *Handler) getZones(c *gin.Context) {
	filter := repository.ZoneFilter{}

	if t := c.Query("type"); t != "" {
		zt := models.ZoneType(strings.ToLower(t))
		if zt.Valid() {
			filter.Type = &zt
		}
	}
	if rl := c.Query("risk_level"); rl != "" {
		level := models.RiskLevel(strings.ToLower(rl))
		if level.Valid() {
			filter.RiskLevel = &level
		}
	}
	if mrl := c.Query("min_risk_level"); mrl != "" {
		level := models.RiskLevel(strings.ToLower(mrl))
		if level.Valid() {
			filter.MinRiskLevel = &level
		}
	}
	if l := c.Query("limit"); l != "" {
		if lim, err := strconv.Atoi(l); err == nil && lim > 0 && lim <= 500 {
			filter.Limit = lim
		}
	}

	zones, err := h.store.ListZones(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to fetch zones",
		})
		return
	}

	c.Header("Content-Type", "application/geo+json")
	c.JSON(http.StatusOK, zonesToGeoJSON(zones))
}

func (h *Handler) getFacilities(c *gin.Context) {
	filter := repository.FacilityFilter{}

	if t := c.Query("type"); t != "" {
		ft := models.FacilityType(strings.ToLower(t))
		if ft.Valid() {
			filter.Type = &ft
		}
	}

	facilities, err := h.store.ListFacilities(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to fetch facilities",
		})
		return
	}

	c.Header("Content-Type", "application/geo+json")
	c.JSON(http.StatusOK, facilitiesToGeoJSON(facilities))
}

func (h *Handler) getCharts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"stats":  h.catalog.Stats(),
		"charts": h.catalog.Charts(),
		"alerts": h.catalog.Alerts(),
	})
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, dashboard.ErrSessionNotFound),
		errors.Is(err, dashboard.ErrLocationNotFound),
		errors.Is(err, dashboard.ErrUnknownLayer):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, geolocation.ErrAlreadyReported),
		errors.Is(err, dashboard.ErrReportsNotAccepted):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
