package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/RDG-CONSULTORES/pollo-loco-tracking-gps-sub000/module/core/domain"
	"github.com/RDG-CONSULTORES/pollo-loco-tracking-gps-sub000/module/core/internal/repository/cache"
)

const (
	defaultLimit        = 50
	defaultEventsWindow = 24 * time.Hour
)

type statusService interface {
	Trackers(ctx context.Context) ([]domain.Tracker, error)
	Presence(ctx context.Context, trackerID string) (*domain.Presence, error)
	Visits(ctx context.Context, trackerID string, limit int) ([]domain.Visit, error)
	RecentEvents(ctx context.Context, since time.Time, limit int) ([]domain.GeofenceEvent, error)
	Zones() []domain.Zone
}

type StatusHandler struct {
	statusSvc statusService
}

func NewStatusHandler(statusSvc statusService) *StatusHandler {
	return &StatusHandler{statusSvc: statusSvc}
}

func (h *StatusHandler) Register(r *gin.RouterGroup) {
	r.GET("/trackers", h.GetTrackers)
	r.GET("/trackers/:tracker_id/presence", h.GetPresence)
	r.GET("/trackers/:tracker_id/visits", h.GetVisits)
	r.GET("/zones", h.GetZones)
	r.GET("/events", h.GetEvents)
}

func (h *StatusHandler) GetTrackers(c *gin.Context) {
	trackers, err := h.statusSvc.Trackers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch trackers"})
		return
	}
	c.JSON(http.StatusOK, trackers)
}

func (h *StatusHandler) GetPresence(c *gin.Context) {
	trackerID := c.Param("tracker_id")

	p, err := h.statusSvc.Presence(c.Request.Context(), trackerID)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no recent position for tracker"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch presence"})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *StatusHandler) GetVisits(c *gin.Context) {
	trackerID := c.Param("tracker_id")
	limit := queryInt(c, "limit", defaultLimit)

	visits, err := h.statusSvc.Visits(c.Request.Context(), trackerID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch visits"})
		return
	}
	c.JSON(http.StatusOK, visits)
}

func (h *StatusHandler) GetZones(c *gin.Context) {
	c.JSON(http.StatusOK, h.statusSvc.Zones())
}

func (h *StatusHandler) GetEvents(c *gin.Context) {
	limit := queryInt(c, "limit", defaultLimit)

	since := time.Now().Add(-defaultEventsWindow)
	if v := c.Query("since"); v != "" {
		sec, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid since parameter"})
			return
		}
		since = time.Unix(sec, 0)
	}

	events, err := h.statusSvc.RecentEvents(c.Request.Context(), since, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch events"})
		return
	}
	c.JSON(http.StatusOK, events)
}

func queryInt(c *gin.Context, name string, fallback int) int {
	v := c.Query(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
