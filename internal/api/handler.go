package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mr1hm/go-disaster-impact/internal/engineerr"
	"github.com/mr1hm/go-disaster-impact/internal/hotspot"
	"github.com/mr1hm/go-disaster-impact/internal/impact"
	"github.com/mr1hm/go-disaster-impact/internal/models"
)

const (
	defaultNearestLimit = 5
	defaultHistoryLimit = 20
	maxHistoryLimit     = 500
	maxDetections       = 10000
)

// AssessmentHistory lists previously recorded assessments, newest first.
type AssessmentHistory interface {
	ListAssessments(ctx context.Context, disasterID string, limit int) ([]models.ImpactAssessment, error)
}

type Handler struct {
	engine  *impact.Engine
	history AssessmentHistory
}

// NewHandler serves engine operations; history may be nil when assessments
// are not persisted.
func NewHandler(engine *impact.Engine, history AssessmentHistory) *Handler {
	return &Handler{
		engine:  engine,
		history: history,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/disasters/:id/impact", h.assess)
	r.GET("/disasters/:id/assessments", h.assessments)

	r.GET("/impact/population/:id", h.population)
	r.GET("/impact/evacuation-zones/:id", h.evacuationZones)
	r.GET("/impact/infrastructure/:id", h.infrastructure)

	r.GET("/infrastructure/nearest", h.nearest)

	r.GET("/analytics/hotspots/:type", h.hotspots)
	r.POST("/analytics/detections/cluster", h.clusterDetections)
}

func (h *Handler) health(c *gin.Context) {
	snap := h.engine.Snapshot()
	counts := snap.Counts()
	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"disasters":     counts.Disasters,
		"census_blocks": counts.CensusBlocks,
		"sites":         counts.Sites,
		"snapshot_at":   snap.BuiltAt(),
	})
}

func (h *Handler) assess(c *gin.Context) {
	a, err := h.engine.Assess(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *Handler) assessments(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "assessment history is not enabled"})
		return
	}

	limit := defaultHistoryLimit
	if l := c.Query("limit"); l != "" {
		lim, err := strconv.Atoi(l)
		if err != nil || lim < 1 || lim > maxHistoryLimit {
			writeError(c, engineerr.InvalidArgument("assessments", "limit must be in [1,%d]", maxHistoryLimit))
			return
		}
		limit = lim
	}

	id := c.Param("id")
	if _, ok := h.engine.Snapshot().Disaster(id); !ok {
		writeError(c, engineerr.NotFound("assessments", "disaster %q", id))
		return
	}

	list, err := h.history.ListAssessments(c.Request.Context(), id, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	if list == nil {
		list = []models.ImpactAssessment{}
	}
	c.JSON(http.StatusOK, gin.H{"disaster_id": id, "assessments": list})
}

func (h *Handler) population(c *gin.Context) {
	id := c.Param("id")
	res, err := h.engine.Population(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"disaster_id": id, "population": res})
}

func (h *Handler) evacuationZones(c *gin.Context) {
	id := c.Param("id")
	res, err := h.engine.EvacuationZones(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Type", "application/geo+json")
	c.JSON(http.StatusOK, zonesToGeoJSON(id, res.Zones))
}

func (h *Handler) infrastructure(c *gin.Context) {
	var radius float64
	if r := c.Query("radius"); r != "" {
		v, err := strconv.ParseFloat(r, 64)
		if err != nil || v <= 0 {
			writeError(c, engineerr.InvalidArgument("infrastructure", "radius must be a positive number of meters"))
			return
		}
		radius = v
	}

	id := c.Param("id")
	matches, err := h.engine.InfrastructureWithin(c.Request.Context(), id, radius, c.Query("type"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"disaster_id": id, "sites": impact.SiteDistances(matches)})
}

func (h *Handler) nearest(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil {
		writeError(c, engineerr.InvalidArgument("nearest", "lat and lng are required numbers"))
		return
	}

	limit := defaultNearestLimit
	if l := c.Query("limit"); l != "" {
		lim, err := strconv.Atoi(l)
		if err != nil {
			writeError(c, engineerr.InvalidArgument("nearest", "limit must be an integer"))
			return
		}
		limit = lim
	}

	matches, err := h.engine.Nearest(c.Request.Context(), orb.Point{lng, lat}, c.Query("type"), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sites": impact.SiteDistances(matches)})
}

func (h *Handler) hotspots(c *gin.Context) {
	k := hotspot.DefaultK
	if v := c.Query("clusters"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(c, engineerr.InvalidArgument("hotspots", "clusters must be an integer"))
			return
		}
		k = n
	}

	category := c.Param("type")
	clusters, err := h.engine.Hotspots(category, k)
	if err != nil {
		writeError(c, err)
		return
	}
	if clusters == nil {
		clusters = []models.ClusterResult{}
	}
	c.JSON(http.StatusOK, gin.H{"category": category, "clusters": clusters})
}

func (h *Handler) clusterDetections(c *gin.Context) {
	var detections []models.FireDetection
	if err := c.ShouldBindJSON(&detections); err != nil {
		writeError(c, engineerr.InvalidArgument("cluster detections", "invalid body: %v", err))
		return
	}
	if len(detections) > maxDetections {
		writeError(c, engineerr.InvalidArgument("cluster detections", "at most %d detections per request", maxDetections))
		return
	}

	disasters, err := h.engine.ClusterDetections(detections)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Type", "application/geo+json")
	c.JSON(http.StatusOK, disastersToGeoJSON(disasters))
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, engineerr.ErrInvalidArgument), errors.Is(err, engineerr.ErrInvalidGeometry):
		status = http.StatusBadRequest
	case errors.Is(err, engineerr.ErrNotFound):
		status = http.StatusNotFound
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
