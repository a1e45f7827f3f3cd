package statushttp

import (
	"net/http"
	"time"

	"github.com/husnusametd/spectra/internal/scanner"
	"github.com/husnusametd/spectra/internal/thresholds"
	"github.com/husnusametd/spectra/internal/walkforward"

	"github.com/gin-gonic/gin"
)

type ScanView interface {
	Latest() (scanner.Result, bool)
}

type WalkView interface {
	LatestWalk() (walkforward.Report, bool)
}

type ThresholdView interface {
	Snapshot() thresholds.Snapshot
}

// Router serves the /api group.
type Router struct {
	Scans      ScanView
	Walks      WalkView
	Thresholds ThresholdView
}

func (r *Router) Register(group *gin.RouterGroup) {
	group.GET("/scan/latest", r.scanLatest)
	group.GET("/walkforward/latest", r.walkLatest)
	group.GET("/thresholds", r.thresholds)
}

func (r *Router) scanLatest(c *gin.Context) {
	if r.Scans == nil {
		notFound(c, "scanner disabled")
		return
	}
	res, ok := r.Scans.Latest()
	if !ok {
		notFound(c, "no scan has completed yet")
		return
	}
	c.JSON(http.StatusOK, res)
}

func (r *Router) walkLatest(c *gin.Context) {
	if r.Walks == nil {
		notFound(c, "walk-forward disabled")
		return
	}
	rep, ok := r.Walks.LatestWalk()
	if !ok {
		notFound(c, "no walk-forward run yet")
		return
	}
	c.JSON(http.StatusOK, rep)
}

func (r *Router) thresholds(c *gin.Context) {
	if r.Thresholds == nil {
		notFound(c, "thresholds not loaded")
		return
	}
	snap := r.Thresholds.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"version":   snap.Version,
		"loaded_at": snap.LoadedAt.UTC().Format(time.RFC3339),
		"values":    snap.Values,
	})
}

func notFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, gin.H{"error": msg})
}
