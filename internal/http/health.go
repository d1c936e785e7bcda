package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookvault/internal/database"
)

type HealthResponse struct {
	Status  string            `json:"status"`
	Time    string            `json:"time"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
}

// BusyChecker reports whether a backup operation is running.
type BusyChecker interface {
	Busy() bool
}

type HealthController struct {
	db      *database.Database
	backups BusyChecker
	version string
}

func NewHealthController(db *database.Database, backups BusyChecker, version string) *HealthController {
	return &HealthController{
		db:      db,
		backups: backups,
		version: version,
	}
}

func (h *HealthController) Status(c *gin.Context) {
	checks := make(map[string]string)
	status := "healthy"

	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			checks["database"] = "error: " + err.Error()
			status = "unhealthy"
		} else {
			checks["database"] = "ok"
		}
	} else {
		checks["database"] = "not configured"
	}

	// A running backup does not make the service unhealthy.
	if h.backups != nil {
		if h.backups.Busy() {
			checks["backup"] = "running"
		} else {
			checks["backup"] = "idle"
		}
	}

	health := HealthResponse{
		Status:  status,
		Time:    time.Now().Format(time.RFC3339),
		Version: h.version,
		Checks:  checks,
	}

	statusCode := http.StatusOK
	if status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.IndentedJSON(statusCode, health)
}
