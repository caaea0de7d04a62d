package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/recitalsite/recital/backend/go-services/internal/identity"
)

// Probe reports whether a dependency is reachable.
type Probe func(ctx context.Context) error

// HealthHandler serves liveness and readiness.
type HealthHandler struct {
	boot    *identity.Bootstrapper
	probes  map[string]Probe
	started time.Time
}

// NewHealthHandler builds the readiness check from the bootstrapper and
// named dependency probes. A nil probe marks a dependency as not configured.
func NewHealthHandler(boot *identity.Bootstrapper, probes map[string]Probe) *HealthHandler {
	return &HealthHandler{boot: boot, probes: probes, started: time.Now()}
}

func (h *HealthHandler) Register(r gin.IRoutes) {
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})
	r.GET("/ready", h.Ready)
}

// Ready returns 200 once the identity is resolved and every configured
// dependency answers.
func (h *HealthHandler) Ready(c *gin.Context) {
	ready := true
	deps := map[string]bool{}

	st := h.boot.Current()
	deps["identity"] = st.Ready
	if !st.Ready {
		ready = false
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	for name, probe := range h.probes {
		if probe == nil {
			continue
		}
		ok := probe(ctx) == nil
		deps[name] = ok
		if !ok {
			ready = false
		}
	}

	body := gin.H{"deps": deps, "uptime": time.Since(h.started).String()}
	if st.Ready && st.Identity != nil {
		body["degraded"] = st.Identity.Degraded()
	}
	if !ready {
		body["status"] = "not_ready"
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	body["status"] = "ready"
	c.JSON(http.StatusOK, body)
}
