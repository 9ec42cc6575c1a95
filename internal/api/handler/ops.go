package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/greennav/greennav/internal/api/models"
	"github.com/greennav/greennav/internal/api/response"
	"github.com/greennav/greennav/internal/featureflags"
	"github.com/greennav/greennav/internal/provider/resilience"
)

// Welcome message of GET /.
const WelcomeMessage = "Welcome to GreenNav API - Data Integration & Logic Core Active"

// degradationFlags are the flags that put the service in a degraded mode when on.
var degradationFlags = []string{
	featureflags.FlagDisableLiveAQI,
	featureflags.FlagDisableDetourRouting,
	featureflags.FlagForceModelFallback,
}

// ReadinessCheck is a named dependency probe for GET /ops/ready.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// MetricsSource exposes a worker pool's counters.
type MetricsSource interface {
	MetricsSnapshot() map[string]interface{}
}

// FlagReader lists the current flag values.
type FlagReader interface {
	GetAllFlags(ctx context.Context) map[string]*featureflags.Flag
}

// OpsHandlerConfig holds configuration for OpsHandler.
type OpsHandlerConfig struct {
	Version   string
	BuildTime string
	ModelName string
	Registry  *resilience.Registry
	Flags     FlagReader
	Checks    []ReadinessCheck
	Pools     map[string]MetricsSource
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	cfg OpsHandlerConfig
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsHandlerConfig) *OpsHandler {
	return &OpsHandler{cfg: cfg}
}

// Root handles GET / - service banner.
func (h *OpsHandler) Root(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Welcome{
		Status:        "Online",
		Message:       WelcomeMessage,
		Documentation: "/docs",
	})
}

// Liveness handles GET /health. It never checks dependencies.
func (h *OpsHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Liveness{Status: "healthy"})
}

// ReadinessCheck handles GET /ops/ready - runs every dependency probe.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version": h.cfg.Version,
			"model":   h.cfg.ModelName,
		},
	}
	for _, c := range h.cfg.Checks {
		if err := c.Check(ctx); err != nil {
			health.Status = models.HealthStatusFail
			health.Details[c.Name] = err.Error()
			continue
		}
		health.Details[c.Name] = "ok"
	}

	status := http.StatusOK
	if health.Status == models.HealthStatusFail {
		status = http.StatusServiceUnavailable
	}
	response.JSON(w, r, status, health)
}

// SystemStatus handles GET /ops/status - provider circuits, degradation flags and pools.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:     models.HealthStatusOK,
		Time:       models.Timestamp(time.Now()),
		Subsystems: []models.SubsystemStatus{},
		Providers:  []models.ProviderStatus{},
	}

	for _, c := range h.cfg.Checks {
		sub := models.SubsystemStatus{Name: c.Name, Status: models.HealthStatusOK}
		if err := c.Check(r.Context()); err != nil {
			msg := err.Error()
			sub.Status, sub.Detail = models.HealthStatusFail, &msg
			status.Status = models.HealthStatusDegraded
		}
		status.Subsystems = append(status.Subsystems, sub)
	}

	if h.cfg.Registry != nil {
		for _, ph := range h.cfg.Registry.GetAllHealth() {
			ps := providerStatus(ph)
			if ps.Status != models.HealthStatusOK {
				status.Status = models.HealthStatusDegraded
			}
			status.Providers = append(status.Providers, ps)
		}
	}

	if h.cfg.Flags != nil {
		flags := h.cfg.Flags.GetAllFlags(r.Context())
		for _, key := range degradationFlags {
			if flags[key].BoolValue(false) {
				status.ActiveDegradationFlags = append(status.ActiveDegradationFlags, key)
			}
		}
		if len(status.ActiveDegradationFlags) > 0 {
			status.Status = models.HealthStatusDegraded
		}
	}

	if len(h.cfg.Pools) > 0 {
		names := make([]string, 0, len(h.cfg.Pools))
		for name := range h.cfg.Pools {
			names = append(names, name)
		}
		sort.Strings(names)
		status.Pools = make(map[string]interface{}, len(names))
		for _, name := range names {
			status.Pools[name] = h.cfg.Pools[name].MetricsSnapshot()
		}
	}

	response.JSON(w, r, http.StatusOK, status)
}

func providerStatus(ph *resilience.ProviderHealth) models.ProviderStatus {
	ps := models.ProviderStatus{
		Provider:     ph.Name,
		Status:       models.HealthStatusOK,
		CircuitState: ph.CircuitState.String(),
	}
	switch {
	case ph.IsUnhealthy():
		ps.Status = models.HealthStatusFail
	case ph.IsDegraded():
		ps.Status = models.HealthStatusDegraded
	}
	if ph.LastSuccessAt != nil {
		ts := models.Timestamp(*ph.LastSuccessAt)
		ps.LastSuccessAt = &ts
	}
	if ph.LastFailureAt != nil {
		ts := models.Timestamp(*ph.LastFailureAt)
		ps.LastFailureAt = &ts
	}
	if ph.LastError != "" {
		msg := ph.LastError
		ps.Message = &msg
	}
	return ps
}
