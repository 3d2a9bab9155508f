package http

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	domainwf "github.com/garyjia/kyc-review/internal/domain/workflow"
)

const healthTimeout = 2 * time.Second

// Handlers contains all HTTP request handlers
type Handlers struct {
	engine  *domainwf.Engine
	checks  map[string]HealthCheck
	version string
	logger  Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(engine *domainwf.Engine, checks map[string]HealthCheck, version string, logger Logger) *Handlers {
	return &Handlers{
		engine:  engine,
		checks:  checks,
		version: version,
		logger:  logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Version   string            `json:"version"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// TransitionResponse describes one catalog entry
type TransitionResponse struct {
	From               string   `json:"from"`
	To                 string   `json:"to"`
	RequiredConditions []string `json:"required_conditions"`
	AllowedRoles       []string `json:"allowed_roles"`
}

// NextStatesResponse lists the states reachable in one step
type NextStatesResponse struct {
	State    string   `json:"state"`
	Terminal bool     `json:"terminal"`
	Next     []string `json:"next"`
}

// HealthCheck handles GET /health. Any failing dependency turns the status to degraded with 503.
func (h *Handlers) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	status := "healthy"
	code := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.logger.Error("Health check failed", "check", name, "error", err)
			results[name] = err.Error()
			status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	c.JSON(code, Response{
		Success: code == http.StatusOK,
		Data: HealthResponse{
			Status:    status,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   h.version,
			Checks:    results,
		},
	})
}

// ListTransitions handles GET /api/v1/workflow/transitions.
// An optional ?role= keeps only entries that role may perform.
func (h *Handlers) ListTransitions(c *gin.Context) {
	role := domainwf.Role(c.Query("role"))

	var out []TransitionResponse
	for _, t := range h.engine.Catalog().Transitions() {
		if role != "" && !t.AllowsRole(role) {
			continue
		}
		out = append(out, toTransitionResponse(t))
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: out})
}

// NextStates handles GET /api/v1/workflow/states/:state/next
func (h *Handlers) NextStates(c *gin.Context) {
	state, err := domainwf.ParseState(c.Param("state"))
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}

	next := h.engine.NextStates(state)
	names := make([]string, len(next))
	for i, s := range next {
		names[i] = string(s)
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: NextStatesResponse{
			State:    string(state),
			Terminal: state.IsTerminal(),
			Next:     names,
		},
	})
}

func toTransitionResponse(t domainwf.StateTransition) TransitionResponse {
	conds := make([]string, len(t.RequiredConditions))
	for i, cond := range t.RequiredConditions {
		conds[i] = string(cond)
	}
	roles := make([]string, len(t.AllowedRoles))
	for i, r := range t.AllowedRoles {
		roles[i] = string(r)
	}
	sort.Strings(roles)

	return TransitionResponse{
		From:               string(t.From),
		To:                 string(t.To),
		RequiredConditions: conds,
		AllowedRoles:       roles,
	}
}
