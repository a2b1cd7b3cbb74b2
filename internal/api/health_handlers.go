package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns server health status with component checks",
		Tags:        []string{"Health"},
	}, s.handleHealthCheck)
}

// ComponentHealth describes the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status" doc:"Component status: healthy, degraded, or unhealthy"`
	Latency string `json:"latency,omitempty" doc:"Response time for this component"`
	Message string `json:"message,omitempty" doc:"Additional status information"`
}

// HealthResponse contains health check data in API responses.
type HealthResponse struct {
	Status     string                     `json:"status" doc:"Overall status: healthy, degraded, or unhealthy"`
	Components map[string]ComponentHealth `json:"components" doc:"Individual component statuses"`
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Body HealthResponse
}

func (s *Server) handleHealthCheck(_ context.Context, _ *struct{}) (*HealthOutput, error) {
	components := map[string]ComponentHealth{
		"sessions":  s.checkSessions(),
		"assembler": s.checkAssembler(),
	}

	overall := "healthy"
	for _, c := range components {
		if c.Status == "unhealthy" {
			overall = "unhealthy"
			break
		}
		if c.Status == "degraded" {
			overall = "degraded"
		}
	}

	return &HealthOutput{
		Body: HealthResponse{
			Status:     overall,
			Components: components,
		},
	}, nil
}

// checkSessions reports the session registry.
func (s *Server) checkSessions() ComponentHealth {
	if s.registry == nil {
		return ComponentHealth{
			Status:  "unhealthy",
			Message: "session registry not configured",
		}
	}

	start := time.Now()
	n := s.registry.Len()

	return ComponentHealth{
		Status:  "healthy",
		Latency: time.Since(start).String(),
		Message: formatSessionStatus(n),
	}
}

// checkAssembler reports whether archives can be built.
func (s *Server) checkAssembler() ComponentHealth {
	if s.assembler == nil {
		return ComponentHealth{
			Status:  "unhealthy",
			Message: "archive assembler not configured",
		}
	}
	return ComponentHealth{Status: "healthy"}
}

func formatSessionStatus(count int) string {
	switch count {
	case 0:
		return "no active sessions"
	case 1:
		return "1 active session"
	default:
		return strconv.Itoa(count) + " active sessions"
	}
}
