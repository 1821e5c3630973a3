package service

import (
	"context"
	"time"

	"medinotes/internal/application/dto"
)

// DependencyChecker probes one external dependency. A nil error means
// the dependency is usable.
type DependencyChecker interface {
	Name() string
	Check(ctx context.Context) error
}

// DependencyCheckerFunc adapts a function to the DependencyChecker
// interface.
type DependencyCheckerFunc struct {
	DependencyName string
	CheckFunc      func(ctx context.Context) error
}

func (c DependencyCheckerFunc) Name() string { return c.DependencyName }

func (c DependencyCheckerFunc) Check(ctx context.Context) error { return c.CheckFunc(ctx) }

const dependencyCheckTimeout = 3 * time.Second

// HealthCheckService aggregates dependency probes into one health
// report. Every failing dependency degrades the status; the service
// reports unhealthy only when all dependencies fail.
type HealthCheckService struct {
	version  string
	checkers []DependencyChecker
}

// NewHealthCheckService creates the health service.
func NewHealthCheckService(version string, checkers ...DependencyChecker) *HealthCheckService {
	return &HealthCheckService{
		version:  version,
		checkers: checkers,
	}
}

// GetHealth probes every dependency and aggregates the results.
func (s *HealthCheckService) GetHealth(ctx context.Context) (*dto.HealthResponse, error) {
	response := &dto.HealthResponse{
		Status:       string(dto.HealthStatusHealthy),
		Timestamp:    time.Now().UTC(),
		Version:      s.version,
		Dependencies: make(map[string]dto.DependencyStatus, len(s.checkers)),
	}

	failed := 0
	for _, checker := range s.checkers {
		checkCtx, cancel := context.WithTimeout(ctx, dependencyCheckTimeout)
		err := checker.Check(checkCtx)
		cancel()

		status := dto.DependencyStatus{Status: string(dto.HealthStatusHealthy)}
		if err != nil {
			failed++
			status.Status = string(dto.HealthStatusUnhealthy)
			status.Message = err.Error()
		}
		response.Dependencies[checker.Name()] = status
	}

	switch {
	case failed == 0:
	case failed == len(s.checkers):
		response.Status = string(dto.HealthStatusUnhealthy)
	default:
		response.Status = string(dto.HealthStatusDegraded)
	}
	return response, nil
}
