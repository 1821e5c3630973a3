package service

import (
	"context"
	"errors"
	"testing"

	"medinotes/internal/application/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func healthyChecker(name string) DependencyChecker {
	return DependencyCheckerFunc{
		DependencyName: name,
		CheckFunc:      func(context.Context) error { return nil },
	}
}

func failingChecker(name string) DependencyChecker {
	return DependencyCheckerFunc{
		DependencyName: name,
		CheckFunc:      func(context.Context) error { return errors.New(name + " down") },
	}
}

func TestHealthCheck_AllDependenciesHealthy(t *testing.T) {
	svc := NewHealthCheckService("1.2.3", healthyChecker("database"), healthyChecker("redis"))

	health, err := svc.GetHealth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, string(dto.HealthStatusHealthy), health.Status)
	assert.Equal(t, "1.2.3", health.Version)
	require.Len(t, health.Dependencies, 2)
	assert.Equal(t, string(dto.HealthStatusHealthy), health.Dependencies["database"].Status)
}

func TestHealthCheck_PartialFailureIsDegraded(t *testing.T) {
	svc := NewHealthCheckService("dev", healthyChecker("database"), failingChecker("redis"))

	health, err := svc.GetHealth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, string(dto.HealthStatusDegraded), health.Status)
	assert.Equal(t, "redis down", health.Dependencies["redis"].Message)
}

func TestHealthCheck_TotalFailureIsUnhealthy(t *testing.T) {
	svc := NewHealthCheckService("dev", failingChecker("database"), failingChecker("redis"))

	health, err := svc.GetHealth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, string(dto.HealthStatusUnhealthy), health.Status)
}

func TestHealthCheck_NoCheckersIsHealthy(t *testing.T) {
	svc := NewHealthCheckService("dev")

	health, err := svc.GetHealth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, string(dto.HealthStatusHealthy), health.Status)
}
