package messaging

import (
	"context"
	"testing"
	"time"

	"medinotes/internal/config"
	"medinotes/internal/port/outbound"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validNATSConfig() config.NATSConfig {
	return config.NATSConfig{
		URL:           "nats://localhost:4222",
		MaxReconnects: 5,
		ReconnectWait: time.Second,
		Enabled:       true,
	}
}

func TestNewNATSEventPublisher_ValidConfig(t *testing.T) {
	publisher, err := NewNATSEventPublisher(validNATSConfig())
	require.NoError(t, err)
	assert.NotNil(t, publisher)
}

func TestNewNATSEventPublisher_RejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.NATSConfig)
	}{
		{"empty URL", func(c *config.NATSConfig) { c.URL = "" }},
		{"wrong scheme", func(c *config.NATSConfig) { c.URL = "http://localhost:4222" }},
		{"negative reconnects", func(c *config.NATSConfig) { c.MaxReconnects = -1 }},
		{"negative reconnect wait", func(c *config.NATSConfig) { c.ReconnectWait = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validNATSConfig()
			tt.mutate(&cfg)
			_, err := NewNATSEventPublisher(cfg)
			assert.Error(t, err)
		})
	}
}

func TestPublishJobEvent_RequiresConnection(t *testing.T) {
	publisher, err := NewNATSEventPublisher(validNATSConfig())
	require.NoError(t, err)

	err = publisher.PublishJobEvent(context.Background(), outbound.JobEvent{
		JobID:    "job_abc123def456",
		NoteID:   "note-1",
		Status:   "completed",
		Workload: "notes",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not connected")
}

func TestEnsureStream_RequiresConnection(t *testing.T) {
	publisher, err := NewNATSEventPublisher(validNATSConfig())
	require.NoError(t, err)

	assert.Error(t, publisher.EnsureStream())
}

func TestGetConnectionHealth_Disconnected(t *testing.T) {
	publisher, err := NewNATSEventPublisher(validNATSConfig())
	require.NoError(t, err)

	health := publisher.GetConnectionHealth()
	assert.False(t, health.Connected)
	assert.False(t, health.JetStreamEnabled)
	assert.Zero(t, health.Reconnects)
}
