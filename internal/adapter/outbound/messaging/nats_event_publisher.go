package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"medinotes/internal/application/common/slogger"
	"medinotes/internal/config"
	"medinotes/internal/port/outbound"

	"github.com/nats-io/nats.go"
)

const (
	natsConnectionTimeout = 5 * time.Second

	streamName    = "NOTES_JOBS"
	streamSubject = "notes.jobs.>"
	streamMaxAge  = 24 * time.Hour
)

// NATSEventPublisher publishes job lifecycle events to JetStream. Events
// land on notes.jobs.<status> so consumers can subscribe to a single
// lifecycle stage or the whole stream.
type NATSEventPublisher struct {
	config config.NATSConfig
	conn   *nats.Conn
	js     nats.JetStreamContext

	mu          sync.RWMutex
	connectedAt time.Time
	reconnects  int
	lastError   error
}

// NewNATSEventPublisher validates the configuration and returns an
// unconnected publisher. Call Connect before publishing.
func NewNATSEventPublisher(cfg config.NATSConfig) (*NATSEventPublisher, error) {
	if cfg.URL == "" {
		return nil, errors.New("NATS URL cannot be empty")
	}
	if !strings.HasPrefix(cfg.URL, "nats://") {
		return nil, errors.New("invalid NATS URL scheme")
	}
	if cfg.MaxReconnects < 0 {
		return nil, errors.New("max reconnects cannot be negative")
	}
	if cfg.ReconnectWait < 0 {
		return nil, errors.New("reconnect wait cannot be negative")
	}
	return &NATSEventPublisher{config: cfg}, nil
}

// Connect establishes the NATS connection and JetStream context.
func (p *NATSEventPublisher) Connect() error {
	opts := []nats.Option{
		nats.MaxReconnects(p.config.MaxReconnects),
		nats.ReconnectWait(p.config.ReconnectWait),
		nats.Timeout(natsConnectionTimeout),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			p.mu.Lock()
			p.reconnects++
			p.lastError = nil
			p.mu.Unlock()
			slogger.InfoNoCtx("NATS reconnected", nil)
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			p.mu.Lock()
			p.lastError = err
			p.mu.Unlock()
			slogger.WarnNoCtx("NATS connection lost", slogger.Fields{
				"error": errString(err),
			})
		}),
	}

	conn, err := nats.Connect(p.config.URL, opts...)
	if err != nil {
		p.setError(err)
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		p.setError(err)
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}

	p.mu.Lock()
	p.conn = conn
	p.js = js
	p.connectedAt = time.Now()
	p.lastError = nil
	p.mu.Unlock()
	return nil
}

// Disconnect closes the NATS connection.
func (p *NATSEventPublisher) Disconnect() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
		p.js = nil
	}
	return nil
}

// EnsureStream creates the events stream if it does not exist.
func (p *NATSEventPublisher) EnsureStream() error {
	p.mu.RLock()
	js := p.js
	p.mu.RUnlock()
	if js == nil {
		return errors.New("not connected to NATS server")
	}

	_, err := js.StreamInfo(streamName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("failed to look up stream: %w", err)
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:      streamName,
		Subjects:  []string{streamSubject},
		Retention: nats.LimitsPolicy,
		MaxAge:    streamMaxAge,
		Storage:   nats.FileStorage,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

// PublishJobEvent implements outbound.MessagePublisher.
func (p *NATSEventPublisher) PublishJobEvent(ctx context.Context, event outbound.JobEvent) error {
	p.mu.RLock()
	js := p.js
	p.mu.RUnlock()
	if js == nil {
		return errors.New("not connected to NATS server")
	}

	if event.JobID == "" {
		return errors.New("job ID cannot be empty")
	}
	if event.Status == "" {
		return errors.New("event status cannot be empty")
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal job event: %w", err)
	}

	subject := fmt.Sprintf("notes.jobs.%s", event.Status)
	if _, err := js.Publish(subject, data, nats.Context(ctx)); err != nil {
		p.setError(err)
		return fmt.Errorf("failed to publish job event: %w", err)
	}
	return nil
}

// GetConnectionHealth implements outbound.MessagePublisherHealth.
func (p *NATSEventPublisher) GetConnectionHealth() outbound.MessagePublisherHealthStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()

	status := outbound.MessagePublisherHealthStatus{
		Connected:        p.conn != nil && p.conn.IsConnected(),
		Reconnects:       p.reconnects,
		JetStreamEnabled: p.js != nil,
		LastError:        errString(p.lastError),
	}
	if status.Connected {
		status.Uptime = time.Since(p.connectedAt).Round(time.Second).String()
	}
	return status
}

func (p *NATSEventPublisher) setError(err error) {
	p.mu.Lock()
	p.lastError = err
	p.mu.Unlock()
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
