package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/streamop/switchwatch/internal/config"
	"github.com/streamop/switchwatch/internal/logging"
	"github.com/streamop/switchwatch/internal/metrics"
	"github.com/streamop/switchwatch/internal/streamserver"
	"github.com/streamop/switchwatch/internal/tracing"
	"github.com/streamop/switchwatch/pkg/models"
)

// Repository defines the persistence operations the monitor needs
type Repository interface {
	ListStreamServers(ctx context.Context) ([]*models.StreamServer, error)
	CreateHealthEvent(ctx context.Context, event *models.HealthEvent) error
}

// HealthCache defines the shared-state operations the monitor needs
type HealthCache interface {
	SetStreamHealth(ctx context.Context, health *models.StreamHealth, ttl time.Duration) error
	SetLastBitrate(ctx context.Context, serverID string, kbps int64, ttl time.Duration) error
	AcquireProbeLock(ctx context.Context, serverID string, ttl time.Duration) (bool, error)
}

// EventPublisher defines the interface for publishing switch events
type EventPublisher interface {
	PublishSwitchEvent(ctx context.Context, event *models.SwitchEvent) error
}

// Notifier defines the interface for webhook notification
type Notifier interface {
	NotifyDecision(ctx context.Context, event *models.SwitchEvent) error
}

// serverState tracks the confirmation progress for one stream server.
// A new decision only becomes current after it has been observed the
// configured number of consecutive times, so a single bad sample from
// the stats page cannot flap the scene.
type serverState struct {
	current      models.SwitchType
	pending      models.SwitchType
	pendingCount int
}

// observe feeds one probe result into the state. It returns the previous
// decision and whether this observation confirmed a transition.
//
// SwitchPrevious means "keep whatever scene is active" and therefore
// never starts or advances a transition.
func (s *serverState) observe(decision models.SwitchType, confirmations int) (models.SwitchType, bool) {
	previous := s.current

	if decision == models.SwitchPrevious {
		return previous, false
	}

	// First observation seeds the state without emitting an event.
	if s.current == "" {
		s.current = decision
		return previous, false
	}

	if decision == s.current {
		s.pending = ""
		s.pendingCount = 0
		return previous, false
	}

	if decision == s.pending {
		s.pendingCount++
	} else {
		s.pending = decision
		s.pendingCount = 1
	}

	if s.pendingCount >= confirmations {
		s.current = decision
		s.pending = ""
		s.pendingCount = 0
		return previous, true
	}

	return previous, false
}

// monitoredServer pairs a persisted configuration with its live backend
type monitoredServer struct {
	model   *models.StreamServer
	backend streamserver.StreamServer
	state   serverState
}

// Monitor probes every configured stream server on a fixed interval,
// classifies the stream health, and fans confirmed transitions out to
// the database, cache, message queue, and webhooks.
type Monitor struct {
	mu      sync.Mutex
	servers map[string]*monitoredServer

	repo      Repository
	cache     HealthCache
	publisher EventPublisher
	notifier  Notifier

	cfg      config.MonitorConfig
	triggers models.Triggers
	log      *logging.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a new monitor. Cache, publisher, and notifier may be nil;
// the corresponding fan-out step is then skipped.
func New(repo Repository, cache HealthCache, publisher EventPublisher, notifier Notifier, cfg config.MonitorConfig, log *logging.Logger) *Monitor {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = streamserver.NginxStatsRefreshInterval
	}
	if cfg.Confirmations <= 0 {
		cfg.Confirmations = 1
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Monitor{
		servers:   make(map[string]*monitoredServer),
		repo:      repo,
		cache:     cache,
		publisher: publisher,
		notifier:  notifier,
		cfg:       cfg,
		triggers:  cfg.Triggers(),
		log:       log,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

// Start loads the configured stream servers and begins the probe loop
func (m *Monitor) Start() error {
	if err := m.loadServers(); err != nil {
		return err
	}

	go m.probeLoop()

	m.log.Infof("Monitor started (%d servers, poll interval %s)", m.ServerCount(), m.cfg.PollInterval)
	return nil
}

// Stop stops the probe loop and waits for the current cycle to finish
func (m *Monitor) Stop() {
	m.cancel()
	<-m.done
	m.log.Info("Monitor stopped")
}

// loadServers builds backends for every persisted stream server
func (m *Monitor) loadServers() error {
	servers, err := m.repo.ListStreamServers(m.ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, model := range servers {
		backend, err := streamserver.FromModel(model, m.log.WithServerID(model.ID))
		if err != nil {
			m.log.WithError(err).Errorf("Skipping stream server %s", model.ID)
			metrics.RecordError("monitor", "backend_init")
			continue
		}

		m.servers[model.ID] = &monitoredServer{
			model:   model,
			backend: backend,
		}
	}

	metrics.UpdateMonitoredServers(len(m.servers))
	return nil
}

// AddServer registers a stream server with the running monitor
func (m *Monitor) AddServer(model *models.StreamServer) error {
	backend, err := streamserver.FromModel(model, m.log.WithServerID(model.ID))
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.servers[model.ID] = &monitoredServer{
		model:   model,
		backend: backend,
	}
	metrics.UpdateMonitoredServers(len(m.servers))
	return nil
}

// RemoveServer unregisters a stream server
func (m *Monitor) RemoveServer(serverID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.servers, serverID)
	metrics.UpdateMonitoredServers(len(m.servers))
}

// ServerCount returns the number of monitored servers
func (m *Monitor) ServerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.servers)
}

// probeLoop is the main polling loop
func (m *Monitor) probeLoop() {
	defer close(m.done)

	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	// Probe once immediately so the cache is warm before the first tick.
	m.probeCycle()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.probeCycle()
		}
	}
}

// probeCycle probes every monitored server once
func (m *Monitor) probeCycle() {
	span, ctx := tracing.StartSpan(m.ctx, "monitor.probe_cycle")
	defer tracing.FinishSpan(span)

	m.mu.Lock()
	servers := make([]*monitoredServer, 0, len(m.servers))
	for _, srv := range m.servers {
		servers = append(servers, srv)
	}
	m.mu.Unlock()

	tracing.SetTag(span, "servers", len(servers))

	for _, srv := range servers {
		select {
		case <-m.ctx.Done():
			return
		default:
		}
		m.probeServer(ctx, srv)
	}
}

// probeServer probes one server and fans out a confirmed transition
func (m *Monitor) probeServer(ctx context.Context, srv *monitoredServer) {
	if m.cache != nil {
		// The lock must expire before the next tick, or the holder of the
		// previous cycle still owns it and every other probe is skipped.
		lockTTL := m.cfg.PollInterval * 9 / 10
		acquired, err := m.cache.AcquireProbeLock(ctx, srv.model.ID, lockTTL)
		if err != nil {
			m.log.WithError(err).Warnf("Probe lock check failed for %s", srv.model.ID)
		} else if !acquired {
			// Another monitor instance owns this cycle.
			return
		}
	}

	start := time.Now()
	decision, kbps := srv.backend.Probe(ctx, &m.triggers)
	duration := time.Since(start)

	metrics.RecordProbe(srv.model.ID, string(decision), duration.Seconds(), kbps)
	m.log.LogProbe(srv.model.ID, string(decision), kbps, duration)

	m.mu.Lock()
	previous, confirmed := srv.state.observe(decision, m.cfg.Confirmations)
	m.mu.Unlock()

	if m.cache != nil {
		health := &models.StreamHealth{
			ServerID:    srv.model.ID,
			ServerName:  srv.model.Name,
			Decision:    decision,
			BitrateKbps: kbps,
			CheckedAt:   time.Now().UTC(),
		}
		if err := m.cache.SetStreamHealth(ctx, health, m.cfg.StateTTL); err != nil {
			m.log.WithError(err).Warn("Failed to cache stream health")
		}
		if err := m.cache.SetLastBitrate(ctx, srv.model.ID, kbps, m.cfg.StateTTL); err != nil {
			m.log.WithError(err).Warn("Failed to cache bitrate")
		}
	}

	if !confirmed {
		return
	}

	m.emitSwitchEvent(ctx, srv, previous, decision, kbps)
}

// emitSwitchEvent records and publishes a confirmed transition
func (m *Monitor) emitSwitchEvent(ctx context.Context, srv *monitoredServer, previous, decision models.SwitchType, kbps int64) {
	now := time.Now().UTC()

	healthEvent := &models.HealthEvent{
		ID:          uuid.New().String(),
		ServerID:    srv.model.ID,
		Previous:    previous,
		Decision:    decision,
		BitrateKbps: kbps,
		CreatedAt:   now,
	}

	if err := m.repo.CreateHealthEvent(ctx, healthEvent); err != nil {
		m.log.WithError(err).Error("Failed to record health event")
		metrics.RecordError("monitor", "health_event")
	}

	event := &models.SwitchEvent{
		ID:          healthEvent.ID,
		ServerID:    srv.model.ID,
		ServerName:  srv.model.Name,
		Previous:    previous,
		Decision:    decision,
		BitrateKbps: kbps,
		Timestamp:   now,
	}

	if m.publisher != nil {
		if err := m.publisher.PublishSwitchEvent(ctx, event); err != nil {
			m.log.WithError(err).Error("Failed to publish switch event")
			metrics.RecordError("monitor", "publish")
			metrics.RecordEventPublished("failed")
		} else {
			metrics.RecordEventPublished("published")
		}
	}

	if m.notifier != nil {
		if err := m.notifier.NotifyDecision(ctx, event); err != nil {
			m.log.WithError(err).Error("Failed to notify webhooks")
			metrics.RecordError("monitor", "notify")
		}
	}

	metrics.RecordSwitchEvent(srv.model.ID, string(decision))
	m.log.LogSwitchEvent(srv.model.ID, string(previous), string(decision), kbps)
}
