// Package health tracks per-connection liveness and drives the heartbeat
// recovery protocol.
package health

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// State is the liveness state of a tracked connection.
type State string

const (
	StateHealthy      State = "healthy"
	StateDegraded     State = "degraded"
	StateUnresponsive State = "unresponsive"
	StateExpired      State = "expired"
)

// Status is the externally visible health of a connection.
type Status struct {
	ConnectionID        string    `json:"connectionId"`
	IsHealthy           bool      `json:"isHealthy"`
	LastSeen            time.Time `json:"lastSeen"`
	ConsecutiveFailures int       `json:"consecutiveFailures"`
	RecoveryAttempts    int       `json:"recoveryAttempts"`
}

// Config holds the sweep cadence and failure thresholds.
type Config struct {
	// SweepInterval is how often the background sweep runs.
	SweepInterval time.Duration
	// ExpectedInterval is how recent a heartbeat must be; a record older
	// than this accrues one failure per sweep.
	ExpectedInterval time.Duration
	// UnresponsiveThreshold transitions Degraded -> Unresponsive.
	UnresponsiveThreshold int
	// ExpiredThreshold transitions Unresponsive -> Expired and triggers
	// forced removal.
	ExpiredThreshold int
}

// ExpireFunc is invoked exactly once when a connection crosses the expired
// threshold. It is called outside the tracker's lock.
type ExpireFunc func(connectionID string)

type record struct {
	lastHeartbeat       time.Time
	consecutiveFailures int
	recoveryAttempts    int
	state               State
}

// Tracker owns one health record per live connection. It is the only writer
// of health state; the gateway reads through GetHealth.
type Tracker struct {
	cfg    Config
	expire ExpireFunc
	logger *slog.Logger

	mu      sync.Mutex
	records map[string]*record
}

// NewTracker creates a Tracker. The expire callback may be nil, in which
// case expired records are dropped silently.
func NewTracker(cfg Config, expire ExpireFunc, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		cfg:     cfg,
		expire:  expire,
		logger:  logger,
		records: make(map[string]*record),
	}
}

// SetExpireFunc sets the expiry callback. Used at wiring time, before the
// sweep starts; the tracker and the gateway reference each other.
func (t *Tracker) SetExpireFunc(expire ExpireFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.expire = expire
}

// Track starts tracking a connection as healthy with a fresh heartbeat.
func (t *Tracker) Track(connectionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records[connectionID] = &record{
		lastHeartbeat: time.Now(),
		state:         StateHealthy,
	}
}

// Forget stops tracking a connection. Forgetting an unknown connection is a
// no-op.
func (t *Tracker) Forget(connectionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.records, connectionID)
}

// RecordHeartbeat registers proof of liveness: failures reset to zero and
// the connection returns to healthy. Returns false when the connection is
// not tracked, which callers treat as a benign race.
func (t *Tracker) RecordHeartbeat(connectionID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[connectionID]
	if !ok {
		t.logger.Warn("heartbeat for untracked connection", "connection_id", connectionID)
		return false
	}
	rec.lastHeartbeat = time.Now()
	rec.consecutiveFailures = 0
	rec.state = StateHealthy
	return true
}

// RequestRecovery records a client-initiated recovery handshake. It does not
// mark the connection healthy; only a subsequent heartbeat does that.
// Returns the updated attempt count, or 0 for an untracked connection.
func (t *Tracker) RequestRecovery(connectionID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[connectionID]
	if !ok {
		t.logger.Warn("recovery request for untracked connection", "connection_id", connectionID)
		return 0
	}
	rec.recoveryAttempts++
	return rec.recoveryAttempts
}

// GetHealth returns the health status of a connection. An untracked
// connection reports the optimistic healthy/zero default, since the caller
// may be querying immediately after connect, before the first sweep.
func (t *Tracker) GetHealth(connectionID string) Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[connectionID]
	if !ok {
		return Status{
			ConnectionID: connectionID,
			IsHealthy:    true,
			LastSeen:     time.Now(),
		}
	}
	return Status{
		ConnectionID:        connectionID,
		IsHealthy:           rec.state == StateHealthy,
		LastSeen:            rec.lastHeartbeat,
		ConsecutiveFailures: rec.consecutiveFailures,
		RecoveryAttempts:    rec.recoveryAttempts,
	}
}

// StateOf returns the current liveness state; untracked connections report
// healthy.
func (t *Tracker) StateOf(connectionID string) State {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[connectionID]
	if !ok {
		return StateHealthy
	}
	return rec.state
}

// Run executes the periodic sweep until the context is cancelled.
func (t *Tracker) Run(ctx context.Context) {
	ticker := time.NewTicker(t.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Sweep()
		}
	}
}

// Sweep ages every tracked connection whose last heartbeat is older than
// the expected interval. Crossing the expired threshold removes the record
// and fires the expire callback exactly once, outside the lock.
func (t *Tracker) Sweep() {
	now := time.Now()

	t.mu.Lock()
	expire := t.expire
	var expired []string
	for id, rec := range t.records {
		if now.Sub(rec.lastHeartbeat) < t.cfg.ExpectedInterval {
			continue
		}
		rec.consecutiveFailures++
		switch {
		case rec.consecutiveFailures >= t.cfg.ExpiredThreshold:
			rec.state = StateExpired
			delete(t.records, id)
			expired = append(expired, id)
		case rec.consecutiveFailures >= t.cfg.UnresponsiveThreshold:
			rec.state = StateUnresponsive
		default:
			rec.state = StateDegraded
		}
	}
	t.mu.Unlock()

	for _, id := range expired {
		t.logger.Info("connection expired by heartbeat sweep", "connection_id", id)
		if expire != nil {
			expire(id)
		}
	}
}

// Len returns the number of tracked connections.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}
