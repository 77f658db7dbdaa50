// Package registry maintains the live mapping from user identity to
// open connection handles and fans events out to them.
//
// The registry is the one piece of truly shared mutable state in the
// relay. It is injected into the ingress adapters and the pipeline
// rather than accessed as a global, so tests can substitute a fake.
package registry

import (
	"errors"
	"sync"

	"github.com/Dmann24/quantina-core/internal/observability/logging"
	"github.com/Dmann24/quantina-core/internal/observability/metrics"
)

// ErrNoIdentity is returned when a connection is offered without a user
// identity. Anonymous connections are rejected at the registry boundary.
var ErrNoIdentity = errors.New("registry: connection has no user identity")

// Conn is one live transport session. A Conn belongs to exactly one
// user for its lifetime. Deliver must not block: the WebSocket
// implementation hands the event to a buffered writer, and a slow or
// dead peer fails the send instead of stalling fan-out.
type Conn interface {
	ID() string
	Deliver(event any) error
}

// Registry is a concurrency-safe map from user identity to the set of
// that user's live connections.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]map[string]Conn

	metrics *metrics.Metrics
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		conns:   make(map[string]map[string]Conn),
		metrics: metrics.DefaultMetrics,
	}
}

// Register adds the connection to the user's set, creating the set if
// absent. Registering the same handle twice is a no-op. It reports
// whether this was the user's first live connection, i.e. the user just
// came online.
func (r *Registry) Register(userID string, c Conn) (first bool, err error) {
	if userID == "" {
		return false, ErrNoIdentity
	}

	r.mu.Lock()
	set, ok := r.conns[userID]
	if !ok {
		set = make(map[string]Conn)
		r.conns[userID] = set
	}
	if _, dup := set[c.ID()]; !dup {
		set[c.ID()] = c
		r.metrics.ConnectsTotal.Inc()
		r.metrics.ConnectionsActive.Inc()
	}
	first = !ok
	r.mu.Unlock()

	logger := logging.WithConnection(userID, c.ID())
	logger.Debug().
		Bool("first", first).
		Msg("Connection registered")
	return first, nil
}

// Unregister removes the connection from the user's set. When the set
// becomes empty the user entry is removed entirely so the map does not
// grow with churn. Removing an absent handle or user is a no-op. It
// reports whether the user just went offline.
func (r *Registry) Unregister(userID string, c Conn) (last bool) {
	r.mu.Lock()
	set, ok := r.conns[userID]
	if ok {
		if _, present := set[c.ID()]; present {
			delete(set, c.ID())
			r.metrics.DisconnectsTotal.Inc()
			r.metrics.ConnectionsActive.Dec()
		}
		if len(set) == 0 {
			delete(r.conns, userID)
			last = true
		}
	}
	r.mu.Unlock()

	if ok {
		logger := logging.WithConnection(userID, c.ID())
		logger.Debug().
			Bool("last", last).
			Msg("Connection unregistered")
	}
	return last
}

// FanOut delivers the event to every connection currently registered
// for the user. A user with no live connections is an expected,
// non-error outcome: the durable log is the system of record and the
// live push is a latency optimization. Returns the number of
// connections the event was handed to.
func (r *Registry) FanOut(userID string, event any) int {
	r.mu.RLock()
	set := r.conns[userID]
	targets := make([]Conn, 0, len(set))
	for _, c := range set {
		targets = append(targets, c)
	}
	r.mu.RUnlock()

	if len(targets) == 0 {
		r.metrics.FanOutMisses.Inc()
		return 0
	}

	delivered := 0
	for _, c := range targets {
		if err := c.Deliver(event); err != nil {
			r.metrics.FanOutErrors.Inc()
			logger := logging.WithConnection(userID, c.ID())
			logger.Warn().
				Err(err).
				Msg("Delivery to live connection failed")
			continue
		}
		delivered++
	}
	r.metrics.FanOutDeliveries.Add(float64(delivered))
	return delivered
}

// Broadcast delivers the event to every connection of every user except
// exceptUserID. Used for presence announcements.
func (r *Registry) Broadcast(event any, exceptUserID string) {
	r.mu.RLock()
	var targets []Conn
	for userID, set := range r.conns {
		if userID == exceptUserID {
			continue
		}
		for _, c := range set {
			targets = append(targets, c)
		}
	}
	r.mu.RUnlock()

	for _, c := range targets {
		if err := c.Deliver(event); err != nil {
			r.metrics.FanOutErrors.Inc()
		}
	}
}

// IsOnline reports whether the user has at least one live connection.
func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns[userID]) > 0
}

// ConnectionCount returns the number of live connections for the user.
func (r *Registry) ConnectionCount(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns[userID])
}
