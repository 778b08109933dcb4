// Package clients tracks the live websocket sessions of the process.
package clients

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Handle is how the registry reaches a live session.
type Handle struct {
	// Send delivers one outbound message. It must tolerate a closed transport.
	Send func(v any) error
	// Close terminates the transport.
	Close func()
}

// Presence mirrors registrations to an external store. Failures are logged only.
type Presence interface {
	Add(ctx context.Context, id string) error
	Remove(ctx context.Context, id string) error
}

const presenceTimeout = 2 * time.Second

// Registry maps session ids to handles.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*entry
	wg       sync.WaitGroup

	presence Presence
	logger   *zap.Logger
}

type entry struct {
	handle Handle
	once   sync.Once
}

// NewRegistry returns an empty registry. presence may be nil.
func NewRegistry(presence Presence, logger *zap.Logger) *Registry {
	return &Registry{
		sessions: make(map[string]*entry),
		presence: presence,
		logger:   logger.With(zap.String("component", "clients")),
	}
}

// Register adds a session and returns the function that removes it. Calling
// the returned function more than once is safe. Registering an id twice
// replaces the previous handle.
func (r *Registry) Register(id string, h Handle) (unregister func()) {
	e := &entry{handle: h}

	r.mu.Lock()
	old := r.sessions[id]
	r.sessions[id] = e
	r.wg.Add(1)
	count := len(r.sessions)
	r.mu.Unlock()

	if old != nil {
		r.unregister(id, old)
	}
	r.mirror(id, true)
	r.logger.Info("client registered", zap.String("client_id", id), zap.Int("clients", count))

	return func() { r.unregister(id, e) }
}

func (r *Registry) unregister(id string, e *entry) {
	e.once.Do(func() {
		r.mu.Lock()
		removed := r.sessions[id] == e
		if removed {
			delete(r.sessions, id)
		}
		count := len(r.sessions)
		r.mu.Unlock()
		r.wg.Done()

		if removed {
			r.mirror(id, false)
			r.logger.Info("client unregistered", zap.String("client_id", id), zap.Int("clients", count))
		}
	})
}

func (r *Registry) mirror(id string, add bool) {
	if r.presence == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), presenceTimeout)
	defer cancel()
	var err error
	if add {
		err = r.presence.Add(ctx, id)
	} else {
		err = r.presence.Remove(ctx, id)
	}
	if err != nil {
		r.logger.Warn("presence update failed", zap.String("client_id", id), zap.Bool("add", add), zap.Error(err))
	}
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// IDs returns the live session ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *Registry) handles() []Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	hs := make([]Handle, 0, len(r.sessions))
	for _, e := range r.sessions {
		hs = append(hs, e.handle)
	}
	return hs
}

// Broadcast sends v to every live session and returns how many sends succeeded.
func (r *Registry) Broadcast(v any) (sent int) {
	for _, h := range r.handles() {
		if h.Send == nil {
			continue
		}
		if err := h.Send(v); err == nil {
			sent++
		}
	}
	return sent
}

// CloseAll closes every live session transport.
func (r *Registry) CloseAll() (closed int) {
	for _, h := range r.handles() {
		if h.Close == nil {
			continue
		}
		h.Close()
		closed++
	}
	return closed
}

// Wait blocks until every registered session has been unregistered or ctx
// is done. It reports whether the registry drained.
func (r *Registry) Wait(ctx context.Context) bool {
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.wg.Wait()
	}()

	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}
