package connector

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
)

var (
	ErrUnsupportedDriver = errors.New("unsupported driver")
	ErrUnknownSource     = errors.New("unknown source")
)

// Factory creates an unconnected Connector.
type Factory func() Connector

// Registry maps driver names to factories and source names to open
// connectors. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	active    map[string]Connector
}

func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		active:    make(map[string]Connector),
	}
}

// RegisterDriver makes driver available to Connect.
func (r *Registry) RegisterDriver(driver string, factory Factory) {
	r.mu.Lock()
	r.factories[driver] = factory
	r.mu.Unlock()
}

// Drivers returns the registered driver names, sorted.
func (r *Registry) Drivers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.factories))
}

// Connect opens a connector for cfg.Driver and stores it under name. A
// connector already stored under name is closed once the new one is up, so
// a failed reconnect leaves the old source in place. The dial happens
// without holding the lock.
func (r *Registry) Connect(name string, cfg ConnectionConfig) error {
	r.mu.RLock()
	factory, ok := r.factories[cfg.Driver]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w %q (available: %v)", ErrUnsupportedDriver, cfg.Driver, r.Drivers())
	}

	conn := factory()
	if err := conn.Connect(cfg); err != nil {
		return fmt.Errorf("connect source %q: %w", name, err)
	}

	r.mu.Lock()
	previous := r.active[name]
	r.active[name] = conn
	r.mu.Unlock()

	if previous != nil {
		previous.Disconnect()
	}
	return nil
}

// Get returns the connector stored under name.
func (r *Registry) Get(name string) (Connector, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if conn, ok := r.active[name]; ok {
		return conn, nil
	}
	return nil, fmt.Errorf("%w %q (available: %v)", ErrUnknownSource, name, slices.Sorted(maps.Keys(r.active)))
}

// Disconnect closes the named source and forgets it.
func (r *Registry) Disconnect(name string) error {
	r.mu.Lock()
	conn, ok := r.active[name]
	delete(r.active, name)
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownSource, name)
	}
	return conn.Disconnect()
}

// CloseAll disconnects every source.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	open := r.active
	r.active = make(map[string]Connector)
	r.mu.Unlock()

	for _, conn := range open {
		conn.Disconnect()
	}
}

// ListSources returns the connected source names, sorted.
func (r *Registry) ListSources() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.active))
}
