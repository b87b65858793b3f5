package blobpath

import (
	"errors"
	"io"
	"slices"
	"strings"
	"sync"
)

// Registry maps schemes to backend instances. Instances registered
// explicitly are used as-is; for any other scheme the registry builds a
// default backend on first lookup from the registered driver and the
// scheme's client params.
//
// Lookups are safe for concurrent use. Replacing or unregistering a backend
// while operations against the previous instance are in flight is not
// supported.
type Registry struct {
	mu        sync.RWMutex
	backends  map[string]Backend
	built     map[string]bool // backends constructed by the registry itself
	factories map[string]DriverFactory
	params    map[string]ClientParams
	override  Backend
	metrics   *Metrics
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		backends:  make(map[string]Backend),
		built:     make(map[string]bool),
		factories: make(map[string]DriverFactory),
		params:    make(map[string]ClientParams),
	}
}

// Register installs b as the backend for scheme, replacing any previous
// instance without closing it.
func (r *Registry) Register(scheme string, b Backend) {
	scheme = strings.ToLower(scheme)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[scheme] = r.instrument(scheme, b)
	delete(r.built, scheme)
}

// RegisterFactory installs a registry-local factory for scheme, taking
// precedence over the process-wide driver. Any instance built earlier by
// the registry is dropped.
func (r *Registry) RegisterFactory(scheme string, factory DriverFactory) {
	scheme = strings.ToLower(scheme)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[scheme] = factory
	if r.built[scheme] {
		delete(r.backends, scheme)
		delete(r.built, scheme)
	}
}

// Unregister removes the backend and factory for scheme. The next lookup
// constructs the default again.
func (r *Registry) Unregister(scheme string) {
	scheme = strings.ToLower(scheme)
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.backends, scheme)
	delete(r.built, scheme)
	delete(r.factories, scheme)
}

// SetClientParams stores the constructor params for scheme. When the
// current instance was built by the registry it is dropped, so the next
// lookup rebuilds it with the new params. Explicitly registered instances
// are left alone.
func (r *Registry) SetClientParams(scheme string, params ClientParams) {
	scheme = strings.ToLower(scheme)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.params[scheme] = params.Clone()
	if r.built[scheme] {
		delete(r.backends, scheme)
		delete(r.built, scheme)
	}
}

// ClientParams returns a copy of the params stored for scheme.
func (r *Registry) ClientParams(scheme string) ClientParams {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.params[strings.ToLower(scheme)].Clone()
}

// Override routes every scheme to b, typically a local-disk backend used
// while developing against cloud paths. A nil b restores normal dispatch.
func (r *Registry) Override(b Backend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b == nil {
		r.override = nil
		return
	}
	r.override = r.instrument("override", b)
}

// Overridden reports whether an override backend is active.
func (r *Registry) Overridden() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.override != nil
}

// Get returns the backend for scheme, constructing the default on first
// use. A built-in scheme whose driver package is not linked fails with a
// *MissingDependencyError.
func (r *Registry) Get(scheme string) (Backend, error) {
	scheme = strings.ToLower(scheme)

	r.mu.RLock()
	if r.override != nil {
		b := r.override
		r.mu.RUnlock()
		return b, nil
	}
	b, ok := r.backends[scheme]
	r.mu.RUnlock()
	if ok {
		return b, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.backends[scheme]; ok {
		return b, nil
	}

	factory, ok := r.factories[scheme]
	if !ok {
		factoryMutex.RLock()
		factory, ok = driverFactories[scheme]
		factoryMutex.RUnlock()
	}
	if !ok {
		return nil, missingDriver(scheme)
	}

	b, err := buildBackend(scheme, factory, r.params[scheme])
	if err != nil {
		return nil, err
	}
	b = r.instrument(scheme, b)
	r.backends[scheme] = b
	r.built[scheme] = true
	return b, nil
}

// Schemes returns the sorted schemes with an active backend.
func (r *Registry) Schemes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.backends))
	for s := range r.backends {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}

// Close closes every backend the registry constructed itself and forgets
// it. Explicitly registered backends are owned by the caller.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for scheme := range r.built {
		if c, ok := unwrapBackend(r.backends[scheme]).(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		delete(r.backends, scheme)
		delete(r.built, scheme)
	}
	return errors.Join(errs...)
}

func (r *Registry) setMetrics(m *Metrics) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = m
}

func (r *Registry) instrument(scheme string, b Backend) Backend {
	if r.metrics == nil {
		return b
	}
	return Instrument(scheme, b, r.metrics)
}

// unwrapBackend strips decorators so capabilities of the driver itself can
// be reached.
func unwrapBackend(b Backend) Backend {
	for {
		u, ok := b.(interface{ Unwrap() Backend })
		if !ok {
			return b
		}
		b = u.Unwrap()
	}
}
