// Package genserver is a self-contained terrain generation service: it
// speaks the wire protocol and answers generation requests from a
// registry of named generator instances.
package genserver

import (
	"errors"
	"sort"
	"sync"

	"terralink/internal/protocol"
	"terralink/internal/voxel"
)

var (
	ErrUnknownGenerator = errors.New("genserver: unknown generator")
	ErrBadParams        = errors.New("genserver: min height must be below max height")
)

// Params parameterize one generator instance.
type Params struct {
	MinHeight    int32
	MaxHeight    int32
	DefaultBlock voxel.BlockID
}

// Generator fills one chunk. The chunk arrives pre-filled with the
// pass-through sentinel; the generator writes only the voxels it owns.
type Generator interface {
	Generate(*voxel.Chunk)
}

// Factory mints generator instances from wire-supplied parameters.
type Factory func(Params) Generator

// Registry holds the named generator instances one service exposes.
// Instances keep their id across re-registration under the same name.
type Registry struct {
	mu        sync.RWMutex
	factory   Factory
	instances map[string]*instance
	nextID    protocol.GeneratorID
}

type instance struct {
	id  protocol.GeneratorID
	gen Generator
}

func NewRegistry(factory Factory) *Registry {
	return &Registry{
		factory:   factory,
		instances: make(map[string]*instance),
	}
}

// Add registers a generator instance under name, replacing any previous
// instance while keeping its assigned id.
func (r *Registry) Add(name string, p Params) (protocol.GeneratorID, error) {
	if p.MinHeight >= p.MaxHeight {
		return 0, ErrBadParams
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if inst, ok := r.instances[name]; ok {
		inst.gen = r.factory(p)
		return inst.id, nil
	}
	r.nextID++
	r.instances[name] = &instance{id: r.nextID, gen: r.factory(p)}
	return r.nextID, nil
}

func (r *Registry) Get(name string) (Generator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.instances[name]
	if !ok {
		return nil, false
	}
	return inst.gen, true
}

// Names lists the registered instance names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.instances))
	for name := range r.instances {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
