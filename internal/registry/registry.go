// Package registry maintains the persistent set of previously paired
// device descriptors (spec.md §4.A). The whole-file is rewritten after
// every mutation via a temp-file-then-rename so a crash mid-write never
// leaves a torn registered_devices.json on disk.
package registry

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/looxidlabs/link-band-core/internal/model"
)

var logger = log.New(os.Stderr, "[registry] ", log.LstdFlags)

// Registry is the in-memory mapping address -> DeviceDescriptor, teed to
// a JSON file on every mutation.
type Registry struct {
	mu   sync.RWMutex
	path string
	devs map[string]model.DeviceDescriptor
}

// Open loads an existing registry file, if any, and returns a Registry
// ready for use. A missing file is not an error; the registry starts empty.
func Open(path string) (*Registry, error) {
	r := &Registry{path: path, devs: make(map[string]model.DeviceDescriptor)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		logger.Printf("failed to read %s: %v", path, err)
		return r, nil
	}

	if err := json.Unmarshal(data, &r.devs); err != nil {
		logger.Printf("failed to parse %s: %v", path, err)
		r.devs = make(map[string]model.DeviceDescriptor)
	}
	return r, nil
}

// Register adds or updates a device descriptor and persists the registry.
// It returns false without mutating in-memory state if the descriptor
// is missing an address, and false if writing the file fails (the
// in-memory entry is kept in that case).
func (r *Registry) Register(d model.DeviceDescriptor) bool {
	if d.Address == "" {
		logger.Println("refusing to register device with empty address")
		return false
	}

	r.mu.Lock()
	r.devs[d.Address] = d
	r.mu.Unlock()

	return r.persist()
}

// Unregister removes a device by address and persists the registry.
// Returns false if the address was not present.
func (r *Registry) Unregister(address string) bool {
	r.mu.Lock()
	_, ok := r.devs[address]
	if ok {
		delete(r.devs, address)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}
	return r.persist()
}

// List returns a snapshot of all registered devices.
func (r *Registry) List() []model.DeviceDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.DeviceDescriptor, 0, len(r.devs))
	for _, d := range r.devs {
		out = append(out, d)
	}
	return out
}

// IsRegistered reports whether address is currently registered.
func (r *Registry) IsRegistered(address string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.devs[address]
	return ok
}

// Get returns the descriptor for address, if registered.
func (r *Registry) Get(address string) (model.DeviceDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.devs[address]
	return d, ok
}

// persist rewrites the registry file via temp-file-then-rename.
// I/O failures are logged and surfaced as a boolean; the in-memory
// registry remains consistent regardless.
func (r *Registry) persist() bool {
	r.mu.RLock()
	data, err := json.MarshalIndent(r.devs, "", "  ")
	r.mu.RUnlock()
	if err != nil {
		logger.Printf("failed to marshal registry: %v", err)
		return false
	}

	dir := filepath.Dir(r.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			logger.Printf("failed to create registry directory: %v", err)
			return false
		}
	}

	tmp, err := os.CreateTemp(dir, ".registry-*.tmp")
	if err != nil {
		logger.Printf("failed to create temp file: %v", err)
		return false
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		logger.Printf("failed to write temp file: %v", err)
		return false
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		logger.Printf("failed to close temp file: %v", err)
		return false
	}

	if err := os.Rename(tmpPath, r.path); err != nil {
		os.Remove(tmpPath)
		logger.Printf("failed to rename temp file into place: %v", err)
		return false
	}

	return true
}
