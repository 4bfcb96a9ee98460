// This file defines the Registry, which tracks the live workspaces of a
// process by name so that shutdown can tear all of them down in one sweep.
package core

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/tidwall/btree"
)

// Registry holds named open workspaces in an ordered map.
type Registry struct {
	mu         sync.RWMutex
	workspaces btree.Map[string, *Workspace]
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Open creates a workspace under name. Names are unique among open
// workspaces.
func (r *Registry) Open(name string, cfg Config) (*Workspace, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.workspaces.Get(name); ok {
		return nil, fmt.Errorf("workspace %q already open", name)
	}
	w, err := NewWorkspace(cfg)
	if err != nil {
		return nil, err
	}
	r.workspaces.Set(name, w)
	return w, nil
}

// Get returns the open workspace under name, if any.
func (r *Registry) Get(name string) (*Workspace, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.workspaces.Get(name)
}

// Names returns the names of all open workspaces in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.workspaces.Keys()
}

// Close tears down the workspace under name and removes it. The workspace is
// removed even when its teardown reports a contract violation; a violated
// structure is not recoverable by keeping it registered.
func (r *Registry) Close(name string) error {
	r.mu.Lock()
	w, ok := r.workspaces.Delete(name)
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("workspace %q is not open", name)
	}
	return w.Close()
}

// CloseAll tears down every open workspace, joining any teardown errors.
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	var all []*Workspace
	r.workspaces.Scan(func(_ string, w *Workspace) bool {
		all = append(all, w)
		return true
	})
	r.workspaces.Clear()
	r.mu.Unlock()

	var errs []error
	for _, w := range all {
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(all) > 0 {
		log.Printf("registry shutdown: closed %d workspaces, %d errors", len(all), len(errs))
	}
	return errors.Join(errs...)
}
