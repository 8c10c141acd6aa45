// Package state implements the observable application state tree.
//
// Values are addressed by dotted paths ("form.status", "feeds", "ui.readPostIDs").
// Every Set notifies, synchronously and before returning, the handlers subscribed to
// the written path and to each of its ancestors up to the root path "".
package state

import (
	"strings"
	"sync"
)

// well-known paths of the application tree
const (
	PathRoot        = ""
	PathForm        = "form"
	PathFormStatus  = "form.status"
	PathFormErrors  = "form.errors"
	PathFeeds       = "feeds"
	PathPosts       = "posts"
	PathUI          = "ui"
	PathReadPostIDs = "ui.readPostIDs"
)

// Event describes a single mutation. Path is always the written path,
// also for handlers subscribed to one of its ancestors.
type Event struct {
	Path string `json:"path"`
	Old  any    `json:"old"`
	New  any    `json:"new"`
}

// Handler receives mutation events
type Handler func(Event)

type subscription struct {
	id      uint64
	handler Handler
}

// State is a change-notifying container of the mutable application state.
// Handlers must not call Set synchronously, Get is safe to call from a handler.
type State struct {
	setMu  sync.Mutex   // serializes Set, notifications of two writes never interleave
	mu     sync.RWMutex // guards values and subs
	values map[string]any
	subs   map[string][]subscription
	nextID uint64
}

// New makes an empty state
func New() *State {
	return &State{
		values: make(map[string]any),
		subs:   make(map[string][]subscription),
	}
}

// Set stores the value and notifies subscribers of the path and its ancestors.
// Handlers of the exact path run first, then ancestors from the nearest to the root,
// in registration order within each path.
func (s *State) Set(path string, value any) {
	s.setMu.Lock()
	defer s.setMu.Unlock()

	s.mu.Lock()
	old := s.values[path]
	s.values[path] = value
	var handlers []Handler
	for _, p := range lineage(path) {
		for _, sub := range s.subs[p] {
			handlers = append(handlers, sub.handler)
		}
	}
	s.mu.Unlock()

	evt := Event{Path: path, Old: old, New: value}
	for _, h := range handlers {
		h(evt)
	}
}

// Get returns the value stored at the path
func (s *State) Get(path string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[path]
	return v, ok
}

// Snapshot returns a shallow copy of all stored values keyed by path
func (s *State) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make(map[string]any, len(s.values))
	for k, v := range s.values {
		res[k] = v
	}
	return res
}

// Subscribe registers handler for mutations of path or any path below it.
// The returned function removes the subscription, calling it more than once is fine.
func (s *State) Subscribe(path string, handler Handler) (unsubscribe func()) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subs[path] = append(s.subs[path], subscription{id: id, handler: handler})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			subs := s.subs[path]
			for i, sub := range subs {
				if sub.id != id {
					continue
				}
				// copy so that an in-flight Set keeps its own handler list
				rest := make([]subscription, 0, len(subs)-1)
				rest = append(rest, subs[:i]...)
				s.subs[path] = append(rest, subs[i+1:]...)
				break
			}
			if len(s.subs[path]) == 0 {
				delete(s.subs, path)
			}
		})
	}
}

// Value returns the typed value stored at the path and false if missing or of another type
func Value[T any](s *State, path string) (T, bool) {
	v, ok := s.Get(path)
	if !ok {
		var zero T
		return zero, false
	}
	res, ok := v.(T)
	return res, ok
}

// lineage returns the path followed by its ancestors, root last
func lineage(path string) []string {
	if path == PathRoot {
		return []string{PathRoot}
	}
	res := []string{path}
	for i := strings.LastIndexByte(path, '.'); i >= 0; i = strings.LastIndexByte(path, '.') {
		path = path[:i]
		res = append(res, path)
	}
	return append(res, PathRoot)
}
