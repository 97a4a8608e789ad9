package messenger

import (
	"fmt"
	"sort"
	"sync"

	"github.com/muurk/framelink/internal/layout"
)

// Message id bounds accepted by Register.
const (
	MinMessageID = 0
	MaxMessageID = 255
)

// HandlerFunc receives the decoded fields of one message, in layout order.
// A returned error stops the messenger.
type HandlerFunc func(id int, fields []any) error

// Entry is one registered message.
type Entry struct {
	ID      int
	Layout  *layout.Layout
	Handler HandlerFunc
}

// Registry maps message ids to layouts and handlers.
// It is safe to register while a messenger is reading.
type Registry struct {
	mu      sync.RWMutex
	entries map[int]Entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[int]Entry)}
}

// Register stores handler and layout under id, replacing any earlier entry.
func (r *Registry) Register(id int, handler HandlerFunc, spec string) error {
	if id < MinMessageID || id > MaxMessageID {
		return newError(KindInvalidMessageID,
			fmt.Sprintf("message id %d must be between %d and %d (inclusive)", id, MinMessageID, MaxMessageID), nil)
	}
	l, err := layout.Compile(spec)
	if err != nil {
		return newError(KindInvalidTypeSpec, fmt.Sprintf("message id %d", id), err)
	}
	if handler == nil {
		return ErrNilHandler
	}

	r.mu.Lock()
	r.entries[id] = Entry{ID: id, Layout: l, Handler: handler}
	r.mu.Unlock()
	return nil
}

// Lookup returns the entry for id. ok is false when nothing is registered.
func (r *Registry) Lookup(id int) (Entry, bool) {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	return e, ok
}

// Unregister removes id. Frames for it are dropped from then on.
func (r *Registry) Unregister(id int) {
	r.mu.Lock()
	delete(r.entries, id)
	r.mu.Unlock()
}

// IDs returns the registered ids in ascending order.
func (r *Registry) IDs() []int {
	r.mu.RLock()
	ids := make([]int, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Ints(ids)
	return ids
}

// Len returns the number of registered messages.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
