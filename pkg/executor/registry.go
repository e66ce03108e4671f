package executor

import (
	"sync"

	"github.com/henmie/novelflow/pkg/models"
)

// Manager dispatches node types to registered handlers.
type Manager interface {
	Register(h Handler) error
	Get(t models.NodeType) (Handler, error)
	Has(t models.NodeType) bool
	List() []models.NodeType
}

// Registry is the default thread-safe Manager implementation.
type Registry struct {
	mu       sync.RWMutex
	handlers map[models.NodeType]Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[models.NodeType]Handler)}
}

func (r *Registry) Register(h Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[h.Type()] = h
	return nil
}

func (r *Registry) Get(t models.NodeType) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[t]
	if !ok {
		return nil, models.NewConfigurationError(string(t), models.ErrHandlerNotRegistered)
	}
	return h, nil
}

func (r *Registry) Has(t models.NodeType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[t]
	return ok
}

func (r *Registry) List() []models.NodeType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.NodeType, 0, len(r.handlers))
	for t := range r.handlers {
		out = append(out, t)
	}
	return out
}
