package gateway

import (
	"errors"
	"sync"
	"time"

	"github.com/teris-io/shortid"

	"github.com/tripmesh/gateway/internal/types"
)

var (
	ErrAlreadyAuthenticated = errors.New("connection already authenticated")
	ErrConnNotFound         = errors.New("connection not found")
)

// Binding is the identity and vacation party bound to a connection after
// a successful authenticate.
type Binding struct {
	Identity   types.Identity
	VacationID string
}

type connEntry struct {
	client    *Client
	binding   Binding
	bound     bool
	createdAt time.Time
}

// Registry owns every live connection. Rooms and presence hold only
// connection ids; the registry is the sole owner of the client values.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*connEntry
	sid   *shortid.Shortid
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]*connEntry),
		sid:   shortid.MustNew(1, shortid.DefaultABC, uint64(time.Now().UnixNano())),
	}
}

// Register allocates a connection id for a newly accepted transport. No
// identity is bound yet.
func (r *Registry) Register(c *Client) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.sid.MustGenerate()
	for _, exists := r.conns[id]; exists; _, exists = r.conns[id] {
		id = r.sid.MustGenerate()
	}

	r.conns[id] = &connEntry{
		client:    c,
		createdAt: Now(),
	}

	return id
}

// Bind attaches an identity, and optionally a vacation party, to a
// registered connection. It succeeds at most once per connection.
func (r *Registry) Bind(connID string, identity types.Identity, vacationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.conns[connID]
	if !ok {
		return ErrConnNotFound
	}

	if entry.bound {
		return ErrAlreadyAuthenticated
	}

	entry.binding = Binding{
		Identity:   identity,
		VacationID: vacationID,
	}
	entry.bound = true

	return nil
}

// Binding returns the identity bound to a connection. The second return
// is false for unknown or not yet authenticated connections.
func (r *Registry) Binding(connID string) (Binding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.conns[connID]
	if !ok || !entry.bound {
		return Binding{}, false
	}

	return entry.binding, true
}

// Client returns the live client for a connection id.
func (r *Registry) Client(connID string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.conns[connID]
	if !ok {
		return nil, false
	}

	return entry.client, true
}

// Unregister removes a connection and returns its last-known binding so
// the caller can run room and presence cleanup. Unregistering an already
// removed id is a no-op.
func (r *Registry) Unregister(connID string) (Binding, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.conns[connID]
	if !ok {
		return Binding{}, false
	}

	delete(r.conns, connID)

	return entry.binding, true
}

// Clients snapshots every live client, bound or not.
func (r *Registry) Clients() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clients := make([]*Client, 0, len(r.conns))
	for _, entry := range r.conns {
		clients = append(clients, entry.client)
	}

	return clients
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.conns)
}
