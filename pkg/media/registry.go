// ABOUTME: Identifier-to-handle registry and status dispatch
// ABOUTME: Routes asynchronous executor events to the owning handle

package media

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/mediarec/mediarec-go/pkg/protocol"
)

// Registry owns the mapping from handle identifiers to live handles and is
// the single entry point for asynchronous status events. Its lifecycle is
// tied to the owning application session, not to the process.
type Registry struct {
	mu      sync.RWMutex
	handles map[string]*Media
	log     zerolog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		handles: make(map[string]*Media),
		log:     logger.With().Str("component", "registry").Logger(),
	}
}

// Add registers a handle under its identifier.
func (r *Registry) Add(m *Media) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handles[m.id] = m
}

// Get returns the handle for an identifier, or nil.
func (r *Registry) Get(id string) *Media {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.handles[id]
}

// Remove drops a handle from the registry. Release never calls this; the
// owner decides when events for an identifier stop being routable.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handles, id)
}

// Len returns the number of registered handles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}

// Dispatch routes one status event to the handle owning the identifier.
// Events for unknown identifiers are dropped with a diagnostic: they may
// arrive after an owner forgot the handle or before registration completed,
// and must never take down the dispatch path.
func (r *Registry) Dispatch(id string, msgType protocol.MsgType, value any) {
	m := r.Get(id)
	if m == nil {
		r.log.Debug().Str("id", id).Int("msg_type", int(msgType)).
			Msg("dropping status event for unknown media id")
		return
	}

	switch msgType {
	case protocol.MsgState:
		state, ok := protocol.CoerceState(value)
		if !ok {
			r.log.Warn().Str("id", id).Interface("value", value).
				Msg("unintelligible state value")
			return
		}
		m.setState(state)
		m.notifyStatus(state)
		// Natural completion counts as overall success. The status
		// callback has already observed the transition at this point.
		if state == protocol.StateStopped {
			m.notifySuccess()
		}

	case protocol.MsgDuration:
		if d, ok := protocol.CoerceNumber(value); ok {
			m.setDuration(d)
		}

	case protocol.MsgPosition:
		if p, ok := protocol.CoerceNumber(value); ok {
			m.setPosition(p)
		}

	case protocol.MsgError:
		m.notifyError(protocol.AsMediaError(value))

	default:
		r.log.Warn().Str("id", id).Int("msg_type", int(msgType)).
			Msg("unrecognized status message type")
	}
}
