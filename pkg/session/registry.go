package session

import "sync"

// Handle identifies a connection, process-locally. It is typically the
// underlying file descriptor or an opaque monotonic id the transport
// layer assigns on accept.
type Handle int

// Finalizer is invoked once, with the registry's own reference, for every
// Trust a Remove/DestroyAll disposes of while it still had Rollback set —
// the hook spec §4.6 calls the "rollback policy on disconnect". The
// finalizer owns the passed reference and must Unref it.
type Finalizer func(Handle, *Trust)

// Registry is the process-wide handle→Trust map described in spec §4.2.
// Unlike the original single-threaded event loop, this gateway accepts
// each connection on its own goroutine (see SPEC_FULL.md §4.2), so the
// map itself needs its own lock even though no single Trust is ever
// accessed from two goroutines at once in the steady state.
type Registry struct {
	mu      sync.Mutex
	byHandle map[Handle]*Trust
}

// NewRegistry creates an empty registry. This is the Go-level start()
// from spec §6.
func NewRegistry() *Registry {
	return &Registry{byHandle: make(map[Handle]*Trust)}
}

// Insert stores trust under handle, taking the registry's own reference.
// A handle already present has its prior Trust replaced; the registry's
// reference to the old Trust is released.
func (r *Registry) Insert(handle Handle, trust *Trust) {
	r.mu.Lock()
	old, existed := r.byHandle[handle]
	r.byHandle[handle] = trust.Ref()
	r.mu.Unlock()

	if existed {
		old.Unref()
	}
}

// Lookup returns the Trust for handle without transferring ownership, or
// (nil, false) if absent. Callers that retain the pointer beyond the
// current call must Ref it themselves.
func (r *Registry) Lookup(handle Handle) (*Trust, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byHandle[handle]
	return t, ok
}

// Remove deletes and returns the Trust for handle, transferring the
// registry's reference to the caller. If the removed Trust still had
// Rollback set, finalize (if non-nil) is invoked with that same
// reference instead of returning it to the caller.
func (r *Registry) Remove(handle Handle, finalize Finalizer) (*Trust, bool) {
	r.mu.Lock()
	t, ok := r.byHandle[handle]
	if ok {
		delete(r.byHandle, handle)
	}
	r.mu.Unlock()

	if !ok {
		return nil, false
	}

	if t.Rollback && finalize != nil {
		finalize(handle, t)
		return nil, true
	}

	return t, true
}

// DestroyAll finalizes every remaining Trust (honoring rollback, spec
// §4.6 and §6 stop()) and empties the registry.
func (r *Registry) DestroyAll(finalize Finalizer) {
	r.mu.Lock()
	remaining := r.byHandle
	r.byHandle = make(map[Handle]*Trust)
	r.mu.Unlock()

	for handle, t := range remaining {
		if t.Rollback && finalize != nil {
			finalize(handle, t)
			continue
		}
		t.Unref()
	}
}

// Session is a read-only snapshot of one live Trust, used for diagnostics
// (cmd/knotgwctl) where exposing the live *Trust would be unsafe.
type Session struct {
	Handle   Handle
	DeviceID uint64
	UUID     string
	Rollback bool
	Schemas  int
	Configs  int
}

// Snapshot returns a point-in-time view of every registered session.
func (r *Registry) Snapshot() []Session {
	r.mu.Lock()
	handles := make([]Handle, 0, len(r.byHandle))
	trusts := make([]*Trust, 0, len(r.byHandle))
	for h, t := range r.byHandle {
		handles = append(handles, h)
		trusts = append(trusts, t)
	}
	r.mu.Unlock()

	out := make([]Session, len(handles))
	for i, h := range handles {
		t := trusts[i]
		out[i] = Session{
			Handle:   h,
			DeviceID: t.DeviceID,
			UUID:     t.UUID,
			Rollback: t.Rollback,
			Schemas:  len(t.AcceptedSchema()),
			Configs:  len(t.Config()),
		}
	}
	return out
}

// Len returns the number of live sessions, mostly for tests.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byHandle)
}
