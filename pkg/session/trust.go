// Package session implements the per-connection Trust record and the
// process-wide registry that owns it, per spec §3 and §4.2-§4.3.
package session

import (
	"sync"
	"sync/atomic"

	"github.com/prga/knotgw/pkg/knot"
)

// NoPeerPID is the sentinel stored as a Trust's PeerPID when the transport
// could not recover a credential for the peer. Using MaxInt32 (rather than
// 0) keeps two credential-less peers from spuriously matching each other's
// register retransmission check, matching the original gateway's
// `cred.pid ?: INT32_MAX` fallback.
const NoPeerPID = int32(1<<31 - 1)

// Trust is the per-connection session record described in spec §3.
//
// Trust is shared between the Registry and any handler invoked while the
// connection is live; Ref/Unref implement that shared ownership with an
// atomic counter so a future concurrent refactor (spec §5) cannot
// invalidate a Trust still in use.
type Trust struct {
	mu sync.Mutex

	DeviceID uint64
	PeerPID  int32
	UUID     string
	Token    string

	// Rollback is true iff the device was just registered and has not yet
	// committed a schema (spec I2).
	Rollback bool

	schema        []knot.SensorSchema // accepted, ordered, unique by SensorID (I3)
	schemaStaging []knot.SensorSchema // in-progress transfer; nil when absent (I4)
	stagingActive bool

	config []knot.SensorConfig

	refs int32
}

// New creates a Trust with refs=1 (the caller's reference); the Registry
// takes its own reference on Insert.
func New(uuid, token string, deviceID uint64, peerPID int32, rollback bool) *Trust {
	return &Trust{
		UUID:     uuid,
		Token:    token,
		DeviceID: deviceID,
		PeerPID:  peerPID,
		Rollback: rollback,
		refs:     1,
	}
}

// Ref increments the reference count and returns t, mirroring the
// original gateway's trust_ref.
func (t *Trust) Ref() *Trust {
	if t == nil {
		return nil
	}
	atomic.AddInt32(&t.refs, 1)
	return t
}

// Unref decrements the reference count. The caller must not touch t after
// a call that drops the count to zero.
func (t *Trust) Unref() {
	if t == nil {
		return
	}
	atomic.AddInt32(&t.refs, -1)
}

// ClearRollback transitions Rollback from true to false. Per invariant I2
// this only ever happens once; calling it again is a harmless no-op.
func (t *Trust) ClearRollback() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Rollback = false
}

// ============================================================================
// Schema store (spec §4.3)
// ============================================================================

// StagingContains reports whether sensorID already has a fragment staged
// in the current transfer.
func (t *Trust) StagingContains(sensorID uint8) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.findIn(t.schemaStaging, sensorID) != nil
}

// StagingAppend copies schema into the staging buffer. Idempotent per
// SensorID: a retransmitted fragment for an id already staged is a no-op,
// keeping the first copy (spec §4.3 policy).
func (t *Trust) StagingAppend(schema knot.SensorSchema) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stagingActive = true
	if t.findIn(t.schemaStaging, schema.SensorID) != nil {
		return
	}
	t.schemaStaging = append(t.schemaStaging, schema)
}

// StagingDiscard frees the staging buffer and marks it absent.
func (t *Trust) StagingDiscard() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.schemaStaging = nil
	t.stagingActive = false
}

// StagingCommit atomically replaces the accepted schema with the staged
// contents, in order, and marks staging absent.
func (t *Trust) StagingCommit() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.schema = t.schemaStaging
	t.schemaStaging = nil
	t.stagingActive = false
}

// StagingSnapshot returns a copy of the in-progress staging sequence, in
// the order fragments were first received.
func (t *Trust) StagingSnapshot() []knot.SensorSchema {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]knot.SensorSchema, len(t.schemaStaging))
	copy(out, t.schemaStaging)
	return out
}

// StagingActive reports whether a schema transfer is currently in
// progress (invariant I4).
func (t *Trust) StagingActive() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stagingActive
}

// FindAccepted returns the accepted schema entry for sensorID, or
// (zero, false) if none exists.
func (t *Trust) FindAccepted(sensorID uint8) (knot.SensorSchema, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s := t.findIn(t.schema, sensorID); s != nil {
		return *s, true
	}
	return knot.SensorSchema{}, false
}

// SetAcceptedSchema replaces the accepted schema wholesale, used when a
// Trust is created from a successful authenticate (spec §4.5.3 step 5,
// which seeds it from the cloud's signin response rather than a staged
// transfer).
func (t *Trust) SetAcceptedSchema(schema []knot.SensorSchema) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.schema = schema
}

// AcceptedSchema returns a copy of the currently accepted schema sequence,
// for diagnostics.
func (t *Trust) AcceptedSchema() []knot.SensorSchema {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]knot.SensorSchema, len(t.schema))
	copy(out, t.schema)
	return out
}

// findIn must be called with t.mu held.
func (t *Trust) findIn(list []knot.SensorSchema, sensorID uint8) *knot.SensorSchema {
	for i := range list {
		if list[i].SensorID == sensorID {
			return &list[i]
		}
	}
	return nil
}

// ============================================================================
// Config (spec §3 "config", §4.5.6)
// ============================================================================

// SetConfig replaces the stored config list wholesale (called after
// authenticate validates a cloud-sent config, or with an empty list on
// validation failure per spec §4.5.3 step 4).
func (t *Trust) SetConfig(cfg []knot.SensorConfig) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.config = cfg
}

// Config returns a copy of the stored config list.
func (t *Trust) Config() []knot.SensorConfig {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]knot.SensorConfig, len(t.config))
	copy(out, t.config)
	return out
}

// RemoveConfig deletes any entry matching sensorID. Removing an absent
// entry is a defined no-op (invariant I5 / spec §5 ordering note).
func (t *Trust) RemoveConfig(sensorID uint8) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := t.config[:0]
	for _, c := range t.config {
		if c.SensorID != sensorID {
			out = append(out, c)
		}
	}
	t.config = out
}
