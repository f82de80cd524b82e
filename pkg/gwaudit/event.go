// Package gwaudit provides audit logging for gateway session lifecycle
// events (register, unregister, authenticate, schema commit), adapted
// from the teacher's pkg/audit: the same Event/Logger/FileLogger shape,
// scoped to connection handles and device credentials instead of network
// configuration changes.
package gwaudit

import (
	"fmt"
	"time"

	"github.com/prga/knotgw/pkg/knot"
)

// Operation categorizes a gwaudit Event.
type Operation string

const (
	OpRegister     Operation = "register"
	OpUnregister   Operation = "unregister"
	OpAuthenticate Operation = "authenticate"
	OpSchemaCommit Operation = "schema_commit"
	OpRollback     Operation = "rollback"
)

// Event represents one auditable session-lifecycle event.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Handle    int       `json:"handle"`
	DeviceID  uint64    `json:"device_id,omitempty"`
	UUID      string    `json:"uuid,omitempty"`
	Operation Operation `json:"operation"`
	Result    string    `json:"result,omitempty"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// Filter defines criteria for querying audit events.
type Filter struct {
	UUID        string
	Operation   Operation
	StartTime   time.Time
	EndTime     time.Time
	SuccessOnly bool
	FailureOnly bool
	Limit       int
	Offset      int
}

// NewEvent creates a new audit event for handle/op.
func NewEvent(handle int, op Operation) *Event {
	return &Event{
		ID:        generateID(),
		Timestamp: time.Now(),
		Handle:    handle,
		Operation: op,
	}
}

// WithDeviceID sets the device id.
func (e *Event) WithDeviceID(id uint64) *Event {
	e.DeviceID = id
	return e
}

// WithUUID sets the cloud-assigned device UUID.
func (e *Event) WithUUID(uuid string) *Event {
	e.UUID = uuid
	return e
}

// WithResult records the wire result code this operation concluded with.
func (e *Event) WithResult(r knot.Result) *Event {
	e.Result = r.String()
	e.Success = r == knot.Success
	return e
}

// WithError marks the event as failed with the given cause.
func (e *Event) WithError(err error) *Event {
	e.Success = false
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// WithDuration sets the operation duration.
func (e *Event) WithDuration(d time.Duration) *Event {
	e.Duration = d
	return e
}

func generateID() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}
