// Package cloud defines the contract the session handlers consume for the
// remote cloud service (spec §6 "Cloud client contract"). The cloud
// client itself is an external collaborator out of scope for this
// repository; this package only pins down its interface, a typed error
// for surfacing cloud result codes verbatim, and a ResultOf helper the
// handlers use to translate an arbitrary error into a wire result code.
package cloud

import (
	"context"
	"errors"

	"github.com/prga/knotgw/pkg/knot"
)

// Client is the cloud capability injected into the session handlers.
// Every method's error, when non-nil, should be a *Error so its Result
// rides into the response PDU unchanged (spec §7 "Propagation policy").
type Client interface {
	// Mknode registers a new device with the cloud, returning its
	// cloud-assigned UUID and auth token.
	Mknode(ctx context.Context, deviceName string, deviceID uint64) (uuid, token string, err error)

	// Rmnode removes a device from the cloud.
	Rmnode(ctx context.Context, uuid, token string) error

	// Signin authenticates uuid/token with the cloud, returning the
	// device's schema and config as currently known to the cloud. A nil
	// schema with a nil error means the cloud has no schema on file yet.
	Signin(ctx context.Context, uuid, token string) (schema []knot.SensorSchema, cfg []knot.SensorConfig, err error)

	// Schema submits the fully staged sensor schema for commit.
	Schema(ctx context.Context, uuid, token string, schema []knot.SensorSchema) error

	// Data publishes one sensor reading.
	Data(ctx context.Context, uuid, token string, sensorID uint8, valueType uint8, payload [8]byte) error

	// Getdata requests any pending set-data for sensorID be queued for
	// delivery back to the device. Its result is never surfaced to the
	// thing (spec §4.5.5 step 5, fire-and-forget).
	Getdata(ctx context.Context, uuid, token string, sensorID uint8) error

	// Setdata consumes (acknowledges) the pending set-data record for
	// sensorID.
	Setdata(ctx context.Context, uuid, token string, sensorID uint8) error
}

// Error wraps a knot.Result returned by a cloud operation so handlers can
// surface it verbatim in the response PDU, per spec §7: "the cloud's code
// values are coextensive with the core's".
type Error struct {
	Result knot.Result
	Cause  error // optional underlying transport/protocol error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return "cloud: " + e.Result.String() + ": " + e.Cause.Error()
	}
	return "cloud: " + e.Result.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError wraps cause (which may be nil) with result.
func NewError(result knot.Result, cause error) *Error {
	return &Error{Result: result, Cause: cause}
}

// ResultOf translates err into a wire result code: nil maps to Success,
// a *cloud.Error surfaces its Result unchanged, and anything else maps
// to ErrorUnknown (spec §7: "unspecified/propagated internal failure").
func ResultOf(err error) knot.Result {
	if err == nil {
		return knot.Success
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Result
	}
	return knot.ErrorUnknown
}
