// Package knot defines the wire-level constants and domain record types
// shared by the gateway's PDU codec, session store, and config validator.
package knot

import "fmt"

// ============================================================================
// Wire-format size limits
// ============================================================================

const (
	// UUIDLen is the fixed width of a cloud-assigned device UUID on the wire.
	UUIDLen = 36

	// TokenLen is the fixed width of a cloud-assigned auth token on the wire.
	TokenLen = 40

	// NameLen is the maximum device name length, including the terminating
	// NUL the gateway adds when copying into a local buffer. The effective
	// printable length a peer may send is NameLen-1.
	NameLen = 64

	// SensorNameLen is the fixed width of a sensor's human-readable name.
	SensorNameLen = 24

	// MaxPDU is the largest frame (header + payload) the codec will ever
	// decode or encode.
	MaxPDU = 2 + 255
)

// ============================================================================
// PDU message types (header.Type)
// ============================================================================

const (
	MsgRegisterReq  uint8 = 0x10
	MsgRegisterResp uint8 = 0x11
	MsgUnregisterReq  uint8 = 0x12
	MsgUnregisterResp uint8 = 0x13
	MsgAuthReq  uint8 = 0x14
	MsgAuthResp uint8 = 0x15
	MsgSchema        uint8 = 0x20
	MsgSchemaResp    uint8 = 0x21
	MsgSchemaEnd     uint8 = 0x22
	MsgSchemaEndResp uint8 = 0x23
	MsgData        uint8 = 0x30
	MsgDataResp    uint8 = 0x31
	MsgConfigResp  uint8 = 0x32
)

// ============================================================================
// Result codes (carried in the `result` byte of responses)
// ============================================================================

// Result is the taxonomy of outcomes a handler may report, per spec §7.
type Result int8

const (
	Success                   Result = 0
	CredentialUnauthorized    Result = 1
	RegisterInvalidDeviceName Result = 2
	SchemaEmpty               Result = 3
	InvalidData               Result = 4
	NoData                    Result = 5
	ErrorUnknown              Result = 6
)

func (r Result) String() string {
	switch r {
	case Success:
		return "SUCCESS"
	case CredentialUnauthorized:
		return "CREDENTIAL_UNAUTHORIZED"
	case RegisterInvalidDeviceName:
		return "REGISTER_INVALID_DEVICENAME"
	case SchemaEmpty:
		return "SCHEMA_EMPTY"
	case InvalidData:
		return "INVALID_DATA"
	case NoData:
		return "NO_DATA"
	case ErrorUnknown:
		return "ERROR_UNKNOWN"
	default:
		return fmt.Sprintf("RESULT(%d)", int8(r))
	}
}

// ============================================================================
// Event flags (sensor configuration bitmask)
// ============================================================================

// EventFlags is the bitmask over the events a sensor config can trigger on.
type EventFlags uint8

const (
	EvtNone            EventFlags = 0
	EvtTime            EventFlags = 1 << 0
	EvtLowerThreshold  EventFlags = 1 << 1
	EvtUpperThreshold  EventFlags = 1 << 2
	EvtChange          EventFlags = 1 << 3
	EvtUnregistered    EventFlags = 1 << 4

	// evtKnownMask is the union of every flag the gateway recognizes.
	// Any other bit set (with no recognized bit also set) is treated the
	// same as EvtNone: it fails the "at least one known flag" check.
	evtKnownMask = EvtTime | EvtLowerThreshold | EvtUpperThreshold | EvtChange | EvtUnregistered
)

// Decimal is a signed fixed-point value split into integer and fractional
// parts, matching the wire representation of thresholds.
type Decimal struct {
	IntPart  int32
	FracPart int32
}

// Less reports whether d orders strictly before o, lexicographic on
// (IntPart, FracPart).
func (d Decimal) Less(o Decimal) bool {
	if d.IntPart != o.IntPart {
		return d.IntPart < o.IntPart
	}
	return d.FracPart < o.FracPart
}

// SensorSchema describes one sensor a device exposes.
type SensorSchema struct {
	SensorID  uint8
	TypeID    uint16
	ValueType uint8
	Unit      uint8
	Name      string
}

// SensorConfig is a single sensor's event-trigger configuration as sent by
// the cloud.
type SensorConfig struct {
	SensorID   uint8
	EventFlags EventFlags
	TimeSec    uint32
	LowerLimit Decimal
	UpperLimit Decimal
}

// SchemaIsValid is the external pure predicate referenced by spec §3: it
// decides whether a (type_id, value_type, unit) triple is a coherent sensor
// schema. The gateway core treats it as injectable (handler tests supply a
// permissive or hostile stub); DefaultSchemaIsValid is the production rule.
type SchemaIsValid func(typeID uint16, valueType, unit uint8) bool

// DefaultSchemaIsValid rejects a zero type id or a zero value type: a
// schema fragment that never declared either is never valid, regardless
// of what the wire otherwise allowed through. The unit is not checked.
func DefaultSchemaIsValid(typeID uint16, valueType, unit uint8) bool {
	return typeID != 0 && valueType != 0
}
