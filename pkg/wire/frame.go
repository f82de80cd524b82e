// Package wire implements the thing-facing PDU codec: decoding a
// header-prefixed binary frame into a tagged request variant, and encoding
// a response variant back into bytes.
package wire

import (
	"errors"
	"fmt"

	"github.com/prga/knotgw/pkg/knot"
)

// Decode-level errors. These are the only failures the codec itself raises;
// anything wrong with a specific request's body (e.g. an empty device name)
// is a handler-level result code, not a decode error, so that the
// dispatcher can still reply with a well-formed response PDU.
var (
	ErrShortHeader    = errors.New("wire: input shorter than header")
	ErrLengthMismatch = errors.New("wire: input length does not match header payload_len")
	ErrOutputTooSmall = errors.New("wire: output buffer smaller than max response frame")
)

const headerLen = 2

// Header is the fixed 2-byte frame prefix: {type, payload_len}.
type Header struct {
	Type       uint8
	PayloadLen uint8
}

// RegisterReq is the REGISTER_REQ body: a 64-bit device id followed by a
// bounded, not-necessarily-NUL-terminated device name.
type RegisterReq struct {
	DeviceID   uint64
	DeviceName string
}

// AuthReq is the AUTH_REQ body: fixed-width UUID and token, neither
// NUL-terminated on the wire.
type AuthReq struct {
	UUID  string
	Token string
}

// SchemaFragment is the SCHEMA / SCHEMA_END body: one sensor descriptor.
// EOF is true when the frame's header type was SCHEMA_END.
type SchemaFragment struct {
	Sensor knot.SensorSchema
	EOF    bool
}

// DataReq is the DATA / DATA_RESP (setdata-response) body: a sensor id and
// an opaque fixed-width payload whose interpretation depends on the
// sensor's accepted schema (value_type).
type DataReq struct {
	SensorID uint8
	Payload  [8]byte
}

// ConfigRespReq is the CONFIG_RESP body: the sensor id the thing is
// acknowledging.
type ConfigRespReq struct {
	SensorID uint8
}

// Frame is the decoded request, a tagged variant indexed by Type. At most
// one of the typed fields is non-nil for the request kinds that carry a
// body; Register/Auth/Schema/Data/SetData/ConfigResp may also be nil even
// when Type matches their kind, signaling a body too short to parse — callers must
// treat that as a handler-level validation failure, not route it as if it
// were well-formed.
type Frame struct {
	Type uint8

	Register   *RegisterReq
	Auth       *AuthReq
	Schema     *SchemaFragment
	Data       *DataReq
	SetData    *DataReq
	ConfigResp *ConfigRespReq
}

// Decode parses a raw input buffer into a Frame. It never reads past
// payload_len bytes of body, and treats embedded strings as fixed-width,
// non-NUL-terminated byte ranges.
func Decode(input []byte) (Frame, error) {
	if len(input) < headerLen {
		return Frame{}, ErrShortHeader
	}

	hdr := Header{Type: input[0], PayloadLen: input[1]}
	if len(input) != headerLen+int(hdr.PayloadLen) {
		return Frame{}, ErrLengthMismatch
	}

	body := input[headerLen:]
	f := Frame{Type: hdr.Type}

	switch hdr.Type {
	case knot.MsgRegisterReq:
		f.Register = decodeRegister(body)
	case knot.MsgUnregisterReq:
		// empty body, nothing to decode
	case knot.MsgAuthReq:
		f.Auth = decodeAuth(body)
	case knot.MsgSchema, knot.MsgSchemaEnd:
		f.Schema = decodeSchema(body, hdr.Type == knot.MsgSchemaEnd)
	case knot.MsgData:
		f.Data = decodeData(body)
	case knot.MsgDataResp:
		f.SetData = decodeData(body)
	case knot.MsgConfigResp:
		f.ConfigResp = decodeConfigResp(body)
	default:
		// Unknown type: header parsed fine, dispatcher replies with 0 octets.
	}

	return f, nil
}

func decodeRegister(body []byte) *RegisterReq {
	// Minimum: 8-byte device id plus at least one name byte, per spec §4.5.1.
	if len(body) <= 8 {
		return nil
	}
	id := beUint64(body[0:8])
	nameBytes := body[8:]
	if len(nameBytes) > knot.NameLen-1 {
		nameBytes = nameBytes[:knot.NameLen-1]
	}
	// The name field is not required to be NUL-terminated on the wire, but
	// an embedded NUL (if present) still terminates the effective name.
	n := len(nameBytes)
	for i, b := range nameBytes {
		if b == 0 {
			n = i
			break
		}
	}
	return &RegisterReq{DeviceID: id, DeviceName: string(nameBytes[:n])}
}

func decodeAuth(body []byte) *AuthReq {
	if len(body) < knot.UUIDLen+knot.TokenLen {
		return nil
	}
	return &AuthReq{
		UUID:  string(body[0:knot.UUIDLen]),
		Token: string(body[knot.UUIDLen : knot.UUIDLen+knot.TokenLen]),
	}
}

// schemaWireLen is sensor_id(1) + type_id(2) + value_type(1) + unit(1) +
// name(SensorNameLen).
const schemaWireLen = 1 + 2 + 1 + 1 + knot.SensorNameLen

func decodeSchema(body []byte, eof bool) *SchemaFragment {
	if len(body) < schemaWireLen {
		return nil
	}
	nameBytes := body[5:schemaWireLen]
	// Name is fixed-width and not necessarily NUL-terminated; trim at the
	// first NUL if present, otherwise use the full field.
	n := len(nameBytes)
	for i, b := range nameBytes {
		if b == 0 {
			n = i
			break
		}
	}
	return &SchemaFragment{
		Sensor: knot.SensorSchema{
			SensorID:  body[0],
			TypeID:    beUint16(body[1:3]),
			ValueType: body[3],
			Unit:      body[4],
			Name:      string(nameBytes[:n]),
		},
		EOF: eof,
	}
}

func decodeData(body []byte) *DataReq {
	if len(body) < 1+8 {
		return nil
	}
	d := &DataReq{SensorID: body[0]}
	copy(d.Payload[:], body[1:9])
	return d
}

func decodeConfigResp(body []byte) *ConfigRespReq {
	if len(body) < 1 {
		return nil
	}
	return &ConfigRespReq{SensorID: body[0]}
}

// ResponseFrame is the tagged response variant the dispatcher assembles
// after a handler runs.
type ResponseFrame struct {
	Type   uint8
	Result knot.Result

	// Credential is populated only for REGISTER_RESP.
	Credential *CredentialResp
}

// CredentialResp is the REGISTER_RESP body beyond the result byte.
type CredentialResp struct {
	UUID  string
	Token string
}

// maxResponseLen is the largest encoded response: header + result(1) +
// uuid(UUIDLen) + token(TokenLen).
const maxResponseLen = headerLen + 1 + knot.UUIDLen + knot.TokenLen

// Encode serializes resp into buf and returns the number of bytes written.
func Encode(resp ResponseFrame, buf []byte) (int, error) {
	if len(buf) < maxResponseLen {
		return 0, ErrOutputTooSmall
	}

	buf[0] = resp.Type

	n := headerLen
	buf[n] = byte(resp.Result)
	n++

	if resp.Credential != nil {
		n += copyFixed(buf[n:], resp.Credential.UUID, knot.UUIDLen)
		n += copyFixed(buf[n:], resp.Credential.Token, knot.TokenLen)
	}

	buf[1] = byte(n - headerLen)
	return n, nil
}

// copyFixed copies s into dst, truncating or zero-padding to exactly width
// bytes, and returns width.
func copyFixed(dst []byte, s string, width int) int {
	n := copy(dst[:width], s)
	for ; n < width; n++ {
		dst[n] = 0
	}
	return width
}

func beUint16(b []byte) uint16 {
	return uint16(b[0])<<8 | uint16(b[1])
}

func beUint64(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}

// String renders a Header for log lines, mirroring the original gateway's
// "KNOT OP: 0x%02X LEN: %02x" trace line.
func (h Header) String() string {
	return fmt.Sprintf("type=0x%02x len=%d", h.Type, h.PayloadLen)
}
