package wire

import (
	"testing"

	"github.com/prga/knotgw/pkg/knot"
)

func TestDecodeShortHeader(t *testing.T) {
	_, err := Decode([]byte{0x10})
	if err != ErrShortHeader {
		t.Fatalf("got %v, want ErrShortHeader", err)
	}
}

func TestDecodeLengthMismatch(t *testing.T) {
	_, err := Decode([]byte{knot.MsgRegisterReq, 5, 1, 2})
	if err != ErrLengthMismatch {
		t.Fatalf("got %v, want ErrLengthMismatch", err)
	}
}

func TestDecodeUnregisterEmptyBody(t *testing.T) {
	f, err := Decode([]byte{knot.MsgUnregisterReq, 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Type != knot.MsgUnregisterReq {
		t.Fatalf("got type 0x%02x", f.Type)
	}
}

func buildRegisterBody(id uint64, name string) []byte {
	body := make([]byte, 8+len(name))
	for i := 0; i < 8; i++ {
		body[i] = byte(id >> uint(56-8*i))
	}
	copy(body[8:], name)
	return body
}

func TestDecodeRegisterRoundTrip(t *testing.T) {
	body := buildRegisterBody(42, "sensor-a")
	input := append([]byte{knot.MsgRegisterReq, byte(len(body))}, body...)

	f, err := Decode(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Register == nil {
		t.Fatal("expected parsed Register body")
	}
	if f.Register.DeviceID != 42 {
		t.Fatalf("got device id %d, want 42", f.Register.DeviceID)
	}
	if f.Register.DeviceName != "sensor-a" {
		t.Fatalf("got name %q", f.Register.DeviceName)
	}
}

func TestDecodeRegisterNameTruncatedAtEmbeddedNUL(t *testing.T) {
	name := append([]byte("abc"), 0, 'x', 'y')
	body := append(buildRegisterBody(1, "")[:8], name...)
	input := append([]byte{knot.MsgRegisterReq, byte(len(body))}, body...)

	f, err := Decode(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Register.DeviceName != "abc" {
		t.Fatalf("got name %q, want \"abc\"", f.Register.DeviceName)
	}
}

func TestDecodeRegisterTooShortBodyYieldsNilRegister(t *testing.T) {
	body := make([]byte, 8) // device id only, no name byte
	input := append([]byte{knot.MsgRegisterReq, byte(len(body))}, body...)

	f, err := Decode(input)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if f.Register != nil {
		t.Fatal("expected nil Register for a body with no name byte")
	}
}

func TestDecodeAuthRoundTrip(t *testing.T) {
	uuid := make([]byte, knot.UUIDLen)
	token := make([]byte, knot.TokenLen)
	for i := range uuid {
		uuid[i] = 'u'
	}
	for i := range token {
		token[i] = 't'
	}
	body := append(append([]byte{}, uuid...), token...)
	input := append([]byte{knot.MsgAuthReq, byte(len(body))}, body...)

	f, err := Decode(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Auth == nil {
		t.Fatal("expected parsed Auth body")
	}
	if f.Auth.UUID != string(uuid) || f.Auth.Token != string(token) {
		t.Fatal("uuid/token did not round-trip")
	}
}

func TestEncodeRegisterResp(t *testing.T) {
	buf := make([]byte, maxResponseLen)
	n, err := Encode(ResponseFrame{
		Type:   knot.MsgRegisterResp,
		Result: knot.Success,
		Credential: &CredentialResp{
			UUID:  "u",
			Token: "t",
		},
	}, buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if buf[0] != knot.MsgRegisterResp {
		t.Fatalf("got type 0x%02x", buf[0])
	}
	wantLen := 1 + knot.UUIDLen + knot.TokenLen
	if int(buf[1]) != wantLen {
		t.Fatalf("got payload_len %d, want %d", buf[1], wantLen)
	}
	if n != headerLen+wantLen {
		t.Fatalf("got n=%d, want %d", n, headerLen+wantLen)
	}
	if buf[2] != byte(knot.Success) {
		t.Fatalf("got result byte %d", buf[2])
	}
}

func TestEncodeOutputTooSmall(t *testing.T) {
	buf := make([]byte, 1)
	_, err := Encode(ResponseFrame{Type: knot.MsgUnregisterResp, Result: knot.Success}, buf)
	if err != ErrOutputTooSmall {
		t.Fatalf("got %v, want ErrOutputTooSmall", err)
	}
}
