package dispatch

import (
	"context"
	"testing"

	"github.com/prga/knotgw/pkg/cloud/cloudtest"
	"github.com/prga/knotgw/pkg/handler"
	"github.com/prga/knotgw/pkg/knot"
	"github.com/prga/knotgw/pkg/session"
)

func newTestDeps() (handler.Deps, *cloudtest.Client) {
	cl := cloudtest.New()
	return handler.Deps{Registry: session.NewRegistry(), Cloud: cl}, cl
}

const outBufLen = 2 + 1 + knot.UUIDLen + knot.TokenLen

func registerFrame(deviceID uint64, name string) []byte {
	body := make([]byte, 8+len(name))
	for i := 7; i >= 0; i-- {
		body[i] = byte(deviceID)
		deviceID >>= 8
	}
	copy(body[8:], name)
	return append([]byte{knot.MsgRegisterReq, byte(len(body))}, body...)
}

func authFrame(uuid, token string) []byte {
	body := make([]byte, knot.UUIDLen+knot.TokenLen)
	copy(body[0:knot.UUIDLen], uuid)
	copy(body[knot.UUIDLen:], token)
	return append([]byte{knot.MsgAuthReq, byte(len(body))}, body...)
}

func configRespFrame(sensorID uint8) []byte {
	return []byte{knot.MsgConfigResp, 1, sensorID}
}

func setDataRespFrame(sensorID uint8, payload [8]byte) []byte {
	body := append([]byte{sensorID}, payload[:]...)
	return append([]byte{knot.MsgDataResp, byte(len(body))}, body...)
}

func dataFrame(sensorID uint8, payload [8]byte) []byte {
	body := append([]byte{sensorID}, payload[:]...)
	return append([]byte{knot.MsgData, byte(len(body))}, body...)
}

func TestDispatchRejectsOutputBufferTooSmall(t *testing.T) {
	deps, _ := newTestDeps()
	out := make([]byte, outBufLen-1)
	_, err := Dispatch(context.Background(), deps, 1, nil, registerFrame(1, "x"), out)
	if err != ErrInvalid {
		t.Fatalf("got %v, want ErrInvalid", err)
	}
}

func TestDispatchRejectsShortHeader(t *testing.T) {
	deps, _ := newTestDeps()
	out := make([]byte, outBufLen)
	_, err := Dispatch(context.Background(), deps, 1, nil, []byte{knot.MsgUnregisterReq}, out)
	if err != ErrInvalid {
		t.Fatalf("got %v, want ErrInvalid", err)
	}
}

func TestDispatchRejectsLengthMismatch(t *testing.T) {
	deps, _ := newTestDeps()
	out := make([]byte, outBufLen)
	input := []byte{knot.MsgUnregisterReq, 5}
	_, err := Dispatch(context.Background(), deps, 1, nil, input, out)
	if err != ErrInvalid {
		t.Fatalf("got %v, want ErrInvalid", err)
	}
}

func TestDispatchUnknownTypeYieldsNoReply(t *testing.T) {
	deps, _ := newTestDeps()
	out := make([]byte, outBufLen)
	n, err := Dispatch(context.Background(), deps, 1, nil, []byte{0xFF, 0}, out)
	if err != nil || n != 0 {
		t.Fatalf("got (%d, %v), want (0, nil)", n, err)
	}
}

func TestDispatchRegisterRoutesToHandlerAndResolvesPeerCreds(t *testing.T) {
	deps, cl := newTestDeps()
	var gotHandle session.Handle
	peerCreds := func(handle session.Handle) (int32, error) {
		gotHandle = handle
		return 4242, nil
	}

	out := make([]byte, outBufLen)
	n, err := Dispatch(context.Background(), deps, 7, peerCreds, registerFrame(1, "thing-a"), out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n == 0 {
		t.Fatal("expected a non-empty response for REGISTER_REQ")
	}
	if cl.MknodeCalls != 1 {
		t.Fatalf("got %d mknode calls, want 1", cl.MknodeCalls)
	}
	if gotHandle != 7 {
		t.Fatalf("got handle %d passed to peerCreds, want 7", gotHandle)
	}
	trust, ok := deps.Registry.Lookup(7)
	if !ok {
		t.Fatal("expected a session registered under handle 7")
	}
	if trust.PeerPID != 4242 {
		t.Fatalf("got peer pid %d, want 4242 resolved via PeerCredentials", trust.PeerPID)
	}
}

func TestDispatchUnregisterRoutesToHandler(t *testing.T) {
	deps, cl := newTestDeps()
	trust := session.New("uuid", "token", 1, session.NoPeerPID, false)
	deps.Registry.Insert(1, trust)
	trust.Unref()

	out := make([]byte, outBufLen)
	n, err := Dispatch(context.Background(), deps, 1, nil, []byte{knot.MsgUnregisterReq, 0}, out)
	if err != nil || n == 0 {
		t.Fatalf("got (%d, %v), want a non-empty response with no error", n, err)
	}
	if cl.RmnodeCalls != 1 {
		t.Fatalf("got %d rmnode calls, want 1", cl.RmnodeCalls)
	}
}

func TestDispatchAuthWithMalformedBodyYieldsErrorUnknown(t *testing.T) {
	deps, _ := newTestDeps()
	// payload_len too short to decode a full UUID+token but still matches
	// the header so Decode succeeds with a nil Auth field.
	input := []byte{knot.MsgAuthReq, 2, 0, 0}
	out := make([]byte, outBufLen)
	n, err := Dispatch(context.Background(), deps, 1, nil, input, out)
	if err != nil || n == 0 {
		t.Fatalf("got (%d, %v), want a response with no dispatch error", n, err)
	}
	if out[2] != byte(knot.ErrorUnknown) {
		t.Fatalf("got result byte %d, want ErrorUnknown", out[2])
	}
}

func TestDispatchAuthRoutesToHandler(t *testing.T) {
	deps, cl := newTestDeps()
	cl.SigninFunc = func(ctx context.Context, uuid, token string) ([]knot.SensorSchema, []knot.SensorConfig, error) {
		return []knot.SensorSchema{{SensorID: 1, TypeID: 1, ValueType: 1, Unit: 1}}, nil, nil
	}
	input := authFrame("uuid", "token")
	out := make([]byte, outBufLen)
	n, err := Dispatch(context.Background(), deps, 1, nil, input, out)
	if err != nil || n == 0 {
		t.Fatalf("got (%d, %v), want a successful response", n, err)
	}
	if out[2] != byte(knot.Success) {
		t.Fatalf("got result byte %d, want Success", out[2])
	}
	if cl.SigninCalls != 1 {
		t.Fatalf("got %d signin calls, want 1", cl.SigninCalls)
	}
}

func TestDispatchDataWithNilBodyYieldsInvalidData(t *testing.T) {
	deps, _ := newTestDeps()
	input := []byte{knot.MsgData, 0}
	out := make([]byte, outBufLen)
	n, err := Dispatch(context.Background(), deps, 1, nil, input, out)
	if err != nil || n == 0 {
		t.Fatalf("got (%d, %v), want a response with no dispatch error", n, err)
	}
	if out[2] != byte(knot.InvalidData) {
		t.Fatalf("got result byte %d, want InvalidData", out[2])
	}
}

func TestDispatchConfigRespYieldsNoReplyAndRemovesEntry(t *testing.T) {
	deps, _ := newTestDeps()
	trust := session.New("uuid", "token", 1, session.NoPeerPID, true)
	trust.SetConfig([]knot.SensorConfig{{SensorID: 3}})
	deps.Registry.Insert(1, trust)
	trust.Unref()

	out := make([]byte, outBufLen)
	n, err := Dispatch(context.Background(), deps, 1, nil, configRespFrame(3), out)
	if err != nil || n != 0 {
		t.Fatalf("got (%d, %v), want (0, nil)", n, err)
	}
	if len(trust.Config()) != 0 {
		t.Fatal("expected config entry removed by CONFIG_RESP")
	}
}

func TestDispatchSetDataRespYieldsNoReplyAndCallsCloud(t *testing.T) {
	deps, cl := newTestDeps()
	trust := session.New("uuid", "token", 1, session.NoPeerPID, true)
	trust.SetAcceptedSchema([]knot.SensorSchema{{SensorID: 1, TypeID: 1, ValueType: 1, Unit: 1}})
	deps.Registry.Insert(1, trust)
	trust.Unref()

	out := make([]byte, outBufLen)
	n, err := Dispatch(context.Background(), deps, 1, nil, setDataRespFrame(1, [8]byte{1}), out)
	if err != nil || n != 0 {
		t.Fatalf("got (%d, %v), want (0, nil)", n, err)
	}
	if cl.SetdataCalls != 1 {
		t.Fatalf("got %d setdata calls, want 1", cl.SetdataCalls)
	}
	if cl.DataCalls != 1 {
		t.Fatalf("got %d data calls, want 1", cl.DataCalls)
	}
}
