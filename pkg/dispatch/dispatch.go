// Package dispatch implements the top-level PDU dispatcher from spec
// §4.6: decode, route to a handler, assemble and encode the response.
package dispatch

import (
	"context"
	"errors"

	"github.com/prga/knotgw/pkg/gwlog"
	"github.com/prga/knotgw/pkg/handler"
	"github.com/prga/knotgw/pkg/knot"
	"github.com/prga/knotgw/pkg/session"
	"github.com/prga/knotgw/pkg/wire"
)

// ErrInvalid mirrors the original gateway's -EINVAL: the output buffer
// cannot hold a maximum response, or the input PDU is short or
// mis-framed. No response is emitted for this class of failure.
var ErrInvalid = errors.New("dispatch: invalid PDU or output buffer")

// PeerCredentials resolves the local credential (PID) of the peer behind
// handle, the external "peer_credentials" collaborator from spec §6. It
// is consulted only for REGISTER_REQ, matching the original gateway's
// getsockopt(SO_PEERCRED) call site.
type PeerCredentials func(handle session.Handle) (pid int32, err error)

// Dispatch decodes input, routes it to the matching handler, and encodes
// the response into output, returning the number of bytes written. A
// request kind that produces no reply (CONFIG_RESP, DATA_RESP/setdata-
// response) returns 0 with a nil error after its handler runs. An
// unrecognized request type also returns 0, nil (no reply, per spec
// §4.6 step 4).
func Dispatch(ctx context.Context, deps handler.Deps, handle session.Handle, peerCreds PeerCredentials, input, output []byte) (int, error) {
	if len(output) < wireMaxResponse {
		return 0, ErrInvalid
	}

	frame, err := wire.Decode(input)
	if err != nil {
		gwlog.WithHandle(int(handle)).WithError(err).Debug("dispatch: decode failed")
		return 0, ErrInvalid
	}

	switch frame.Type {
	case knot.MsgRegisterReq:
		req := toRegisterRequest(handle, peerCreds, frame.Register)
		res := handler.Register(ctx, deps, handle, req)
		return encode(wire.ResponseFrame{
			Type:   knot.MsgRegisterResp,
			Result: res.Result,
			Credential: func() *wire.CredentialResp {
				if res.Result != knot.Success {
					return nil
				}
				return &wire.CredentialResp{UUID: res.UUID, Token: res.Token}
			}(),
		}, output)

	case knot.MsgUnregisterReq:
		result := handler.Unregister(ctx, deps, handle)
		return encode(wire.ResponseFrame{Type: knot.MsgUnregisterResp, Result: result}, output)

	case knot.MsgAuthReq:
		var result knot.Result
		if frame.Auth == nil {
			result = knot.ErrorUnknown
		} else {
			result = handler.Authenticate(ctx, deps, handle, frame.Auth.UUID, frame.Auth.Token)
		}
		return encode(wire.ResponseFrame{Type: knot.MsgAuthResp, Result: result}, output)

	case knot.MsgSchema, knot.MsgSchemaEnd:
		respType := knot.MsgSchemaResp
		if frame.Type == knot.MsgSchemaEnd {
			respType = knot.MsgSchemaEndResp
		}
		var result knot.Result
		if frame.Schema == nil {
			result = knot.ErrorUnknown
		} else {
			result = handler.Schema(ctx, deps, handle, frame.Schema.Sensor, frame.Schema.EOF)
		}
		return encode(wire.ResponseFrame{Type: respType, Result: result}, output)

	case knot.MsgData:
		var result knot.Result
		if frame.Data == nil {
			result = knot.InvalidData
		} else {
			result = handler.Data(ctx, deps, handle, frame.Data.SensorID, frame.Data.Payload)
		}
		return encode(wire.ResponseFrame{Type: knot.MsgDataResp, Result: result}, output)

	case knot.MsgConfigResp:
		if frame.ConfigResp != nil {
			handler.ConfigResp(deps, handle, frame.ConfigResp.SensorID)
		}
		return 0, nil

	case knot.MsgDataResp:
		// Wire name is DATA_RESP but spec §6 documents this request kind
		// as the setdata-response acknowledgement (§4.5.7); it carries no
		// reply either.
		if frame.SetData != nil {
			handler.SetDataResp(ctx, deps, handle, frame.SetData.SensorID, frame.SetData.Payload)
		}
		return 0, nil

	default:
		return 0, nil
	}
}

// wireMaxResponse mirrors wire's internal max-response-frame size; kept
// here instead of exported from wire to avoid leaking the codec's layout
// constant beyond what dispatch needs to validate against.
const wireMaxResponse = 2 + 1 + knot.UUIDLen + knot.TokenLen

func encode(resp wire.ResponseFrame, output []byte) (int, error) {
	n, err := wire.Encode(resp, output)
	if err != nil {
		return 0, ErrInvalid
	}
	return n, nil
}

func toRegisterRequest(handle session.Handle, peerCreds PeerCredentials, req *wire.RegisterReq) *handler.RegisterRequest {
	if req == nil {
		return nil
	}
	pid := int32(0)
	if peerCreds != nil {
		if p, err := peerCreds(handle); err == nil {
			pid = p
		}
	}
	return &handler.RegisterRequest{DeviceID: req.DeviceID, DeviceName: req.DeviceName, PeerPID: pid}
}
