package handler

import (
	"context"

	"github.com/prga/knotgw/pkg/cloud"
	"github.com/prga/knotgw/pkg/gwaudit"
	"github.com/prga/knotgw/pkg/gwlog"
	"github.com/prga/knotgw/pkg/knot"
	"github.com/prga/knotgw/pkg/session"
)

// RegisterRequest is the parsed REGISTER_REQ body plus the peer
// credential the transport recovered for this connection (spec §6
// "peer_credentials"), which the dispatcher resolves before calling in.
type RegisterRequest struct {
	DeviceID   uint64
	DeviceName string
	PeerPID    int32 // 0 if the transport could not recover one; Register stores session.NoPeerPID then
}

// RegisterResult is what the dispatcher needs to assemble a
// REGISTER_RESP frame.
type RegisterResult struct {
	Result knot.Result
	UUID   string
	Token  string
}

// Register implements spec §4.5.1. req is nil when the decoder found the
// body too short to hold a device id and a name byte; a name that is empty
// after NUL trimming arrives as DeviceName "". Both yield
// REGISTER_INVALID_DEVICENAME.
func Register(ctx context.Context, deps Deps, handle session.Handle, req *RegisterRequest) RegisterResult {
	if req == nil || req.DeviceName == "" {
		return RegisterResult{Result: knot.RegisterInvalidDeviceName}
	}

	log := gwlog.WithHandle(int(handle)).WithField("device_id", req.DeviceID)

	// Retransmission: a prior register for the same (device_id, peer pid)
	// on this handle gets the same credential replayed, without touching
	// the cloud again (spec §4.5.1 step 1).
	if existing, ok := deps.Registry.Lookup(handle); ok {
		if existing.DeviceID == req.DeviceID && existing.PeerPID == req.PeerPID {
			log.Info("register: retransmission, replaying stored credential")
			return RegisterResult{Result: knot.Success, UUID: existing.UUID, Token: existing.Token}
		}
	}

	uuid, token, err := deps.Cloud.Mknode(ctx, req.DeviceName, req.DeviceID)
	if err != nil {
		log.WithError(err).Warn("register: mknode failed")
		result := cloud.ResultOf(err)
		gwaudit.Log(gwaudit.NewEvent(int(handle), gwaudit.OpRegister).WithDeviceID(req.DeviceID).WithResult(result).WithError(err))
		return RegisterResult{Result: result}
	}

	if _, _, err := deps.Cloud.Signin(ctx, uuid, token); err != nil {
		log.WithError(err).Warn("register: signin failed")
		result := cloud.ResultOf(err)
		gwaudit.Log(gwaudit.NewEvent(int(handle), gwaudit.OpRegister).WithDeviceID(req.DeviceID).WithUUID(uuid).WithResult(result).WithError(err))
		return RegisterResult{Result: result}
	}

	peerPID := req.PeerPID
	if peerPID == 0 {
		peerPID = session.NoPeerPID
	}

	trust := session.New(uuid, token, req.DeviceID, peerPID, true)
	deps.Registry.Insert(handle, trust)
	trust.Unref() // registry now holds the live reference

	log.WithField("uuid", uuid).Info("register: device created")
	gwaudit.Log(gwaudit.NewEvent(int(handle), gwaudit.OpRegister).WithDeviceID(req.DeviceID).WithUUID(uuid).WithResult(knot.Success))
	return RegisterResult{Result: knot.Success, UUID: uuid, Token: token}
}
